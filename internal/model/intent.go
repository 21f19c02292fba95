package model

// Intent is the category a message is classified into.
type Intent string

const (
	IntentGreeting      Intent = "greeting"
	IntentThanks        Intent = "thanks"
	IntentFarewell      Intent = "farewell"
	IntentImageRequest  Intent = "image_request"
	IntentMedicineQuery Intent = "medicine_query"
	IntentSymptomCheck  Intent = "symptom_check"
	IntentGeneral       Intent = "general"
)

var intents = []Intent{
	IntentGreeting,
	IntentThanks,
	IntentFarewell,
	IntentImageRequest,
	IntentMedicineQuery,
	IntentSymptomCheck,
	IntentGeneral,
}

// Intents lists every intent.
func Intents() []Intent {
	out := make([]Intent, len(intents))
	copy(out, intents)
	return out
}

// ParseIntent maps a classifier label to an Intent.
func ParseIntent(label string) (Intent, bool) {
	for _, i := range intents {
		if string(i) == label {
			return i, true
		}
	}
	return IntentGeneral, false
}

func (i Intent) String() string {
	return string(i)
}
