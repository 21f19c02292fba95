// Package composer renders every chatbot reply.
package composer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/pkg/textutil"
)

const (
	Welcome        = "👋 Hello! I'm your medical assistant."
	HistoryCleared = "Chat history cleared. How can I help you now?"
	Greeting       = "👋 Hello! How can I help you today?"
	Thanks         = "🙏 You're welcome! Feel free to ask anything!"
	Farewell       = "👋 Goodbye! Take care of your health!"
	ImageSoon      = "📸 Image support is coming soon!"
	NoAlternatives = "❌ Sorry, I couldn't find alternatives for that medicine."
	FieldMissing   = "⚠️ Sorry, I couldn't find that specific information."

	UnknownMedicine = "❌ Sorry, I couldn't understand. Please enter symptoms " +
		"(comma separated) or a known medicine name."

	SymptomFailure = "🔍 I couldn't identify a disease based on the symptoms provided.\n" +
		"Please provide more details or correct symptoms."

	NameDeflection = "I'm a medical chatbot, I don't need to know your name. " +
		"How can I help with your symptoms or medicine questions?"

	// Examples lists sample questions.
	Examples = "Try asking:\n" +
		"- 'Tell me about Avastin'\n" +
		"- 'Side effects of Andol'\n" +
		"- 'How to use Bevacizumab'\n" +
		"- Or list your symptoms like 'headache, fever'"

	Help = "❓ Sorry, I couldn't understand that. " + Examples
)

const (
	alternativesHeader = "💊 Alternative Medicines:\n"
	notAvailable       = "N/A"
	noPrice            = "Price not available"
)

// FieldAnswer renders a single field of a medicine.
func FieldAnswer(rec model.MedicineRecord, f Field) string {
	value, ok := rec.Field(f.Column())
	if f == FieldNone || !ok {
		return FieldMissing
	}

	name := textutil.Title(rec.Name)
	if f == FieldComposition {
		return fmt.Sprintf("🧪 **Contains of %s**:\n%s", name, value)
	}
	label := textutil.Title(strings.ReplaceAll(f.Column(), "_", " "))
	return fmt.Sprintf("📌 **%s of %s**:\n%s", label, name, value)
}

// Summary renders the medicine card followed by the prompt for a narrower
// question.
func Summary(rec model.MedicineRecord) string {
	name := textutil.Title(rec.Name)
	or := func(col string) string {
		if v, ok := rec.Field(col); ok {
			return v
		}
		return notAvailable
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📘 **%s**\n\n", name)
	fmt.Fprintf(&b, "🧪 **Composition:** %s\n\n", or(model.ColumnContains))
	fmt.Fprintf(&b, "🔬 **Uses:** %s\n\n", or(model.ColumnProductUses))
	fmt.Fprintf(&b, "📌 **Side Effects:** %s\n\n", or(model.ColumnSideEffect))
	fmt.Fprintf(&b, "🧭 **How to Use:** %s\n\n", or(model.ColumnHowToUse))
	fmt.Fprintf(&b, "⚖️ **Safety Advice:** %s\n\n", or(model.ColumnSafetyAdvice))
	fmt.Fprintf(&b, "\n\n👉 Would you like to know more about %s?\n", name)
	b.WriteString("You can ask about: 'side effects', 'how to use', 'benefits', " +
		"'safety advice', 'chemical class', 'composition'")
	return b.String()
}

// Alternatives renders the ranked list, or NoAlternatives when it is empty.
func Alternatives(list []model.RankedAlternative) string {
	if len(list) == 0 {
		return NoAlternatives
	}

	lines := make([]string, len(list))
	for i, alt := range list {
		price := noPrice
		if alt.HasPrice() {
			price = FormatPrice(alt.Price) + " rs"
		}
		lines[i] = fmt.Sprintf("💊 %s - %s\n📝 %s\n", alt.Name, price, alt.Description)
	}
	return alternativesHeader + strings.Join(lines, "\n")
}

// FormatPrice prints whole prices with one decimal place ("30.0") and
// others at their shortest exact form ("12.5").
func FormatPrice(p float64) string {
	if math.IsInf(p, 0) || math.IsNaN(p) {
		return noPrice
	}
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Diagnosis holds the lookups rendered for a predicted disease. Each list
// already carries its fallback text when the table had nothing.
type Diagnosis struct {
	Disease     string
	Description string
	Medications []string
	Precautions []string
	Diets       []string
	Workouts    []string
}

func (d Diagnosis) String() string {
	return fmt.Sprintf("🩺 **Predicted Disease**: %s\n\n"+
		"📝 **Description**: %s\n"+
		"💊 **Medications**: %s\n"+
		"⚠️ **Precautions**: %s\n"+
		"🥗 **Diet**: %s\n"+
		"🏃 **Workouts**: %s",
		d.Disease, d.Description,
		strings.Join(d.Medications, ", "),
		strings.Join(d.Precautions, ", "),
		strings.Join(d.Diets, ", "),
		strings.Join(d.Workouts, ", "))
}

// Unavailable is the reply when the table a question needs did not load.
func Unavailable(what string) string {
	return fmt.Sprintf("⚠️ Sorry, %s information is temporarily unavailable. Please try again later.", what)
}
