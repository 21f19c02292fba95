package intent

import (
	"regexp"
	"strings"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/pkg/textutil"
)

type patternGroup struct {
	intent   model.Intent
	patterns []*regexp.Regexp
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// KeywordModel scores each intent by how many of its patterns match. The
// highest count wins; ties go to the group listed first. A catalog medicine
// name in the text counts as one more medicine_query match.
type KeywordModel struct {
	groups []patternGroup

	catalog map[string]struct{}
	// longest catalog name, in words
	maxWords int
}

// NewKeywordModel builds the rule set. catalog holds the medicine names the
// model should recognize on their own, such as "dolo 650".
func NewKeywordModel(catalog ...string) *KeywordModel {
	m := &KeywordModel{
		// Tie-break order.
		groups: []patternGroup{
			{model.IntentSymptomCheck, compilePatterns([]string{
				`\b(pain|pains|painful|hurt|hurts|hurting|ache|aches|aching)\b`,
				`\b(fever|chills|shivering|sweating|temperature)\b`,
				`\b(headache|migraine|dizzy|dizziness)\b`,
				`\b(cough|coughing|sneezing|sore throat|runny nose|congestion)\b`,
				`\b(nausea|vomiting|diarrhoea|diarrhea|constipation|bloated|indigestion|acidity)\b`,
				`\b(rash|itching|itchy|skin|blister|swelling|swollen)\b`,
				`\b(tired|fatigue|weakness|lethargy|numb|anxious|anxiety|insomnia)\b`,
				`\b(breath|breathe|breathlessness|chest)\b`,
				`\b(symptom|symptoms|suffering from)\b`,
				`\bi (feel|am feeling|have been feeling)\b`,
				`\bmy \w+ (hurts|aches|feels)\b`,
				`\b(sore|muscles?|cramps?|stiff|stiffness|numbness)\b`,
			})},
			{model.IntentMedicineQuery, compilePatterns([]string{
				`\b(medicine|medicines|drug|drugs|tablet|tablets|capsule|syrup|injection)\b`,
				`\bside effects?\b`,
				`\b(composition|contains|ingredients?)\b`,
				`\b(uses|used for|benefits?)\b`,
				`\bhow (to|do i|should i) (use|take)\b`,
				`\b(dosage|dose)\b`,
				`\b(habit forming|addictive)\b`,
				`\b(chemical|therapeutic|action) class\b`,
				`\b(herbal|chemical|ayurvedic|allopathic)\b`,
				`\b(alternatives?|substitutes?)\b`,
				`\b(tell me about|information about|info on|details of)\b`,
				`\b(safe|safety)\b`,
			})},
			{model.IntentImageRequest, compilePatterns([]string{
				`\b(image|images|photo|photos|picture|pic|scan|x-ray|xray|upload)\b`,
			})},
			{model.IntentThanks, compilePatterns([]string{
				`\b(thanks|thank you|thx|cheers)\b`,
				`\b(much appreciated|appreciate it)\b`,
				`\byou're great\b`,
			})},
			{model.IntentFarewell, compilePatterns([]string{
				`\b(bye|goodbye|exit|quit)\b`,
				`\b(see you|take care|catch you later|logging out)\b`,
			})},
			{model.IntentGreeting, compilePatterns([]string{
				`\b(hi|hello|hey|greetings|yo)\b`,
				`\bgood (morning|afternoon|evening)\b`,
				`\bhow are you\b`,
			})},
		},
		catalog: make(map[string]struct{}, len(catalog)),
	}
	for _, name := range catalog {
		words := wordRe.FindAllString(textutil.NormalizeKey(name), -1)
		if len(words) == 0 {
			continue
		}
		m.catalog[strings.Join(words, " ")] = struct{}{}
		if len(words) > m.maxWords {
			m.maxWords = len(words)
		}
	}
	return m
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// Predict returns "general" when nothing matches.
func (m *KeywordModel) Predict(text string) (string, error) {
	best, bestCount := model.IntentGeneral, 0
	for _, g := range m.groups {
		count := 0
		for _, p := range g.patterns {
			if p.MatchString(text) {
				count++
			}
		}
		if g.intent == model.IntentMedicineQuery && m.mentionsMedicine(text) {
			count++
		}
		if count > bestCount {
			best, bestCount = g.intent, count
		}
	}
	return string(best), nil
}

// mentionsMedicine reports whether any run of words in text is a catalog
// name.
func (m *KeywordModel) mentionsMedicine(text string) bool {
	if len(m.catalog) == 0 {
		return false
	}
	words := wordRe.FindAllString(textutil.NormalizeKey(text), -1)
	for i := range words {
		for n := 1; n <= m.maxWords && i+n <= len(words); n++ {
			if _, ok := m.catalog[strings.Join(words[i:i+n], " ")]; ok {
				return true
			}
		}
	}
	return false
}
