package symptom

import (
	"context"
	"regexp"
	"strings"
)

// Extractor pulls symptom phrases out of a chat message.
type Extractor interface {
	Extract(ctx context.Context, message string) ([]string, error)
}

var (
	phraseSplitRe = regexp.MustCompile(`\s*(?:[,;/&]|\band\b|\bwith\b|\balso\b|\bplus\b)\s*`)
	// "mild" is deliberately absent: mild_fever is a feature.
	leadingFillerRe = regexp.MustCompile(`^(?:i am suffering from|i'm suffering from|suffering from|i am having|i'm having|i have been having|i have got|i've got|i have|i've|i am feeling|i'm feeling|i feel|i got|i get|i am|i'm|feeling|having|experiencing|got|some|a lot of|lots of|a bit of|severe|slight|a|an|my|the)\s+`)
)

// PhraseExtractor splits a message on separators and conjunctions and
// strips leading filler from each piece.
type PhraseExtractor struct{}

func NewPhraseExtractor() *PhraseExtractor {
	return &PhraseExtractor{}
}

func (PhraseExtractor) Extract(_ context.Context, message string) ([]string, error) {
	var phrases []string
	for _, part := range phraseSplitRe.Split(strings.ToLower(message), -1) {
		if p := cleanPhrase(part); p != "" {
			phrases = append(phrases, p)
		}
	}
	return phrases, nil
}

func cleanPhrase(s string) string {
	s = strings.TrimSpace(s)
	for {
		next := leadingFillerRe.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = strings.TrimSpace(next)
	}
	return strings.TrimSpace(strings.TrimRight(s, ".!?:"))
}

// CommaSplit is the fallback when an extractor finds nothing.
func CommaSplit(message string) []string {
	var phrases []string
	for _, part := range strings.Split(strings.ToLower(message), ",") {
		if p := strings.TrimSpace(part); p != "" {
			phrases = append(phrases, p)
		}
	}
	return phrases
}

// Fallback tries each extractor in order and returns the first non-empty
// result, or CommaSplit when none finds anything. Extractor errors go to
// OnError and never stop the chain.
type Fallback struct {
	Extractors []Extractor
	OnError    func(error)
}

func (f Fallback) Extract(ctx context.Context, message string) ([]string, error) {
	for _, ex := range f.Extractors {
		phrases, err := ex.Extract(ctx, message)
		if err != nil {
			if f.OnError != nil {
				f.OnError(err)
			}
			continue
		}
		if len(phrases) > 0 {
			return phrases, nil
		}
	}
	return CommaSplit(message), nil
}
