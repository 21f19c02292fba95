// Package symptom turns free-text symptom descriptions into the binary
// feature vector the disease classifier expects.
package symptom

import (
	"errors"
	"strings"

	"github.com/jwalitptl/medbot/pkg/fuzzy"
)

// Vocabulary is the ordered list of classifier feature columns.
type Vocabulary struct {
	features []string
	index    map[string]int
	fuzzy    *fuzzy.Index
	tokens   [][]string
}

// NewVocabulary lowercases columns and keeps their order. The first of
// duplicate columns owns the name.
func NewVocabulary(columns []string) (*Vocabulary, error) {
	if len(columns) == 0 {
		return nil, errors.New("empty symptom vocabulary")
	}

	v := &Vocabulary{
		features: make([]string, len(columns)),
		index:    make(map[string]int, len(columns)),
		tokens:   make([][]string, len(columns)),
	}
	for i, c := range columns {
		f := strings.ToLower(strings.TrimSpace(c))
		v.features[i] = f
		v.tokens[i] = tokenize(f)
		if _, dup := v.index[f]; !dup {
			v.index[f] = i
		}
	}
	v.fuzzy = fuzzy.NewIndex(v.features)
	return v, nil
}

func (v *Vocabulary) Len() int {
	return len(v.features)
}

// Features returns the feature names in model order.
func (v *Vocabulary) Features() []string {
	out := make([]string, len(v.features))
	copy(out, v.features)
	return out
}

func (v *Vocabulary) lookup(feature string) (int, bool) {
	i, ok := v.index[feature]
	return i, ok
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == ' ' || r == '-'
	})
}
