package symptom

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jwalitptl/medbot/pkg/logger"
	"github.com/jwalitptl/medbot/pkg/metrics"
)

// DefaultCutoff is the minimum similarity for a fuzzy vocabulary match.
const DefaultCutoff = 0.7

// ErrNoValidSymptoms is returned when no phrase maps to a feature.
var ErrNoValidSymptoms = errors.New("no valid symptoms")

// MatchKind records how a phrase reached its feature.
type MatchKind string

const (
	MatchExact MatchKind = "exact"
	MatchFuzzy MatchKind = "fuzzy"
	MatchToken MatchKind = "token"
)

type Match struct {
	Phrase  string
	Feature string
	Kind    MatchKind
	Score   float64
}

// Vector is a binary feature vector in vocabulary order.
type Vector []float64

var snakeRe = regexp.MustCompile(`[\s\-]+`)

// SnakeCase maps "High Fever" to "high_fever".
func SnakeCase(s string) string {
	return snakeRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
}

type Normalizer struct {
	vocab   *Vocabulary
	cutoff  float64
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewNormalizer(vocab *Vocabulary, cutoff float64, log *logger.Logger, m *metrics.Metrics) *Normalizer {
	if cutoff <= 0 || cutoff > 1 {
		cutoff = DefaultCutoff
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Normalizer{vocab: vocab, cutoff: cutoff, log: log, metrics: m}
}

// Normalize maps each phrase to at most one feature. Phrases that match
// nothing are logged and dropped. The vector always has one slot per
// vocabulary feature.
func (n *Normalizer) Normalize(phrases []string) (Vector, []Match, error) {
	vec := make(Vector, n.vocab.Len())
	var matches []Match

	for _, phrase := range phrases {
		m, ok := n.match(phrase)
		if !ok {
			n.metrics.ObserveSymptomMatch("unmatched")
			n.log.Warn("symptom not recognized", "symptom", phrase)
			continue
		}

		n.metrics.ObserveSymptomMatch(string(m.Kind))
		if m.Kind != MatchExact {
			n.log.Debug("interpreted symptom", "symptom", phrase, "feature", m.Feature, "kind", string(m.Kind))
		}

		i, _ := n.vocab.lookup(m.Feature)
		vec[i] = 1
		matches = append(matches, m)
	}

	if len(matches) == 0 {
		return nil, nil, ErrNoValidSymptoms
	}
	return vec, matches, nil
}

func (n *Normalizer) match(phrase string) (Match, bool) {
	key := SnakeCase(phrase)
	if key == "" {
		return Match{}, false
	}

	if _, ok := n.vocab.lookup(key); ok {
		return Match{Phrase: phrase, Feature: key, Kind: MatchExact, Score: 1}, true
	}

	if f, score, ok := n.vocab.fuzzy.Best(key, n.cutoff); ok {
		return Match{Phrase: phrase, Feature: f, Kind: MatchFuzzy, Score: score}, true
	}

	if f, ok := n.uniqueContaining(tokenize(key)); ok {
		return Match{Phrase: phrase, Feature: f, Kind: MatchToken}, true
	}
	return Match{}, false
}

// uniqueContaining finds the single feature whose tokens include all of
// want. Ambiguous phrases such as "fever" (high_fever, mild_fever) match
// nothing.
func (n *Normalizer) uniqueContaining(want []string) (string, bool) {
	if len(want) == 0 {
		return "", false
	}

	found := ""
	for i, have := range n.vocab.tokens {
		if !containsAll(have, want) {
			continue
		}
		f := n.vocab.features[i]
		if found != "" && found != f {
			return "", false
		}
		found = f
	}
	return found, found != ""
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		ok := false
		for _, h := range have {
			if h == w {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
