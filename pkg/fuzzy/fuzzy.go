// Package fuzzy implements the string similarity used for medicine names and
// symptom vocabulary on top of difflib's SequenceMatcher.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the SequenceMatcher similarity of a and b in [0, 1],
// compared rune by rune.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

// TokenSortRatio scores a and b in [0, 100] after lowercasing, replacing
// non-word characters with spaces and sorting the tokens. An empty processed
// string scores 0.
func TokenSortRatio(a, b string) int {
	return SortedRatio(SortedTokens(a), SortedTokens(b))
}

// SortedRatio is TokenSortRatio for inputs already passed through
// SortedTokens.
func SortedRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	return int(math.RoundToEven(100 * Ratio(a, b)))
}

// SortedTokens is the processed form TokenSortRatio compares.
func SortedTokens(s string) string {
	tokens := strings.Fields(process(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func process(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

func chars(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}

// Index is an ordered candidate list prepared for repeated best-match
// queries. It is immutable and safe for concurrent use.
type Index struct {
	entries []string
	split   [][]string
	exact   map[string]int
}

// NewIndex builds an index over entries. Duplicate entries keep their first
// position.
func NewIndex(entries []string) *Index {
	ix := &Index{
		entries: make([]string, 0, len(entries)),
		split:   make([][]string, 0, len(entries)),
		exact:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if _, dup := ix.exact[e]; dup {
			continue
		}
		ix.exact[e] = len(ix.entries)
		ix.entries = append(ix.entries, e)
		ix.split = append(ix.split, chars(e))
	}
	return ix
}

// Len reports the number of distinct entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Entries returns the entries in index order.
func (ix *Index) Entries() []string {
	out := make([]string, len(ix.entries))
	copy(out, ix.entries)
	return out
}

// Contains reports whether s is an entry.
func (ix *Index) Contains(s string) bool {
	_, ok := ix.exact[s]
	return ok
}

// Best returns the entry most similar to word with a ratio of at least
// cutoff. Candidates are screened with the cheap upper bounds first, as
// difflib.get_close_matches does. Ties go to the earliest entry.
func (ix *Index) Best(word string, cutoff float64) (string, float64, bool) {
	if word == "" || len(ix.entries) == 0 {
		return "", 0, false
	}

	m := difflib.NewMatcher(nil, chars(word))
	best, bestScore := -1, 0.0
	for i, cand := range ix.split {
		m.SetSeq1(cand)
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		score := m.Ratio()
		if score >= cutoff && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return "", 0, false
	}
	return ix.entries[best], bestScore, true
}
