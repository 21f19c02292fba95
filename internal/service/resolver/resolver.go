// Package resolver maps free text to a medicine name from the catalog.
package resolver

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jwalitptl/medbot/internal/service/composer"
	"github.com/jwalitptl/medbot/pkg/fuzzy"
	"github.com/jwalitptl/medbot/pkg/textutil"
)

// DefaultCutoff is the minimum similarity for a fuzzy name match.
const DefaultCutoff = 0.6

var fieldKeywords = []string{
	"uses", "side effects", "composition", "manufacturer", "how to use",
	"how does it work", "benefits", "safety", "habit forming", "class",
	"product information", "info", "information", "details", "tablet",
	"syrup", "capsule",
}

var (
	stopWords   = regexp.MustCompile(`\b(what|is|the|of|tell|me|about|effects|are|side|manufacture|please|information|details|give|tablet|capsule|syrup|medicine|med)\b`)
	nonAlnumRe  = regexp.MustCompile(`[^a-z0-9\s]`)
	keywordsLen []string
)

func init() {
	// The field keywords are question wording too, never part of a name.
	seen := make(map[string]bool)
	for _, kw := range append(append([]string(nil), fieldKeywords...), composer.FieldKeywords()...) {
		if !seen[kw] {
			seen[kw] = true
			keywordsLen = append(keywordsLen, kw)
		}
	}
	// Longest first so "info" never eats the front of "information".
	sort.SliceStable(keywordsLen, func(i, j int) bool {
		return len(keywordsLen[i]) > len(keywordsLen[j])
	})
}

// Extract strips the question wording from query and returns what is left
// as a candidate medicine name.
func Extract(query string) string {
	s := strings.ToLower(query)
	for _, kw := range keywordsLen {
		s = strings.ReplaceAll(s, kw, " ")
	}
	s = stopWords.ReplaceAllString(s, " ")
	s = nonAlnumRe.ReplaceAllString(s, "")
	return textutil.CollapseSpaces(s)
}

// Resolver finds catalog names. It is immutable and safe for concurrent use.
type Resolver struct {
	index  *fuzzy.Index
	cutoff float64
}

// New builds a resolver over the normalized catalog names, in table order.
// A cutoff outside (0, 1] falls back to DefaultCutoff.
func New(names []string, cutoff float64) *Resolver {
	if cutoff <= 0 || cutoff > 1 {
		cutoff = DefaultCutoff
	}
	return &Resolver{index: fuzzy.NewIndex(names), cutoff: cutoff}
}

// Resolve returns the catalog name query refers to. The result is always a
// catalog name; an empty extraction never matches.
func (r *Resolver) Resolve(query string) (string, bool) {
	name := Extract(query)
	if name == "" {
		return "", false
	}
	if r.index.Contains(name) {
		return name, true
	}
	match, _, ok := r.index.Best(name, r.cutoff)
	return match, ok
}
