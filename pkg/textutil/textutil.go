// Package textutil holds the string folding shared by the lookup tables and
// the reply composer.
package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const pointerMarker = "👉"

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeKey folds a table key: NFKC, marker stripped, trimmed, lowercased
// and whitespace collapsed.
func NormalizeKey(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, pointerMarker, "")
	return CollapseSpaces(strings.ToLower(s))
}

// NormalizeHeader folds a column header.
func NormalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}

// CollapseSpaces trims s and replaces every whitespace run with one space.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Title upper-cases the first letter of every word and lower-cases the rest.
func Title(s string) string {
	// cases.Caser keeps state, so one per call.
	return cases.Title(language.Und).String(s)
}
