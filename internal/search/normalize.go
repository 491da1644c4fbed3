package search

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// nonWordPattern matches runs of anything that is not a letter, a number or '_'.
	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
	digitPattern   = regexp.MustCompile(`\p{Nd}+`)
)

// Normalize converts free text into a comparable token stream: lowercase
// word tokens without digits or stopwords, joined by single spaces.
func Normalize(text string) string {
	return strings.Join(Tokens(text), " ")
}

// Tokens returns the tokens Normalize would join.
//
// Non-word runs are replaced by a space before digits are deleted, so digits
// embedded in a word fuse its letter groups ("item2go" becomes "itemgo").
func Tokens(text string) []string {
	// cases.Caser is stateful, one per call keeps Tokens safe for concurrent use.
	lowered := cases.Lower(language.Und).String(text)
	spaced := nonWordPattern.ReplaceAllString(lowered, " ")
	stripped := digitPattern.ReplaceAllString(spaced, "")

	fields := strings.Fields(stripped)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if IsStopword(field) {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}
