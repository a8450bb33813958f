package search

import (
	"regexp"
	"strings"
	"unicode"
)

// leadingJunk matches a leading run outside the German alphabet. Spaces
// are kept so a leading gap still separates words.
var leadingJunk = regexp.MustCompile(`^[^a-zA-ZäöüÄÖÜß ]+`)

// Normalize turns free text into a wildcard query. Whitespace runs collapse
// into single wildcard gaps and the text is wrapped in wildcards. Blank
// input yields "".
func Normalize(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if collapsed == "" {
		return ""
	}
	return "*" + strings.ReplaceAll(collapsed, " ", "*") + "*"
}

// StripLeading replaces a leading run of characters outside the German
// alphabet with a wildcard, tolerating stray punctuation or digits at the
// start of autocompletion input.
func StripLeading(text string) string {
	return leadingJunk.ReplaceAllString(text, "*")
}

// NormalizeLeading is Normalize after StripLeading.
func NormalizeLeading(text string) string {
	return Normalize(StripLeading(text))
}

// Searchable reports whether the query has anything to match besides
// wildcards and punctuation.
func Searchable(query string) bool {
	return strings.IndexFunc(query, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
