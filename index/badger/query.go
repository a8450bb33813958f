package badger

import (
	"strings"
	"unicode"
)

// query is a parsed query_string: whitespace-separated terms combined
// with OR. Punctuation inside a term matches literally. Terms without a
// letter or digit are dropped, so a lone wildcard never matches every row.
type query struct {
	terms [][]rune
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func parseQuery(s string) query {
	var q query
	for _, term := range strings.Fields(strings.ToLower(s)) {
		if strings.IndexFunc(term, isTokenRune) < 0 {
			continue
		}
		q.terms = append(q.terms, []rune(term))
	}
	return q
}

func (q query) empty() bool {
	return len(q.terms) == 0
}

// score counts the terms matching the text. A term matches when it matches
// one token of the text or the whole lowercased text.
func (q query) score(text string) float64 {
	lower := strings.ToLower(text)
	whole := []rune(lower)
	var tokens [][]rune
	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool { return !isTokenRune(r) }) {
		tokens = append(tokens, []rune(tok))
	}

	var score float64
	for _, term := range q.terms {
		if wildcardMatch(term, whole) {
			score++
			continue
		}
		for _, tok := range tokens {
			if wildcardMatch(term, tok) {
				score++
				break
			}
		}
	}
	return score
}

// wildcardMatch matches s against a pattern where * spans any run of runes
// and ? exactly one rune.
func wildcardMatch(pattern, s []rune) bool {
	p, i := 0, 0
	star, mark := -1, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == s[i]):
			p++
			i++
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, i
			p++
		case star >= 0:
			p = star + 1
			mark++
			i = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
