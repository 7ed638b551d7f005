package queryaware

import (
	"strings"
	"unicode"
)

// minTokenLength filters out very short words before punctuation stripping.
const minTokenLength = 3

// tokenize lowercases text, splits on whitespace, drops words shorter than
// three characters, and strips non-alphanumeric runes from the survivors.
func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))

	for _, word := range fields {
		if len(word) < minTokenLength {
			continue
		}

		var b strings.Builder
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}

		if token := b.String(); token != "" {
			tokens = append(tokens, token)
		}
	}

	return tokens
}

// termSet returns the distinct tokens of text.
func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range tokenize(text) {
		set[token] = struct{}{}
	}
	return set
}
