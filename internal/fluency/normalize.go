package fluency

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text, turns punctuation and symbols into word breaks and
// splits on whitespace. Token order is preserved.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, text)
	return strings.Fields(text)
}
