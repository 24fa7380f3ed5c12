package analysis

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Normalize turns raw article text into the canonical token stream the
// classical models were trained on: lowercase, ASCII letters only, stop
// words dropped, each token stemmed, single-space joined.
func Normalize(raw string) string {
	cleaned := clean(raw)

	tokens := strings.Fields(cleaned)
	stems := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if IsStopWord(token) {
			continue
		}
		stems = append(stems, stem(token))
	}

	return strings.Join(stems, " ")
}

// clean lowercases the text and removes everything that is not an ASCII letter or whitespace
func clean(raw string) string {
	lowered := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stem reduces a token with the Snowball English stemmer. Stop words are
// filtered before this point, so the stemmer never needs to skip them.
func stem(token string) string {
	return english.Stem(token, true)
}
