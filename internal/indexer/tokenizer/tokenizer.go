// Package tokenizer splits document text into index terms for the
// statistics index. It lower-cases input, splits on anything that is not a
// letter or digit, and drops the catalog's stop words.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/stopwords"
)

// Token is a normalised term and its position among the kept terms.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into lower-cased Tokens with stop words removed.
func Tokenize(text string) []Token {
	return TokenizeWith(text, stopwords.Default)
}

// TokenizeWith is Tokenize with an explicit stop-word set.
func TokenizeWith(text string, stop stopwords.Set) []Token {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	for _, word := range words {
		if stop.Contains(word) {
			continue
		}
		tokens = append(tokens, Token{
			Term:     word,
			Position: len(tokens),
		})
	}
	return tokens
}
