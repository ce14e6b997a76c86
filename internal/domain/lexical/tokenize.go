// Package lexical provides tokenization and BM25 Okapi scoring over small,
// request-scoped corpora.
package lexical

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text and returns its maximal runs of word characters.
// Letters, digits and underscore are word characters; everything else separates.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

// TokenizeAll tokenizes every text of a corpus, preserving order.
func TokenizeAll(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = Tokenize(t)
	}
	return out
}

// IsBlank reports whether no document of a tokenized corpus has any token.
func IsBlank(corpus [][]string) bool {
	for _, doc := range corpus {
		if len(doc) > 0 {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
