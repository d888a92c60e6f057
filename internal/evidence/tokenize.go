// Package evidence matches requirement text against document chunks by
// lexical term overlap and classifies the matches.
package evidence

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTermLength is the shortest term kept by Tokenize. Shorter tokens are noise.
const MinTermLength = 4

// Tokenize splits text on whitespace and '/' and returns the lowercase
// terms of at least MinTermLength characters, in input order.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '/' || unicode.IsSpace(r)
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < MinTermLength {
			continue
		}
		terms = append(terms, strings.ToLower(f))
	}
	return terms
}

// termFrequencies counts each term of text.
func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, t := range Tokenize(text) {
		freq[t]++
	}
	return freq
}
