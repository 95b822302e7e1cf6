package rag

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// conversationalPhrases are utterances answered directly, without retrieval.
var conversationalPhrases = map[string]struct{}{
	"hi":              {},
	"hello":           {},
	"hey":             {},
	"yo":              {},
	"help":            {},
	"thanks":          {},
	"thank you":       {},
	"bye":             {},
	"goodbye":         {},
	"good morning":    {},
	"good afternoon":  {},
	"good evening":    {},
	"how are you":     {},
	"who are you":     {},
	"what are you":    {},
	"what can you do": {},
}

// IsLowIntent reports whether a query is conversational rather than a content
// question. Matching is exact on the normalized query, never substring, so
// "hello world programming" is a content question even though it starts with
// a greeting word. Very short queries with no letters (punctuation, emoji)
// also count as low intent.
func IsLowIntent(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if _, ok := conversationalPhrases[q]; ok {
		return true
	}
	if utf8.RuneCountInString(q) < 3 && !containsLetter(q) {
		return true
	}
	return false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
