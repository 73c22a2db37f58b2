// Package enrich grounds chat prompts with live context before they reach
// the language model.
package enrich

import "strings"

type Intents struct {
	News         bool
	Encyclopedic bool
	Search       bool
}

func (i Intents) Any() bool {
	return i.News || i.Encyclopedic || i.Search
}

type Classifier interface {
	Intents(message string) Intents
}

var (
	newsKeywords = []string{
		"news", "latest", "today", "current",
		"update", "updates", "breaking",
		"price", "launch", "released",
	}
	encyclopedicKeywords = []string{
		"who is", "what is", "explain", "define",
		"history", "about", "meaning",
	}
	searchKeywords = []string{
		"how to", "best", "compare", "vs",
		"tool", "library", "framework",
		"alternative", "example", "tutorial",
		"use case", "guide",
	}
	factKeywords = []string{
		"who", "winner", "when", "year", "born",
		"orange cap", "ipl", "score", "record",
		"president", "prime minister",
	}
)

// KeywordClassifier matches fixed English keyword lists as case-insensitive
// substrings. "vs" also matches inside words such as "canvas".
type KeywordClassifier struct{}

func (KeywordClassifier) Intents(message string) Intents {
	m := strings.ToLower(message)
	return Intents{
		News:         containsAny(m, newsKeywords),
		Encyclopedic: containsAny(m, encyclopedicKeywords),
		Search:       containsAny(m, searchKeywords),
	}
}

// IsFactQuery reports whether message should be answered from verified
// context only.
func IsFactQuery(message string) bool {
	return containsAny(strings.ToLower(message), factKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
