package serp

import (
	"regexp"
	"strings"
)

var nonLetters = regexp.MustCompile(`[^a-zA-Z\s]`)

// Normalize removes every character that is neither an ASCII letter nor
// whitespace and lowercases the rest.
//
//	Normalize("Domino's Pizza!") == "dominos pizza"
//	Normalize("123 ABC") == " abc"
func Normalize(title string) string {
	return strings.ToLower(nonLetters.ReplaceAllString(title, ""))
}

// ContainsAny reports whether body contains any of the literal spellings.
// The comparison is case-sensitive.
func ContainsAny(body string, spellings []string) bool {
	for _, s := range spellings {
		if s != "" && strings.Contains(body, s) {
			return true
		}
	}
	return false
}
