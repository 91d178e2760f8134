package wordlist

import "unicode"

// Valid reports whether word can be used as a target token. Tokens must be
// non-empty and free of whitespace and control characters, because a space
// always ends the word being typed.
func Valid(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
