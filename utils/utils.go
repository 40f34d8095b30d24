package utils

import "math/rand"

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// RandomAlphabetString generates a random lowercase string of length n.
func RandomAlphabetString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// StrPtr returns a pointer to s; the empty string maps to nil, matching the
// backends' habit of omitting empty optional fields.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
