package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

// Tokens end up in photo file names, which must not collide on
// case-insensitive file systems.
const (
	photoTokenLength   = 16
	photoTokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NanoID returns a lowercase random token of the default photo token length.
func NanoID() string {
	return NanoIDOfLength(photoTokenLength)
}

// NanoIDOfLength is NanoID with an explicit length; n <= 0 means the default.
func NanoIDOfLength(n int) string {
	if n <= 0 {
		n = photoTokenLength
	}
	return gonanoid.MustGenerate(photoTokenAlphabet, n)
}
