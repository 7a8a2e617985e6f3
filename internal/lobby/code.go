package lobby

import (
	"crypto/rand"
	"math/big"
)

const (
	// CodeLength is the number of letters in a room code.
	CodeLength = 6

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var alphabetSize = big.NewInt(int64(len(codeAlphabet)))

// NewCode returns CodeLength letters drawn uniformly from A-Z.
func NewCode() string {
	b := make([]byte, CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic("lobby: read random: " + err.Error())
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b)
}

// ValidCode reports whether s has the shape NewCode produces.
func ValidCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
