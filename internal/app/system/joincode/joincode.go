// Package joincode generates and compares the secrets that gate private
// groups.
package joincode

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Length is the number of random bytes in a code (hex-encoded to twice
// as many characters).
const Length = 6

// New returns a fresh, unguessable join code such as "9f2c41ab07d3".
func New() (string, error) {
	b := make([]byte, Length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Matches reports whether supplied equals stored exactly. Surrounding
// whitespace on the supplied value is ignored. An empty stored code never
// matches.
func Matches(stored, supplied string) bool {
	supplied = strings.TrimSpace(supplied)
	if stored == "" || len(supplied) != len(stored) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
