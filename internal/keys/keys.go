// Package keys generates and validates the opaque credentials used for
// session and account-confirmation tokens.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a token key: a hex-encoded SHA-224 digest.
const Size = 56

// Generate returns a new unpredictable token key. The key is the hex
// encoding of a SHA-224 digest over 128 bytes of cryptographically secure
// randomness; no uniqueness check against the store is performed.
func Generate() string {
	buf := make([]byte, 128)
	if _, err := rand.Read(buf); err != nil {
		panic("keys: entropy source unavailable: " + err.Error())
	}
	sum := sha256.Sum224(buf)
	return hex.EncodeToString(sum[:])
}

// Valid reports whether key is exactly Size hexadecimal characters.
func Valid(key string) bool {
	if len(key) != Size {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
