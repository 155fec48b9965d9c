package lobby

import (
	"crypto/rand"
	"fmt"
)

// Room codes are short, human-shareable, and unambiguous: no 0/O or 1/I/L.
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// generateCode returns a fixed-length random room code. Uniqueness among open
// rooms is enforced by the caller (collision check + partial unique index).
func generateCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
