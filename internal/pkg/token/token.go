package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewGuid generates a cryptographically random 64-character hex token, used
// as the one-time mobile-handoff guid embedded in the instant link.
func NewGuid() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate guid: %w", err)
	}
	return hex.EncodeToString(b), nil
}
