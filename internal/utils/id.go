package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// ShareIDBytes is the entropy of a share identifier (128 bits).
const ShareIDBytes = 16

// GenerateSecureToken creates a cryptographically secure random token,
// base64url encoded without padding.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewShareID returns a fresh 22-character share identifier.
func NewShareID() (string, error) {
	return GenerateSecureToken(ShareIDBytes)
}
