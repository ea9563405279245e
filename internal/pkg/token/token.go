package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Size is the number of random bytes behind every token (256 bits).
const Size = 32

// New generates a cryptographically random 64-character hex token.
func New() (string, error) {
	b := make([]byte, Size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Hash returns the hex sha256 digest stored in place of a raw token.
// Tokens that are not 64 hex characters are rejected before hashing.
func Hash(raw string) (string, error) {
	if len(raw) != hex.EncodedLen(Size) {
		return "", errors.New("token has wrong length")
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("token is not hex: %w", err)
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:]), nil
}
