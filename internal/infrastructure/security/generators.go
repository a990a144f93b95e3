// Package security provides secure random generation utilities
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/oklog/ulid/v2"
)

// voterKeyAlphabet excludes the ambiguous characters I, O, 0 and 1.
const voterKeyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// voterKeyLength is the number of characters in a generated access key.
const voterKeyLength = 10

// GenerateULID generates a new ULID string.
func GenerateULID() string {
	return ulid.Make().String()
}

// GenerateVoterKey produces a human-readable voter access key. Each
// character is drawn uniformly from the unambiguous alphabet using
// crypto/rand, so no position carries modulo bias.
func GenerateVoterKey() (string, error) {
	max := big.NewInt(int64(len(voterKeyAlphabet)))
	key := make([]byte, voterKeyLength)
	for i := range key {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate voter key: %w", err)
		}
		key[i] = voterKeyAlphabet[n.Int64()]
	}
	return string(key), nil
}

// GenerateVerificationToken creates a 32-byte cryptographically random
// token and returns it as a 64-character hex string.
func GenerateVerificationToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
