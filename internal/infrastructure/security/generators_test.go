package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVoterKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateVoterKey()
		require.NoError(t, err)
		require.Len(t, key, 10)

		for _, c := range key {
			assert.True(t, strings.ContainsRune(voterKeyAlphabet, c), "unexpected character %q", c)
		}
		seen[key] = true
	}
	// 100 collisions across a 33^10 space would mean a broken generator.
	assert.Greater(t, len(seen), 99)
}

func TestGenerateVerificationToken(t *testing.T) {
	token, err := GenerateVerificationToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.Regexp(t, "^[0-9a-f]+$", token)
}

func TestVoterTokenRoundTrip(t *testing.T) {
	session := VoterSession{VoterID: "v1", ElectionID: "e1", UniqueID: "V100"}
	token, err := GenerateVoterToken(session, "jwt-secret", time.Hour)
	require.NoError(t, err)

	decoded, err := ValidateVoterToken(token, "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, session, *decoded)

	_, err = ValidateVoterToken(token, "wrong-secret")
	assert.Error(t, err)
}
