package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
)

const testSecret = "unit-test-secret"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, plaintext := range []string{"AB23CD89XY", "a", "key with spaces", ""} {
		stored, err := EncryptKey(plaintext, testSecret)
		require.NoError(t, err)
		require.Contains(t, stored, ":")

		recovered, err := DecryptKey(stored, testSecret)
		require.NoError(t, err)
		assert.Equal(t, plaintext, recovered)
	}
}

func TestEncryptGeneratesFreshIV(t *testing.T) {
	first, err := EncryptKey("AB23CD89XY", testSecret)
	require.NoError(t, err)
	second, err := EncryptKey("AB23CD89XY", testSecret)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, strings.SplitN(first, ":", 2)[0], strings.SplitN(second, ":", 2)[0])
}

func TestDecryptLegacyPlaintextPassthrough(t *testing.T) {
	recovered, err := DecryptKey("LEGACYKEY42", testSecret)
	require.NoError(t, err)
	assert.Equal(t, "LEGACYKEY42", recovered)
}

func TestDecryptMalformedCiphertext(t *testing.T) {
	cases := []string{
		"nothex:deadbeef",
		"00112233445566778899aabbccddeeff:nothex",
		"00112233445566778899aabbccddeeff:",
		"abcd:deadbeef", // iv too short
	}
	for _, stored := range cases {
		_, err := DecryptKey(stored, testSecret)
		require.Error(t, err, "stored=%q", stored)
		assert.ErrorIs(t, err, domainerrors.ErrDecryption)
	}
}

func TestEmptySecretIsConfigurationError(t *testing.T) {
	_, err := EncryptKey("AB23CD89XY", "")
	assert.ErrorIs(t, err, domainerrors.ErrConfiguration)

	_, err = DecryptKey("00112233445566778899aabbccddeeff:deadbeefdeadbeefdeadbeefdeadbeef", " ")
	assert.ErrorIs(t, err, domainerrors.ErrConfiguration)
}

func TestHashKeyNormalization(t *testing.T) {
	assert.Equal(t, HashKey("AB23CD89"), HashKey("ab23 cd89"))
	assert.Equal(t, HashKey("AB23CD89"), HashKey(" Ab23\tCd89 \n"))
	assert.NotEqual(t, HashKey("AB23CD89"), HashKey("AB23CD88"))
	assert.Len(t, HashKey("AB23CD89"), 64)
}

func TestDecryptWrongSecretFails(t *testing.T) {
	stored, err := EncryptKey("AB23CD89XY", testSecret)
	require.NoError(t, err)

	recovered, err := DecryptKey(stored, "another-secret")
	if err == nil {
		// CBC without authentication can decrypt to garbage that happens to
		// carry valid padding; it must never equal the original plaintext.
		assert.NotEqual(t, "AB23CD89XY", recovered)
	} else {
		assert.ErrorIs(t, err, domainerrors.ErrDecryption)
	}
}
