// Package security provides credential encryption and hashing utilities
package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/crypto/scrypt"

	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
)

// keySalt is the fixed scrypt salt used for deriving the AES key from the
// shared secret. Changing it invalidates every stored key.
const keySalt = "salt"

// scrypt cost parameters (N, r, p)
const (
	scryptN = 16384
	scryptR = 8
	scryptP = 1
)

func deriveKey(secret string) ([]byte, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: empty encryption secret", domainerrors.ErrConfiguration)
	}
	key, err := scrypt.Key([]byte(secret), []byte(keySalt), scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}

// EncryptKey encrypts a plaintext voter key for storage at rest. The result
// is "ivHex:cipherHex" under AES-256-CBC with a scrypt-derived key. A fresh
// random IV is generated on every call.
func EncryptKey(plaintext, secret string) (string, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher init failed: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("iv generation failed: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptKey reverses EncryptKey. A stored value without a ":" separator is
// a legacy plaintext row and is returned unchanged. Malformed hex or a bad
// padding result fails with ErrDecryption.
func DecryptKey(storedKey, secret string) (string, error) {
	sep := strings.Index(storedKey, ":")
	if sep < 0 {
		return storedKey, nil
	}

	key, err := deriveKey(secret)
	if err != nil {
		return "", err
	}

	iv, err := hex.DecodeString(storedKey[:sep])
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: malformed iv", domainerrors.ErrDecryption)
	}

	ciphertext, err := hex.DecodeString(storedKey[sep+1:])
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: malformed ciphertext", domainerrors.ErrDecryption)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher init failed: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: bad padding", domainerrors.ErrDecryption)
	}

	return string(unpadded), nil
}

// HashKey computes the deterministic lookup digest of a voter key: SHA-256
// of the plaintext with all whitespace stripped and letters upper-cased.
// This is the only form compared at login.
func HashKey(plaintext string) string {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, plaintext)

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
