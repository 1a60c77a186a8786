// Package vault provides reversible encryption for exchange API credentials
// at rest. Tokens are self-describing: they carry the nonce and auth tag, so
// no state besides the process-wide key is needed to open them.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const nonceSize = 16

var (
	ErrInvalidKeySize = errors.New("vault: encryption key must be 32 bytes")
	ErrDecryption     = errors.New("vault: decryption failed")
)

type Vault struct {
	aead cipher.AEAD
}

func New(key string) (*Vault, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Seal encrypts plaintext into a hex(nonce):hex(ciphertext):hex(tag) token.
// A fresh random nonce is drawn per call, so sealing the same plaintext
// twice yields different tokens.
func (v *Vault) Seal(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	tagOffset := len(sealed) - v.aead.Overhead()
	ciphertext, tag := sealed[:tagOffset], sealed[tagOffset:]

	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(ciphertext) + ":" + hex.EncodeToString(tag), nil
}

// Open reverses Seal. Returns ErrDecryption for malformed tokens and for
// tokens produced with a different key.
func (v *Vault) Open(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return "", ErrDecryption
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", ErrDecryption
	}

	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrDecryption
	}

	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != v.aead.Overhead() {
		return "", ErrDecryption
	}

	plaintext, err := v.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}
