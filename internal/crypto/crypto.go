// Package crypto seals column values at rest and derives blind indexes for
// looking sealed values up by equality.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const KeySize = 32

var (
	ErrKeySize         = errors.New("key must be 32 bytes")
	ErrCiphertextShort = errors.New("ciphertext too short")
)

// Sealer encrypts with AES-256-GCM. Ciphertexts are base64 with the nonce
// prepended, so they fit in TEXT columns.
type Sealer struct {
	aead     cipher.AEAD
	indexKey []byte
}

func NewSealer(encryptionKey, blindIndexKey []byte) (*Sealer, error) {
	if len(encryptionKey) != KeySize {
		return nil, fmt.Errorf("encryption key: %w", ErrKeySize)
	}
	if len(blindIndexKey) != KeySize {
		return nil, fmt.Errorf("blind index key: %w", ErrKeySize)
	}
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead, indexKey: append([]byte(nil), blindIndexKey...)}, nil
}

// ParseKey accepts a key as 64 hex characters or as base64 of 32 bytes.
func ParseKey(s string) ([]byte, error) {
	if b, err := hex.DecodeString(s); err == nil && len(b) == KeySize {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == KeySize {
		return b, nil
	}
	return nil, ErrKeySize
}

// GenerateKey returns a random key in the hex form ParseKey accepts.
func GenerateKey() (string, error) {
	b := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Seal leaves the empty string as is.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *Sealer) Open(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	n := s.aead.NonceSize()
	if len(data) < n {
		return "", ErrCiphertextShort
	}
	plain, err := s.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// BlindIndex is a deterministic HMAC-SHA256 of plaintext.
func (s *Sealer) BlindIndex(plaintext string) string {
	if plaintext == "" {
		return ""
	}
	h := hmac.New(sha256.New, s.indexKey)
	h.Write([]byte(plaintext))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
