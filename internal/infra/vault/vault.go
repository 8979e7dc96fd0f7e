// Package vault encrypts card numbers at rest. Keys are derived from a
// configured secret with scrypt; ciphertexts use AES-GCM with a random
// nonce prepended.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

var vaultSalt = []byte("billpay-card-vault-v1")

// Vault seals and opens card numbers.
type Vault struct {
	aead cipher.AEAD
}

// New derives the encryption key from secret and prepares the cipher.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, errors.New("vault secret must not be empty")
	}
	key, err := scrypt.Key([]byte(secret), vaultSalt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead}, nil
}

// Seal encrypts plaintext and returns a base64 token safe for storage.
func (v *Vault) Seal(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a token produced by Seal.
func (v *Vault) Open(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	if len(raw) < v.aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ct := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plain, err := v.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
