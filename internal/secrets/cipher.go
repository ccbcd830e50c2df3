// Package secrets provides symmetric encryption for vendor credentials at rest.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// ErrNoKey is returned when the cipher key is missing from configuration.
// This is fatal at startup: the service cannot read stored credentials
// without it.
var ErrNoKey = errors.New("secrets: cipher key not configured")

const nonceSize = 24

// Cipher encrypts and decrypts credential strings with a process-wide
// symmetric key. Ciphertexts are base64 with the random nonce prepended.
type Cipher struct {
	key [32]byte
}

// New builds a Cipher from a base64-encoded 32-byte key. A key that is not
// valid base64 is used as raw bytes, truncated or zero-padded to 32 bytes,
// so locally generated ad-hoc keys still work.
func New(key string) (*Cipher, error) {
	if key == "" {
		return nil, ErrNoKey
	}

	c := &Cipher{}
	raw, err := base64.URLEncoding.DecodeString(key)
	if err != nil || len(raw) != 32 {
		raw, err = base64.StdEncoding.DecodeString(key)
	}
	if err != nil || len(raw) != 32 {
		raw = []byte(key)
	}
	copy(c.key[:], raw)

	return c, nil
}

// Encrypt seals a plaintext credential. A fresh random nonce is used per
// call, so encrypting the same value twice yields different ciphertexts.
func (c *Cipher) Encrypt(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &c.key)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Corrupt or foreign
// ciphertext fails soft: ok is false and the credential is treated as
// unavailable rather than crashing the caller.
func (c *Cipher) Decrypt(ciphertext string) (string, bool) {
	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < nonceSize {
		return "", false
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", false
	}

	return string(plain), true
}

// DecryptOptional decrypts a nullable stored column. A nil value or failed
// decryption both yield "", false.
func (c *Cipher) DecryptOptional(ciphertext *string) (string, bool) {
	if ciphertext == nil || *ciphertext == "" {
		return "", false
	}
	return c.Decrypt(*ciphertext)
}
