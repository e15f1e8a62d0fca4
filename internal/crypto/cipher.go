// Package crypto implements per-object authenticated encryption for
// sealed uploads. Keys are generated fresh for every object and are
// never written to disk or logs; after the upload response is delivered
// the uploader is the only custodian.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	keyLen   = 32 // AES-256
	nonceLen = 12
)

// ErrDecrypt is returned for every decryption failure: wrong key,
// truncated or tampered ciphertext, malformed input. A single opaque
// error keeps callers from distinguishing the cases.
var ErrDecrypt = errors.New("invalid key or ciphertext")

// Key is a per-object symmetric key.
type Key []byte

// String encodes the key for transport in the upload response.
func (k Key) String() string {
	return base64.RawURLEncoding.EncodeToString(k)
}

// ParseKey decodes a key from its transport form. Any string that does
// not decode to exactly 32 bytes is rejected with ErrDecrypt so the
// caller never learns whether the key shape or the ciphertext was wrong.
func ParseKey(s string) (Key, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(b) != keyLen {
		return nil, ErrDecrypt
	}
	return Key(b), nil
}

// GenerateKey produces a fresh random AES-256 key.
func GenerateKey() (Key, error) {
	k := make([]byte, keyLen)
	if _, err := rand.Read(k); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return Key(k), nil
}

// Encrypt seals plaintext with AES-256-GCM. The random nonce is
// prepended to the ciphertext so the blob is self-contained.
func Encrypt(plaintext []byte, key Key) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. It fails closed: every
// failure mode yields ErrDecrypt and no partial output.
func Decrypt(blob []byte, key Key) ([]byte, error) {
	if len(key) != keyLen || len(blob) < nonceLen {
		return nil, ErrDecrypt
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrDecrypt
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecrypt
	}

	plaintext, err := gcm.Open(nil, blob[:nonceLen], blob[nonceLen:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
