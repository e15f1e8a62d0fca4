package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"qrdrop/internal/crypto"
	"qrdrop/internal/store"
)

// Lifecycle error taxonomy. Handlers map these onto HTTP codes; anything
// else is an internal storage failure.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	// ErrAccessDenied covers every decryption failure. Wrong key and
	// corrupt ciphertext are deliberately indistinguishable.
	ErrAccessDenied = errors.New("access denied")
)

// SealResult is what the uploader gets back. Key is the only copy of
// the key that will ever exist outside the uploader's hands: it is not
// persisted, and nothing derived from it is either.
type SealResult struct {
	Filename string
	URL      string
	CodeRef  string
	Key      string
}

// Lifecycle orchestrates the seal (upload) and unseal (decrypt) paths
// over the shared store. It holds no per-object state; all state lives
// in the store and is read fresh on each operation. Concurrent uploads
// of the same filename race and the last writer wins, matching the
// store's no-versioning contract.
type Lifecycle struct {
	Store   store.Store
	BaseURL BaseURLProvider
	Encode  CodeEncoder
}

// Seal runs the upload state machine: store plaintext, encrypt, store
// ciphertext, drop the plaintext copy, issue the link code.
func (lc *Lifecycle) Seal(ctx context.Context, filename string, data []byte) (*SealResult, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	if err := lc.Store.Put(ctx, store.NSPlaintext, name, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("store plaintext: %w", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	sealed, err := crypto.Encrypt(data, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	if err := lc.Store.Put(ctx, store.NSEncrypted, name, bytes.NewReader(sealed)); err != nil {
		return nil, fmt.Errorf("store ciphertext: %w", err)
	}

	// The plaintext copy must go as soon as the ciphertext is durable.
	// A failed delete is not fatal (the janitor will sweep the leak),
	// but it is logged because the window matters.
	if err := lc.Store.Delete(ctx, store.NSPlaintext, name); err != nil && !errors.Is(err, store.ErrNotFound) {
		Warn("plaintext cleanup failed after seal", map[string]interface{}{
			"filename": name,
			"error":    err.Error(),
		})
	}

	url, codeRef, err := lc.issueCode(ctx, name)
	if err != nil {
		return nil, err
	}

	return &SealResult{
		Filename: name,
		URL:      url,
		CodeRef:  codeRef,
		Key:      key.String(),
	}, nil
}

// Unseal runs the decrypt state machine. It is re-entrant: decrypting
// the same name with the same key any number of times rematerializes
// identical plaintext. Two racing attempts each compute their own
// plaintext in isolation; the store's last-write-wins semantics make
// the final content deterministic for any valid key.
func (lc *Lifecycle) Unseal(ctx context.Context, filename, keyStr string) ([]byte, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	sealed, err := lc.Store.Get(ctx, store.NSEncrypted, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load ciphertext: %w", err)
	}

	key, err := crypto.ParseKey(keyStr)
	if err != nil {
		return nil, ErrAccessDenied
	}
	plaintext, err := crypto.Decrypt(sealed, key)
	if err != nil {
		return nil, ErrAccessDenied
	}

	if err := lc.Store.Put(ctx, store.NSPlaintext, name, bytes.NewReader(plaintext)); err != nil {
		return nil, fmt.Errorf("store plaintext: %w", err)
	}

	return plaintext, nil
}

// Sealed reports whether ciphertext exists for the name.
func (lc *Lifecycle) Sealed(ctx context.Context, filename string) (bool, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return false, err
	}

	if _, err := lc.Store.Get(ctx, store.NSEncrypted, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check ciphertext: %w", err)
	}
	return true, nil
}
