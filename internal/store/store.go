// Package store provides the namespaced object store backing the share
// lifecycle. An object lives in exactly one namespace at a time; the
// namespace an entry sits in is the only state tracking there is, and
// the entry's modification time is the only metadata.
package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// Namespace identifies one of the three flat storage areas.
type Namespace string

const (
	// NSPlaintext holds raw bytes as uploaded, or rematerialized
	// after a successful decrypt.
	NSPlaintext Namespace = "uploads"
	// NSEncrypted holds ciphertext only.
	NSEncrypted Namespace = "encrypted"
	// NSCodes holds rendered link images.
	NSCodes Namespace = "codes"
)

// Namespaces lists every storage area, in sweep order.
var Namespaces = []Namespace{NSPlaintext, NSEncrypted, NSCodes}

// ErrNotFound is returned when the named object is absent from the
// requested namespace.
var ErrNotFound = errors.New("object not found")

// Entry describes one stored object as seen by a listing.
type Entry struct {
	Name    string
	ModTime time.Time
}

// Store is a filename-keyed blob store with three namespaces. Writes to
// an existing name overwrite it; there is no versioning. Implementations
// must be safe for concurrent use, but need not coordinate concurrent
// writers to the same name beyond last-write-wins.
type Store interface {
	// Put writes the object, replacing any previous content.
	Put(ctx context.Context, ns Namespace, name string, r io.Reader) error

	// Get returns the object's bytes, or ErrNotFound.
	Get(ctx context.Context, ns Namespace, name string) ([]byte, error)

	// Delete removes the object. Deleting an absent object returns
	// ErrNotFound.
	Delete(ctx context.Context, ns Namespace, name string) error

	// List returns every entry in the namespace with its last
	// modification time. Order is unspecified.
	List(ctx context.Context, ns Namespace) ([]Entry, error)
}
