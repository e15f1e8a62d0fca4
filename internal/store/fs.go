package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FS is the default Store: one flat directory per namespace under a
// common root, mtime read from the filesystem.
type FS struct {
	root string
}

// NewFS creates the namespace directories under root if needed.
func NewFS(root string) (*FS, error) {
	for _, ns := range Namespaces {
		if err := os.MkdirAll(filepath.Join(root, string(ns)), 0o750); err != nil {
			return nil, fmt.Errorf("create namespace dir %s: %w", ns, err)
		}
	}
	return &FS{root: root}, nil
}

func (s *FS) path(ns Namespace, name string) string {
	return filepath.Join(s.root, string(ns), name)
}

// Put writes atomically-enough for this store's guarantees: a concurrent
// reader sees either the old or the new content, never a partial file,
// because the bytes land in a temp file that is renamed into place.
func (s *FS) Put(ctx context.Context, ns Namespace, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(s.root, string(ns))
	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(ns, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

func (s *FS) Get(ctx context.Context, ns Namespace, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(s.path(ns, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	return b, nil
}

func (s *FS) Delete(ctx context.Context, ns Namespace, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.path(ns, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// List tolerates entries vanishing mid-scan: the janitor and request
// handlers share these directories without coordination, so a file
// statted here may already be gone.
func (s *FS) List(ctx context.Context, ns Namespace) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(filepath.Join(s.root, string(ns)))
	if err != nil {
		return nil, fmt.Errorf("list namespace %s: %w", ns, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue // in-flight temp files are not objects
		}
		info, err := de.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue // deleted between ReadDir and stat
			}
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		entries = append(entries, Entry{Name: de.Name(), ModTime: info.ModTime()})
	}
	return entries, nil
}
