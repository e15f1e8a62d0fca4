// validation.go - Filename validation and sanitization helpers
package server

import (
	"fmt"
	"path/filepath"
	"strings"
)

// sanitizeFilename validates a client-supplied filename and normalizes
// it into a single filesystem-safe path element. Path separators and
// traversal sequences are rejected outright rather than rewritten, so a
// hostile name can never address anything outside its namespace
// directory.
func sanitizeFilename(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: empty filename", ErrInvalidInput)
	}

	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: filename must not contain path elements", ErrInvalidInput)
	}
	if strings.ContainsRune(name, '\x00') {
		return "", fmt.Errorf("%w: filename contains null byte", ErrInvalidInput)
	}

	// Leading dots would collide with the store's temp-file convention
	// and produce hidden files.
	name = strings.Trim(name, " .")
	if name == "" {
		return "", fmt.Errorf("%w: filename is only dots", ErrInvalidInput)
	}

	// Keep names within common filesystem limits, preserving the extension.
	if len(name) > 255 {
		ext := filepath.Ext(name)
		if len(ext) >= 255 {
			ext = ""
		}
		name = name[:255-len(ext)] + ext
	}

	return name, nil
}
