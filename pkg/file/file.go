package file

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Object represents stored object metadata.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	URL         string
}

// Storage is the backend interface for export artifacts and other
// generated files. Keys are slash-separated paths relative to the
// backend root, e.g. "exports/<tenant>/<export>.zip".
type Storage interface {
	// Put streams the reader into the object at key, overwriting any
	// previous content, and returns metadata.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error)
	// Delete removes a single object.
	Delete(ctx context.Context, key string) error
	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) bool
	// URL returns the public URL for an object.
	URL(key string) string
}

// cleanKey validates and normalizes an object key. Keys are always
// relative; traversal segments are rejected rather than resolved.
func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.Contains(key, "\x00") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}

	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return cleaned, nil
}
