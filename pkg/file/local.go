package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage implements Storage on the local filesystem. All objects
// live under baseDir; keys never escape it. Suited to single-node
// deployments and local development.
type LocalStorage struct {
	baseDir    string // Absolute path, all objects stored within
	baseURL    string // URL prefix for serving objects (e.g. "/files/")
	putTimeout time.Duration
}

// LocalOption defines a function that configures LocalStorage.
type LocalOption func(*LocalStorage)

// WithLocalPutTimeout bounds Put operations. If not set, the caller's
// context deadline applies.
func WithLocalPutTimeout(timeout time.Duration) LocalOption {
	return func(s *LocalStorage) {
		s.putTimeout = timeout
	}
}

// NewLocalStorage creates a local filesystem storage. baseDir is
// resolved to an absolute path and created if missing. baseURL is the
// prefix URL returns are built from.
func NewLocalStorage(baseDir, baseURL string, opts ...LocalOption) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve base directory: %v", ErrInvalidConfig, err)
	}

	if err := os.MkdirAll(absBaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	s := &LocalStorage{
		baseDir: absBaseDir,
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Put streams the reader into a file under baseDir. The copy checks the
// context between chunks so a large upload can be canceled; partial
// files are removed on failure.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error) {
	if s.putTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.putTimeout)
		defer cancel()
	}

	absPath, err := s.resolveKey(key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateFile, err)
	}
	defer func() { _ = dst.Close() }()

	written := int64(0)
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			_ = dst.Close()
			_ = os.Remove(absPath)
			return nil, ctx.Err()
		default:
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			nw, writeErr := dst.Write(buf[:n])
			if writeErr != nil {
				_ = dst.Close()
				_ = os.Remove(absPath)
				return nil, fmt.Errorf("%w: %v", ErrFailedToWriteFile, writeErr)
			}
			written += int64(nw)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = dst.Close()
			_ = os.Remove(absPath)
			return nil, fmt.Errorf("%w: %v", ErrFailedToReadSource, readErr)
		}
	}

	cleaned, _ := cleanKey(key)
	return &Object{
		Key:         cleaned,
		Size:        written,
		ContentType: contentType,
		URL:         s.URL(cleaned),
	}, nil
}

// Delete removes a single object. Directories are refused to prevent
// accidental bulk deletion.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	absPath, err := s.resolveKey(key)
	if err != nil {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("%w: %v", ErrFailedToStatPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, key)
	}

	if err := os.Remove(absPath); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToDeleteFile, err)
	}
	return nil
}

// Exists checks if an object exists. Returns false for invalid keys.
func (s *LocalStorage) Exists(ctx context.Context, key string) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	absPath, err := s.resolveKey(key)
	if err != nil {
		return false
	}

	info, err := os.Stat(absPath)
	return err == nil && !info.IsDir()
}

// URL returns the public URL for an object.
func (s *LocalStorage) URL(key string) string {
	cleaned, err := cleanKey(key)
	if err != nil {
		return ""
	}
	return s.baseURL + cleaned
}

// resolveKey validates the key and resolves it inside baseDir. This is
// the security boundary: all resolved paths must stay within baseDir.
func (s *LocalStorage) resolveKey(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	absPath := filepath.Join(s.baseDir, filepath.FromSlash(cleaned))
	if !strings.HasPrefix(absPath, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return absPath, nil
}
