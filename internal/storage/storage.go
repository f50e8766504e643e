// Package storage keeps uploaded files. Keys are slash separated paths such as
// "books/1700000000000-<uuid>.pdf".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

var (
	ErrNotExist   = errors.New("storage: object does not exist")
	ErrExist      = errors.New("storage: object already exists")
	ErrInvalidKey = errors.New("storage: invalid key")
)

type Info struct {
	Key     string
	Size    int64
	ModTime time.Time
}

type Storage interface {
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, Info, error)
	Stat(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Info, error)
}

// CleanKey normalises key and rejects anything that could escape the storage root.
func CleanKey(key string) (string, error) {
	if key == "" || strings.ContainsRune(key, '\\') || strings.ContainsRune(key, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	cleaned := path.Clean(key)
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// New opens the configured backend. An empty backend means local.
func New(ctx context.Context, backend, root string, s3cfg S3Config) (Storage, error) {
	switch backend {
	case "", BackendLocal:
		return NewLocal(root)
	case BackendS3:
		return NewS3(ctx, s3cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
