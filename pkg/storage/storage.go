package storage

import (
	"context"
	"io"
	"strings"
	"time"
)

// Object describes a stored file within the application namespace.
type Object struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// TokenSource supplies the bearer token for authenticated storage calls.
// An empty return means no credential is available and the operation must
// fail before touching the network.
type TokenSource func(ctx context.Context) string

// Backend performs file operations against an application-scoped namespace.
// Implementations do not cache, chunk, or resume; each call is a single
// round trip.
type Backend interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) error
	UploadContent(ctx context.Context, path string, content []byte, contentType string) error
	Download(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Info(ctx context.Context, path string) (*Object, error)
	Delete(ctx context.Context, path string) error
}

// Config holds the per-class operation timeouts. Transfers get a generous
// budget; metadata, list, and delete calls are kept short.
type Config struct {
	TransferTimeout time.Duration `env:"DIRECTAUTH_STORAGE_TRANSFER_TIMEOUT" envDefault:"30s"`
	MetadataTimeout time.Duration `env:"DIRECTAUTH_STORAGE_METADATA_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns the standard timeout budgets.
func DefaultConfig() Config {
	return Config{
		TransferTimeout: 30 * time.Second,
		MetadataTimeout: 10 * time.Second,
	}
}

// cleanPath normalizes a user-supplied object path and rejects traversal.
func cleanPath(path string) (string, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return "", ErrEmptyPath
	}
	if strings.Contains(path, "..") {
		return "", ErrInvalidPath
	}
	return path, nil
}
