// Package storage persists uploaded file bytes under internal keys that are
// unrelated to the user-visible file name.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ErrBlobNotFound is returned by Open when no blob exists under the key.
var ErrBlobNotFound = errors.New("blob not found")

// Storage is a blob store.
type Storage interface {
	// Put writes r under key. Put never overwrites an existing blob; on error the
	// partial blob may or may not remain.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error

	// Open returns a reader for the blob, or ErrBlobNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// Type represents the storage backend type.
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config holds configuration for the blob store.
type Config struct {
	Type      Type
	LocalPath string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// New creates a blob store based on configuration.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeLocal, "":
		return NewLocalStorage(cfg.LocalPath)
	case TypeS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

const maxKeyNameLength = 100

// NewKey derives a fresh blob key from a display name. The random UUID prefix
// makes collisions negligible; the name suffix only helps operators.
func NewKey(filename string) string {
	return uuid.New().String() + "_" + sanitizeName(filename)
}

func sanitizeName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.TrimLeft(b.String(), ".")
	if len(name) > maxKeyNameLength {
		name = name[len(name)-maxKeyNameLength:]
	}
	if name == "" {
		name = "blob"
	}
	return name
}
