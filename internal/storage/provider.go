// Package storage defines the file-storage capability the vault runs on.
package storage

import (
	"context"

	"github.com/safevault/safevault/internal/models"
)

// Provider is the interface for vault file operations. All paths are
// relative to the backend root. Missing paths wrap fs.ErrNotExist and a
// non-recursive Mkdir of an existing directory wraps fs.ErrExist.
type Provider interface {
	// Mkdir creates the directory at path, including parents when recursive is set.
	Mkdir(ctx context.Context, path string, recursive bool) error
	// WriteFile replaces the content of the file at path.
	WriteFile(ctx context.Context, path string, data []byte) error
	// ReadFile returns the content of the file at path.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// Readdir lists the direct children of the directory at path.
	Readdir(ctx context.Context, path string) ([]models.DirEntry, error)
	// DeleteFile removes the file at path.
	DeleteFile(ctx context.Context, path string) error
}
