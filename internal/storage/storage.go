// Package storage holds the backends that keep the bytes of uploaded
// images. Metadata lives in the repository package.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidName is returned for object names that are not a bare filename.
	ErrInvalidName = errors.New("invalid object name")

	// ErrReadOnly is returned by backends that cannot store objects.
	ErrReadOnly = errors.New("storage backend is read-only")
)

// ImageStore reads and writes image bytes by object name. Fetch reports
// repository.ErrImageNotFound when the object does not exist; Delete of a
// missing object is not an error.
type ImageStore interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
}

// ValidateName rejects empty names and anything that could escape the
// store's namespace.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
