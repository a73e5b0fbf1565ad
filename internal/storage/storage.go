package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound    = errors.New("storage: object not found")
	ErrInvalidName = errors.New("storage: invalid object name")
)

// Storage persists uploaded images under flat, server-generated names.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Remove deletes the object; a missing object is not an error.
	Remove(ctx context.Context, name string) error
	// URL is the public location a browser can fetch the object from.
	URL(name string) string
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "\x00") {
		return false
	}
	return path.Base(name) == name
}
