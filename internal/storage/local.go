package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Local keeps objects as files in a single directory.
type Local struct {
	root         string
	publicPrefix string
}

func NewLocal(root, publicPrefix string) *Local {
	return &Local{
		root:         root,
		publicPrefix: strings.TrimRight(publicPrefix, "/"),
	}
}

func (l *Local) Save(_ context.Context, name string, r io.Reader) error {
	if !validName(name) {
		return ErrInvalidName
	}
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return fmt.Errorf("create upload dir failed: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(l.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("write file failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file failed: %w", err)
	}
	return nil
}

func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}
	f, err := os.Open(filepath.Join(l.root, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open file failed: %w", err)
	}
	return f, nil
}

func (l *Local) Remove(_ context.Context, name string) error {
	if !validName(name) {
		return ErrInvalidName
	}
	if err := os.Remove(filepath.Join(l.root, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file failed: %w", err)
	}
	return nil
}

func (l *Local) URL(name string) string {
	return l.publicPrefix + "/" + url.PathEscape(name)
}
