package store

import (
	"context"
	"errors"
	"path/filepath"
)

// ErrNotFound reports a read against a path that holds no document.
var ErrNotFound = errors.New("store: not found")

// ErrPathRequired reports an empty path argument.
var ErrPathRequired = errors.New("store: path is required")

// Store reads and writes whole text documents addressed by path.
type Store interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) bool
	IsDir(ctx context.Context, path string) bool
}

// Clean normalises path the way every Store keys documents.
func Clean(path string) string {
	if path == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(path))
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
