package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithRoot resolves relative paths against root.
func WithRoot(root string) FileStoreOption {
	return func(s *FileStore) {
		s.root = root
	}
}

// WithAtomicWrites toggles write-to-temp-then-rename.
func WithAtomicWrites(enabled bool) FileStoreOption {
	return func(s *FileStore) {
		s.atomic = enabled
	}
}

// WithFileMode sets the permission bits used for new documents.
func WithFileMode(mode fs.FileMode) FileStoreOption {
	return func(s *FileStore) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}

// WithDirMode sets the permission bits used for created directories.
func WithDirMode(mode fs.FileMode) FileStoreOption {
	return func(s *FileStore) {
		if mode != 0 {
			s.dirMode = mode
		}
	}
}

// FileStore keeps one document per file on the local filesystem.
type FileStore struct {
	root     string
	atomic   bool
	fileMode fs.FileMode
	dirMode  fs.FileMode
}

func NewFileStore(opts ...FileStoreOption) *FileStore {
	s := &FileStore{fileMode: 0o644, dirMode: 0o755}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *FileStore) resolve(path string) (string, error) {
	if path == "" {
		return "", ErrPathRequired
	}
	if s.root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	return filepath.Clean(path), nil
}

func (s *FileStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	abs, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	return data, nil
}

func (s *FileStore) Write(ctx context.Context, path string, data []byte) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), s.dirMode); err != nil {
		return fmt.Errorf("store: mkdir for %s: %w", path, err)
	}
	if !s.atomic {
		if err := os.WriteFile(abs, data, s.fileMode); err != nil {
			return fmt.Errorf("store: write %s: %w", path, err)
		}
		return nil
	}
	return s.writeAtomic(abs, path, data)
}

func (s *FileStore) writeAtomic(abs, path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("store: sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("store: close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, s.fileMode); err != nil {
		cleanup()
		return fmt.Errorf("store: chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		cleanup()
		return fmt.Errorf("store: rename %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) Exists(_ context.Context, path string) bool {
	abs, err := s.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

func (s *FileStore) IsDir(_ context.Context, path string) bool {
	abs, err := s.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.IsDir()
}
