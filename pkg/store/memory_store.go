package store

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a minimal in-memory Store implementation intended for tests
// and examples. Directories exist implicitly for every document prefix and
// explicitly through Mkdir.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files: map[string][]byte{},
		dirs:  map[string]struct{}{},
	}
}

func (s *MemoryStore) Read(ctx context.Context, p string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if p == "" {
		return nil, ErrPathRequired
	}
	s.mu.RLock()
	data, ok := s.files[Clean(p)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Write(ctx context.Context, p string, data []byte) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if p == "" {
		return ErrPathRequired
	}
	key := Clean(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, isDir := s.dirs[key]; isDir {
		return fmt.Errorf("store: write %s: is a directory", p)
	}
	s.files[key] = append([]byte(nil), data...)
	for dir := path.Dir(key); dir != "." && dir != "/"; dir = path.Dir(dir) {
		s.dirs[dir] = struct{}{}
	}
	return nil
}

// Mkdir records an empty directory.
func (s *MemoryStore) Mkdir(p string) {
	key := Clean(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	for dir := key; dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		s.dirs[dir] = struct{}{}
	}
}

// Remove deletes the document at p, reporting whether one existed.
func (s *MemoryStore) Remove(p string) bool {
	key := Clean(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[key]; !ok {
		return false
	}
	delete(s.files, key)
	return true
}

func (s *MemoryStore) Exists(_ context.Context, p string) bool {
	key := Clean(p)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.files[key]; ok {
		return true
	}
	_, ok := s.dirs[key]
	return ok
}

func (s *MemoryStore) IsDir(_ context.Context, p string) bool {
	key := Clean(p)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dirs[key]
	return ok
}

// Paths lists stored documents, optionally restricted to prefix.
func (s *MemoryStore) Paths(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for key := range s.files {
		if prefix == "" || strings.HasPrefix(key, Clean(prefix)) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
