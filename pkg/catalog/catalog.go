// Package catalog tracks which in-memory objects back which stored paths.
//
// A Catalog plays the role of a host asset index: it resolves an object to
// its path by identity, hands out content-addressed identifiers for tracked
// paths, remembers the active selection, and generates collision-free paths
// for new documents.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-jsonasset/pkg/store"
)

// Namespace seeds the content-addressed identifiers handed out by a Catalog.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/goliatone/go-jsonasset/catalog"))

var (
	// ErrPathRequired indicates an empty path argument.
	ErrPathRequired = errors.New("catalog: path is required")
	// ErrObjectRequired indicates a nil object argument.
	ErrObjectRequired = errors.New("catalog: object is required")
	// ErrPathTracked indicates the path already backs a different object.
	ErrPathTracked = errors.New("catalog: path already tracked by another object")
)

// Catalog is safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	store     store.Store
	byPath    map[string]any
	byObject  map[any]string
	byID      map[string]string
	selection string
}

// New constructs a Catalog that consults s when checking for existing files
// and directories. A nil store limits those checks to tracked paths.
func New(s store.Store) *Catalog {
	return &Catalog{
		store:    s,
		byPath:   map[string]any{},
		byObject: map[any]string{},
		byID:     map[string]string{},
	}
}

// IDFor returns the content-addressed identifier for p.
func IDFor(p string) string {
	return uuid.NewSHA1(Namespace, []byte(store.Clean(p))).String()
}

// Register tracks obj at p. obj must be comparable, typically a pointer.
// Re-registering the same pair is a no-op; moving an object releases its
// previous path.
func (c *Catalog) Register(p string, obj any) (string, error) {
	if p == "" {
		return "", ErrPathRequired
	}
	if obj == nil {
		return "", ErrObjectRequired
	}
	key := store.Clean(p)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byPath[key]; ok && existing != obj {
		return "", fmt.Errorf("%w: %s", ErrPathTracked, key)
	}
	if previous, ok := c.byObject[obj]; ok && previous != key {
		delete(c.byPath, previous)
		delete(c.byID, IDFor(previous))
	}
	id := IDFor(key)
	c.byPath[key] = obj
	c.byObject[obj] = key
	c.byID[id] = key
	return id, nil
}

// Unregister stops tracking whatever object backs p.
func (c *Catalog) Unregister(p string) bool {
	key := store.Clean(p)
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.byPath[key]
	if !ok {
		return false
	}
	delete(c.byPath, key)
	delete(c.byObject, obj)
	delete(c.byID, IDFor(key))
	return true
}

// Locate resolves obj to its tracked path by identity.
func (c *Catalog) Locate(obj any) (string, bool) {
	if obj == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byObject[obj]
	return p, ok
}

// ObjectAt returns the object tracked at p.
func (c *Catalog) ObjectAt(p string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.byPath[store.Clean(p)]
	return obj, ok
}

// IDOf returns the identifier of a tracked path.
func (c *Catalog) IDOf(p string) (string, bool) {
	key := store.Clean(p)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.byPath[key]; !ok {
		return "", false
	}
	return IDFor(key), true
}

// PathForID resolves an identifier back to its tracked path.
func (c *Catalog) PathForID(id string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[parsed.String()]
	return p, ok
}

// Paths lists tracked paths in lexical order.
func (c *Catalog) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.byPath))
	for p := range c.byPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Select marks p as the active selection. An empty path clears it.
func (c *Catalog) Select(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = store.Clean(p)
}

// Selection returns the active selection.
func (c *Catalog) Selection() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selection, c.selection != ""
}

// ActiveDirectory returns the selection when it is a directory, otherwise the
// directory containing it.
func (c *Catalog) ActiveDirectory(ctx context.Context) (string, bool) {
	selection, ok := c.Selection()
	if !ok {
		return "", false
	}
	if c.store != nil && c.store.IsDir(ctx, selection) {
		return selection, true
	}
	return path.Dir(selection), true
}

// UniquePath returns p, or p with a numeric suffix inserted before the
// extension ("Item.json" -> "Item 1.json") when p is tracked or exists.
func (c *Catalog) UniquePath(ctx context.Context, p string) string {
	if p == "" {
		return ""
	}
	key := store.Clean(p)
	if !c.taken(ctx, key) {
		return key
	}
	ext := path.Ext(key)
	stem := strings.TrimSuffix(key, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s %d%s", stem, n, ext)
		if !c.taken(ctx, candidate) {
			return candidate
		}
	}
}

func (c *Catalog) taken(ctx context.Context, key string) bool {
	c.mu.RLock()
	_, tracked := c.byPath[key]
	c.mu.RUnlock()
	if tracked {
		return true
	}
	return c.store != nil && c.store.Exists(ctx, key)
}
