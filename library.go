package jsonasset

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/goliatone/go-jsonasset/pkg/activity"
	"github.com/goliatone/go-jsonasset/pkg/catalog"
	"github.com/goliatone/go-jsonasset/pkg/store"
)

// Library creates, imports and tracks assets of one payload type. It is the
// Host of every asset it hands out.
type Library[T any] struct {
	rt      *assetRuntime[T]
	store   store.Store
	catalog *catalog.Catalog
}

// NewLibrary constructs a Library backed by st. A nil store selects a
// FileStore rooted at the working directory.
func NewLibrary[T any](st store.Store, opts ...Option) *Library[T] {
	if st == nil {
		st = store.NewFileStore()
	}
	cfg := applyOptions(opts)
	cfg.name = ""
	lib := &Library[T]{
		store:   st,
		catalog: catalog.New(st),
	}
	lib.rt = newRuntime[T](lib, st, cfg)
	return lib
}

func assetID(p string) string {
	return catalog.IDFor(p)
}

// Store returns the library's backing store.
func (l *Library[T]) Store() store.Store {
	return l.store
}

// Catalog returns the index of tracked assets.
func (l *Library[T]) Catalog() *catalog.Catalog {
	return l.catalog
}

// Select marks p as the active selection used by CreateAssetInActiveDirectory.
func (l *Library[T]) Select(p string) {
	l.catalog.Select(p)
}

// Locate resolves a tracked asset to its path.
func (l *Library[T]) Locate(obj any) (string, bool) {
	return l.catalog.Locate(obj)
}

// Refresh re-imports p after it has been written. Failures are logged.
func (l *Library[T]) Refresh(ctx context.Context, p string) {
	if _, err := l.Import(ctx, p); err != nil {
		l.rt.logger.Error("asset refresh failed",
			"path", p,
			"error", err,
		)
	}
}

// CreateInstance allocates a transient asset and applies mutators to its
// payload. No I/O is performed.
func (l *Library[T]) CreateInstance(mutators ...func(*T)) *Asset[T] {
	asset := newAsset[T](nil, l.rt)
	for _, mutate := range mutators {
		if mutate != nil {
			mutate(asset.Value)
		}
	}
	return asset
}

// CreateAsset writes a new asset to p and returns the instance tracked at p
// after import, which is not the instance that was serialized.
func (l *Library[T]) CreateAsset(ctx context.Context, p string, mutators ...func(*T)) (*Asset[T], error) {
	target := store.Clean(p)
	if target == "" {
		return nil, ErrNoLocation
	}
	instance := l.CreateInstance(mutators...)
	if err := instance.SerializeToPath(ctx, target); err != nil {
		return nil, err
	}
	tracked, err := l.Import(ctx, target)
	if err != nil {
		return nil, err
	}
	emitEvent(ctx, l.rt.emitter, l.rt.logger, activity.BuildAssetCreatedEvent(tracked.eventInput(target, "", nil)))
	return tracked, nil
}

// CreateAssetInActiveDirectory creates name next to the active selection,
// numbering the file when the path is taken. Without a selection it fails
// with ErrNoLocation.
func (l *Library[T]) CreateAssetInActiveDirectory(ctx context.Context, name string, mutators ...func(*T)) (*Asset[T], error) {
	dir, ok := l.catalog.ActiveDirectory(ctx)
	if !ok || name == "" {
		return l.CreateAsset(ctx, "", mutators...)
	}
	return l.CreateAsset(ctx, l.catalog.UniquePath(ctx, path.Join(dir, name)), mutators...)
}

// LoadAsset returns the asset tracked at p, importing it when the file
// exists but is not tracked yet. A tracked asset whose file is gone is not
// returned.
func (l *Library[T]) LoadAsset(ctx context.Context, p string) (*Asset[T], bool) {
	target := store.Clean(p)
	if target == "" {
		return nil, false
	}
	if !l.store.Exists(ctx, target) || l.store.IsDir(ctx, target) {
		return nil, false
	}
	if tracked, ok := l.tracked(target); ok {
		return tracked, true
	}
	asset, err := l.Import(ctx, target)
	if err != nil {
		l.rt.logger.Warn("asset load reported errors",
			"path", target,
			"error", err,
		)
	}
	return asset, asset != nil
}

// LoadAssetByID resolves a content-addressed identifier to its path and
// loads it.
func (l *Library[T]) LoadAssetByID(ctx context.Context, id string) (*Asset[T], bool) {
	p, ok := l.catalog.PathForID(id)
	if !ok {
		return nil, false
	}
	return l.LoadAsset(ctx, p)
}

// IDOf returns the identifier of a tracked asset.
func (l *Library[T]) IDOf(asset *Asset[T]) (string, bool) {
	p, ok := l.catalog.Locate(asset)
	if !ok {
		return "", false
	}
	return l.catalog.IDOf(p)
}

// Import tracks p and enables the asset behind it. A path that is already
// tracked keeps its instance, so references held elsewhere stay valid, and
// is only re-read when the file no longer matches the payload. When the
// stored text cannot be applied the asset is still returned, sanitized,
// together with a *DecodeError.
func (l *Library[T]) Import(ctx context.Context, p string) (*Asset[T], error) {
	target := store.Clean(p)
	if target == "" {
		return nil, ErrNoLocation
	}
	if !l.store.Exists(ctx, target) || l.store.IsDir(ctx, target) {
		return nil, fmt.Errorf("jsonasset: import %s: %w", target, store.ErrNotFound)
	}

	asset, ok := l.tracked(target)
	if ok && asset.inSync(ctx, target) {
		emitEvent(ctx, l.rt.emitter, l.rt.logger, activity.BuildAssetImportedEvent(asset.eventInput(target, "", nil)))
		return asset, nil
	}
	if !ok {
		if _, taken := l.catalog.ObjectAt(target); taken {
			return nil, fmt.Errorf("jsonasset: import %s: %w", target, catalog.ErrPathTracked)
		}
		asset = newAsset[T](nil, l.rt)
		if _, err := l.catalog.Register(target, asset); err != nil {
			return nil, fmt.Errorf("jsonasset: import %s: %w", target, err)
		}
	}

	asset.OnAfterLoad()
	if err := asset.enable(ctx); err != nil {
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			err = &DecodeError{Asset: asset.Name(), Path: target, Err: err}
		}
		return asset, err
	}
	emitEvent(ctx, l.rt.emitter, l.rt.logger, activity.BuildAssetImportedEvent(asset.eventInput(target, "", nil)))
	return asset, nil
}

func (l *Library[T]) tracked(p string) (*Asset[T], bool) {
	obj, ok := l.catalog.ObjectAt(p)
	if !ok {
		return nil, false
	}
	asset, ok := obj.(*Asset[T])
	return asset, ok
}
