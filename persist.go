package jsonasset

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-jsonasset/pkg/activity"
	"github.com/goliatone/go-jsonasset/pkg/store"
)

// Save writes the asset to its resolved location.
func (a *Asset[T]) Save(ctx context.Context) bool {
	return a.SaveTo(ctx, "")
}

// SaveTo writes the asset to p, or to its resolved location when p is empty.
// It returns false without logging when no path resolves; encode and write
// failures are logged. A successful write is followed by a host refresh of p.
func (a *Asset[T]) SaveTo(ctx context.Context, p string) bool {
	target := store.Clean(p)
	if target == "" {
		location, ok := a.Location()
		if !ok {
			return false
		}
		target = location
	}

	if err := a.SerializeToPath(ctx, target); err != nil {
		a.rt.logger.Error("asset save failed",
			"asset", a.Name(),
			"path", target,
			"error", err,
		)
		return false
	}
	a.emit(ctx, activity.BuildAssetSavedEvent(a.eventInput(target, "", nil)))
	if a.rt.host != nil {
		a.rt.host.Refresh(ctx, target)
	}
	return true
}

// Restore reapplies the text stored at the asset's location.
func (a *Asset[T]) Restore(ctx context.Context) bool {
	location, ok := a.Location()
	if !ok {
		return false
	}
	if !a.DeserializeFromPath(ctx, location) {
		return false
	}
	a.emit(ctx, activity.BuildAssetRestoredEvent(a.eventInput(location, "", nil)))
	return true
}

// IsModified reports whether the canonical encoding of the payload differs
// from the text stored at the asset's location. Transient assets are never
// modified. The comparison is byte for byte.
func (a *Asset[T]) IsModified(ctx context.Context) bool {
	location, ok := a.Location()
	if !ok {
		return false
	}
	current, err := a.encode()
	if err != nil {
		a.rt.logger.Debug("asset encode failed during modification check",
			"asset", a.Name(),
			"path", location,
			"error", err,
		)
		return true
	}
	stored, err := a.rt.store.Read(ctx, location)
	if err != nil {
		return true
	}
	return !bytes.Equal(current, stored)
}

// inSync reports whether the text at p is both the cached snapshot and the
// encoding of the current payload, so re-reading it would change nothing.
func (a *Asset[T]) inSync(ctx context.Context, p string) bool {
	if a.lastKnownText == nil {
		return false
	}
	stored, err := a.rt.store.Read(ctx, p)
	if err != nil || !bytes.Equal(stored, a.lastKnownText) {
		return false
	}
	current, err := a.encode()
	return err == nil && bytes.Equal(current, stored)
}

// SerializeToJSON returns the canonical text of the payload.
func (a *Asset[T]) SerializeToJSON() (string, error) {
	data, err := a.encode()
	if err != nil {
		return "", fmt.Errorf("jsonasset: encode %s: %w", a.Name(), err)
	}
	return string(data), nil
}

// DeserializeFromJSON applies text to the payload in place. It reports false
// only when text cannot be applied at all; partial decodes succeed.
func (a *Asset[T]) DeserializeFromJSON(text string) bool {
	return a.tryDeserialize(context.Background(), []byte(text), "") == nil
}

// SerializeToPath writes the canonical text of the payload to p, creating
// parent directories, and caches it as the asset's snapshot.
func (a *Asset[T]) SerializeToPath(ctx context.Context, p string) error {
	target := store.Clean(p)
	if target == "" {
		return ErrNoLocation
	}
	data, err := a.encode()
	if err != nil {
		return fmt.Errorf("jsonasset: encode %s: %w", a.Name(), err)
	}
	if err := a.rt.store.Write(ctx, target, data); err != nil {
		return fmt.Errorf("jsonasset: write %s: %w", target, err)
	}
	a.lastKnownText = data
	return nil
}

// DeserializeFromPath applies the text stored at p to the payload in place.
func (a *Asset[T]) DeserializeFromPath(ctx context.Context, p string) bool {
	return a.deserializeFromPath(ctx, p) == nil
}

// deserializeFromPath leaves the cached snapshot untouched when p cannot be
// read, but still resets and sanitizes the payload.
func (a *Asset[T]) deserializeFromPath(ctx context.Context, p string) error {
	target := store.Clean(p)
	if target == "" {
		return ErrNoLocation
	}
	text, err := a.rt.store.Read(ctx, target)
	if err != nil {
		a.ensureValue()
		if resetErr := a.reset(); resetErr != nil {
			err = errors.Join(err, resetErr)
		}
		a.rt.logger.Error("asset read failed",
			"asset", a.Name(),
			"path", target,
			"error", err,
		)
		a.emit(ctx, activity.BuildAssetDecodeFailedEvent(a.eventInput(target, "", err)))
		a.sanitize(ctx, target)
		return &DecodeError{Asset: a.Name(), Path: target, Err: err}
	}
	return a.tryDeserialize(ctx, text, target)
}
