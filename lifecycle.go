package jsonasset

import (
	"context"
)

// OnBeforeSave captures the text that accompanies the asset when its host
// persists it without a file. A located asset keeps the stored text verbatim,
// including edits made outside the process; a transient asset encodes its
// current state.
func (a *Asset[T]) OnBeforeSave(ctx context.Context) {
	if location, ok := a.Location(); ok {
		text, err := a.rt.store.Read(ctx, location)
		if err == nil {
			a.lastKnownText = text
			return
		}
		a.rt.logger.Warn("asset snapshot read failed",
			"asset", a.Name(),
			"path", location,
			"error", err,
		)
	}
	text, err := a.encode()
	if err != nil {
		a.rt.logger.Error("asset snapshot encode failed",
			"asset", a.Name(),
			"error", err,
		)
		return
	}
	a.lastKnownText = text
}

// OnAfterLoad runs once the host has restored the asset's own storage. The
// payload is decoded later, in OnEnable.
func (a *Asset[T]) OnAfterLoad() {}

// OnEnable populates the payload when the asset becomes active: from its
// location when one resolves, else from the cached snapshot. Without either
// the payload keeps its default state.
func (a *Asset[T]) OnEnable(ctx context.Context) bool {
	return a.enable(ctx) == nil
}

func (a *Asset[T]) enable(ctx context.Context) error {
	if location, ok := a.Location(); ok {
		return a.deserializeFromPath(ctx, location)
	}
	if len(a.lastKnownText) > 0 {
		return a.tryDeserialize(ctx, a.lastKnownText, "")
	}
	a.ensureValue()
	return nil
}

// Snapshot returns the most recently read or written text.
func (a *Asset[T]) Snapshot() string {
	return string(a.lastKnownText)
}

// Duplicate returns a transient copy rebuilt from the asset's snapshot.
func (a *Asset[T]) Duplicate(ctx context.Context) (*Asset[T], bool) {
	a.OnBeforeSave(ctx)
	dup := newAsset[T](nil, a.rt)
	dup.lastKnownText = append([]byte(nil), a.lastKnownText...)
	dup.OnAfterLoad()
	ok := dup.OnEnable(ctx)
	return dup, ok
}
