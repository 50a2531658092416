package activity

import (
	"context"
	"sync"
)

// CaptureHook keeps asset events in memory, in the order they were emitted.
// Err, when set, is returned from every Notify after the event is kept.
type CaptureHook struct {
	Err error

	mu     sync.Mutex
	events []Event
}

func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, NormalizeEvent(event))
	return h.Err
}

// Events returns a copy of the events kept so far.
func (h *CaptureHook) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// Verbs returns the verb of every event kept so far.
func (h *CaptureHook) Verbs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	verbs := make([]string, 0, len(h.events))
	for _, event := range h.events {
		verbs = append(verbs, event.Verb)
	}
	return verbs
}

// ForAsset returns the events about the asset with the given object ID.
func (h *CaptureHook) ForAsset(objectID string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Event
	for _, event := range h.events {
		if event.ObjectType == ObjectTypeAsset && event.ObjectID == objectID {
			out = append(out, event)
		}
	}
	return out
}

// Reset drops every kept event.
func (h *CaptureHook) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}
