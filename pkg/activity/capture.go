package activity

import (
	"context"
	"sync"
)

// CaptureHook records normalized events, mostly for tests.
type CaptureHook struct {
	Err error

	mu     sync.Mutex
	events []Event
}

// Notify records event and returns the configured error.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, NormalizeEvent(event))
	return h.Err
}

// Events returns a copy of the recorded events.
func (h *CaptureHook) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// Verbs returns the recorded verbs in order.
func (h *CaptureHook) Verbs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	verbs := make([]string, 0, len(h.events))
	for _, event := range h.events {
		verbs = append(verbs, event.Verb)
	}
	return verbs
}

// Reset drops recorded events.
func (h *CaptureHook) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}
