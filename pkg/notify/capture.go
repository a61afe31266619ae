package notify

import (
	"context"
	"sync"
)

// CaptureHook accumulates the refresh events a registry or history engine
// emits, so tests can assert on bus traffic. Events holds them in delivery
// order, already normalized.
type CaptureHook struct {
	Events []Event
	Err    error
	mu     sync.Mutex
}

// Notify appends the normalized event and returns the configured error.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, NormalizeEvent(event))
	return h.Err
}
