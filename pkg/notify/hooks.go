// Package notify fans configuration refresh events out to external
// observers, typically presentation layers that must re-render after a
// history head change, a save, or a bulk reset.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Trigger identifies why a refresh event fired.
type Trigger string

const (
	// TriggerHeadChange fires after undo, redo, time travel, branch switch,
	// or history import rewired live state.
	TriggerHeadChange Trigger = "head.change"
	// TriggerMarkSaved fires after a scope's working values became the
	// saved baseline.
	TriggerMarkSaved Trigger = "scope.saved"
	// TriggerReset fires after a bulk reset discarded working values.
	TriggerReset Trigger = "scope.reset"
	// TriggerParameterSet fires after a single parameter edit.
	TriggerParameterSet Trigger = "scope.parameter"
)

// Event describes one refresh occurrence. ScopeID is empty when the event
// concerns every registered scope (a head change or global reset).
type Event struct {
	Trigger    Trigger
	ScopeID    string
	Path       string
	SnapshotID string
	Timeline   string
	Label      string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives normalized refresh events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans events out to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. Events without a trigger are dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Trigger == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims identifiers, clones metadata, and stamps a time.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.ScopeID = strings.TrimSpace(event.ScopeID)
	normalized.Path = strings.TrimSpace(event.Path)
	normalized.SnapshotID = strings.TrimSpace(event.SnapshotID)
	normalized.Timeline = strings.TrimSpace(event.Timeline)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
