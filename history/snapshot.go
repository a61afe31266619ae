// Package history records branching, prunable snapshot history over a scope
// store and replays it to rewire live state on undo, redo, time travel, and
// branch switches.
package history

import "time"

// ScopeCapture is a frozen copy of one scope's state. Raw and Saved hold the
// working and baseline parameters keyed by dotted field path; Live and
// SavedLive hold the resolved values frozen at capture time so a restore can
// reinstate them without re-resolving.
type ScopeCapture struct {
	RecordType string
	ParentID   string
	Raw        map[string]any
	Saved      map[string]any
	Live       map[string]any
	SavedLive  map[string]any
}

// Clone deep-copies the capture's maps.
func (c ScopeCapture) Clone() ScopeCapture {
	return ScopeCapture{
		RecordType: c.RecordType,
		ParentID:   c.ParentID,
		Raw:        cloneParams(c.Raw),
		Saved:      cloneParams(c.Saved),
		Live:       cloneParams(c.Live),
		SavedLive:  cloneParams(c.SavedLive),
	}
}

// Snapshot is an immutable point-in-time capture of every registered scope.
type Snapshot struct {
	ID        string
	ParentID  string
	Label     string
	CreatedAt time.Time
	States    map[string]ScopeCapture
}

func newSnapshot(id, parentID, label string, at time.Time, states map[string]ScopeCapture) *Snapshot {
	return &Snapshot{
		ID:        id,
		ParentID:  parentID,
		Label:     label,
		CreatedAt: at,
		States:    cloneStates(states),
	}
}

// CloneStates returns a deep copy of the snapshot's frozen scope states.
func (s *Snapshot) CloneStates() map[string]ScopeCapture {
	return cloneStates(s.States)
}

// Subject is the live store the engine captures from and restores into.
// lazyconf.Registry implements it.
type Subject interface {
	// CaptureAll freezes every registered scope.
	CaptureAll() map[string]ScopeCapture
	// RestoreAll makes the live store exactly match states: scopes absent
	// from states are unregistered, present ones registered or updated.
	RestoreAll(states map[string]ScopeCapture) error
}

func cloneStates(states map[string]ScopeCapture) map[string]ScopeCapture {
	out := make(map[string]ScopeCapture, len(states))
	for id, capture := range states {
		out[id] = capture.Clone()
	}
	return out
}

func cloneParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for path, value := range params {
		out[path] = value
	}
	return out
}
