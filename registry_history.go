package lazyconf

import (
	"github.com/goliatone/go-lazyconf/history"
)

// CaptureAll freezes every registered scope into history captures. Resolved
// values are frozen alongside the raw parameters so a restore can reinstate
// them without re-resolving.
func (r *Registry) CaptureAll() map[string]history.ScopeCapture {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]history.ScopeCapture, len(r.scopes))
	for id, state := range r.scopes {
		out[id] = history.ScopeCapture{
			RecordType: state.Type().Name(),
			ParentID:   state.parentID,
			Raw:        paramsToAny(state.record.Overlay()),
			Saved:      paramsToAny(state.savedRaw),
			Live:       paramsToAny(state.live),
			SavedLive:  paramsToAny(state.savedLive),
		}
	}
	return out
}

// RestoreAll makes the registry exactly match states: scopes absent from
// states are dropped, present ones rebuilt from their captured parameters.
// Frozen resolved values are reinstated when the capture carries them;
// otherwise they are recomputed once every scope is back in place.
func (r *Registry) RestoreAll(states map[string]history.ScopeCapture) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	restored := make(map[string]*ScopeState, len(states))
	for id, capture := range states {
		t, err := r.schema.Type(capture.RecordType)
		if err != nil {
			return err
		}
		state := NewScopeState(id, capture.ParentID, t)
		if state.record.overrides, err = coerceParams(t, capture.Raw); err != nil {
			return err
		}
		if state.savedRaw, err = coerceParams(t, capture.Saved); err != nil {
			return err
		}
		if capture.Live != nil {
			if state.live, err = coerceParams(t, capture.Live); err != nil {
				return err
			}
		}
		if capture.SavedLive != nil {
			if state.savedLive, err = coerceParams(t, capture.SavedLive); err != nil {
				return err
			}
		}
		restored[id] = state
	}
	r.scopes = restored

	// Captures produced before resolution ran, or imported from trimmed
	// exports, carry no frozen values. Recompute those after the whole store
	// is in place so ancestor context is available.
	for _, state := range r.scopes {
		if state.live != nil {
			continue
		}
		if err := r.refreshLocked(state); err != nil {
			return err
		}
	}
	return nil
}

// coerceParams converts loosely typed captured parameters back into typed
// values using the leaf field kinds of t.
func coerceParams(t *RecordType, raw map[string]any) (map[string]Value, error) {
	out := make(map[string]Value, len(raw))
	for path, entry := range raw {
		spec, _, err := t.SpecAt(path)
		if err != nil {
			return nil, err
		}
		value, err := Coerce(spec.Kind, entry)
		if err != nil {
			return nil, err
		}
		if value.IsAbsent() {
			continue
		}
		out[path] = value
	}
	return out, nil
}
