package lazyconf

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-lazyconf/pkg/notify"
)

// ScopeState is the mutable working state of one independently edited scope.
// The working raw parameters live in a lazy record whose overrides are
// exactly the user-entered values; everything else defers to resolution.
type ScopeState struct {
	id       string
	parentID string
	record   *LazyRecord

	savedRaw  map[string]Value
	live      map[string]Value
	savedLive map[string]Value
}

// NewScopeState constructs working state for a scope of type t. parentID
// names the richer scope this one inherits context from; empty for roots.
func NewScopeState(id, parentID string, t *RecordType) *ScopeState {
	return &ScopeState{
		id:       id,
		parentID: parentID,
		record:   t.Lazy(),
		savedRaw: map[string]Value{},
	}
}

// ID returns the scope identifier.
func (s *ScopeState) ID() string { return s.id }

// ParentID returns the parent scope identifier, empty for roots.
func (s *ScopeState) ParentID() string { return s.parentID }

// Type returns the scope's RecordType.
func (s *ScopeState) Type() *RecordType { return s.record.Type() }

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryNotifier wires the refresh bus emitted to on saves, resets,
// and edits.
func WithRegistryNotifier(notifier *notify.Notifier) RegistryOption {
	return func(r *Registry) {
		r.notifier = notifier
	}
}

// Registry is the scope store: one working state per scope id, shared and
// mutex-guarded. Mutations serialize on the write lock; resolution reads
// may run concurrently with each other but never with a mutation.
type Registry struct {
	mu       sync.RWMutex
	schema   *Schema
	resolver *Resolver
	scopes   map[string]*ScopeState
	notifier *notify.Notifier
}

// NewRegistry constructs a registry resolving through resolver.
func NewRegistry(schema *Schema, resolver *Resolver, opts ...RegistryOption) *Registry {
	r := &Registry{
		schema:   schema,
		resolver: resolver,
		scopes:   map[string]*ScopeState{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds state to the store and computes its initial resolved values.
func (r *Registry) Register(state *ScopeState) error {
	if state == nil || state.id == "" {
		return fmt.Errorf("lazyconf: scope state must carry an id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.scopes[state.id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateScope, state.id)
	}
	r.scopes[state.id] = state
	if err := r.refreshLocked(state); err != nil {
		// A scope that cannot resolve is not registered at all.
		delete(r.scopes, state.id)
		return err
	}
	return nil
}

// Unregister removes the scope from the store.
func (r *Registry) Unregister(scopeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scopes[scopeID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScope, scopeID)
	}
	delete(r.scopes, scopeID)
	return nil
}

// Get returns the working state registered under scopeID.
func (r *Registry) Get(scopeID string) (*ScopeState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getLocked(scopeID)
}

func (r *Registry) getLocked(scopeID string) (*ScopeState, error) {
	state, ok := r.scopes[scopeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScope, scopeID)
	}
	return state, nil
}

// Ancestors returns the scope's ancestry chain, nearest parent first. A
// parent id that is not registered ends the chain.
func (r *Registry) Ancestors(scopeID string) ([]*ScopeState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, err := r.getLocked(scopeID)
	if err != nil {
		return nil, err
	}
	return r.ancestorsLocked(state), nil
}

func (r *Registry) ancestorsLocked(state *ScopeState) []*ScopeState {
	var out []*ScopeState
	seen := map[string]bool{state.id: true}
	for cursor := state.parentID; cursor != ""; {
		parent, ok := r.scopes[cursor]
		if !ok || seen[cursor] {
			break
		}
		seen[cursor] = true
		out = append(out, parent)
		cursor = parent.parentID
	}
	return out
}

// SetParameter records a user-entered value at a dotted path on the scope's
// working state and recomputes resolved values for the scope and every
// registered descendant. A nil value clears the entry.
func (r *Registry) SetParameter(scopeID, path string, value any) error {
	r.mu.Lock()
	state, err := r.getLocked(scopeID)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	old, _ := state.record.Get(path)
	if err := state.record.Set(path, value); err != nil {
		r.mu.Unlock()
		return err
	}
	if err := r.refreshTreeLocked(state); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	r.emit(notify.BuildParameterSetEvent(notify.EventInput{
		ScopeID:  scopeID,
		Path:     path,
		OldValue: old.Any(),
		NewValue: value,
	}))
	return nil
}

// Resolve returns the effective value for a dotted path on the scope: the
// scope's own raw value, else context inherited from ancestor scopes, else
// the schema defaults. Absent is an answer, not an error.
func (r *Registry) Resolve(scopeID, path string) (Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, err := r.getLocked(scopeID)
	if err != nil {
		return Absent, err
	}
	stack, err := r.stackForLocked(state)
	if err != nil {
		return Absent, err
	}
	return r.resolver.ResolveScoped(scopeID, stack, state.record, path)
}

// UserModifiedOverlay returns the concrete, user-entered values of the
// scope keyed by dotted path. Unset fields do not appear.
func (r *Registry) UserModifiedOverlay(scopeID string) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, err := r.getLocked(scopeID)
	if err != nil {
		return nil, err
	}
	return paramsToAny(state.record.Overlay()), nil
}

// IsDirty reports whether the working parameters differ field-wise from the
// saved baseline.
func (r *Registry) IsDirty(scopeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, err := r.getLocked(scopeID)
	if err != nil {
		return false, err
	}
	return !paramsEqual(state.record.Overlay(), state.savedRaw), nil
}

// MarkSaved copies the working values into the saved baseline.
func (r *Registry) MarkSaved(scopeID string) error {
	r.mu.Lock()
	state, err := r.getLocked(scopeID)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	state.savedRaw = cloneValues(state.record.Overlay())
	state.savedLive = cloneValues(state.live)
	r.mu.Unlock()

	r.emit(notify.BuildSavedEvent(notify.EventInput{ScopeID: scopeID}))
	return nil
}

// RestoreSaved reverts the working values to the saved baseline, discarding
// unsaved edits.
func (r *Registry) RestoreSaved(scopeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, err := r.getLocked(scopeID)
	if err != nil {
		return err
	}
	state.record = state.Type().Lazy()
	for path, value := range state.savedRaw {
		state.record.overrides[path] = value
	}
	return r.refreshTreeLocked(state)
}

// ResetToDefaults discards every raw value on the scope, reverting all
// fields to deferred resolution.
func (r *Registry) ResetToDefaults(scopeID string) error {
	r.mu.Lock()
	state, err := r.getLocked(scopeID)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	state.record = state.Type().Lazy()
	if err := r.refreshTreeLocked(state); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	r.emit(notify.BuildResetEvent(notify.EventInput{ScopeID: scopeID}))
	return nil
}

// LiveResolved returns the last resolved value computed for a dotted path.
func (r *Registry) LiveResolved(scopeID, path string) (Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, err := r.getLocked(scopeID)
	if err != nil {
		return Absent, err
	}
	if value, ok := state.live[path]; ok {
		return value, nil
	}
	return Absent, nil
}

// ScopeIDs returns the registered scope identifiers.
func (r *Registry) ScopeIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.scopes))
	for id := range r.scopes {
		out = append(out, id)
	}
	return out
}

// stackForLocked materializes the X axis for a scope: ancestor overlays
// pushed root outermost, immediate parent innermost, each incorporating
// that scope's live raw values.
func (r *Registry) stackForLocked(state *ScopeState) (*ContextStack, error) {
	ancestors := r.ancestorsLocked(state)
	stack := NewContextStack()
	for i := len(ancestors) - 1; i >= 0; i-- {
		if _, err := stack.Push(materialize(ancestors[i])); err != nil {
			return nil, err
		}
	}
	return stack, nil
}

// materialize turns a scope's working overlay into a concrete context
// record its descendants resolve against.
func materialize(state *ScopeState) *Record {
	rec := state.Type().New()
	for path, value := range state.record.Overlay() {
		rec.values[path] = value
	}
	return rec
}

// refreshTreeLocked recomputes resolved values for state and for every
// registered scope that inherits context from it.
func (r *Registry) refreshTreeLocked(state *ScopeState) error {
	if err := r.refreshLocked(state); err != nil {
		return err
	}
	for _, other := range r.scopes {
		if other == state {
			continue
		}
		for _, ancestor := range r.ancestorsLocked(other) {
			if ancestor == state {
				if err := r.refreshLocked(other); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

// refreshLocked recomputes live resolved values for every leaf path of the
// scope's type under the current ancestor context.
func (r *Registry) refreshLocked(state *ScopeState) error {
	stack, err := r.stackForLocked(state)
	if err != nil {
		return err
	}
	live := map[string]Value{}
	for _, leaf := range state.Type().LeafPaths() {
		value, err := r.resolver.ResolveScoped(state.id, stack, state.record, leaf)
		if err != nil {
			return err
		}
		live[leaf] = value
	}
	state.live = live
	return nil
}

func (r *Registry) emit(event notify.Event) {
	if !r.notifier.Enabled() {
		return
	}
	_ = r.notifier.Emit(context.Background(), event)
}

func paramsToAny(params map[string]Value) map[string]any {
	out := make(map[string]any, len(params))
	for path, value := range params {
		if value.IsAbsent() {
			continue
		}
		out[path] = value.Any()
	}
	return out
}

func paramsEqual(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for path, value := range a {
		other, ok := b[path]
		if !ok || !value.Equal(other) {
			return false
		}
	}
	return true
}

func cloneValues(params map[string]Value) map[string]Value {
	out := make(map[string]Value, len(params))
	for path, value := range params {
		out[path] = value
	}
	return out
}
