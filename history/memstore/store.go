// Package memstore keeps exported history trees in memory, for tests and
// ephemeral sessions that want persistence semantics without a database.
package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-lazyconf/history"
)

// ErrEmptyStore indicates Load found no saved history.
var ErrEmptyStore = errors.New("memstore: no history stored")

// ErrStaleVersion indicates SaveIf lost a concurrent update.
var ErrStaleVersion = errors.New("memstore: stale version")

// Store holds at most one history tree, guarded by a version counter so
// concurrent writers can detect lost updates.
type Store struct {
	mu      sync.Mutex
	tree    history.Tree
	saved   bool
	version uint64
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{}
}

// Save replaces the stored tree unconditionally and returns the new version.
func (s *Store) Save(_ context.Context, tree history.Tree) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(tree)
	return s.version, nil
}

// SaveIf replaces the stored tree only when version still matches the last
// observed one. A mismatch means another writer saved in between.
func (s *Store) SaveIf(_ context.Context, tree history.Tree, version uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version {
		return s.version, ErrStaleVersion
	}
	s.store(tree)
	return s.version, nil
}

// Load returns the stored tree and its version. Returns ErrEmptyStore when
// nothing has been saved yet.
func (s *Store) Load(_ context.Context) (history.Tree, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return history.Tree{}, s.version, ErrEmptyStore
	}
	return cloneTree(s.tree), s.version, nil
}

func (s *Store) store(tree history.Tree) {
	s.tree = cloneTree(tree)
	s.saved = true
	s.version++
}

// cloneTree deep-copies through the JSON codec so callers cannot mutate the
// stored tree through shared maps.
func cloneTree(tree history.Tree) history.Tree {
	payload, err := tree.ToJSON()
	if err != nil {
		return tree
	}
	cloned, err := history.TreeFromJSON(payload)
	if err != nil {
		return tree
	}
	return cloned
}
