package history

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScopeRecord is the persisted form of one scope inside a snapshot. Resolved
// values are not persisted; they are recomputed on restore from the raw and
// saved parameters under the importing process's schema.
type ScopeRecord struct {
	RecordType      string         `json:"record_type"`
	ParentScope     string         `json:"parent_scope,omitempty"`
	RawParameters   map[string]any `json:"raw_parameters"`
	SavedParameters map[string]any `json:"saved_parameters"`
}

// SnapshotRecord is the persisted form of one snapshot.
type SnapshotRecord struct {
	ID        string                 `json:"id"`
	ParentID  string                 `json:"parent_id,omitempty"`
	Label     string                 `json:"label"`
	CreatedAt time.Time              `json:"created_at"`
	Scopes    map[string]ScopeRecord `json:"scopes"`
}

// Tree is the serializable history layout: the snapshot pool plus the
// timeline-name → head-id mapping and the current position. Export then
// Import reproduces an equivalent DAG and head.
type Tree struct {
	Snapshots []SnapshotRecord  `json:"snapshots"`
	Timelines map[string]string `json:"timelines"`
	Current   string            `json:"current_timeline"`
	Head      string            `json:"head,omitempty"`
}

// ToJSON serialises the tree.
func (t Tree) ToJSON() ([]byte, error) {
	type alias Tree
	return json.Marshal(alias(t))
}

// TreeFromJSON deserialises a payload previously produced by ToJSON.
func TreeFromJSON(payload []byte) (Tree, error) {
	type alias Tree
	var tree alias
	if err := json.Unmarshal(payload, &tree); err != nil {
		return Tree{}, err
	}
	return Tree(tree), nil
}

// Export freezes the engine's history into a serializable tree. Snapshots
// appear in recording order so Import can rebuild parents before children.
func (e *Engine) Export() Tree {
	e.mu.Lock()
	defer e.mu.Unlock()

	tree := Tree{
		Timelines: make(map[string]string, len(e.timelines)),
		Current:   e.current,
		Head:      e.head,
	}
	for name, head := range e.timelines {
		tree.Timelines[name] = head
	}
	for _, id := range e.d.ids() {
		snap, _ := e.d.get(id)
		record := SnapshotRecord{
			ID:        snap.ID,
			ParentID:  snap.ParentID,
			Label:     snap.Label,
			CreatedAt: snap.CreatedAt,
			Scopes:    make(map[string]ScopeRecord, len(snap.States)),
		}
		for scopeID, capture := range snap.States {
			record.Scopes[scopeID] = ScopeRecord{
				RecordType:      capture.RecordType,
				ParentScope:     capture.ParentID,
				RawParameters:   cloneParams(capture.Raw),
				SavedParameters: cloneParams(capture.Saved),
			}
		}
		tree.Snapshots = append(tree.Snapshots, record)
	}
	return tree
}

// Import replaces the engine's history with tree and rewires live state to
// the imported head. Parent links must reference snapshots present in the
// tree; the DAG is rebuilt in order, so forward references are rejected.
func (e *Engine) Import(tree Tree) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := newDAG()
	for _, record := range tree.Snapshots {
		if record.ID == "" {
			return fmt.Errorf("history: import: snapshot without id")
		}
		if _, dup := d.get(record.ID); dup {
			return fmt.Errorf("history: import: duplicate snapshot %q", record.ID)
		}
		if record.ParentID != "" {
			if _, ok := d.get(record.ParentID); !ok {
				return fmt.Errorf("history: import: snapshot %q references missing parent %q", record.ID, record.ParentID)
			}
		}
		states := make(map[string]ScopeCapture, len(record.Scopes))
		for scopeID, scope := range record.Scopes {
			states[scopeID] = ScopeCapture{
				RecordType: scope.RecordType,
				ParentID:   scope.ParentScope,
				Raw:        cloneParams(scope.RawParameters),
				Saved:      cloneParams(scope.SavedParameters),
			}
		}
		d.add(newSnapshot(record.ID, record.ParentID, record.Label, record.CreatedAt, states))
	}

	timelines := make(map[string]string, len(tree.Timelines))
	for name, head := range tree.Timelines {
		if head != "" {
			if _, ok := d.get(head); !ok {
				return fmt.Errorf("history: import: timeline %q references missing head %q", name, head)
			}
		}
		timelines[name] = head
	}
	current := tree.Current
	if current == "" {
		current = DefaultTimeline
	}
	if _, ok := timelines[current]; !ok {
		timelines[current] = tree.Head
	}
	if tree.Head != "" {
		if _, ok := d.get(tree.Head); !ok {
			return &SnapshotNotFoundError{ID: tree.Head}
		}
	}

	e.d = d
	e.timelines = timelines
	e.current = current
	e.head = ""
	if tree.Head != "" {
		return e.moveHead(tree.Head)
	}
	return nil
}
