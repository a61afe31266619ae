package history

import (
	"errors"
	"fmt"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	subject := newFakeSubject()
	engine := NewEngine(subject, WithIDSource(seqIDs()))

	subject.set("brush", "size", 1)
	if _, err := engine.Record("init"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	subject.set("brush", "size", 2)
	if _, err := engine.Record("edit"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Undo(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	subject.set("brush", "size", 3)
	if _, err := engine.Record("divergence"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tree := engine.Export()
	payload, err := tree.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := TreeFromJSON(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restoredSubject := newFakeSubject()
	restored := NewEngine(restoredSubject)
	if err := restored.Import(decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if restored.Head() != engine.Head() {
		t.Fatalf("expected head %q, got %q", engine.Head(), restored.Head())
	}
	if restored.Timeline() != engine.Timeline() {
		t.Fatalf("expected timeline %q, got %q", engine.Timeline(), restored.Timeline())
	}
	if restored.Len() != engine.Len() {
		t.Fatalf("expected %d snapshots, got %d", engine.Len(), restored.Len())
	}
	for name, head := range engine.Timelines() {
		if restored.Timelines()[name] != head {
			t.Fatalf("expected timeline %q at %q, got %q", name, head, restored.Timelines()[name])
		}
	}

	// Import rewired the subject to the head snapshot. Raw values travel
	// through JSON, so numbers come back as float64.
	if got := restoredSubject.get("brush", "size"); got != float64(3) {
		t.Fatalf("expected restored size 3, got %v (%T)", got, got)
	}

	// The restored engine keeps working: undo walks the imported chain.
	if moved, err := restored.Undo(); err != nil || !moved {
		t.Fatalf("expected undo on imported history, got moved=%v err=%v", moved, err)
	}
	if got := restoredSubject.get("brush", "size"); got != float64(1) {
		t.Fatalf("expected size 1 after undo, got %v", got)
	}
}

func TestImportRejectsMissingParent(t *testing.T) {
	engine := NewEngine(newFakeSubject())
	err := engine.Import(Tree{
		Snapshots: []SnapshotRecord{{ID: "b", ParentID: "a"}},
	})
	if err == nil {
		t.Fatalf("expected error for missing parent")
	}
}

func TestImportRejectsDuplicateSnapshot(t *testing.T) {
	engine := NewEngine(newFakeSubject())
	err := engine.Import(Tree{
		Snapshots: []SnapshotRecord{{ID: "a"}, {ID: "a"}},
	})
	if err == nil {
		t.Fatalf("expected error for duplicate snapshot")
	}
}

func TestImportRejectsMissingHead(t *testing.T) {
	engine := NewEngine(newFakeSubject())
	err := engine.Import(Tree{
		Snapshots: []SnapshotRecord{{ID: "a"}},
		Head:      "missing",
	})
	var notFound *SnapshotNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected SnapshotNotFoundError, got %v", err)
	}
}

func TestImportRejectsMissingTimelineHead(t *testing.T) {
	engine := NewEngine(newFakeSubject())
	err := engine.Import(Tree{
		Snapshots: []SnapshotRecord{{ID: "a"}},
		Timelines: map[string]string{"feature": "missing"},
	})
	if err == nil {
		t.Fatalf("expected error for missing timeline head")
	}
}

func TestImportDefaultsCurrentTimeline(t *testing.T) {
	engine := NewEngine(newFakeSubject())
	if err := engine.Import(Tree{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Timeline() != DefaultTimeline {
		t.Fatalf("expected default timeline, got %q", engine.Timeline())
	}
	if engine.Head() != "" {
		t.Fatalf("expected empty head, got %q", engine.Head())
	}
}

func TestExportOrdersParentsBeforeChildren(t *testing.T) {
	subject := newFakeSubject()
	engine := NewEngine(subject, WithIDSource(seqIDs()))
	for i := 0; i < 5; i++ {
		subject.set("brush", "size", i)
		if _, err := engine.Record(fmt.Sprintf("step %d", i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	tree := engine.Export()
	seen := map[string]bool{}
	for _, snap := range tree.Snapshots {
		if snap.ParentID != "" && !seen[snap.ParentID] {
			t.Fatalf("snapshot %q appears before its parent %q", snap.ID, snap.ParentID)
		}
		seen[snap.ID] = true
	}
}
