package lazyconf

import (
	"testing"

	"github.com/goliatone/go-lazyconf/history"
)

func testEngine(t *testing.T) (*Schema, *Registry, *history.Engine) {
	t.Helper()
	schema, registry := testRegistry(t)
	return schema, registry, history.NewEngine(registry)
}

func TestUndoRestoresEarlierParameters(t *testing.T) {
	schema, registry, engine := testEngine(t)
	if err := registry.Register(NewScopeState("brush", "", schema.MustType("Brush"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.SetParameter("brush", "size", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Record("init"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := registry.SetParameter("brush", "size", 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Record("edit"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	moved, err := engine.Undo()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !moved {
		t.Fatalf("expected undo to move the head")
	}

	value, err := registry.Resolve("brush", "size")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := value.Int(); n != 10 {
		t.Fatalf("expected 10 after undo, got %v", value.Any())
	}

	moved, err = engine.Redo()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !moved {
		t.Fatalf("expected redo to move the head")
	}
	value, _ = registry.Resolve("brush", "size")
	if n, _ := value.Int(); n != 20 {
		t.Fatalf("expected 20 after redo, got %v", value.Any())
	}
}

func TestRestoreRemovesScopesAbsentFromSnapshot(t *testing.T) {
	schema, registry, engine := testEngine(t)
	if err := registry.Register(NewScopeState("doc", "", schema.MustType("Global"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Record("init"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := registry.Register(NewScopeState("brush", "doc", schema.MustType("Brush"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Record("add brush"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := engine.Undo(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := registry.Get("brush"); err == nil {
		t.Fatalf("expected brush to vanish after undo")
	}
	if _, err := registry.Get("doc"); err != nil {
		t.Fatalf("expected doc to survive: %v", err)
	}

	if _, err := engine.Redo(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := registry.Get("brush"); err != nil {
		t.Fatalf("expected brush back after redo: %v", err)
	}
}

func TestUndoRestoresSavedBaseline(t *testing.T) {
	schema, registry, engine := testEngine(t)
	if err := registry.Register(NewScopeState("brush", "", schema.MustType("Brush"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.SetParameter("brush", "size", 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.MarkSaved("brush"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Record("saved"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := registry.SetParameter("brush", "size", 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Record("edit"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := engine.Undo(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dirty, err := registry.IsDirty("brush")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dirty {
		t.Fatalf("expected restored scope to be clean against its baseline")
	}
}

func TestCaptureAllIsDeepCopied(t *testing.T) {
	schema, registry, _ := testEngine(t)
	if err := registry.Register(NewScopeState("brush", "", schema.MustType("Brush"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.SetParameter("brush", "size", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	states := registry.CaptureAll()
	if err := registry.SetParameter("brush", "size", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if states["brush"].Raw["size"] != int64(1) {
		t.Fatalf("expected frozen capture 1, got %v", states["brush"].Raw["size"])
	}
}

func TestRestoreAllRejectsUnknownType(t *testing.T) {
	_, registry, _ := testEngine(t)
	err := registry.RestoreAll(map[string]history.ScopeCapture{
		"ghost": {RecordType: "Missing"},
	})
	if !IsSchemaError(err) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestAtomicBatchCoalescesRecords(t *testing.T) {
	schema, registry, engine := testEngine(t)
	if err := registry.Register(NewScopeState("brush", "", schema.MustType("Brush"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.Record("init"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := engine.Atomic("stroke", func() error {
		if err := registry.SetParameter("brush", "size", 2); err != nil {
			return err
		}
		if _, err := engine.Record("ignored"); err != nil {
			return err
		}
		if err := registry.SetParameter("brush", "size", 3); err != nil {
			return err
		}
		_, err := engine.Record("ignored too")
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if engine.Len() != 2 {
		t.Fatalf("expected 2 snapshots, got %d", engine.Len())
	}
	snap, err := engine.Snapshot(engine.Head())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Label != "stroke" {
		t.Fatalf("expected batch label stroke, got %q", snap.Label)
	}
	if snap.States["brush"].Raw["size"] != int64(3) {
		t.Fatalf("expected final batched value 3, got %v", snap.States["brush"].Raw["size"])
	}
}
