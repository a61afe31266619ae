package history

import (
	"testing"
	"time"
)

func addChain(d *dag, parent string, ids ...string) {
	for _, id := range ids {
		d.add(newSnapshot(id, parent, "", time.Time{}, nil))
		parent = id
	}
}

func TestTipFollowsSingleChildChain(t *testing.T) {
	d := newDAG()
	addChain(d, "", "a", "b", "c")
	if got := d.tip("a"); got != "c" {
		t.Fatalf("expected tip c, got %q", got)
	}

	// A fork stops the walk at the branch point.
	d.add(newSnapshot("d", "b", "", time.Time{}, nil))
	if got := d.tip("a"); got != "b" {
		t.Fatalf("expected tip b at the fork, got %q", got)
	}
}

func TestReachableMarksAncestors(t *testing.T) {
	d := newDAG()
	addChain(d, "", "a", "b", "c")
	d.add(newSnapshot("orphan", "", "", time.Time{}, nil))

	marked := d.reachable("c")
	for _, id := range []string{"a", "b", "c"} {
		if !marked[id] {
			t.Fatalf("expected %q reachable", id)
		}
	}
	if marked["orphan"] {
		t.Fatalf("expected orphan unreachable")
	}
}

func TestPruneKeepsReachableNodes(t *testing.T) {
	d := newDAG()
	addChain(d, "", "a", "b", "c")
	if removed := d.prune(2, "c"); removed != nil {
		t.Fatalf("expected no pruning of a fully reachable chain, got %v", removed)
	}
	if d.len() != 3 {
		t.Fatalf("expected 3 nodes, got %d", d.len())
	}
}

func TestPruneRemovesUnreachableOldestFirst(t *testing.T) {
	d := newDAG()
	addChain(d, "", "old1", "old2")
	addChain(d, "", "live")

	removed := d.prune(2, "live")
	if len(removed) != 2 || removed[0] != "old1" || removed[1] != "old2" {
		t.Fatalf("expected old1 then its cascaded subtree, got %v", removed)
	}
	// old2 went with its parent even though removing old1 alone brought the
	// arena under the limit; a parent link must never dangle.
	if _, ok := d.get("old2"); ok {
		t.Fatalf("expected old2 cascaded away")
	}
	if _, ok := d.get("live"); !ok {
		t.Fatalf("expected live kept")
	}
}

func TestRemoveDetachesFromParent(t *testing.T) {
	d := newDAG()
	addChain(d, "", "a", "b")
	d.remove("b")
	if children := d.children("a"); len(children) != 0 {
		t.Fatalf("expected no children after removal, got %v", children)
	}
}
