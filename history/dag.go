package history

import "sort"

// node wraps a snapshot with its child links. Parent references travel by id
// into the arena, never by pointer, so pruning cannot leave dangling nodes.
type node struct {
	snap     *Snapshot
	children []string
	seq      uint64
}

// dag is the snapshot arena. Acyclic by construction: a new snapshot's
// parent is always the head that existed when it was recorded.
type dag struct {
	nodes map[string]*node
	seq   uint64
}

func newDAG() *dag {
	return &dag{nodes: map[string]*node{}}
}

func (d *dag) add(snap *Snapshot) {
	d.seq++
	d.nodes[snap.ID] = &node{snap: snap, seq: d.seq}
	if snap.ParentID != "" {
		if parent, ok := d.nodes[snap.ParentID]; ok {
			parent.children = append(parent.children, snap.ID)
		}
	}
}

func (d *dag) get(id string) (*Snapshot, bool) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, false
	}
	return n.snap, true
}

func (d *dag) children(id string) []string {
	n, ok := d.nodes[id]
	if !ok {
		return nil
	}
	out := make([]string, len(n.children))
	copy(out, n.children)
	return out
}

func (d *dag) len() int {
	return len(d.nodes)
}

// tip follows single-child links downward from id and returns the deepest
// unambiguous descendant. Used to preserve an abandoned future when a new
// branch diverges from a rewound head.
func (d *dag) tip(id string) string {
	current := id
	for {
		n, ok := d.nodes[current]
		if !ok || len(n.children) != 1 {
			return current
		}
		current = n.children[0]
	}
}

// reachable collects id and all its ancestors.
func (d *dag) reachable(heads ...string) map[string]bool {
	marked := map[string]bool{}
	for _, head := range heads {
		for cursor := head; cursor != ""; {
			if marked[cursor] {
				break
			}
			n, ok := d.nodes[cursor]
			if !ok {
				break
			}
			marked[cursor] = true
			cursor = n.snap.ParentID
		}
	}
	return marked
}

// prune removes unreachable snapshots, oldest first, until the arena holds
// at most limit nodes or only reachable nodes remain. Returns removed ids.
func (d *dag) prune(limit int, heads ...string) []string {
	if limit <= 0 || len(d.nodes) <= limit {
		return nil
	}
	marked := d.reachable(heads...)

	var candidates []*node
	for id, n := range d.nodes {
		if !marked[id] {
			candidates = append(candidates, n)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].seq < candidates[j].seq
	})

	var removed []string
	gone := map[string]bool{}
	for _, n := range candidates {
		if len(d.nodes) <= limit && !gone[n.snap.ParentID] {
			continue
		}
		// Dropping a node drops its whole abandoned subtree with it, so a
		// parent link never dangles.
		d.remove(n.snap.ID)
		gone[n.snap.ID] = true
		removed = append(removed, n.snap.ID)
	}
	return removed
}

func (d *dag) remove(id string) {
	n, ok := d.nodes[id]
	if !ok {
		return
	}
	if parent, ok := d.nodes[n.snap.ParentID]; ok {
		kept := parent.children[:0]
		for _, child := range parent.children {
			if child != id {
				kept = append(kept, child)
			}
		}
		parent.children = kept
	}
	delete(d.nodes, id)
}

// ids returns all snapshot ids in insertion order.
func (d *dag) ids() []string {
	out := make([]*node, 0, len(d.nodes))
	for _, n := range d.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	ids := make([]string, len(out))
	for i, n := range out {
		ids[i] = n.snap.ID
	}
	return ids
}
