package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-lazyconf/pkg/notify"
	"github.com/google/uuid"
)

// DefaultTimeline is the branch every engine starts on.
const DefaultTimeline = "main"

// DefaultLimit bounds the snapshot arena unless WithLimit overrides it.
const DefaultLimit = 1000

var (
	// ErrDuplicateTimeline indicates CreateBranch received an existing name.
	ErrDuplicateTimeline = errors.New("history: timeline already exists")
	// ErrUnknownTimeline indicates SwitchBranch received an unknown name.
	ErrUnknownTimeline = errors.New("history: timeline not found")
)

// SnapshotNotFoundError reports a time-travel target missing from the DAG.
type SnapshotNotFoundError struct {
	ID string
}

func (e *SnapshotNotFoundError) Error() string {
	return fmt.Sprintf("history: snapshot %q not found", e.ID)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimit bounds the snapshot arena; unreachable snapshots are pruned
// oldest first once the bound is exceeded.
func WithLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.limit = limit
		}
	}
}

// WithNotifier wires the refresh bus notified on every head change.
func WithNotifier(notifier *notify.Notifier) Option {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// WithIDSource overrides snapshot id generation, mainly for tests.
func WithIDSource(next func() string) Option {
	return func(e *Engine) {
		if next != nil {
			e.newID = next
		}
	}
}

// WithClock overrides the snapshot timestamp source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine is the undo/redo state machine over (current timeline, head).
//
// All mutating operations serialize on one mutex: parent-pointer rewiring
// and the subject's rewrite-on-undo are not safe to interleave. Reads of the
// subject may run concurrently with each other but not with a restore.
type Engine struct {
	mu      sync.Mutex
	subject Subject
	d       *dag

	timelines map[string]string
	current   string
	head      string

	depth      int
	batchLabel string
	pending    bool

	limit    int
	notifier *notify.Notifier
	metrics  *metrics
	newID    func() string
	now      func() time.Time
}

// NewEngine constructs an engine recording subject. The history starts
// empty on the "main" timeline; the first Record creates the root snapshot.
func NewEngine(subject Subject, opts ...Option) *Engine {
	e := &Engine{
		subject:   subject,
		d:         newDAG(),
		timelines: map[string]string{DefaultTimeline: ""},
		current:   DefaultTimeline,
		limit:     DefaultLimit,
		newID:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Head returns the current snapshot id, empty before the first record.
func (e *Engine) Head() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.head
}

// Timeline returns the current timeline name.
func (e *Engine) Timeline() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Timelines returns the timeline-name → head-id mapping.
func (e *Engine) Timelines() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.timelines))
	for name, head := range e.timelines {
		out[name] = head
	}
	return out
}

// Snapshot returns the snapshot stored under id.
func (e *Engine) Snapshot(id string) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap, ok := e.d.get(id)
	if !ok {
		return nil, &SnapshotNotFoundError{ID: id}
	}
	return snap, nil
}

// Len returns the number of snapshots currently in the arena.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.d.len()
}

// Record captures every registered scope into a new snapshot parented at
// the current head and advances the head to it. Inside an atomic batch the
// capture is deferred: the call marks the batch dirty and returns an empty
// id. Recording from a rewound head does not discard the old future; its
// tip is preserved under an implicit timeline before the new child attaches.
func (e *Engine) Record(label string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.depth > 0 {
		e.pending = true
		return "", nil
	}
	return e.record(label)
}

func (e *Engine) record(label string) (string, error) {
	e.preserveFuture()

	snap := newSnapshot(e.newID(), e.head, label, e.now(), e.subject.CaptureAll())
	e.d.add(snap)
	e.head = snap.ID
	e.timelines[e.current] = snap.ID

	e.d.prune(e.limit, e.heads()...)
	e.metrics.recorded(e.d.len())
	return snap.ID, nil
}

// preserveFuture mints an implicit timeline at the abandoned future's tip
// when the head is about to grow a sibling branch.
func (e *Engine) preserveFuture() {
	if e.head == "" || len(e.d.children(e.head)) == 0 {
		return
	}
	tip := e.d.tip(e.head)
	for _, head := range e.timelines {
		if head == tip {
			return
		}
	}
	name := fmt.Sprintf("%s@%s", e.current, shortID(tip))
	for i := 2; ; i++ {
		if _, exists := e.timelines[name]; !exists {
			break
		}
		name = fmt.Sprintf("%s@%s.%d", e.current, shortID(tip), i)
	}
	e.timelines[name] = tip
}

// Undo moves the head to its parent and rewires live state. Returns false
// without error when already at a root or before any history exists.
func (e *Engine) Undo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.head == "" {
		return false, nil
	}
	snap, ok := e.d.get(e.head)
	if !ok || snap.ParentID == "" {
		return false, nil
	}
	if err := e.moveHead(snap.ParentID); err != nil {
		return false, err
	}
	e.metrics.undone()
	return true, nil
}

// Redo advances the head to its only child. A head with multiple children
// is an ambiguous branch point and redo is a no-op; pick a branch with
// TimeTravel or SwitchBranch instead.
func (e *Engine) Redo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.head == "" {
		return false, nil
	}
	children := e.d.children(e.head)
	if len(children) != 1 {
		return false, nil
	}
	if err := e.moveHead(children[0]); err != nil {
		return false, err
	}
	e.metrics.redone()
	return true, nil
}

// TimeTravel unconditionally moves the head to id.
func (e *Engine) TimeTravel(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.d.get(id); !ok {
		return &SnapshotNotFoundError{ID: id}
	}
	if err := e.moveHead(id); err != nil {
		return err
	}
	e.metrics.traveled()
	return nil
}

// CreateBranch registers a named timeline pointing at the current head and
// makes it current.
func (e *Engine) CreateBranch(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name == "" {
		return fmt.Errorf("history: timeline name must not be empty")
	}
	if _, exists := e.timelines[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTimeline, name)
	}
	e.timelines[name] = e.head
	e.current = name
	return nil
}

// SwitchBranch makes name the current timeline and rewires live state to
// its head.
func (e *Engine) SwitchBranch(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	head, ok := e.timelines[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTimeline, name)
	}
	e.current = name
	if head == e.head {
		return nil
	}
	if head == "" {
		// A timeline that never recorded rewinds live state to no scopes.
		if err := e.subject.RestoreAll(map[string]ScopeCapture{}); err != nil {
			return err
		}
		e.head = ""
		if e.notifier.Enabled() {
			_ = e.notifier.Emit(context.Background(), notify.BuildHeadChangedEvent(notify.EventInput{
				Timeline: e.current,
			}))
		}
		return nil
	}
	return e.moveHead(head)
}

// Atomic runs fn inside a batch: Record calls made during fn are deferred
// and coalesced into at most one snapshot, labeled with the outermost
// batch's label. Nested batches compose; inner labels are discarded. The
// depth counter is decremented and the deferred record performed even when
// fn fails, so history stays consistent with the mutations that did land.
func (e *Engine) Atomic(label string, fn func() error) (err error) {
	e.mu.Lock()
	e.depth++
	if e.depth == 1 {
		e.batchLabel = label
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.depth--
		if e.depth > 0 || !e.pending {
			return
		}
		e.pending = false
		if _, recordErr := e.record(e.batchLabel); recordErr != nil && err == nil {
			err = recordErr
		}
	}()

	if fn == nil {
		return nil
	}
	return fn()
}

// moveHead rewires live state to the snapshot at id. The caller holds the
// mutex.
func (e *Engine) moveHead(id string) error {
	snap, ok := e.d.get(id)
	if !ok {
		return &SnapshotNotFoundError{ID: id}
	}
	if err := e.subject.RestoreAll(snap.CloneStates()); err != nil {
		return err
	}
	e.head = id
	e.timelines[e.current] = id
	e.notifyHeadChange(snap)
	return nil
}

func (e *Engine) notifyHeadChange(snap *Snapshot) {
	if !e.notifier.Enabled() {
		return
	}
	_ = e.notifier.Emit(context.Background(), notify.BuildHeadChangedEvent(notify.EventInput{
		SnapshotID: snap.ID,
		Timeline:   e.current,
		Label:      snap.Label,
	}))
}

func (e *Engine) heads() []string {
	out := make([]string, 0, len(e.timelines)+1)
	for _, head := range e.timelines {
		if head != "" {
			out = append(out, head)
		}
	}
	if e.head != "" {
		out = append(out, e.head)
	}
	return out
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
