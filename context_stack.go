package lazyconf

// ContextStack is the X axis: an ordered set of concrete records currently
// "in force", innermost (most recently pushed) first. A stack is an explicit
// handle owned by one execution context; goroutines must not share one.
// Independent goroutines construct independent stacks and never observe each
// other's pushes.
type ContextStack struct {
	entries []*Record
}

// NewContextStack constructs an empty stack.
func NewContextStack() *ContextStack {
	return &ContextStack{}
}

// Push adds rec as the innermost entry and returns a release func that
// restores the stack to its pre-push depth. Releases compose LIFO; calling a
// release also drops anything pushed above it, so an error path that skips
// inner releases still restores the outer frame.
func (s *ContextStack) Push(rec *Record) (func(), error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	depth := len(s.entries)
	s.entries = append(s.entries, rec)
	return func() {
		if len(s.entries) > depth {
			s.entries = s.entries[:depth]
		}
	}, nil
}

// With pushes rec for the duration of fn, guaranteeing the pop on every exit
// path including panics.
func (s *ContextStack) With(rec *Record, fn func() error) error {
	release, err := s.Push(rec)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// Len returns the current stack depth.
func (s *ContextStack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns the pushed records innermost first. The slice is a copy;
// the records are the live instances.
func (s *ContextStack) Entries() []*Record {
	if s == nil || len(s.entries) == 0 {
		return nil
	}
	out := make([]*Record, len(s.entries))
	for i := range s.entries {
		out[i] = s.entries[len(s.entries)-1-i]
	}
	return out
}

// Flatten returns a read-only type-name → instance view of the stack where
// the innermost instance of each type wins. Only current entries are
// reflected; popped frames leave no residue.
func (s *ContextStack) Flatten() map[string]*Record {
	if s == nil || len(s.entries) == 0 {
		return nil
	}
	out := make(map[string]*Record, len(s.entries))
	for _, rec := range s.entries {
		out[rec.Type().Name()] = rec
	}
	return out
}
