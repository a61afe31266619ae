package lazyconf

import (
	"sort"

	"github.com/goliatone/go-lazyconf/internal/fieldpath"
)

// Record is a concrete instance of a RecordType. Unset fields fall back to
// the type's static defaults at read time; values are stored flat under
// dotted paths so nested fields can be addressed uniformly.
type Record struct {
	t      *RecordType
	values map[string]Value
}

// New builds a concrete instance of t with no explicit values set.
func (t *RecordType) New() *Record {
	return &Record{t: t, values: map[string]Value{}}
}

// Type returns the instance's RecordType.
func (r *Record) Type() *RecordType { return r.t }

// Set stores a concrete value at a dotted path, validating the path against
// the schema and coercing raw into the declared field kind.
func (r *Record) Set(path string, raw any) error {
	spec, _, err := r.t.SpecAt(path)
	if err != nil {
		return err
	}
	value, err := Coerce(spec.Kind, raw)
	if err != nil {
		return err
	}
	if value.IsAbsent() {
		delete(r.values, path)
		return nil
	}
	r.values[path] = value
	return nil
}

// Get reads the value at a dotted path: the explicitly set value when
// present, else the declaring type's static default, else Absent.
func (r *Record) Get(path string) (Value, error) {
	spec, _, err := r.t.SpecAt(path)
	if err != nil {
		return Absent, err
	}
	if value, ok := r.values[path]; ok {
		return value, nil
	}
	return spec.Default, nil
}

// lookup is the resolver's read path: only explicitly set values count, so a
// context instance contributes nothing for fields its author never touched.
func (r *Record) lookup(path string) (Value, bool) {
	value, ok := r.values[path]
	return value, ok
}

// Clone copies the record; the two instances share no mutable state.
func (r *Record) Clone() *Record {
	values := make(map[string]Value, len(r.values))
	for path, value := range r.values {
		values[path] = value
	}
	return &Record{t: r.t, values: values}
}

// LazyRecord is the lazy variant of a RecordType: every field is Absent
// unless explicitly overridden, and reads defer to dual-axis resolution.
type LazyRecord struct {
	t         *RecordType
	overrides map[string]Value
}

// Lazy derives the lazy variant instance of t with no overrides.
func (t *RecordType) Lazy() *LazyRecord {
	return &LazyRecord{t: t, overrides: map[string]Value{}}
}

// Type returns the lazy instance's RecordType.
func (l *LazyRecord) Type() *RecordType { return l.t }

// Set records a concrete override at a dotted path. Setting nil clears the
// override, reverting the field to deferred resolution.
func (l *LazyRecord) Set(path string, raw any) error {
	spec, _, err := l.t.SpecAt(path)
	if err != nil {
		return err
	}
	value, err := Coerce(spec.Kind, raw)
	if err != nil {
		return err
	}
	if value.IsAbsent() {
		delete(l.overrides, path)
		return nil
	}
	l.overrides[path] = value
	return nil
}

// Get returns the explicit override at path, or Absent. It never consults
// the context stack; use a Resolver for effective values.
func (l *LazyRecord) Get(path string) (Value, error) {
	if _, _, err := l.t.SpecAt(path); err != nil {
		return Absent, err
	}
	if value, ok := l.overrides[path]; ok {
		return value, nil
	}
	return Absent, nil
}

// lookup is the resolver's read path: only explicit overrides count, so an
// untouched field stays deferred instead of answering with a default.
func (l *LazyRecord) lookup(path string) (Value, bool) {
	value, ok := l.overrides[path]
	return value, ok
}

// Overlay returns the user-modified overlay: every concrete override keyed
// by dotted path, sorted for deterministic iteration by callers that range
// over a slice of the keys.
func (l *LazyRecord) Overlay() map[string]Value {
	out := make(map[string]Value, len(l.overrides))
	for path, value := range l.overrides {
		out[path] = value
	}
	return out
}

// OverlayPaths returns the overridden paths in sorted order.
func (l *LazyRecord) OverlayPaths() []string {
	paths := make([]string, 0, len(l.overrides))
	for path := range l.overrides {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Clone copies the lazy record and its overrides.
func (l *LazyRecord) Clone() *LazyRecord {
	overrides := make(map[string]Value, len(l.overrides))
	for path, value := range l.overrides {
		overrides[path] = value
	}
	return &LazyRecord{t: l.t, overrides: overrides}
}

// section carves the lazy variant for a nested record field out of the
// parent's override map, stripping the field prefix from every key.
func (l *LazyRecord) section(field string, nested *RecordType) *LazyRecord {
	child := nested.Lazy()
	raw := make(map[string]any, len(l.overrides))
	for path, value := range l.overrides {
		raw[path] = value
	}
	for path, value := range fieldpath.StripPrefix(raw, field) {
		if path == "" {
			continue
		}
		child.overrides[path] = value.(Value)
	}
	return child
}
