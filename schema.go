package lazyconf

import (
	"sync"

	"github.com/goliatone/go-lazyconf/internal/fieldpath"
)

// FieldSpec declares a single named field on a RecordType.
//
// Default may be Absent, in which case resolution that finds no concrete
// value anywhere surfaces Absent to the caller. DefaultExpr, when set,
// supplies a computed default evaluated by the resolver's expression engine
// before falling back to the static default. Record names the nested
// RecordType for KindRecord fields.
type FieldSpec struct {
	Name        string
	Kind        Kind
	Default     Value
	DefaultExpr string
	Record      string
}

// RecordTypeSpec is the input to Schema.Register.
type RecordTypeSpec struct {
	Name   string
	Base   string
	Fields []FieldSpec
}

// RecordType is an immutable, registered configuration type. Its ancestry
// chain (most specific first, self included) is precomputed at registration
// so resolution never walks type links at lookup time.
type RecordType struct {
	name     string
	base     *RecordType
	schema   *Schema
	fields   map[string]FieldSpec
	order    []string
	ancestry []*RecordType

	// Effective field set: inherited declarations merged with own, most
	// specific declaration winning. Precomputed at registration.
	effFields map[string]FieldSpec
	effOrder  []string
}

// Schema is an explicit registry of RecordTypes. Construct one per
// application; there is no package-level default.
type Schema struct {
	mu    sync.RWMutex
	types map[string]*RecordType
}

// NewSchema constructs an empty schema.
func NewSchema() *Schema {
	return &Schema{types: map[string]*RecordType{}}
}

// Register validates spec and adds the type to the schema. Base and nested
// record types must already be registered; field declarations are validated
// here so resolution can assume a well-formed schema.
func (s *Schema) Register(spec RecordTypeSpec) (*RecordType, error) {
	if spec.Name == "" {
		return nil, schemaErrorf("", "", "record type name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.types[spec.Name]; exists {
		return nil, schemaErrorf(spec.Name, "", "record type already registered")
	}

	var base *RecordType
	if spec.Base != "" {
		var ok bool
		base, ok = s.types[spec.Base]
		if !ok {
			return nil, schemaErrorf(spec.Name, "", "base type %q not registered", spec.Base)
		}
	}

	rt := &RecordType{
		name:   spec.Name,
		base:   base,
		schema: s,
		fields: make(map[string]FieldSpec, len(spec.Fields)),
		order:  make([]string, 0, len(spec.Fields)),
	}
	for _, field := range spec.Fields {
		if field.Name == "" {
			return nil, schemaErrorf(spec.Name, "", "field name must not be empty")
		}
		if _, dup := rt.fields[field.Name]; dup {
			return nil, schemaErrorf(spec.Name, field.Name, "field declared twice")
		}
		switch field.Kind {
		case KindBool, KindInt, KindFloat, KindString:
			if !field.Default.IsAbsent() && field.Default.Kind() != field.Kind {
				return nil, schemaErrorf(spec.Name, field.Name, "default kind %s does not match field kind %s", field.Default.Kind(), field.Kind)
			}
		case KindRecord:
			if field.Record == "" {
				return nil, schemaErrorf(spec.Name, field.Name, "record field needs a Record type link")
			}
			if _, ok := s.types[field.Record]; !ok {
				return nil, schemaErrorf(spec.Name, field.Name, "nested type %q not registered", field.Record)
			}
			if !field.Default.IsAbsent() {
				return nil, schemaErrorf(spec.Name, field.Name, "record fields cannot carry static defaults")
			}
		default:
			return nil, schemaErrorf(spec.Name, field.Name, "invalid field kind")
		}
		rt.fields[field.Name] = field
		rt.order = append(rt.order, field.Name)
	}

	rt.ancestry = append(rt.ancestry, rt)
	for cursor := base; cursor != nil; cursor = cursor.base {
		rt.ancestry = append(rt.ancestry, cursor)
	}

	rt.effFields = map[string]FieldSpec{}
	if base != nil {
		rt.effOrder = append(rt.effOrder, base.effOrder...)
		for name, field := range base.effFields {
			rt.effFields[name] = field
		}
	}
	for _, name := range rt.order {
		if _, inherited := rt.effFields[name]; !inherited {
			rt.effOrder = append(rt.effOrder, name)
		}
		rt.effFields[name] = rt.fields[name]
	}

	s.types[spec.Name] = rt
	return rt, nil
}

// Type looks up a registered RecordType by name.
func (s *Schema) Type(name string) (*RecordType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.types[name]
	if !ok {
		return nil, schemaErrorf(name, "", "record type not registered")
	}
	return rt, nil
}

// MustType is Type for statically known names; it panics on unknown types.
func (s *Schema) MustType(name string) *RecordType {
	rt, err := s.Type(name)
	if err != nil {
		panic(err)
	}
	return rt
}

// Name returns the registered type name.
func (t *RecordType) Name() string { return t.name }

// Base returns the base type, nil at the root of an ancestry chain.
func (t *RecordType) Base() *RecordType { return t.base }

// Ancestry returns the precomputed chain, most specific first, self included.
func (t *RecordType) Ancestry() []*RecordType {
	out := make([]*RecordType, len(t.ancestry))
	copy(out, t.ancestry)
	return out
}

// DerivesFrom reports whether t is other or declares other as an ancestor.
func (t *RecordType) DerivesFrom(other *RecordType) bool {
	if other == nil {
		return false
	}
	for _, ancestor := range t.ancestry {
		if ancestor == other {
			return true
		}
	}
	return false
}

// Field returns the effective spec for name: the most specific declaration
// along the ancestry chain, inherited fields included.
func (t *RecordType) Field(name string) (FieldSpec, error) {
	spec, ok := t.effFields[name]
	if !ok {
		return FieldSpec{}, schemaErrorf(t.name, name, "")
	}
	return spec, nil
}

// Declares reports whether t itself (not an ancestor) declares name.
func (t *RecordType) Declares(name string) bool {
	_, ok := t.fields[name]
	return ok
}

// FieldNames returns the effective field names, base declarations first.
func (t *RecordType) FieldNames() []string {
	out := make([]string, len(t.effOrder))
	copy(out, t.effOrder)
	return out
}

// SpecAt walks a dotted path through nested record links and returns the
// terminal field spec together with the RecordType that declares it.
func (t *RecordType) SpecAt(path string) (FieldSpec, *RecordType, error) {
	owner := t
	remaining := path
	for {
		head, rest := fieldpath.Head(remaining)
		spec, err := owner.Field(head)
		if err != nil {
			return FieldSpec{}, nil, err
		}
		if rest == "" {
			return spec, owner, nil
		}
		if spec.Kind != KindRecord {
			return FieldSpec{}, nil, schemaErrorf(owner.name, head, "field is not a record, cannot descend into %q", rest)
		}
		nested, err := t.schema.Type(spec.Record)
		if err != nil {
			return FieldSpec{}, nil, err
		}
		owner = nested
		remaining = rest
	}
}

// LeafPaths enumerates every resolvable dotted path of the type, nested
// record fields expanded recursively.
func (t *RecordType) LeafPaths() []string {
	var out []string
	t.appendLeafPaths("", &out, map[string]bool{})
	return out
}

func (t *RecordType) appendLeafPaths(prefix string, out *[]string, seen map[string]bool) {
	if seen[t.name] {
		// Record links may form cycles; expanding past the first repeat
		// would never terminate.
		return
	}
	seen[t.name] = true
	defer delete(seen, t.name)

	for _, name := range t.effOrder {
		spec := t.effFields[name]
		path := fieldpath.Join(prefix, name)
		if spec.Kind != KindRecord {
			*out = append(*out, path)
			continue
		}
		nested, err := t.schema.Type(spec.Record)
		if err != nil {
			continue
		}
		nested.appendLeafPaths(path, out, seen)
	}
}
