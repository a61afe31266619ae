package lazyconf

import (
	"fmt"
	"math"
)

// Kind enumerates the field types a RecordType may declare.
type Kind int

const (
	// KindInvalid marks an absent value; it is never a declarable field kind.
	KindInvalid Kind = iota
	// KindBool holds a boolean.
	KindBool
	// KindInt holds a 64-bit signed integer.
	KindInt
	// KindFloat holds a 64-bit float.
	KindFloat
	// KindString holds a string.
	KindString
	// KindRecord holds a nested record resolved through its own lazy variant.
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindRecord:
		return "record"
	default:
		return "invalid"
	}
}

// Value is a typed field value that distinguishes "absent" from every concrete
// value, including false, zero, and the empty string. The zero Value is Absent.
type Value struct {
	kind Kind
	data any
}

// Absent is the canonical unresolved value.
var Absent = Value{}

// Bool wraps a concrete boolean.
func Bool(v bool) Value { return Value{kind: KindBool, data: v} }

// Int wraps a concrete integer.
func Int(v int64) Value { return Value{kind: KindInt, data: v} }

// Float wraps a concrete float.
func Float(v float64) Value { return Value{kind: KindFloat, data: v} }

// String wraps a concrete string.
func String(v string) Value { return Value{kind: KindString, data: v} }

// RecordValue wraps a lazy record produced while resolving a nested field.
func RecordValue(rec *LazyRecord) Value {
	if rec == nil {
		return Absent
	}
	return Value{kind: KindRecord, data: rec}
}

// IsAbsent reports whether the value carries no concrete data.
func (v Value) IsAbsent() bool { return v.kind == KindInvalid }

// Kind returns the value kind, KindInvalid when absent.
func (v Value) Kind() Kind { return v.kind }

// Any returns the underlying Go value, nil when absent. Record values yield
// the *LazyRecord handle.
func (v Value) Any() any {
	if v.IsAbsent() {
		return nil
	}
	return v.data
}

// Bool unwraps a boolean; ok is false for absent or non-bool values.
func (v Value) Bool() (value, ok bool) {
	b, ok := v.data.(bool)
	return b, ok
}

// Int unwraps an integer; ok is false for absent or non-int values.
func (v Value) Int() (int64, bool) {
	i, ok := v.data.(int64)
	return i, ok
}

// Float unwraps a float; ok is false for absent or non-float values.
func (v Value) Float() (float64, bool) {
	f, ok := v.data.(float64)
	return f, ok
}

// Str unwraps a string; ok is false for absent or non-string values.
func (v Value) Str() (string, bool) {
	s, ok := v.data.(string)
	return s, ok
}

// Record unwraps a nested lazy record handle.
func (v Value) Record() (*LazyRecord, bool) {
	r, ok := v.data.(*LazyRecord)
	return r, ok
}

// Equal compares kind and payload. Record values compare by handle identity.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	return v.data == other.data
}

func (v Value) String() string {
	if v.IsAbsent() {
		return "<absent>"
	}
	return fmt.Sprintf("%v", v.data)
}

// Coerce converts a loosely typed input (user edits, JSON payloads) into a
// Value of the requested kind. JSON decoding yields float64 for every number,
// so integral floats are accepted for KindInt.
func Coerce(kind Kind, raw any) (Value, error) {
	if raw == nil {
		return Absent, nil
	}
	switch kind {
	case KindBool:
		if b, ok := raw.(bool); ok {
			return Bool(b), nil
		}
	case KindInt:
		switch n := raw.(type) {
		case int:
			return Int(int64(n)), nil
		case int32:
			return Int(int64(n)), nil
		case int64:
			return Int(n), nil
		case float64:
			if n == math.Trunc(n) {
				return Int(int64(n)), nil
			}
		case float32:
			if float64(n) == math.Trunc(float64(n)) {
				return Int(int64(n)), nil
			}
		}
	case KindFloat:
		switch n := raw.(type) {
		case float64:
			return Float(n), nil
		case float32:
			return Float(float64(n)), nil
		case int:
			return Float(float64(n)), nil
		case int64:
			return Float(float64(n)), nil
		}
	case KindString:
		if s, ok := raw.(string); ok {
			return String(s), nil
		}
	case KindRecord:
		if r, ok := raw.(*LazyRecord); ok {
			return RecordValue(r), nil
		}
	}
	return Absent, fmt.Errorf("lazyconf: cannot coerce %T into %s", raw, kind)
}
