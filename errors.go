package lazyconf

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateScope indicates Register received an already registered id.
	ErrDuplicateScope = errors.New("lazyconf: scope already registered")
	// ErrUnknownScope indicates a lookup for an unregistered scope id.
	ErrUnknownScope = errors.New("lazyconf: scope not registered")
	// ErrNoEvaluator indicates an expression default without a usable engine.
	ErrNoEvaluator = errors.New("lazyconf: evaluator not configured")
	// ErrNilRecord indicates a nil record was pushed onto a context stack.
	ErrNilRecord = errors.New("lazyconf: record must not be nil")
)

// SchemaError reports a field path or type declaration that the schema does
// not know about. Resolution aborts on the first SchemaError it encounters.
type SchemaError struct {
	Type  string
	Field string
	Msg   string
}

func (e *SchemaError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Field != "" && e.Type != "":
		return fmt.Sprintf("lazyconf: schema: %s on %s: %s", e.Field, e.Type, e.message())
	case e.Type != "":
		return fmt.Sprintf("lazyconf: schema: %s: %s", e.Type, e.message())
	default:
		return fmt.Sprintf("lazyconf: schema: %s", e.message())
	}
}

func (e *SchemaError) message() string {
	if e.Msg == "" {
		return "not declared"
	}
	return e.Msg
}

func schemaErrorf(typeName, field, format string, args ...any) *SchemaError {
	return &SchemaError{Type: typeName, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsSchemaError reports whether err wraps a SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}
