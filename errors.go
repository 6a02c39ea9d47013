package sharegraph

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for the schema and graph core.
var (
	// ErrSchemaLoad is returned when a schema specification is malformed or
	// contradicts itself. It is fatal: the process should refuse to serve.
	ErrSchemaLoad = errors.New("sharegraph: invalid schema specification")

	// ErrSchemaKey is returned when an unknown type or field name is looked up.
	ErrSchemaKey = errors.New("sharegraph: unknown schema key")

	// ErrCyclicalDependency is returned when a dependency ordering contains a cycle.
	ErrCyclicalDependency = errors.New("sharegraph: cyclical dependency")

	// ErrMalformedID is returned when an obfuscated id does not have the
	// expected grouped-hex shape.
	ErrMalformedID = errors.New("sharegraph: malformed id")

	// ErrInvalidFieldWrite is returned when a field cannot be written through
	// a node view, for example a multi-valued relation.
	ErrInvalidFieldWrite = errors.New("sharegraph: invalid field write")

	// ErrInvalidRecord is returned when a harvested record fails validation.
	ErrInvalidRecord = errors.New("sharegraph: invalid record")
)

// LoadError represents a schema load failure.
type LoadError struct {
	Type    string // Concrete type being loaded, if known
	Field   string // Field name, if applicable
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("sharegraph: schema load error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrSchemaLoad.
func (e *LoadError) Is(target error) bool {
	return target == ErrSchemaLoad
}

// NewLoadError returns a new LoadError.
func NewLoadError(typeName, fieldName, message string, cause error) *LoadError {
	return &LoadError{Type: typeName, Field: fieldName, Message: message, Cause: cause}
}

// IsLoadError returns true if the error is a LoadError.
func IsLoadError(err error) bool {
	if err == nil {
		return false
	}
	var e *LoadError
	return errors.As(err, &e)
}

// KeyKind tells which kind of schema key was missing.
type KeyKind string

// Kinds of schema keys.
const (
	KindType  KeyKind = "type"
	KindField KeyKind = "field"
	KindTag   KeyKind = "tag"
)

// KeyError represents a lookup of an unknown type or field name.
type KeyError struct {
	Kind  KeyKind
	Type  string
	Field string
}

// Error implements the error interface.
func (e *KeyError) Error() string {
	switch e.Kind {
	case KindField:
		return fmt.Sprintf("sharegraph: unknown field %q on type %q", e.Field, e.Type)
	case KindTag:
		return fmt.Sprintf("sharegraph: unknown type tag %q", e.Type)
	default:
		return fmt.Sprintf("sharegraph: unknown type %q", e.Type)
	}
}

// Is reports whether the target matches ErrSchemaKey.
func (e *KeyError) Is(target error) bool {
	return target == ErrSchemaKey
}

// NewTypeKeyError returns a KeyError for an unknown type name.
func NewTypeKeyError(typeName string) *KeyError {
	return &KeyError{Kind: KindType, Type: typeName}
}

// NewFieldKeyError returns a KeyError for an unknown field of a known type.
func NewFieldKeyError(typeName, fieldName string) *KeyError {
	return &KeyError{Kind: KindField, Type: typeName, Field: fieldName}
}

// IsKeyError returns true if the error is a KeyError.
func IsKeyError(err error) bool {
	if err == nil {
		return false
	}
	var e *KeyError
	return errors.As(err, &e)
}

// CycleError is returned by the topological sorter when it reaches a node
// that is already on the active visiting path.
type CycleError struct {
	Key      any   // Key of the node that closed the cycle
	Visiting []any // Keys on the visiting path, in visit order
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	parts := make([]string, len(e.Visiting))
	for i, k := range e.Visiting {
		parts[i] = fmt.Sprint(k)
	}
	return fmt.Sprintf("sharegraph: cyclical dependency on %v (visiting: %s)", e.Key, strings.Join(parts, ", "))
}

// Is reports whether the target matches ErrCyclicalDependency.
func (e *CycleError) Is(target error) bool {
	return target == ErrCyclicalDependency
}

// IsCycleError returns true if the error is a CycleError.
func IsCycleError(err error) bool {
	if err == nil {
		return false
	}
	var e *CycleError
	return errors.As(err, &e)
}

// FormatError is returned when an obfuscated id cannot be parsed.
type FormatError struct {
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("sharegraph: malformed id %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("sharegraph: malformed id %q", e.Input)
}

// Is reports whether the target matches ErrMalformedID.
func (e *FormatError) Is(target error) bool {
	return target == ErrMalformedID
}

// IsFormatError returns true if the error is a FormatError.
func IsFormatError(err error) bool {
	if err == nil {
		return false
	}
	var e *FormatError
	return errors.As(err, &e)
}

// FieldError is returned when a node field cannot be read or written the
// way the caller asked.
type FieldError struct {
	Type    string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("sharegraph: field %q of %s: %s", e.Field, e.Type, e.Message)
}

// Is reports whether the target matches ErrInvalidFieldWrite.
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidFieldWrite
}

// NewFieldError returns a new FieldError.
func NewFieldError(typeName, fieldName, message string) *FieldError {
	return &FieldError{Type: typeName, Field: fieldName, Message: message}
}

// InvariantViolation is the panic value used when a caller breaks a graph
// contract, such as adding a second out edge under a used name. It signals
// a programming error, not bad input.
type InvariantViolation struct {
	Message string
}

// Error implements the error interface.
func (v InvariantViolation) Error() string {
	return "sharegraph: invariant violated: " + v.Message
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "sharegraph: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("sharegraph: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
