package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the construction pipeline the error occurred
type Phase string

const (
	PhaseCompile  Phase = "compile"  // layout compilation / builder finalization
	PhaseInit     Phase = "init"     // running an initializer into a slot
	PhaseValidate Phase = "validate" // post-construction validation (Chain)
	PhaseAlloc    Phase = "alloc"    // container storage allocation
	PhaseDrop     Phase = "drop"     // handle teardown
)

// Kind categorizes the error
type Kind string

const (
	KindFieldMissing   Kind = "field_missing"
	KindFieldDuplicate Kind = "field_duplicate"
	KindFieldUnknown   Kind = "field_unknown"
	KindTypeMismatch   Kind = "type_mismatch"
	KindNotStruct      Kind = "not_struct"
	KindNotZeroable    Kind = "not_zeroable"
	KindAllocation     Kind = "allocation"
	KindDoubleUse      Kind = "double_use"
	KindNilPointer     Kind = "nil_pointer"
	KindLengthMismatch Kind = "length_mismatch"
	KindValidation     Kind = "validation"
	KindPinnedOnly     Kind = "pinned_only"
	KindClosed         Kind = "closed"
	KindFieldInit      Kind = "field_init"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AllocationFailed creates an allocation failure error
func AllocationFailed(goType string, size uintptr) *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindAllocation,
		GoType: goType,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
	}
}

// FieldMissing creates an error for a declared field with no construction step
func FieldMissing(goType, fieldName string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindFieldMissing,
		GoType: goType,
		Path:   []string{fieldName},
		Detail: fmt.Sprintf("field %q has no construction step", fieldName),
	}
}

// FieldDuplicate creates an error for a field named by two construction steps
func FieldDuplicate(goType, fieldName string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindFieldDuplicate,
		GoType: goType,
		Path:   []string{fieldName},
		Detail: fmt.Sprintf("field %q named by more than one construction step", fieldName),
	}
}

// FieldUnknown creates an error for a step naming a field the type does not declare
func FieldUnknown(goType, fieldName string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindFieldUnknown,
		GoType: goType,
		Path:   []string{fieldName},
		Detail: fmt.Sprintf("type declares no field %q", fieldName),
	}
}

// TypeMismatch creates an error for a step whose value type differs from the field type
func TypeMismatch(phase Phase, path []string, stepType, fieldType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: fieldType,
		Detail: fmt.Sprintf("step produces %s, field is %s", stepType, fieldType),
	}
}

// NotZeroable creates an error for a zero-fill request on a type without the marker
func NotZeroable(goType string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindNotZeroable,
		GoType: goType,
		Detail: "all-zero bit pattern not declared valid for this type",
	}
}

// DoubleUse creates an error for a second invocation of a single-use initializer
func DoubleUse(goType string) *Error {
	return &Error{
		Phase:  PhaseInit,
		Kind:   KindDoubleUse,
		GoType: goType,
		Detail: "initializer already consumed",
	}
}

// NilSlot creates an error for a nil construction target
func NilSlot(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		GoType: goType,
		Detail: "nil slot",
	}
}

// Closed creates an error for an operation on an already-closed handle
func Closed(goType string) *Error {
	return &Error{
		Phase:  PhaseDrop,
		Kind:   KindClosed,
		GoType: goType,
		Detail: "handle already closed",
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
