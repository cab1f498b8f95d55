package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode Phase = "decode" // method body bytes to instructions
	PhaseLayout Phase = "layout" // offsets, stack depth, header and handler table
	PhaseWeave  Phase = "weave"  // interceptor selection and body synthesis
	PhaseIO     Phase = "io"     // image read, write and replace
	PhaseConfig Phase = "config" // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidData      Kind = "invalid_data"
	KindUnsupported      Kind = "unsupported"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindUnresolvedTarget Kind = "unresolved_target"
	KindHookMissing      Kind = "hook_missing"
	KindNotFound         Kind = "not_found"
	KindIO               Kind = "io"
)

// Error is the structured error type used throughout the weaver
type Error struct {
	Value       any
	Cause       error
	Phase       Phase
	Kind        Kind
	Member      string
	Interceptor string
	Detail      string
	Offset      int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Member != "" {
		b.WriteString(" in ")
		b.WriteString(e.Member)
	}

	if e.Interceptor != "" {
		b.WriteString(" (interceptor ")
		b.WriteString(e.Interceptor)
		b.WriteByte(')')
	}

	if e.Offset > 0 {
		fmt.Fprintf(&b, " at IL_%04x", e.Offset)
	}

	if e.Detail != "" {
		b.WriteString(": ")
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

// Member sets the fully qualified member name
func (b *Builder) Member(name string) *Builder {
	b.err.Member = name
	return b
}

// Interceptor sets the interceptor type name
func (b *Builder) Interceptor(name string) *Builder {
	b.err.Interceptor = name
	return b
}

// Offset sets the IL offset the error refers to
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
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

// Format creates a decode error for a malformed header, opcode or operand.
func Format(offset int, detail string, args ...any) *Error {
	return New(PhaseDecode, KindInvalidData).Offset(offset).Detail(detail, args...).Build()
}

// UnknownOpcode creates a decode error for an opcode missing from the opcode table.
func UnknownOpcode(offset int, op uint16) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnsupported,
		Offset: offset,
		Detail: fmt.Sprintf("unknown opcode 0x%02x", op),
		Value:  op,
	}
}

// Layout creates a layout error for an unresolvable branch or handler boundary.
func Layout(detail string, args ...any) *Error {
	return New(PhaseLayout, KindUnresolvedTarget).Detail(detail, args...).Build()
}

// HookMissing creates a weave error for a required hook absent from the whole
// inheritance chain of an interceptor type.
func HookMissing(member, interceptor, hook string) *Error {
	return &Error{
		Phase:       PhaseWeave,
		Kind:        KindHookMissing,
		Member:      member,
		Interceptor: interceptor,
		Detail:      fmt.Sprintf("hook %q not found on type or any base type", hook),
	}
}

// Weave wraps a failure raised while rewriting a member.
func Weave(member string, cause error) *Error {
	return &Error{
		Phase:  PhaseWeave,
		Kind:   KindInvalidData,
		Member: member,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// IO creates an I/O error for image read, write or replace failures.
func IO(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseIO,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
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
