package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in a session's lifecycle the error occurred
type Phase string

const (
	PhaseConstruct  Phase = "construct"  // session construction
	PhaseCapability Phase = "capability" // format/compression enabling
	PhaseHeader     Phase = "header"     // header iteration
	PhaseData       Phase = "data"       // payload transfer
	PhaseClose      Phase = "close"      // explicit close
	PhaseCallback   Phase = "callback"   // native to host callback bridge
	PhaseTeardown   Phase = "teardown"   // implicit destroy
	PhaseEntry      Phase = "entry"      // entry metadata
	PhaseModule     Phase = "module"     // namespace installation and calls
)

// Kind categorizes the error
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindNativeLibrary Kind = "native_library"
	KindInvalidState  Kind = "invalid_state"
	KindInternal      Kind = "internal"
	KindUnimplemented Kind = "unimplemented"
	KindHost          Kind = "host" // failure raised by a host-supplied callable
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrNativeLibrary = &Error{Kind: KindNativeLibrary}
	ErrInvalidState  = &Error{Kind: KindInvalidState}
	ErrInternal      = &Error{Kind: KindInternal}
	ErrUnimplemented = &Error{Kind: KindUnimplemented}
	ErrHost          = &Error{Kind: KindHost}
)

// Error is the structured error type used throughout the binding
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
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

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
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

// Op sets the failing operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
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

// Configuration creates an error for malformed or missing host configuration
func Configuration(path []string, format string, args ...any) *Error {
	return &Error{
		Phase:  PhaseConstruct,
		Kind:   KindConfiguration,
		Path:   path,
		Detail: fmt.Sprintf(format, args...),
	}
}

// UnknownCapability creates the error for a capability name missing from a domain table
func UnknownCapability(domain, op, token string) *Error {
	return &Error{
		Phase:  PhaseCapability,
		Kind:   KindConfiguration,
		Op:     op,
		Path:   []string{domain},
		Detail: fmt.Sprintf("No such %s '%s'", domain, token),
		Value:  token,
	}
}

// Native creates an error for a non-OK native status, carrying the native diagnostic
func Native(phase Phase, op, diagnostic string) *Error {
	if diagnostic == "" {
		diagnostic = "unknown native error"
	}
	return &Error{
		Phase:  phase,
		Kind:   KindNativeLibrary,
		Op:     op,
		Detail: diagnostic,
	}
}

// InvalidState creates an error for an operation on a closed session
func InvalidState(phase Phase, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidState,
		Op:     op,
		Detail: "session is closed",
	}
}

// Internal creates an error for a lifetime-management bug
func Internal(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: detail,
	}
}

// Unimplemented creates an error for an explicitly unimplemented extension point
func Unimplemented(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnimplemented,
		Detail: fmt.Sprintf("%s: not implemented", what),
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

// KindOf returns the Kind of err when it is (or wraps) an *Error
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
