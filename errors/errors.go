package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in a call the error occurred
type Phase string

const (
	PhaseParse     Phase = "parse"     // descriptor parsing
	PhaseConvert   Phase = "convert"   // dynamic value to word
	PhaseResolve   Phase = "resolve"   // name lookup
	PhaseInvoke    Phase = "invoke"    // native function call
	PhaseReturn    Phase = "return"    // word to dynamic value
	PhaseConstruct Phase = "construct" // wrapper construction
	PhaseCallback  Phase = "callback"  // trampoline generation and invocation
	PhaseRegister  Phase = "register"  // native function registration
	PhaseLoad      Phase = "load"      // native module loading
)

// Kind categorizes the error. The values mirror the interpreter's error
// names so they can be raised unchanged.
type Kind string

const (
	KindType       Kind = "type_error"
	KindValue      Kind = "value_error"
	KindAttribute  Kind = "attribute_error"
	KindInternal   Kind = "internal_error"
	KindAllocation Kind = "malloc_error"
	KindNative     Kind = "native_error"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Provided string
	Expected string
	Detail   string
	Path     []string
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

	hasTypes := e.Provided != "" || e.Expected != ""
	if hasTypes {
		b.WriteString(": ")
		if e.Provided != "" {
			b.WriteString("provided '")
			b.WriteString(e.Provided)
			b.WriteByte('\'')
		}
		if e.Expected != "" {
			if e.Provided != "" {
				b.WriteString(", ")
			}
			b.WriteString("expected '")
			b.WriteString(e.Expected)
			b.WriteByte('\'')
		}
	}

	if e.Detail != "" {
		if hasTypes {
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

// Is reports whether target matches this error.
// An empty Phase on the target matches any phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Phase == "" || t.Phase == e.Phase
}

// Sentinels for errors.Is checks against a kind regardless of phase.
var (
	ErrType       = &Error{Kind: KindType}
	ErrValue      = &Error{Kind: KindValue}
	ErrAttribute  = &Error{Kind: KindAttribute}
	ErrInternal   = &Error{Kind: KindInternal}
	ErrAllocation = &Error{Kind: KindAllocation}
	ErrNative     = &Error{Kind: KindNative}
)

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
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

// Path sets the argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Provided sets the provided type
func (b *Builder) Provided(t string) *Builder {
	b.err.Provided = t
	return b
}

// Expected sets the expected type
func (b *Builder) Expected(t string) *Builder {
	b.err.Expected = t
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

// Arg formats the path element for argument i (zero based).
func Arg(i int) string {
	return fmt.Sprintf("arg%d", i)
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type error reporting provided vs expected type
func TypeMismatch(phase Phase, path []string, provided, expected string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindType,
		Path:     path,
		Provided: provided,
		Expected: expected,
		Detail:   "unexpected argument type",
	}
}

// ClassMismatch creates a type error for an instance of the wrong class
func ClassMismatch(path []string, provided, expected string) *Error {
	return &Error{
		Phase:    PhaseConvert,
		Kind:     KindType,
		Path:     path,
		Provided: provided,
		Expected: expected,
		Detail:   "unexpected class type",
	}
}

// ClassNotFound creates a value error for a class name that does not resolve
func ClassNotFound(phase Phase, path []string, name string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindValue,
		Path:     path,
		Expected: name,
		Detail:   fmt.Sprintf("class not found: %s", name),
	}
}

// UnexpectedValue creates a value error for a value kind that cannot become a word
func UnexpectedValue(path []string, typeName string) *Error {
	return &Error{
		Phase:    PhaseConvert,
		Kind:     KindValue,
		Path:     path,
		Provided: typeName,
		Detail:   "unexpected value kind",
	}
}

// MissingArguments creates a value error naming the unconsumed descriptor
func MissingArguments(remaining string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindValue,
		Detail: fmt.Sprintf("missing arguments, remaining type '%s'", remaining),
	}
}

// TooManyArguments creates a value error for arguments beyond a limit
func TooManyArguments(phase Phase, got, max int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindValue,
		Detail: fmt.Sprintf("too many arguments: got %d, max %d", got, max),
		Value:  got,
	}
}

// MissingMember creates an attribute error for a member absent on an instance
func MissingMember(phase Phase, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAttribute,
		Detail: fmt.Sprintf("missing member '%s'", name),
	}
}

// UnsupportedReturn creates an internal error for an unknown return tag
func UnsupportedReturn(tag string) *Error {
	return &Error{
		Phase:    PhaseReturn,
		Kind:     KindInternal,
		Provided: tag,
		Detail:   "unsupported return type",
	}
}

// NullPointer creates an allocation error for a null pointer where one is mandatory
func NullPointer(phase Phase, className string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindAllocation,
		Expected: className,
		Detail:   "null pointer",
	}
}

// Native wraps a failure raised by the native side of a call
func Native(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindNative,
		Detail: fmt.Sprintf("call %s", name),
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

// InvalidInput creates a value error for bad caller input
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindValue,
		Detail: detail,
	}
}

// NotFound creates a value error for a named thing that does not exist
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindValue,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Load creates a native module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNative,
		Detail: detail,
		Cause:  cause,
	}
}
