package optimization

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal error raised by the engine or the fit session.
type Kind int

const (
	// KindUnknown is the zero Kind; it never matches a sentinel.
	KindUnknown Kind = iota
	// KindDuplicateParameter means a parameter name was registered twice.
	KindDuplicateParameter
	// KindUnknownParameter means a name or index does not refer to a registered parameter.
	KindUnknownParameter
	// KindInvalidLimit means a limit pair with lower >= upper (or NaN) was supplied.
	KindInvalidLimit
	// KindNonFiniteObjective means the objective returned NaN while NaN raising was enabled.
	KindNonFiniteObjective
	// KindObjectiveFailed means the user objective or gradient returned an error.
	KindObjectiveFailed
	// KindPrecursorState means an operation was attempted out of state-machine order.
	KindPrecursorState
	// KindInvalidMinimum means an operation needs a valid minimum but the last one is invalid.
	KindInvalidMinimum
	// KindInvalidCallBudget means a call budget or split configuration is degenerate.
	KindInvalidCallBudget
	// KindInvalidArgument covers malformed arguments such as a wrong objective arity.
	KindInvalidArgument
	// KindDiagnostic is a warning promoted to an error by strict diagnostics.
	KindDiagnostic
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindDuplicateParameter: "duplicate parameter",
	KindUnknownParameter:   "unknown parameter",
	KindInvalidLimit:       "invalid limit",
	KindNonFiniteObjective: "non-finite objective",
	KindObjectiveFailed:    "objective failed",
	KindPrecursorState:     "precursor state",
	KindInvalidMinimum:     "invalid minimum",
	KindInvalidCallBudget:  "invalid call budget",
	KindInvalidArgument:    "invalid argument",
	KindDiagnostic:         "diagnostic",
}

// String returns the human readable name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is matching. They compare by Kind only.
var (
	ErrDuplicateParameter = &Error{Kind: KindDuplicateParameter, Message: "duplicate parameter"}
	ErrUnknownParameter   = &Error{Kind: KindUnknownParameter, Message: "unknown parameter"}
	ErrInvalidLimit       = &Error{Kind: KindInvalidLimit, Message: "invalid limit"}
	ErrNonFiniteObjective = &Error{Kind: KindNonFiniteObjective, Message: "objective returned NaN"}
	ErrObjectiveFailed    = &Error{Kind: KindObjectiveFailed, Message: "objective failed"}
	ErrPrecursorState     = &Error{Kind: KindPrecursorState, Message: "operation out of order"}
	ErrInvalidMinimum     = &Error{Kind: KindInvalidMinimum, Message: "function minimum is not valid"}
	ErrInvalidCallBudget  = &Error{Kind: KindInvalidCallBudget, Message: "invalid call budget"}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrDiagnostic         = &Error{Kind: KindDiagnostic, Message: "diagnostic promoted to error"}
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Param names the offending parameter, if any.
	Param string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	msg := e.Message
	if e.Param != "" {
		msg = fmt.Sprintf("%s (parameter %q)", msg, e.Param)
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, msg, e.Err)
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, msg)
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error of the same non-zero Kind.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok || t.Kind == KindUnknown {
		return false
	}
	return t.Kind == e.Kind
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithParam records the offending parameter name.
func (e *Error) WithParam(name string) *Error {
	e.Param = name
	return e
}

// NewError creates a new optimization error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, kind Kind, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsOptimizationError checks if an error is, or wraps, an *Error.
// If so, it returns the outermost one and true.
func IsOptimizationError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of the outermost *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	if e, ok := IsOptimizationError(err); ok {
		return e.Kind
	}
	return KindUnknown
}
