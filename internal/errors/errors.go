// Package errors carries service-level errors: a stack-carrying wrapper
// that knows its HTTP status and JSON-RPC code, and the mapping from fit
// error kinds onto both.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// CodeFitFailed is the server-defined code for a fit that could not run.
	CodeFitFailed = -32000
	// CodeNotFound is the server-defined code for an unknown fit id.
	CodeNotFound = -32004
)

// Error represents an error with context and stack trace.
type Error struct {
	// Err is the underlying error.
	Err error
	// Message is the client-facing description.
	Message string
	// Operation that was being performed when the error occurred.
	Operation string
	// Status is the HTTP status to answer with.
	Status int
	// Code is the JSON-RPC error code.
	Code int
	// Stack is captured at construction.
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Operation != "" {
		b.WriteString(e.Operation)
	}
	if e.Message != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithStatus sets the HTTP status and JSON-RPC code together.
func (e *Error) WithStatus(status, code int) *Error {
	e.Status = status
	e.Code = code
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates a bad-request error with a message.
func New(msg string) *Error {
	return &Error{
		Message: msg,
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidParams,
		Stack:   getStackTrace(),
	}
}

// Errorf creates a bad-request error with a formatted message.
func Errorf(format string, args ...interface{}) *Error {
	e := New(fmt.Sprintf(format, args...))
	e.Stack = getStackTrace()
	return e
}

// NotFound reports an unknown fit id.
func NotFound(id string) *Error {
	return &Error{
		Message: fmt.Sprintf("fit %q not found", id),
		Status:  http.StatusNotFound,
		Code:    CodeNotFound,
		Stack:   getStackTrace(),
	}
}

// Wrap classifies err for the wire. An *Error already in the chain is
// returned as is; fit errors are mapped by kind; anything else is internal.
func Wrap(err error, op string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		if e.Operation == "" {
			e.Operation = op
		}
		return e
	}
	status, code := classify(err)
	return &Error{
		Err:       err,
		Message:   err.Error(),
		Operation: op,
		Status:    status,
		Code:      code,
		Stack:     getStackTrace(),
	}
}

// classify maps a fit error kind onto an HTTP status and JSON-RPC code.
func classify(err error) (int, int) {
	switch optimization.KindOf(err) {
	case optimization.KindDuplicateParameter,
		optimization.KindUnknownParameter,
		optimization.KindInvalidLimit,
		optimization.KindInvalidCallBudget,
		optimization.KindInvalidArgument:
		return http.StatusBadRequest, CodeInvalidParams
	case optimization.KindPrecursorState,
		optimization.KindInvalidMinimum:
		return http.StatusConflict, CodeFitFailed
	case optimization.KindNonFiniteObjective,
		optimization.KindObjectiveFailed,
		optimization.KindDiagnostic:
		return http.StatusUnprocessableEntity, CodeFitFailed
	}
	return http.StatusInternalServerError, CodeInternalError
}

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }
