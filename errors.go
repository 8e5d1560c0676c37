package poserender

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// ErrorKind classifies renderer failures
type ErrorKind int

const (
	// ConfigurationError is a malformed topology or label table, fatal at
	// construction
	ConfigurationError ErrorKind = iota + 1
	// PreconditionViolation aborts the current frame, the pipeline
	// continues
	PreconditionViolation
	// ResourceError is a device allocation or copy failure, subsequent
	// frames can not render
	ResourceError
)

// String returns a readable name of the error kind
func (k ErrorKind) String() string {
	switch k {
	case ConfigurationError:
		return "configuration error"
	case PreconditionViolation:
		return "precondition violation"
	case ResourceError:
		return "resource error"
	default:
		return fmt.Sprintf("unknown error kind %d", int(k))
	}
}

var (
	// ErrConfiguration matches any Error of kind ConfigurationError
	ErrConfiguration = &Error{Kind: ConfigurationError}
	// ErrPrecondition matches any Error of kind PreconditionViolation
	ErrPrecondition = &Error{Kind: PreconditionViolation}
	// ErrResource matches any Error of kind ResourceError
	ErrResource = &Error{Kind: ResourceError}
)

// Error is a renderer failure annotated with the operation and source
// location it was raised at
type Error struct {
	Kind ErrorKind
	// Op is the operation that failed, eg: "PoseRenderer.Render"
	Op string
	// Err is the underlying cause
	Err error
	// File and Line of the call site that raised the error
	File string
	Line int
}

// newError creates an Error recording the caller's source location
func newError(kind ErrorKind, op string, err error) *Error {
	return callSite(&Error{Kind: kind, Op: op, Err: err})
}

// errorf creates an Error with a formatted cause
func errorf(kind ErrorKind, op string, format string, args ...any) *Error {
	return callSite(&Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)})
}

// callSite records the source location two frames above, the caller of
// newError or errorf
func callSite(e *Error) *Error {

	if _, file, line, ok := runtime.Caller(2); ok {
		e.File = filepath.Base(file)
		e.Line = line
	}

	return e
}

// Error returns the error message
func (e *Error) Error() string {

	msg := e.Kind.String()

	if e.Op != "" {
		msg = e.Op + ": " + msg
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if e.File != "" {
		msg += fmt.Sprintf(" (%s:%d)", e.File, e.Line)
	}

	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same kind, so errors.Is(err, ErrPrecondition)
// holds for every precondition violation
func (e *Error) Is(target error) bool {

	var t *Error

	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}
