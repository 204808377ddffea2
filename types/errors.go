package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can tell misuse, busy
// resources, tool failures and half-finished work apart. Each kind maps
// to its own process exit code.
type ErrorKind int

const (
	// UnknownError is any failure the taxonomy below does not cover.
	UnknownError ErrorKind = iota
	// InvalidArgument means a required argument is missing or malformed.
	InvalidArgument
	// ResourceBusy means the target partition is mounted or in active use.
	ResourceBusy
	// ExternalToolFailure means an orchestrated tool reported failure.
	ExternalToolFailure
	// MissingIdentity means the target tree has no usable OS identity.
	MissingIdentity
	// PartialState means a provisioning sequence aborted midway. The
	// target holds intermediate state and must be reformatted before use.
	PartialState
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case ResourceBusy:
		return "resource busy"
	case ExternalToolFailure:
		return "external tool failure"
	case MissingIdentity:
		return "missing identity"
	case PartialState:
		return "partial state"
	default:
		return "error"
	}
}

// ExitCode is the process exit code commands terminate with for this kind.
func (k ErrorKind) ExitCode() int {
	switch k {
	case InvalidArgument:
		return 2
	case ResourceBusy:
		return 3
	case ExternalToolFailure:
		return 4
	case MissingIdentity:
		return 5
	case PartialState:
		return 6
	default:
		return 1
	}
}

// Error attaches an ErrorKind and the failing operation to a cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Kind != UnknownError {
		msg = fmt.Sprintf("%s: %s", msg, e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind and the operation that failed.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewErrorf builds the cause in place.
func NewErrorf(kind ErrorKind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// UnknownError when the chain carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownError
}

// ExitCode maps an error chain to the exit code of its outermost kind.
// A nil error maps to zero.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}
