package pcmout

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures reported by backends.
type ErrorKind int

const (
	// KindCannotAllocate reports that a buffer, goroutine or native object could not be allocated.
	KindCannotAllocate ErrorKind = iota + 1
	// KindInitialize reports that a backend or native library could not be initialized.
	KindInitialize
	// KindAudio is a generic native audio failure.
	KindAudio
	// KindUnsupported reports a format, channel count or rate the backend cannot play.
	KindUnsupported
	// KindNotImplemented reports a backend that was not compiled in.
	KindNotImplemented
)

var kindNames = map[ErrorKind]string{
	KindCannotAllocate: "cannot allocate",
	KindInitialize:     "initialize",
	KindAudio:          "audio",
	KindUnsupported:    "unsupported",
	KindNotImplemented: "not implemented",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the error type returned by OpenDevice, Begin and End.
type Error struct {
	Kind    ErrorKind
	Backend string // Backend name, may be empty.
	Op      string // Operation that failed, e.g. "open" or "hw params".
	Err     error  // Underlying error, may be nil.
}

// NewError returns an *Error of the given kind.
func NewError(kind ErrorKind, backend, op string, err error) *Error {
	return &Error{Kind: kind, Backend: backend, Op: op, Err: err}
}

// Errorf returns an *Error whose underlying error is built with fmt.Errorf.
func Errorf(kind ErrorKind, backend, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Backend: backend, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := "pcmout"
	if e.Backend != "" {
		msg += ": " + e.Backend
	}

	if e.Op != "" {
		msg += ": " + e.Op
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg + ": " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
// This lets callers match a kind with errors.Is(err, &pcmout.Error{Kind: pcmout.KindUnsupported}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}

		if e.Kind == kind {
			return true
		}

		err = e.Err
	}

	return false
}
