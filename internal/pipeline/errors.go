package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindFatalInit: palette, detector or output could not be set up. No
	// artifact is produced.
	KindFatalInit Kind = iota + 1
	// KindFatalDecode: the input cannot be read at all.
	KindFatalDecode
	// KindRecoverableFrame: one frame was skipped; the run continues.
	KindRecoverableFrame
	// KindContractViolation: a component was handed input it does not accept.
	KindContractViolation
	// KindCanceled: the caller canceled the run.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindFatalInit:
		return "fatal_init"
	case KindFatalDecode:
		return "fatal_decode"
	case KindRecoverableFrame:
		return "recoverable_frame"
	case KindContractViolation:
		return "contract_violation"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind;
// ErrEmptyMedia additionally matches ErrDecode.
var (
	ErrFatalInit  = errors.New("initialization failed")
	ErrDecode     = errors.New("media could not be decoded")
	ErrEmptyMedia = fmt.Errorf("%w: no usable frames", ErrDecode)
	ErrFrame      = errors.New("frame skipped")
	ErrContract   = errors.New("contract violation")
	ErrCanceled   = errors.New("run canceled")
)

// Error is the error type returned by the pipeline.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrFatalInit:
		return e.Kind == KindFatalInit
	case ErrDecode:
		return e.Kind == KindFatalDecode
	case ErrFrame:
		return e.Kind == KindRecoverableFrame
	case ErrContract:
		return e.Kind == KindContractViolation
	case ErrCanceled:
		return e.Kind == KindCanceled
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

func initError(op string, err error) error {
	return &Error{Kind: KindFatalInit, Op: op, Err: err}
}

func decodeError(path string, err error) error {
	return &Error{Kind: KindFatalDecode, Op: "decode", Path: path, Err: err}
}

func emptyMediaError(path string, err error) error {
	if err == nil {
		return &Error{Kind: KindFatalDecode, Op: "open", Path: path, Err: ErrEmptyMedia}
	}
	return &Error{Kind: KindFatalDecode, Op: "open", Path: path, Err: fmt.Errorf("%w: %w", ErrEmptyMedia, err)}
}

func canceledError(path string, err error) error {
	return &Error{Kind: KindCanceled, Op: "run", Path: path, Err: err}
}
