package types

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Kind classifies why an operation, or one entry of an aggregate operation, did not happen.
type Kind string

const (
	KindNone                  Kind = ""
	KindOutOfBounds           Kind = "out_of_bounds"
	KindNotFound              Kind = "not_found"
	KindAlreadyExists         Kind = "already_exists"
	KindNotEmpty              Kind = "not_empty"
	KindPermissionDenied      Kind = "permission_denied"
	KindCapabilityUnavailable Kind = "capability_unavailable"
	KindPartialFailure        Kind = "partial_failure"
	KindNetworkError          Kind = "network_error"
	KindTimeout               Kind = "timeout"
	KindInvalidArgument       Kind = "invalid_argument"
	// KindIO covers host failures outside the other kinds: a full disk, an I/O error, a
	// rename across devices.
	KindIO Kind = "io_error"
)

// Sentinels for errors.Is checks against an *OpError.
var (
	ErrOutOfBounds           = &kindError{KindOutOfBounds}
	ErrNotFound              = &kindError{KindNotFound}
	ErrAlreadyExists         = &kindError{KindAlreadyExists}
	ErrNotEmpty              = &kindError{KindNotEmpty}
	ErrPermissionDenied      = &kindError{KindPermissionDenied}
	ErrCapabilityUnavailable = &kindError{KindCapabilityUnavailable}
	ErrPartialFailure        = &kindError{KindPartialFailure}
	ErrNetworkError          = &kindError{KindNetworkError}
	ErrTimeout               = &kindError{KindTimeout}
	ErrInvalidArgument       = &kindError{KindInvalidArgument}
	ErrIO                    = &kindError{KindIO}
)

type kindError struct {
	kind Kind
}

func (e *kindError) Error() string {
	return string(e.kind)
}

// Retryable reports whether a caller may reasonably retry an operation that failed with k.
// Confinement and capability failures never are.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetworkError, KindTimeout:
		return true
	default:
		return false
	}
}

// OpError describes a failed operation on a single path.
type OpError struct {
	Op   string
	Path string
	Kind Kind
	Err  error
}

// NewError creates an OpError. err may be nil.
func NewError(op, path string, kind Kind, err error) *OpError {
	return &OpError{Op: op, Path: path, Kind: kind, Err: err}
}

// Errorf creates an OpError with a formatted cause.
func Errorf(op, path string, kind Kind, format string, args ...interface{}) *OpError {
	return &OpError{Op: op, Path: path, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Error implements the error interface.
func (e *OpError) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + string(e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels (ErrNotFound, ErrOutOfBounds, ...).
func (e *OpError) Is(target error) bool {
	if k, ok := target.(*kindError); ok {
		return k.kind == e.Kind
	}
	return false
}

// KindOf extracts the kind of err, classifying plain errors from the os and context packages.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return Classify(err)
}

// Classify maps standard library errors onto the kind taxonomy.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, syscall.ENOTEMPTY):
		// checked before fs.ErrExist, which ENOTEMPTY also matches
		return KindNotEmpty
	case errors.Is(err, fs.ErrExist):
		return KindAlreadyExists
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	case errors.Is(err, syscall.EISDIR):
		return KindAlreadyExists
	case errors.Is(err, syscall.EROFS):
		return KindPermissionDenied
	case errors.Is(err, fs.ErrInvalid), errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.ENAMETOOLONG), errors.Is(err, syscall.ELOOP):
		return KindInvalidArgument
	default:
		return KindIO
	}
}

// Wrap converts err into an *OpError for op/path, keeping an existing kind when err already has one.
func Wrap(op, path string, err error) *OpError {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		if path == "" {
			path = opErr.Path
		}
		return &OpError{Op: op, Path: path, Kind: opErr.Kind, Err: opErr.Err}
	}
	return &OpError{Op: op, Path: path, Kind: Classify(err), Err: err}
}
