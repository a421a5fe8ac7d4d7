// Package types defines the data model shared by every component of the
// engine: entries, snapshots, load state, generations, filesystem events,
// icon keys and the sealed error taxonomy.
package types

import (
	"os"

	"github.com/pkg/errors"
)

// ErrorKind classifies an Error into one of the taxonomy buckets from the
// error handling design. It is a sealed set; callers should switch on it
// rather than compare error values directly.
type ErrorKind int

const (
	// ErrIO covers stat/open/read failures not otherwise specialised below.
	ErrIO ErrorKind = iota
	// ErrPathNotFound means the target path does not exist.
	ErrPathNotFound
	// ErrPermissionDenied means the OS refused access to the target path.
	ErrPermissionDenied
	// ErrSerialization means persisted state failed to decode or validate.
	ErrSerialization
	// ErrPlatform means a platform subsystem (watcher, journal) is unavailable.
	ErrPlatform
	// ErrResource means a resource operation (icon decode) failed.
	ErrResource
)

// String renders the kind for logging.
func (k ErrorKind) String() string {
	switch k {
	case ErrPathNotFound:
		return "PathNotFound"
	case ErrPermissionDenied:
		return "PermissionDenied"
	case ErrSerialization:
		return "Serialization"
	case ErrPlatform:
		return "Platform"
	case ErrResource:
		return "Resource"
	default:
		return "IO"
	}
}

// Error is the engine's single error type. Every error that crosses a
// component boundary is wrapped in one of these so that callers can branch
// on Kind without parsing messages.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return e.Kind.String() + ": " + e.Path + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &Error{Kind: ErrPathNotFound}) style matching on
// kind alone, ignoring Path and Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError wraps cause with a stack-carrying context message and classifies
// it by kind.
func NewError(kind ErrorKind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Err: errors.WithStack(cause)}
}

// Classify maps a raw OS error into the taxonomy, preferring the specialised
// PathNotFound / PermissionDenied kinds when the underlying error indicates
// them. It is the single place that knows how to read os.IsNotExist-style
// sentinels so the rest of the engine never has to.
func Classify(path string, err error) *Error {
	if err == nil {
		return nil
	}
	switch {
	case os.IsNotExist(err):
		return NewError(ErrPathNotFound, path, err)
	case os.IsPermission(err):
		return NewError(ErrPermissionDenied, path, err)
	default:
		return NewError(ErrIO, path, err)
	}
}
