package evals

import (
	"errors"
	"fmt"
)

// Common errors returned by evals backends and utilities.
var (
	// ErrNotFound is returned when a path does not exist.
	ErrNotFound = errors.New("evals: not found")

	// ErrPermissionDenied is returned when access to a path is denied.
	ErrPermissionDenied = errors.New("evals: permission denied")

	// ErrBackendClosed is returned when operating on a closed backend.
	ErrBackendClosed = errors.New("evals: backend closed")

	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("evals: writer closed")

	// ErrInvalidPath is returned when a path is invalid (e.g., contains forbidden characters).
	ErrInvalidPath = errors.New("evals: invalid path")

	// ErrUnknownBackend is returned by Open when the backend name is not registered.
	ErrUnknownBackend = errors.New("evals: unknown backend")

	// ErrIsDirectory is returned when single-file semantics are requested
	// on a path that names a directory.
	ErrIsDirectory = errors.New("evals: path is a directory")
)

// OpenError is returned when a path cannot be opened, whatever the cause:
// missing file, unreachable backend, corrupt compression header. It always
// carries the path as originally requested, with the underlying error as
// the cause.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("evals: failed to open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// DecodeError is returned when a line of a record file is not valid JSON.
// It identifies the source path, the 1-based line number and column, and
// the parser's own message, so malformed corpora can be located exactly.
type DecodeError struct {
	Path   string
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("evals: error parsing JSON on line %d: %s at %s:%d:%d",
		e.Line, e.Msg, e.Path, e.Line, e.Column)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsNotFound returns true if the error indicates a path was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermissionDenied returns true if the error indicates permission was denied.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
