// Package errs classifies deployment failures so the CLI can report them
// consistently and map them to exit codes.
package errs

import (
	"errors"
	"fmt"
	"maps"
)

// Category is the broad class of a deployment error.
type Category string

const (
	// CategoryConfig covers malformed dynamic segments, conflicting routes and invalid settings.
	CategoryConfig Category = "config"
	// CategoryMissingArtifact covers staged files the manifest references but that do not exist.
	CategoryMissingArtifact Category = "missing_artifact"
	// CategoryExternal covers failures reported by a platform collaborator or the framework build.
	CategoryExternal Category = "external"
	// CategoryInternal covers everything else (I/O on our own files, encoding).
	CategoryInternal Category = "internal"
)

// Context carries structured key/value details attached to an error.
type Context map[string]any

// Error is a classified error. It wraps an optional cause.
type Error struct {
	category Category
	message  string
	cause    error
	context  Context
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// Category returns the error category.
func (e *Error) Category() Category { return e.category }

// Message returns the message without the cause.
func (e *Error) Message() string { return e.message }

// Context returns a copy of the attached context.
func (e *Error) Context() Context {
	out := make(Context, len(e.context))
	maps.Copy(out, e.context)
	return out
}

// With returns a copy of e with key set in its context.
func (e *Error) With(key string, value any) *Error {
	ctx := e.Context()
	ctx[key] = value
	return &Error{category: e.category, message: e.message, cause: e.cause, context: ctx}
}

// Configf builds a configuration error.
func Configf(format string, args ...any) *Error {
	return &Error{category: CategoryConfig, message: fmt.Sprintf(format, args...)}
}

// MissingArtifact reports a staged file referenced by the manifest that does not exist.
func MissingArtifact(path string) *Error {
	return &Error{
		category: CategoryMissingArtifact,
		message:  fmt.Sprintf("staged artifact not found: %s", path),
		context:  Context{"path": path},
	}
}

// External wraps a collaborator failure. The cause is kept verbatim.
func External(service string, err error) *Error {
	return &Error{
		category: CategoryExternal,
		message:  service + " failed",
		cause:    err,
		context:  Context{"service": service},
	}
}

// Internal wraps an unexpected failure with a short description.
func Internal(message string, err error) *Error {
	return &Error{category: CategoryInternal, message: message, cause: err}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given category anywhere in its chain.
func Is(err error, category Category) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.category == category {
			return true
		}
		err = e.cause
	}
	return false
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	e, ok := As(err)
	if !ok {
		return 1
	}
	switch e.category {
	case CategoryConfig:
		return 7
	case CategoryMissingArtifact:
		return 11
	case CategoryExternal:
		return 8
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}
