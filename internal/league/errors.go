package league

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an operation failure so callers can tell "you can't"
// (authorization) from "no longer applicable" (state conflict) from plain bad
// input. Kinds are stable and map 1:1 to HTTP statuses at the boundary.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindAuthorization ErrorKind = "authorization"
	KindStateConflict ErrorKind = "state_conflict"
	KindDependency    ErrorKind = "dependency"
)

// Error is the discriminated error returned by every public operation.
// Message is user-facing.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Authorizationf(format string, args ...any) error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func StateConflictf(format string, args ...any) error {
	return &Error{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...)}
}

// Dependencyf wraps a collaborator failure (storage, notification). The
// wrapped error is preserved for logs; the message stays user-safe.
func Dependencyf(err error, format string, args ...any) error {
	return &Error{Kind: KindDependency, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors are
// treated as dependency failures.
func KindOf(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindDependency
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
