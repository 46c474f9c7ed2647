// Package apperror defines the error kinds the register service reports to its
// callers. Handlers map each kind to a stable HTTP status with errors.Is.
package apperror

import "errors"

// ErrValidation indicates missing or malformed input (e.g. no desk_id).
var ErrValidation = errors.New("validation error")

// ErrNotFound indicates that a register id does not resolve.
var ErrNotFound = errors.New("resource not found")

// ErrConflict indicates that an active register already exists for the desk.
var ErrConflict = errors.New("conflict")

// ErrInvalidState indicates that the register status forbids the operation.
var ErrInvalidState = errors.New("invalid state")

// Error carries a caller-facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Validation(msg string) error   { return New(ErrValidation, msg) }
func NotFound(msg string) error     { return New(ErrNotFound, msg) }
func Conflict(msg string) error     { return New(ErrConflict, msg) }
func InvalidState(msg string) error { return New(ErrInvalidState, msg) }
