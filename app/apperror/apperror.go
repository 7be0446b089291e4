// Package apperror defines the error taxonomy shared by services and
// controllers. Services raise errors with a Kind at the point of detection;
// the HTTP boundary maps each Kind to a status code exactly once.
package apperror

import "fmt"

type Kind int

const (
	Validation Kind = iota
	Conflict
	NotFound
	InvalidCredentials
	InvalidToken
	Unexpected
)

type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field violation messages for Validation errors
	// aggregated across all invalid fields.
	Fields map[string]string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ValidationFields builds a Validation error carrying one message per
// invalid field.
func ValidationFields(message string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: message, Fields: fields}
}

// Wrap marks err as Unexpected. The original error stays reachable through
// Unwrap for logging, but message is what callers surface; the wrapped
// error text is never echoed to clients.
func Wrap(err error, message string) *Error {
	return &Error{Kind: Unexpected, Message: message, cause: err}
}
