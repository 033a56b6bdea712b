package igloo

import (
	"fmt"

	errors "github.com/Laisky/errors/v2"
)

// Kind identifies a machine-stable failure category.
type Kind string

const (
	// KindValidation marks input rejected before any network traffic.
	KindValidation Kind = "VALIDATION"
	// KindNotFound marks a missing remote object or page.
	KindNotFound Kind = "NOT_FOUND"
	// KindAuth marks rejected or expired credentials.
	KindAuth Kind = "AUTH"
	// KindTransient marks failures that may succeed on retry.
	KindTransient Kind = "TRANSIENT"
	// KindMalformedRecord marks a remote record that cannot be normalized.
	KindMalformedRecord Kind = "MALFORMED_RECORD"
	// KindConversion marks content that cannot be converted to Markdown.
	KindConversion Kind = "CONVERSION"
)

// Error captures a typed platform error with its failure category.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	cause   error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "igloo error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("igloo error: %s", e.Kind)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Retryable reports whether retrying the operation may succeed.
func (e *Error) Retryable() bool {
	return e != nil && e.Kind == KindTransient
}

// NewError constructs a typed platform error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewValidationError constructs a validation error naming the offending field.
func NewValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// WrapError attaches a failure category to an underlying error.
func WrapError(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: err}
}

// AsError extracts a typed platform error from the error chain.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsKind reports whether the error chain carries the given failure category.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	if typed, ok := AsError(err); ok {
		return typed.Kind == kind
	}
	return false
}

// KindOf returns the failure category of the error chain, if any.
func KindOf(err error) Kind {
	if typed, ok := AsError(err); ok {
		return typed.Kind
	}
	return ""
}
