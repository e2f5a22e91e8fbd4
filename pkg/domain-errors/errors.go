// Package domainerrors carries coded errors across layer boundaries. Services
// and clients attach a Code so callers can branch on the failure class without
// string matching, while the wrapped cause stays available via errors.Unwrap.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure. The session core cares about four classes:
// credentials rejected, access restricted, a response that arrived but did
// not match the expected shape, and everything infrastructure-shaped.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeRestricted   Code = "restricted"
	CodeNotFound     Code = "not_found"
	CodeBadResponse  Code = "bad_response"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal_error"
)

// Error is a coded error with a human-readable description.
type Error struct {
	Code        Code
	Description string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error without a cause.
func New(code Code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// Wrap attaches a code and description to an underlying cause.
func Wrap(cause error, code Code, description string) *Error {
	return &Error{Code: code, Description: description, cause: cause}
}

// CodeOf extracts the Code from err, walking the wrap chain.
// Errors without a code report CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// DescriptionOf returns the human-readable description of a coded error,
// or the plain error text when err carries no code.
func DescriptionOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Description
	}
	return err.Error()
}
