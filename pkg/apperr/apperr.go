package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an error for clients. Expected business conditions carry a
// specific code; everything else surfaces as Unexpected without internals.
type Code string

const (
	CodeValidation Code = "VALIDATION"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeForbidden  Code = "FORBIDDEN"
	CodeUnexpected Code = "UNEXPECTED"
)

type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, cause: cause}
}

func Validation(msg string) *Error { return New(CodeValidation, msg) }
func NotFound(msg string) *Error   { return New(CodeNotFound, msg) }
func Conflict(msg string) *Error   { return New(CodeConflict, msg) }
func Forbidden(msg string) *Error  { return New(CodeForbidden, msg) }

func Unexpected(cause error) *Error {
	return &Error{Code: CodeUnexpected, Message: "internal error", cause: cause}
}

// CodeOf walks the chain and returns the first classified code,
// defaulting to Unexpected.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnexpected
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
