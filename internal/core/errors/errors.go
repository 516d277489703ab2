package errors

import (
	stderrors "errors"
	"fmt"
)

const (
	HttpInternalError        = "internal_error"
	HttpInvalidArgumentError = "invalid_argument"
	HttpInvalidQueryError    = "invalid_query"
	HttpConflictError        = "conflict"
)

// ErrorResponse is the error response body for read API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// Code is a machine-readable error category.
type Code string

const (
	// CodeInvalidArgument: unsupported aggregation kind or an identifier outside the allow-list.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeMalformedInput: non-monotonic or overlapping events handed to the segmenter.
	CodeMalformedInput Code = "MALFORMED_INPUT"
	// CodePreconditionFailure: a schema without the leading timestamp column.
	CodePreconditionFailure Code = "PRECONDITION_FAILURE"
	// CodeSourceFetchFailure: a tracker fetch failed (network, auth, rate limit).
	CodeSourceFetchFailure Code = "SOURCE_FETCH_FAILURE"
	// CodeStorageFailure: a write or query against storage failed.
	CodeStorageFailure Code = "STORAGE_FAILURE"
)

// Sentinels for errors.Is matching. Any *Error with the same Code matches.
var (
	ErrInvalidArgument     = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrMalformedInput      = &Error{Code: CodeMalformedInput, Message: "malformed input"}
	ErrPreconditionFailure = &Error{Code: CodePreconditionFailure, Message: "precondition failure"}
	ErrSourceFetchFailure  = &Error{Code: CodeSourceFetchFailure, Message: "source fetch failure"}
	ErrStorageFailure      = &Error{Code: CodeStorageFailure, Message: "storage failure"}
)

// Error is a categorized pipeline error.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same Code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error with a code that wraps cause.
//
// An error carries exactly one Code. When cause already holds an *Error with a
// different code, that code is hidden: the chain keeps cause's text and the
// inner error's own cause, so errors.Is still finds root causes such as
// context.Canceled but matches only the new code.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	var inner *Error
	if stderrors.As(cause, &inner) && inner.Code != code {
		cause = &recoded{msg: cause.Error(), cause: inner.Cause}
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// recoded stands in for a re-classified *Error.
type recoded struct {
	msg   string
	cause error
}

func (r *recoded) Error() string { return r.msg }
func (r *recoded) Unwrap() error { return r.cause }

func InvalidArgumentf(format string, args ...any) *Error {
	return New(CodeInvalidArgument, format, args...)
}

func MalformedInputf(format string, args ...any) *Error {
	return New(CodeMalformedInput, format, args...)
}

func PreconditionFailuref(format string, args ...any) *Error {
	return New(CodePreconditionFailure, format, args...)
}

func SourceFetchFailure(cause error, format string, args ...any) *Error {
	return Wrap(CodeSourceFetchFailure, cause, format, args...)
}

func StorageFailure(cause error, format string, args ...any) *Error {
	return Wrap(CodeStorageFailure, cause, format, args...)
}

// CodeOf returns the Code of the first *Error in err's chain, or "" when there is none.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}
