package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the structured error type returned by the build, append and
// retrieval paths.
type Error struct {
	// Code is the unique error code (e.g. "ERR_201_MISSING_STORE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Kind tells the caller whether to abort, skip or ignore.
	Kind Kind

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an Error whose kind is derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Kind:    kindFromCode(code),
		Cause:   cause,
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code string, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an Error from an existing error.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is. Only the code is compared.
var (
	ErrMissingStore      = New(CodeMissingStore, "store is missing required files", nil)
	ErrDimensionMismatch = New(CodeDimensionMismatch, "embedding dimension mismatch", nil)
	ErrNoSupportedFiles  = New(CodeNoSupportedFiles, "no supported files", nil)
	ErrNoChunks          = New(CodeNoChunks, "no chunks created", nil)
	ErrExtraction        = New(CodeExtractFailed, "extraction failed", nil)
	ErrUnsupportedFormat = New(CodeUnsupportedFormat, "unsupported format", nil)
	ErrPersistence       = New(CodePersistFailed, "persist failed", nil)
	ErrInvalidInput      = New(CodeInvalidInput, "invalid input", nil)
	ErrCorruptStore      = New(CodeCorruptStore, "store is corrupt", nil)
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsFatal reports whether err must abort the operation. Extraction and
// degraded errors are recovered by the caller.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindExtraction, KindDegraded:
		return false
	default:
		return true
	}
}

// IsExtraction reports whether err is a per-file extraction failure.
func IsExtraction(err error) bool {
	return KindOf(err) == KindExtraction
}
