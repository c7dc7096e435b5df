// Package errors defines structured error types for record files.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode defines specific error types for opening and reading record files.
type ErrorCode string

const (
	// ErrFileNotFound is returned when the record file does not exist.
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	// ErrFileRead is returned when the record file cannot be read.
	ErrFileRead ErrorCode = "FILE_READ_ERROR"
	// ErrInvalidFileType is returned when the file is empty or its format
	// cannot be detected.
	ErrInvalidFileType ErrorCode = "INVALID_FILE_TYPE"
	// ErrInvalidJSONStructure is returned when a top-level array is malformed.
	ErrInvalidJSONStructure ErrorCode = "INVALID_JSON_STRUCTURE"
	// ErrElementOutOfBounds is returned when a record index is out of range.
	ErrElementOutOfBounds ErrorCode = "ELEMENT_OUT_OF_BOUNDS"
	// ErrInvalidRecord is returned when a single record is not valid JSON.
	ErrInvalidRecord ErrorCode = "INVALID_RECORD"
)

// Error is a concrete error type with a code, message and optional details.
type Error struct {
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		code:    code,
		message: message,
		details: make(map[string]any),
	}
}

// WithDetail adds a single detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *Error) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *Error) Unwrap() error {
	return e.wrappedErr
}

// Is reports whether any error in err's chain is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.code
	}
	return ""
}

// Predefined error constructors for common cases

// FileNotFound creates an error for a missing record file.
func FileNotFound(path string, err error) *Error {
	return New(ErrFileNotFound, fmt.Sprintf("file not found: %s", path)).WithDetail("path", path).Wrap(err)
}

// FileRead creates an error for an I/O failure on a record file.
func FileRead(path string, err error) *Error {
	return New(ErrFileRead, fmt.Sprintf("failed to read %s", path)).WithDetail("path", path).Wrap(err)
}

// InvalidFileType creates an error for a file whose format cannot be detected.
func InvalidFileType(path, reason string) *Error {
	return New(ErrInvalidFileType, fmt.Sprintf("%s: %s", path, reason)).WithDetail("path", path)
}

// InvalidJSONStructure creates an error for a malformed top-level array at offset.
func InvalidJSONStructure(offset int64, reason string) *Error {
	return New(ErrInvalidJSONStructure, fmt.Sprintf("invalid JSON structure at offset %d: %s", offset, reason)).WithDetail("offset", offset)
}

// OutOfBounds creates an error for an index outside [0, length).
func OutOfBounds(index, length int) *Error {
	return New(ErrElementOutOfBounds, fmt.Sprintf("element %d out of bounds (len %d)", index, length)).
		WithDetail("index", index).
		WithDetail("len", length)
}

// InvalidRecord creates an error for a record whose bytes fail to parse.
func InvalidRecord(index int, err error) *Error {
	return New(ErrInvalidRecord, fmt.Sprintf("record %d is not valid JSON", index)).WithDetail("index", index).Wrap(err)
}
