// Package derrors provides the structured error type used across the
// documentation host, with category-based classification and stable codes
// for dispatching on failure kind.
package derrors

import (
	"errors"
	"fmt"
)

// Category classifies an error by the subsystem it originated in.
type Category string

const (
	CategoryArchive   Category = "archive"
	CategoryManifest  Category = "manifest"
	CategoryDatabase  Category = "database"
	CategoryStorage   Category = "storage"
	CategoryHierarchy Category = "hierarchy"
	CategorySearch    Category = "search"
	CategoryConfig    Category = "config"
	CategoryInternal  Category = "internal"
)

// Code identifies a specific failure condition. Codes are stable and are
// what callers should switch on; messages are for humans.
type Code string

const (
	// Structural failures that abort a whole import.
	CodeArchiveCorrupt    Code = "archive_corrupt"
	CodeMemberNotFound    Code = "member_not_found"
	CodeMissingManifest   Code = "missing_manifest"
	CodeMalformedManifest Code = "malformed_manifest"
	CodeProjectNotFound   Code = "project_not_found"
	CodeVersionExists     Code = "version_already_exists"
	CodeInvalidHierarchy  Code = "invalid_page_hierarchy"

	// General persistence and lookup failures.
	CodeNotFound  Code = "not_found"
	CodeConflict  Code = "conflict"
	CodeUnusable  Code = "unusable_version_label"
	CodeExhausted Code = "retries_exhausted"
	CodeInternal  Code = "internal"
)

// ContextFields carries structured diagnostic context (project slug,
// version label, archive path) so fatal errors are diagnosable without
// re-running the operation.
type ContextFields map[string]any

// Error is a structured error with category, code and context.
type Error struct {
	Category Category
	Code     Code
	Message  string
	Cause    error
	Context  ContextFields
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds a diagnostic key/value and returns the error for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a structured error.
func New(category Category, code Code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// Wrap creates a structured error wrapping a cause.
func Wrap(err error, category Category, code Code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message, Cause: err}
}

// CodeOf returns the code of err if it is (or wraps) an *Error, else
// CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IsCode reports whether err is (or wraps) an *Error with the given code.
func IsCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
