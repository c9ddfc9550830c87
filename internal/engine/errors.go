package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/tablegrid/internal/serversync"
)

// TableError represents an error detected by a Table.
//
// Table errors include:
//   - Configuration: invalid options at construction
//   - Fetch failed: the remote source rejected the current request
//   - Invariant: a snapshot violates a table invariant
//   - Resize active: a second resize gesture was started
type TableError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Column identifies the affected column, if any.
	Column string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes table errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates invalid table options.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeFetchFailed indicates the remote source failed.
	ErrCodeFetchFailed ErrorCode = "FETCH_FAILED"

	// ErrCodeInvariant indicates a snapshot broke a table invariant.
	ErrCodeInvariant ErrorCode = "INVARIANT"

	// ErrCodeResizeActive indicates a resize started while one was active.
	ErrCodeResizeActive ErrorCode = "RESIZE_ACTIVE"
)

// Error implements the error interface.
func (e *TableError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Column != "" {
		msg = fmt.Sprintf("%s (column=%s)", msg, e.Column)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *TableError) Unwrap() error {
	return e.Err
}

// IsConfigurationError returns true if the error is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	var te *TableError
	if errors.As(err, &te) {
		return te.Code == ErrCodeConfiguration
	}
	return false
}

// IsFetchError returns true if the error is a fetch failure.
// Matches both TableError with ErrCodeFetchFailed and serversync.FetchError.
func IsFetchError(err error) bool {
	var te *TableError
	if errors.As(err, &te) && te.Code == ErrCodeFetchFailed {
		return true
	}
	return serversync.IsFetchError(err)
}

// IsInvariantError returns true if the error is an invariant violation.
func IsInvariantError(err error) bool {
	var te *TableError
	if errors.As(err, &te) {
		return te.Code == ErrCodeInvariant
	}
	return false
}

// IsResizeActiveError returns true if a resize was rejected because
// another session was active.
func IsResizeActiveError(err error) bool {
	var te *TableError
	if errors.As(err, &te) {
		return te.Code == ErrCodeResizeActive
	}
	return false
}

// configError creates a TableError for invalid options.
func configError(column, format string, args ...any) *TableError {
	return &TableError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf(format, args...),
		Column:  column,
	}
}

// invariantError creates a TableError for a broken invariant.
func invariantError(column, format string, args ...any) *TableError {
	return &TableError{
		Code:    ErrCodeInvariant,
		Message: fmt.Sprintf(format, args...),
		Column:  column,
	}
}
