/*
errors.go - Centralized error types for the console core

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. DataUnavailable - store adapter unreachable, non-success response,
     or unparseable payload. Advisory reads (entitlement, dues pool)
     DEGRADE to an empty result instead of surfacing this; only write
     paths return it to the caller.
  2. Validation - bad input, rejected synchronously before any store call.
  3. NotFound - a referenced record does not exist.

  Stale writes (a concurrent update silently overwritten, last-write-wins)
  are NOT detected or reported; the remote store has no compare-and-swap
  primitive. Known risk, documented here rather than handled.

USAGE:
  if errors.Is(err, core.ErrDataUnavailable) { ... degrade ... }

  var verr *core.ValidationError
  if errors.As(err, &verr) { ... 400 ... }
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDataUnavailable is returned when a store adapter cannot produce
	// a usable result. Attempted once, never retried.
	ErrDataUnavailable = errors.New("store data unavailable")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports invalid caller input. Raised before any store
// call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DataUnavailableError wraps the underlying adapter failure with the
// operation that hit it.
type DataUnavailableError struct {
	Op  string
	Err error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return ErrDataUnavailable }

// Unavailable wraps err as a DataUnavailableError for operation op.
func Unavailable(op string, err error) error {
	return &DataUnavailableError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
