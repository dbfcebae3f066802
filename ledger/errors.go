/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Statement builders and the petty-cash ledger wrap these with context.

ERROR CATEGORIES:
  1. InvalidInput   - Malformed period, date, id or amount (fail before I/O)
  2. NotFound       - Well-formed residence id that does not exist
  3. Upstream       - Entry-store query failures (propagated, never retried)
  4. Business rules - Insufficient petty-cash funds, duplicate entry ids

  Integrity findings (unbalanced balance sheet, failed reconciliation) are
  NOT errors. They are reported as flags inside successful results.

USAGE:
  if errors.Is(err, ledger.ErrInvalidInput) {
      // 400
  }
  if ledger.IsNotFound(err) {
      // 404
  }

SEE ALSO:
  - api/handlers.go: Maps these to HTTP status codes
  - pettycash/fund.go: InsufficientFundsError
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is the parent of every input-validation failure.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidPeriod is returned for a period that is not a 4-digit year
	// or whose end precedes its start.
	ErrInvalidPeriod = fmt.Errorf("%w: invalid period", ErrInvalidInput)

	// ErrInvalidDate is returned for a date that cannot be parsed.
	ErrInvalidDate = fmt.Errorf("%w: invalid date", ErrInvalidInput)

	// ErrInvalidResidenceID is returned for a residence id with the wrong format.
	ErrInvalidResidenceID = fmt.Errorf("%w: invalid residence id", ErrInvalidInput)

	// ErrInvalidUserID is returned for an empty or malformed user id.
	ErrInvalidUserID = fmt.Errorf("%w: invalid user id", ErrInvalidInput)

	// ErrInvalidAmount is returned for negative, zero or unparseable amounts.
	ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrInvalidInput)

	// ErrUnbalancedEntry is returned when a new entry's debits != credits.
	ErrUnbalancedEntry = fmt.Errorf("%w: entry does not balance", ErrInvalidInput)

	// ErrDuplicateEntry is returned when an entry id has already been appended.
	ErrDuplicateEntry = errors.New("duplicate entry id")

	// ErrResidenceNotFound is returned when a well-formed residence id is absent.
	ErrResidenceNotFound = errors.New("residence not found")

	// ErrInsufficientFunds is returned when a petty-cash expense exceeds the
	// holder's current balance.
	ErrInsufficientFunds = errors.New("insufficient petty cash funds")

	// ErrUpstream marks failures of the entry store or residence directory.
	ErrUpstream = errors.New("upstream failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InputError names the offending field and value.
type InputError struct {
	Field string
	Value string
	Err   error
}

func (e *InputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// UpstreamError wraps a collaborator failure with the operation that hit it.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrUpstream and the underlying cause to errors.Is.
func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// Upstream wraps err unless it is nil or already classified.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstream) || errors.Is(err, ErrResidenceNotFound) ||
		errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrDuplicateEntry) {
		return err
	}
	return &UpstreamError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInsufficientFunds)
}

// IsConflict returns true if the write collided with an existing entry.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResidenceNotFound)
}
