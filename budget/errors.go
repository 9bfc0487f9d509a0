/*
errors.go - Centralized error types for the budget engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stores and transports wrap these; callers classify with errors.Is/As.

ERROR CATEGORIES:
  1. Configuration errors - fiscal settings missing or invalid
  2. Validation errors - malformed caller input
  3. Transaction failures - the close (or any atomic write) rolled back

USAGE:
    if errors.Is(err, budget.ErrNotConfigured) {
        // run setup first
    }

SEE ALSO:
  - closing.go: wraps store failures in TransactionFailure
  - api/handlers.go: maps categories to HTTP status codes
*/
package budget

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotConfigured is returned when fiscal settings have not been set up.
	ErrNotConfigured = errors.New("fiscal settings not configured")

	// ErrSettingsImmutable is returned on a second setup attempt.
	ErrSettingsImmutable = errors.New("fiscal settings already configured")

	// ErrInvalidInput is returned for malformed caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransactionFailed is returned when an atomic write was rolled back.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds is returned when a withdrawal exceeds a goal's balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrHolidaySource is returned when the upstream holiday provider fails.
	ErrHolidaySource = errors.New("holiday source unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError reports a missing or invalid setting.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// TransactionFailure reports a rolled-back atomic operation. Step names the
// closing step that failed, when known.
type TransactionFailure struct {
	Op   string
	Step string
	Err  error
}

func (e *TransactionFailure) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s failed at %s: %v", e.Op, e.Step, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Is makes every TransactionFailure match ErrTransactionFailed.
func (e *TransactionFailure) Is(target error) bool { return target == ErrTransactionFailed }

func (e *TransactionFailure) Unwrap() error { return e.Err }

// InsufficientFundsError provides details about a withdrawal shortfall.
type InsufficientFundsError struct {
	GoalID    GoalID
	Available string
	Requested string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in goal %d: available %s, requested %s",
		e.GoalID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrSettingsImmutable)
}

// IsConfigurationError returns true if setup is missing or invalid.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce) || errors.Is(err, ErrNotConfigured)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the operation rolled back for a reason the
// caller cannot fix, such as a lock timeout or a dropped connection. The
// close is idempotent, so it may simply be run again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed) || errors.Is(err, ErrHolidaySource)
}
