package apperrors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess       = 0   // Indicates successful execution.
	ExitErrorGeneric  = 1   // Indicates a generic error.
	ExitErrorData     = 2   // Indicates a molecular data resolution error.
	ExitErrorAllJobs  = 3   // Indicates that every grid job failed.
	ExitErrorConfig   = 4   // Indicates a configuration or validation error.
	ExitErrorCanceled = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ValidationError represents a malformed or out-of-domain grid parameter.
// It identifies which parameter failed validation and provides a
// human-readable explanation. Validation errors are eager: they are
// detected before any job is dispatched and abort the entire run.
type ValidationError struct {
	// Field is the name of the parameter that failed validation.
	Field string
	// Message explains the validation failure.
	Message string
}

// Error returns a formatted message describing the validation failure.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError with a formatted message.
//
// Parameters:
//   - field: The name of the offending parameter.
//   - format: A format string for the explanation.
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ValidationError instance.
func NewValidationError(field, format string, a ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, a...)}
}

// DataResolutionError represents a failure to resolve a species identifier
// into a usable molecular datafile: an unknown alias, a failed fetch, or an
// unparsable datafile/transition table. Like ValidationError, it is surfaced
// before dispatch and aborts the run.
type DataResolutionError struct {
	// Query is the species identifier or resolved location that failed.
	Query string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted message describing the resolution failure.
func (e DataResolutionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("cannot resolve molecular data for %q", e.Query)
	}
	return fmt.Sprintf("cannot resolve molecular data for %q: %v", e.Query, e.Cause)
}

// Unwrap returns the underlying cause, allowing for error chain inspection
// (e.g., using errors.Is or errors.As).
func (e DataResolutionError) Unwrap() error { return e.Cause }

// TimeoutError represents a solver run exceeding its wall-clock budget. It
// captures the operation name and the duration limit that was exceeded.
// A TimeoutError is a normal per-job outcome and never aborts the run.
type TimeoutError struct {
	// Operation is the name of the operation that timed out.
	Operation string
	// Limit is the duration after which the operation was considered timed out.
	Limit time.Duration
}

// Error returns a formatted message describing the timeout.
func (e TimeoutError) Error() string {
	return fmt.Sprintf("operation %q timed out after %s", e.Operation, e.Limit)
}

// SolverError represents a non-zero exit of the external solver process.
// It preserves the exit cause for diagnostics.
type SolverError struct {
	// Binary is the solver executable that failed.
	Binary string
	// Cause is the underlying process error.
	Cause error
}

// Error returns a formatted message naming the failed binary.
func (e SolverError) Error() string {
	return fmt.Sprintf("solver %q failed: %v", e.Binary, e.Cause)
}

// Unwrap returns the original wrapped error.
func (e SolverError) Unwrap() error { return e.Cause }

// ParseError represents solver output that could not be decoded into the
// expected positional fields. Like SolverError it is per-job and non-fatal.
type ParseError struct {
	// Message explains what part of the output was malformed.
	Message string
}

// Error returns the parse error message.
func (e ParseError) Error() string { return e.Message }

// NewParseError creates a new ParseError with a formatted message.
func NewParseError(format string, a ...any) error {
	return ParseError{Message: fmt.Sprintf(format, a...)}
}

// AllJobsFailedError indicates that every job in a grid run terminated in a
// failure state. The assembled (all-sentinel) dataset is still returned to
// the caller alongside this error so that diagnostics remain inspectable.
type AllJobsFailedError struct {
	// Total is the number of jobs in the grid.
	Total int
}

// Error returns a formatted message describing the aggregate failure.
func (e AllJobsFailedError) Error() string {
	return fmt.Sprintf("all %d grid jobs failed", e.Total)
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Parameters:
//   - err: The error to wrap.
//   - format: A format string for the context message.
//   - args: Arguments for the format string.
//
// Returns:
//   - error: The wrapped error, or nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
//
// Parameters:
//   - err: The error to check.
//
// Returns:
//   - bool: true if the error is a context error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
