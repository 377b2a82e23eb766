package extract

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrMissingCredentials is returned when no Google Cloud credentials
	// are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrInvalidConfiguration is returned when required configuration is
	// missing or malformed.
	ErrInvalidConfiguration = errors.New("invalid extraction configuration")

	// ErrProcessorNotFound is returned when the configured Document AI
	// processor does not exist.
	ErrProcessorNotFound = errors.New("Document AI processor not found")

	// ErrQuotaExceeded is returned when an API quota is exhausted.
	ErrQuotaExceeded = errors.New("API quota exceeded")

	// ErrProcessingFailed is returned when an extraction backend fails.
	ErrProcessingFailed = errors.New("extraction processing failed")

	// ErrInvalidResponse is returned when a model response cannot be
	// parsed after all retries.
	ErrInvalidResponse = errors.New("invalid extraction response")

	// ErrNoTransactions is returned when a statement yields no usable
	// transaction rows.
	ErrNoTransactions = errors.New("no transactions found in statement")

	// ErrInvalidDocument is returned when the input is not a supported
	// document.
	ErrInvalidDocument = errors.New("invalid or unsupported document")
)

// ExtractionError wraps errors with context about the extraction failure.
type ExtractionError struct {
	// Op is the operation that failed.
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(op string, err error, details string) *ExtractionError {
	return &ExtractionError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't
// already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return err
	}

	return NewExtractionError(op, err, details)
}
