package ledger

import (
	"errors"
	"fmt"
)

// Common ledger and apportionment errors
var (
	// ErrNoTaxComponents is returned when an invoice carries a nonzero
	// taxable value but no tax components at all, so no tax ledger
	// reference can be produced for it.
	ErrNoTaxComponents = errors.New("invoice has a taxable value but no tax components")

	// ErrUnknownTaxType is returned when a tax type outside CGST/SGST/IGST
	// is registered.
	ErrUnknownTaxType = errors.New("unknown tax type")
)

// ApportionmentError wraps errors with context about which invoice could not
// be apportioned.
type ApportionmentError struct {
	// Op is the operation that failed (e.g., "Apportion").
	Op string

	// InvoiceNumber identifies the invoice, for the run summary.
	InvoiceNumber string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ApportionmentError) Error() string {
	if e.InvoiceNumber != "" {
		return fmt.Sprintf("ledger: %s failed for invoice %s: %v", e.Op, e.InvoiceNumber, e.Err)
	}
	return fmt.Sprintf("ledger: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ApportionmentError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ApportionmentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewApportionmentError creates a new ApportionmentError.
func NewApportionmentError(op, invoiceNumber string, err error) *ApportionmentError {
	return &ApportionmentError{
		Op:            op,
		InvoiceNumber: invoiceNumber,
		Err:           err,
	}
}
