package tally

import (
	"errors"
	"fmt"
)

// ErrUnbalancedVoucher is returned when a voucher's debit and credit lines
// do not net to zero. Such vouchers are rejected, never emitted.
var ErrUnbalancedVoucher = errors.New("voucher debit and credit lines do not balance")

// BalanceError wraps an unbalanced-voucher failure with the amounts involved.
type BalanceError struct {
	// Op is the operation that failed (e.g., "BuildPurchaseVoucher").
	Op string

	// VoucherRef identifies the voucher, typically the invoice number.
	VoucherRef string

	// Debits and Credits are the line totals in paise.
	Debits  int64
	Credits int64

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *BalanceError) Error() string {
	return fmt.Sprintf("tally: %s failed for voucher %s: %v (debits %d, credits %d)",
		e.Op, e.VoucherRef, e.Err, e.Debits, e.Credits)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *BalanceError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *BalanceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewBalanceError creates a new BalanceError.
func NewBalanceError(op, voucherRef string, debits, credits int64) *BalanceError {
	return &BalanceError{
		Op:         op,
		VoucherRef: voucherRef,
		Debits:     debits,
		Credits:    credits,
		Err:        ErrUnbalancedVoucher,
	}
}
