package models

import "time"

// BankTransaction is one row extracted from a bank statement.
type BankTransaction struct {
	// Date the transaction was posted
	Date time.Time

	// Narration is the bank's transaction description
	Narration string

	// Amounts in paise. Exactly one of Debit/Credit is nonzero per row:
	// Debit is money leaving the account, Credit is money entering it.
	Debit  int64
	Credit int64

	// Balance is the running account balance after the transaction, if the
	// statement shows one (zero otherwise).
	Balance int64

	// Reference is a cheque or transaction reference number, if present.
	Reference string
}

// IsOutgoing returns true if money left the account.
func (t *BankTransaction) IsOutgoing() bool {
	return t.Debit > 0
}

// IsIncoming returns true if money entered the account.
func (t *BankTransaction) IsIncoming() bool {
	return t.Credit > 0
}

// Amount returns the transaction's magnitude in paise.
func (t *BankTransaction) Amount() int64 {
	if t.Debit > 0 {
		return t.Debit
	}
	return t.Credit
}
