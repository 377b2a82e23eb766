package tally

import (
	"github.com/rs/zerolog"
	"tallytools/internal/gst"
	"tallytools/internal/ledger"
	"tallytools/internal/logger"
)

// voucherTypePurchase is the voucher type for purchase-return invoices.
const voucherTypePurchase = "Purchase"

// TaxDebit is one apportioned tax amount together with the tax ledger it
// debits.
type TaxDebit struct {
	Entity *ledger.Entity
	Amount int64
}

// TransactionsEmitter builds purchase vouchers and serializes them into the
// transactions document.
type TransactionsEmitter struct {
	companyName string
	log         zerolog.Logger
}

// NewTransactionsEmitter creates a transactions emitter for the given Tally
// company.
func NewTransactionsEmitter(companyName string) *TransactionsEmitter {
	return &TransactionsEmitter{
		companyName: companyName,
		log:         logger.WithComponent("transactions-emitter"),
	}
}

// BuildPurchaseVoucher builds one voucher for an invoice: a credit to the
// vendor ledger for the total value, a debit to the purchase ledger for the
// taxable value, and a debit per apportioned tax ledger.
//
// A sub-tolerance rounding difference between the stated total and the line
// sum is absorbed into the purchase debit so the voucher nets to zero.
// Anything larger means the lines cannot balance and the voucher is rejected
// with a BalanceError.
func (e *TransactionsEmitter) BuildPurchaseVoucher(inv gst.InvoiceRecord, vendor, purchases *ledger.Entity, taxes []TaxDebit) (*Voucher, error) {
	const op = "BuildPurchaseVoucher"

	credit := inv.TotalValue
	purchaseDebit := inv.TaxableValue

	var taxTotal int64
	for _, tax := range taxes {
		taxTotal += tax.Amount
	}

	if diff := credit - (purchaseDebit + taxTotal); diff != 0 {
		if diff > gst.AmountTolerance || diff < -gst.AmountTolerance {
			return nil, NewBalanceError(op, inv.Number, purchaseDebit+taxTotal, credit)
		}
		purchaseDebit += diff
	}

	voucher := &Voucher{
		VoucherType:     voucherTypePurchase,
		Action:          actionCreate,
		Date:            tallyDate(inv.Date),
		VoucherTypeName: voucherTypePurchase,
		VoucherNumber:   inv.Number,
		PartyLedgerName: vendor.Name,
		Narration:       inv.Number,
	}

	voucher.Entries = append(voucher.Entries, creditLine(vendor.Name, credit))
	if purchaseDebit != 0 {
		voucher.Entries = append(voucher.Entries, debitLine(purchases.Name, purchaseDebit))
	}
	for _, tax := range taxes {
		if tax.Amount != 0 {
			voucher.Entries = append(voucher.Entries, debitLine(tax.Entity.Name, tax.Amount))
		}
	}

	e.log.Debug().
		Str("invoice", inv.Number).
		Str("vendor", vendor.Name).
		Str("total", gst.Rupees(credit)).
		Int("lines", len(voucher.Entries)).
		Msg("Built purchase voucher")

	return voucher, nil
}

// Emit serializes vouchers, in the order given, into one transactions
// document. Output is deterministic for identical input.
func (e *TransactionsEmitter) Emit(vouchers []*Voucher) ([]byte, error) {
	messages := make([]Message, 0, len(vouchers))
	for _, voucher := range vouchers {
		messages = append(messages, Message{
			UDF:     udfNamespace,
			Voucher: voucher,
		})
	}

	env := newEnvelope(reportVouchers, e.companyName, messages)
	out, err := marshalEnvelope(env)
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Int("vouchers", len(vouchers)).
		Int("bytes", len(out)).
		Msg("Emitted transactions document")

	return out, nil
}

// debitLine builds a debit entry. Tally convention: deemed positive with a
// negative amount.
func debitLine(ledgerName string, amount int64) LedgerEntry {
	return LedgerEntry{
		LedgerName:       ledgerName,
		IsDeemedPositive: "Yes",
		Amount:           gst.Rupees(-amount),
	}
}

// creditLine builds a credit entry.
func creditLine(ledgerName string, amount int64) LedgerEntry {
	return LedgerEntry{
		LedgerName:       ledgerName,
		IsDeemedPositive: "No",
		Amount:           gst.Rupees(amount),
	}
}
