package tally

import (
	"github.com/rs/zerolog"
	"tallytools/internal/logger"
	"tallytools/pkg/models"
)

// Bank statement vouchers post every row against a suspense ledger; amounts
// are moved to proper ledgers inside Tally after import.
const (
	SuspenseLedgerName  = "Suspense"
	voucherTypeReceipt  = "Receipt"
	voucherTypePayment  = "Payment"
	groupSuspenseParent = "Suspense A/c"
)

// BankEmitter serializes extracted bank statement rows into a single import
// document of receipt/payment vouchers. The suspense ledger master is
// included in the same document so the import never dangles.
type BankEmitter struct {
	companyName string
	bankLedger  string
	log         zerolog.Logger
}

// NewBankEmitter creates a bank statement emitter. bankLedger must match the
// bank account ledger name in Tally exactly.
func NewBankEmitter(companyName, bankLedger string) *BankEmitter {
	return &BankEmitter{
		companyName: companyName,
		bankLedger:  bankLedger,
		log:         logger.WithComponent("bank-emitter"),
	}
}

// Emit builds one voucher per transaction. Outgoing rows become Payment
// vouchers (credit bank, debit suspense); incoming rows become Receipt
// vouchers (debit bank, credit suspense). Rows with no amount are skipped
// and counted in the returned skip count.
func (e *BankEmitter) Emit(transactions []models.BankTransaction) ([]byte, int, error) {
	messages := []Message{{
		UDF: udfNamespace,
		Ledger: &LedgerMaster{
			NameAttr:       SuspenseLedgerName,
			Action:         actionCreate,
			Name:           SuspenseLedgerName,
			Parent:         groupSuspenseParent,
			OpeningBalance: "0",
		},
	}}

	skipped := 0
	for _, txn := range transactions {
		if txn.Amount() == 0 {
			skipped++
			continue
		}
		messages = append(messages, Message{
			UDF:     udfNamespace,
			Voucher: e.bankVoucher(txn),
		})
	}

	env := newEnvelope(reportVouchers, e.companyName, messages)
	out, err := marshalEnvelope(env)
	if err != nil {
		return nil, 0, err
	}

	e.log.Info().
		Int("vouchers", len(messages)-1).
		Int("skipped", skipped).
		Str("bank_ledger", e.bankLedger).
		Msg("Emitted bank statement document")

	return out, skipped, nil
}

func (e *BankEmitter) bankVoucher(txn models.BankTransaction) *Voucher {
	voucher := &Voucher{
		Action:    actionCreate,
		Date:      tallyDate(txn.Date),
		Narration: txn.Narration,
	}

	if txn.IsOutgoing() {
		voucher.VoucherType = voucherTypePayment
		voucher.VoucherTypeName = voucherTypePayment
		voucher.PartyLedgerName = e.bankLedger
		voucher.Entries = []LedgerEntry{
			debitLine(SuspenseLedgerName, txn.Debit),
			creditLine(e.bankLedger, txn.Debit),
		}
	} else {
		voucher.VoucherType = voucherTypeReceipt
		voucher.VoucherTypeName = voucherTypeReceipt
		voucher.PartyLedgerName = e.bankLedger
		voucher.Entries = []LedgerEntry{
			debitLine(e.bankLedger, txn.Credit),
			creditLine(SuspenseLedgerName, txn.Credit),
		}
	}

	return voucher
}
