// Package convert coordinates one conversion run: parse the input, populate
// the ledger registry, apportion taxes per invoice, then emit the masters
// and transactions documents.
//
// The design is two-pass: the registry is fully populated before either
// document is emitted, so the masters document is always a superset of every
// ledger reference the transactions document makes.
package convert

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"tallytools/internal/gst"
	"tallytools/internal/ledger"
	"tallytools/internal/logger"
	"tallytools/internal/tally"
)

// ErrEmptyInput is returned when zero records parse successfully; it is the
// only error that aborts a run. Partial failures surface as warnings in the
// summary instead.
var ErrEmptyInput = errors.New("no usable records in input")

// State is the orchestrator's position in a conversion run.
type State int

const (
	StateIdle State = iota
	StateParsing
	StateRegistering
	StateApportioning
	StateEmitting
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateParsing:      "parsing",
	StateRegistering:  "registering",
	StateApportioning: "apportioning",
	StateEmitting:     "emitting",
	StateDone:         "done",
	StateFailed:       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configures a converter.
type Options struct {
	// CompanyName must match the company in Tally exactly.
	CompanyName string

	// HomeStateCode is the company's two-digit GST state code, used to
	// decide intra- vs inter-state tax regimes.
	HomeStateCode string
}

// Converter runs conversions. It holds no per-run state: every Convert call
// starts a fresh registry, so the converter is safe to reuse.
type Converter struct {
	opts Options
	log  zerolog.Logger
}

// New creates a converter.
func New(opts Options) *Converter {
	return &Converter{
		opts: opts,
		log:  logger.WithComponent("converter"),
	}
}

// Summary is the run report returned to the caller alongside the documents.
type Summary struct {
	RunID           string   `json:"run_id"`
	CompanyName     string   `json:"company_name"`
	VendorLedgers   int      `json:"vendor_ledgers"`
	TaxLedgers      int      `json:"tax_ledgers"`
	InvoicesParsed  int      `json:"invoices_parsed"`
	InvoicesEmitted int      `json:"invoices_emitted"`
	InvoicesSkipped int      `json:"invoices_skipped"`
	Warnings        []string `json:"warnings"`
}

// InvoiceOutcome records how one parsed invoice fared, for the register
// export and the summary.
type InvoiceOutcome struct {
	Record     gst.InvoiceRecord
	VendorName string
	Emitted    bool
	SkipReason string
}

// Result carries both emitted documents plus the run summary. Import order
// matters downstream: masters first, then transactions.
type Result struct {
	MastersXML      []byte
	TransactionsXML []byte
	Summary         Summary
	Outcomes        []InvoiceOutcome
}

// invoicePath matches the record-path prefix of invoice-level parse errors,
// so multiple errors on one record count as one skipped invoice.
var invoicePath = regexp.MustCompile(`(invoices\[\d+\]|\.inv\[\d+\])`)

// Convert runs one full conversion over a raw JSON input document. The
// input may be either the canonical vendor/invoice shape or an official
// GSTR2B download; the format is detected automatically.
func (c *Converter) Convert(data []byte) (*Result, error) {
	var input *gst.ConversionInput
	var recErrs []gst.RecordError
	var err error
	if gst.IsGSTR2BDocument(data) {
		input, recErrs, err = gst.ParseGSTR2B(data)
	} else {
		input, recErrs, err = gst.ParseConversionInput(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyInput, err)
	}
	return c.convert(input, recErrs)
}

// ConvertRecords runs a conversion over already-parsed records, for callers
// that build their input programmatically.
func (c *Converter) ConvertRecords(input *gst.ConversionInput) (*Result, error) {
	return c.convert(input, nil)
}

func (c *Converter) convert(input *gst.ConversionInput, recErrs []gst.RecordError) (*Result, error) {
	runID := uuid.NewString()
	log := c.log.With().Str("run_id", runID).Logger()

	state := StateIdle
	advance := func(next State) {
		log.Debug().Str("from", state.String()).Str("to", next.String()).Msg("State transition")
		state = next
	}

	advance(StateParsing)
	if len(input.Vendors) == 0 && len(input.Invoices) == 0 {
		advance(StateFailed)
		log.Error().Int("record_errors", len(recErrs)).Msg("No records parsed, aborting run")
		return nil, fmt.Errorf("%w: %d record errors", ErrEmptyInput, len(recErrs))
	}

	summary := Summary{
		RunID:       runID,
		CompanyName: c.opts.CompanyName,
	}
	for _, recErr := range recErrs {
		summary.Warnings = append(summary.Warnings, "input: "+recErr.Error())
	}
	summary.InvoicesParsed = len(input.Invoices)
	summary.InvoicesSkipped = countRejectedInvoices(recErrs)

	// Register: populate the registry fully before any emission.
	advance(StateRegistering)
	registry := ledger.NewRegistry()
	vendorsByKey := make(map[string]*ledger.Entity)
	for _, vendor := range input.Vendors {
		vendorsByKey[vendor.Key()] = registry.RegisterVendor(vendor)
	}
	purchases := registry.RegisterPurchases()

	// Apportion taxes and build vouchers per invoice. Tax ledgers are
	// registered lazily here, still ahead of emission.
	advance(StateApportioning)
	apportioner := ledger.NewApportioner(c.opts.HomeStateCode)
	txEmitter := tally.NewTransactionsEmitter(c.opts.CompanyName)

	var vouchers []*tally.Voucher
	var outcomes []InvoiceOutcome
	for _, inv := range input.Invoices {
		outcome := InvoiceOutcome{Record: inv}

		vendor, ok := vendorsByKey[inv.VendorKey]
		if !ok {
			// Parsers reject invoices without a vendor, so this only
			// happens on inputs assembled programmatically.
			outcome.SkipReason = fmt.Sprintf("no vendor ledger for %s", inv.VendorKey)
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("invoice %s skipped: %s", inv.Number, outcome.SkipReason))
			summary.InvoicesSkipped++
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.VendorName = vendor.Name

		apportionment, err := apportioner.Apportion(inv)
		if err != nil {
			outcome.SkipReason = err.Error()
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("invoice %s skipped: %v", inv.Number, err))
			summary.InvoicesSkipped++
			outcomes = append(outcomes, outcome)
			continue
		}
		summary.Warnings = append(summary.Warnings, apportionment.Warnings...)

		taxes := make([]tally.TaxDebit, 0, len(apportionment.Lines))
		registerFailed := false
		for _, line := range apportionment.Lines {
			entity, err := registry.RegisterTax(line.Type)
			if err != nil {
				outcome.SkipReason = err.Error()
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("invoice %s skipped: %v", inv.Number, err))
				summary.InvoicesSkipped++
				registerFailed = true
				break
			}
			taxes = append(taxes, tally.TaxDebit{Entity: entity, Amount: line.Amount})
		}
		if registerFailed {
			outcomes = append(outcomes, outcome)
			continue
		}

		voucher, err := txEmitter.BuildPurchaseVoucher(inv, vendor, purchases, taxes)
		if err != nil {
			outcome.SkipReason = err.Error()
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("invoice %s skipped: %v", inv.Number, err))
			summary.InvoicesSkipped++
			outcomes = append(outcomes, outcome)
			continue
		}

		vouchers = append(vouchers, voucher)
		outcome.Emitted = true
		summary.InvoicesEmitted++
		outcomes = append(outcomes, outcome)
	}

	// Emit both documents from the now-complete registry.
	advance(StateEmitting)
	mastersXML, err := tally.NewMastersEmitter(c.opts.CompanyName).Emit(registry.Entities())
	if err != nil {
		advance(StateFailed)
		return nil, fmt.Errorf("masters emission failed: %w", err)
	}
	transactionsXML, err := txEmitter.Emit(vouchers)
	if err != nil {
		advance(StateFailed)
		return nil, fmt.Errorf("transactions emission failed: %w", err)
	}

	advance(StateDone)

	summary.VendorLedgers = registry.VendorCount()
	summary.TaxLedgers = registry.TaxCount()

	log.Info().
		Int("vendor_ledgers", summary.VendorLedgers).
		Int("tax_ledgers", summary.TaxLedgers).
		Int("invoices_parsed", summary.InvoicesParsed).
		Int("invoices_emitted", summary.InvoicesEmitted).
		Int("invoices_skipped", summary.InvoicesSkipped).
		Int("warnings", len(summary.Warnings)).
		Msg("Conversion run completed")

	return &Result{
		MastersXML:      mastersXML,
		TransactionsXML: transactionsXML,
		Summary:         summary,
		Outcomes:        outcomes,
	}, nil
}

// countRejectedInvoices counts the distinct invoice records behind a batch
// of parse errors.
func countRejectedInvoices(recErrs []gst.RecordError) int {
	seen := make(map[string]bool)
	for _, recErr := range recErrs {
		if loc := invoicePath.FindStringIndex(recErr.Path); loc != nil {
			seen[recErr.Path[:loc[1]]] = true
		}
	}
	return len(seen)
}
