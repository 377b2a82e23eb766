// Package report exports a conversion run as a human-readable invoice
// register workbook, for review before the XML is imported into Tally.
package report

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"tallytools/internal/convert"
	"tallytools/internal/gst"
	"tallytools/internal/logger"
)

const (
	registerSheet = "Invoice Register"
	summarySheet  = "Summary"
)

// RegisterWriter writes invoice register workbooks.
type RegisterWriter struct {
	log zerolog.Logger
}

// NewRegisterWriter creates a register writer.
func NewRegisterWriter() *RegisterWriter {
	return &RegisterWriter{log: logger.WithComponent("register-writer")}
}

// Write builds an XLSX workbook from a conversion result and writes it to
// path: one register row per parsed invoice plus a run summary sheet.
func (w *RegisterWriter) Write(result *convert.Result, path string) error {
	const op = "Write"

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			w.log.Warn().Err(err).Msg("Failed to close workbook")
		}
	}()

	f.SetSheetName("Sheet1", registerSheet)
	if err := w.writeRegister(f, result); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := w.writeSummary(f, result); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%s: failed to save workbook: %w", op, err)
	}

	w.log.Info().
		Str("path", path).
		Int("invoices", len(result.Outcomes)).
		Msg("Wrote invoice register workbook")

	return nil
}

func (w *RegisterWriter) writeRegister(f *excelize.File, result *convert.Result) error {
	headers := []interface{}{
		"Vendor", "Invoice No", "Date", "Taxable Value",
		"CGST", "SGST", "IGST", "Total Value", "Status", "Reason",
	}
	if err := f.SetSheetRow(registerSheet, "A1", &headers); err != nil {
		return err
	}

	for i, outcome := range result.Outcomes {
		inv := outcome.Record
		status := "emitted"
		if !outcome.Emitted {
			status = "skipped"
		}
		row := []interface{}{
			outcome.VendorName,
			inv.Number,
			inv.Date.Format("02-01-2006"),
			gst.Rupees(inv.TaxableValue),
			gst.Rupees(inv.Components[gst.TaxCGST]),
			gst.Rupees(inv.Components[gst.TaxSGST]),
			gst.Rupees(inv.Components[gst.TaxIGST]),
			gst.Rupees(inv.TotalValue),
			status,
			outcome.SkipReason,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(registerSheet, cell, &row); err != nil {
			return err
		}
	}

	return nil
}

func (w *RegisterWriter) writeSummary(f *excelize.File, result *convert.Result) error {
	s := result.Summary
	rows := [][]interface{}{
		{"Run ID", s.RunID},
		{"Company", s.CompanyName},
		{"Vendor ledgers", s.VendorLedgers},
		{"Tax ledgers", s.TaxLedgers},
		{"Invoices parsed", s.InvoicesParsed},
		{"Invoices emitted", s.InvoicesEmitted},
		{"Invoices skipped", s.InvoicesSkipped},
		{"Warnings", len(s.Warnings)},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	warningStart := len(rows) + 2
	for i, warning := range s.Warnings {
		cell := fmt.Sprintf("A%d", warningStart+i)
		row := []interface{}{warning}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	return nil
}
