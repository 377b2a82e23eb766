package gst

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tallytools/internal/logger"
)

// rawInput mirrors the engine's canonical JSON shape. Unknown fields are
// ignored; every known field is validated per record.
type rawInput struct {
	Vendors  []rawVendor  `json:"vendors"`
	Invoices []rawInvoice `json:"invoices"`
}

type rawVendor struct {
	LegalName string `json:"legal_name"`
	GSTIN     string `json:"gstin"`
	StateCode string `json:"state_code"`
}

type rawInvoice struct {
	GSTIN         string   `json:"gstin"`
	Number        string   `json:"number"`
	Date          string   `json:"date"`
	TaxableValue  *float64 `json:"taxable_value"`
	CGST          float64  `json:"cgst"`
	SGST          float64  `json:"sgst"`
	IGST          float64  `json:"igst"`
	PlaceOfSupply string   `json:"place_of_supply"`
	TotalValue    *float64 `json:"total_value"`
}

// dateFormats lists the invoice date layouts accepted on input. GST portal
// exports use dd-mm-yyyy; the engine's own JSON uses ISO dates.
var dateFormats = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

// ParseConversionInput parses the canonical vendor/invoice JSON document.
//
// Parsing is partial-tolerant: malformed records are reported in the returned
// RecordError slice (one entry per problem, with a field path) while valid
// records are still returned. Only a structurally unreadable document is a
// hard error.
func ParseConversionInput(data []byte) (*ConversionInput, []RecordError, error) {
	log := logger.WithComponent("gst-parser")

	var raw rawInput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("input is not valid JSON: %w", err)
	}

	input := &ConversionInput{}
	var recErrs []RecordError

	vendorKeys := make(map[string]bool)
	for i, rv := range raw.Vendors {
		vendor, errs := parseVendor(rv, fmt.Sprintf("vendors[%d]", i))
		if len(errs) > 0 {
			recErrs = append(recErrs, errs...)
			continue
		}
		input.Vendors = append(input.Vendors, vendor)
		vendorKeys[vendor.Key()] = true
	}

	for i, ri := range raw.Invoices {
		inv, errs := parseInvoice(ri, fmt.Sprintf("invoices[%d]", i), vendorKeys)
		if len(errs) > 0 {
			recErrs = append(recErrs, errs...)
			continue
		}
		input.Invoices = append(input.Invoices, inv)
	}

	log.Info().
		Int("vendors", len(input.Vendors)).
		Int("invoices", len(input.Invoices)).
		Int("record_errors", len(recErrs)).
		Msg("Parsed conversion input")

	return input, recErrs, nil
}

func parseVendor(rv rawVendor, path string) (VendorRecord, []RecordError) {
	var errs []RecordError

	if strings.TrimSpace(rv.LegalName) == "" {
		errs = append(errs, RecordError{Path: path + ".legal_name", Reason: "legal name is required"})
	}
	gstin := NormalizeGSTIN(rv.GSTIN)
	switch {
	case gstin == "":
		errs = append(errs, RecordError{Path: path + ".gstin", Reason: "GSTIN is required"})
	case !ValidGSTIN(gstin):
		errs = append(errs, RecordError{Path: path + ".gstin", Reason: fmt.Sprintf("malformed GSTIN %q", rv.GSTIN)})
	}

	stateCode := strings.TrimSpace(rv.StateCode)
	if stateCode == "" && len(gstin) >= 2 {
		stateCode = gstin[:2]
	}
	if stateCode != "" && !ValidStateCode(stateCode) {
		errs = append(errs, RecordError{Path: path + ".state_code", Reason: fmt.Sprintf("unknown state code %q", stateCode)})
	}

	if len(errs) > 0 {
		return VendorRecord{}, errs
	}
	return VendorRecord{
		LegalName: strings.TrimSpace(rv.LegalName),
		GSTIN:     gstin,
		StateCode: stateCode,
	}, nil
}

func parseInvoice(ri rawInvoice, path string, vendorKeys map[string]bool) (InvoiceRecord, []RecordError) {
	var errs []RecordError

	key := NormalizeGSTIN(ri.GSTIN)
	switch {
	case key == "":
		errs = append(errs, RecordError{Path: path + ".gstin", Reason: "vendor GSTIN is required"})
	case !vendorKeys[key]:
		errs = append(errs, RecordError{Path: path + ".gstin", Reason: fmt.Sprintf("no vendor with GSTIN %q", key)})
	}

	if strings.TrimSpace(ri.Number) == "" {
		errs = append(errs, RecordError{Path: path + ".number", Reason: "invoice number is required"})
	}

	date, err := parseDate(ri.Date)
	if err != nil {
		errs = append(errs, RecordError{Path: path + ".date", Reason: err.Error()})
	}

	if ri.TaxableValue == nil {
		errs = append(errs, RecordError{Path: path + ".taxable_value", Reason: "taxable value is required"})
	}
	if ri.TotalValue == nil {
		errs = append(errs, RecordError{Path: path + ".total_value", Reason: "total value is required"})
	}

	pos := strings.TrimSpace(ri.PlaceOfSupply)
	if pos == "" && len(key) >= 2 {
		// Place of supply defaults to the vendor's registration state.
		pos = key[:2]
	}
	if pos != "" && !ValidStateCode(pos) {
		errs = append(errs, RecordError{Path: path + ".place_of_supply", Reason: fmt.Sprintf("unknown state code %q", pos)})
	}

	if len(errs) > 0 {
		return InvoiceRecord{}, errs
	}

	inv := InvoiceRecord{
		VendorKey:     key,
		Number:        strings.TrimSpace(ri.Number),
		Date:          date,
		TaxableValue:  Paise(*ri.TaxableValue),
		Components:    map[TaxType]int64{},
		PlaceOfSupply: pos,
		TotalValue:    Paise(*ri.TotalValue),
	}
	if ri.CGST != 0 {
		inv.Components[TaxCGST] = Paise(ri.CGST)
	}
	if ri.SGST != 0 {
		inv.Components[TaxSGST] = Paise(ri.SGST)
	}
	if ri.IGST != 0 {
		inv.Components[TaxIGST] = Paise(ri.IGST)
	}

	if diff, ok := inv.CheckTotals(); !ok {
		errs = append(errs, RecordError{
			Path: path + ".total_value",
			Reason: fmt.Sprintf("taxable %s + tax %s does not match total %s (difference %s)",
				Rupees(inv.TaxableValue), Rupees(inv.ComponentTotal()), Rupees(inv.TotalValue), Rupees(diff)),
		})
		return InvoiceRecord{}, errs
	}

	return inv, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("invoice date is required")
	}
	for _, layout := range dateFormats {
		if date, err := time.Parse(layout, value); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date %q", value)
}
