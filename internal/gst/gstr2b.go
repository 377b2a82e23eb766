package gst

import (
	"encoding/json"
	"fmt"

	"tallytools/internal/logger"
)

// gstr2bDocument mirrors the portions of the official GSTR2B JSON download
// the converter needs. The return carries B2B purchase invoices grouped by
// supplier GSTIN; amounts are invoice-level summaries in rupees.
type gstr2bDocument struct {
	Data *gstr2bData `json:"data"`
}

type gstr2bData struct {
	GSTIN        string         `json:"gstin"`
	ReturnPeriod string         `json:"rtnprd"`
	DocData      *gstr2bDocData `json:"docdata"`
}

type gstr2bDocData struct {
	B2B []gstr2bSupplier `json:"b2b"`
}

type gstr2bSupplier struct {
	CTIN      string          `json:"ctin"`
	TradeName string          `json:"trdnm"`
	Invoices  []gstr2bInvoice `json:"inv"`
}

type gstr2bInvoice struct {
	Number        string  `json:"inum"`
	Date          string  `json:"dt"`
	Value         float64 `json:"val"`
	PlaceOfSupply string  `json:"pos"`
	TaxableValue  float64 `json:"txval"`
	IGST          float64 `json:"igst"`
	CGST          float64 `json:"cgst"`
	SGST          float64 `json:"sgst"`
}

// IsGSTR2BDocument reports whether data looks like an official GSTR2B JSON
// download rather than the engine's canonical vendor/invoice shape.
func IsGSTR2BDocument(data []byte) bool {
	var probe struct {
		Data *struct {
			DocData *json.RawMessage `json:"docdata"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.Data != nil && probe.Data.DocData != nil
}

// ParseGSTR2B converts an official GSTR2B JSON download into the engine's
// record set. Structure problems (missing data/docdata sections) are hard
// errors; malformed individual suppliers or invoices are collected as
// RecordErrors while the rest of the return is still converted.
func ParseGSTR2B(data []byte) (*ConversionInput, []RecordError, error) {
	log := logger.WithComponent("gstr2b-parser")

	var doc gstr2bDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("GSTR2B input is not valid JSON: %w", err)
	}
	if doc.Data == nil {
		return nil, nil, fmt.Errorf("GSTR2B document has no 'data' section")
	}
	if doc.Data.DocData == nil {
		return nil, nil, fmt.Errorf("GSTR2B document has no 'docdata' section")
	}

	input := &ConversionInput{}
	var recErrs []RecordError

	for si, supplier := range doc.Data.DocData.B2B {
		sPath := fmt.Sprintf("docdata.b2b[%d]", si)

		gstin := NormalizeGSTIN(supplier.CTIN)
		if gstin == "" {
			recErrs = append(recErrs, RecordError{Path: sPath + ".ctin", Reason: "supplier GSTIN is required"})
			continue
		}
		if !ValidGSTIN(gstin) {
			recErrs = append(recErrs, RecordError{Path: sPath + ".ctin", Reason: fmt.Sprintf("malformed GSTIN %q", supplier.CTIN)})
			continue
		}

		legalName := supplier.TradeName
		if legalName == "" {
			// The portal omits trade names for some suppliers; fall back to
			// the GSTIN so the ledger still gets a usable display name.
			legalName = gstin
		}

		input.Vendors = append(input.Vendors, VendorRecord{
			LegalName: legalName,
			GSTIN:     gstin,
			StateCode: gstin[:2],
		})

		for ii, inv := range supplier.Invoices {
			iPath := fmt.Sprintf("%s.inv[%d]", sPath, ii)

			if inv.Number == "" {
				recErrs = append(recErrs, RecordError{Path: iPath + ".inum", Reason: "invoice number is required"})
				continue
			}
			date, err := parseDate(inv.Date)
			if err != nil {
				recErrs = append(recErrs, RecordError{Path: iPath + ".dt", Reason: err.Error()})
				continue
			}
			pos := inv.PlaceOfSupply
			if pos == "" {
				pos = gstin[:2]
			}
			if !ValidStateCode(pos) {
				recErrs = append(recErrs, RecordError{Path: iPath + ".pos", Reason: fmt.Sprintf("unknown state code %q", pos)})
				continue
			}

			record := InvoiceRecord{
				VendorKey:     gstin,
				Number:        inv.Number,
				Date:          date,
				TaxableValue:  Paise(inv.TaxableValue),
				Components:    map[TaxType]int64{},
				PlaceOfSupply: pos,
				TotalValue:    Paise(inv.Value),
			}
			if inv.CGST != 0 {
				record.Components[TaxCGST] = Paise(inv.CGST)
			}
			if inv.SGST != 0 {
				record.Components[TaxSGST] = Paise(inv.SGST)
			}
			if inv.IGST != 0 {
				record.Components[TaxIGST] = Paise(inv.IGST)
			}

			if diff, ok := record.CheckTotals(); !ok {
				recErrs = append(recErrs, RecordError{
					Path: iPath + ".val",
					Reason: fmt.Sprintf("taxable %s + tax %s does not match value %s (difference %s)",
						Rupees(record.TaxableValue), Rupees(record.ComponentTotal()), Rupees(record.TotalValue), Rupees(diff)),
				})
				continue
			}

			input.Invoices = append(input.Invoices, record)
		}
	}

	log.Info().
		Str("return_gstin", doc.Data.GSTIN).
		Str("return_period", doc.Data.ReturnPeriod).
		Int("vendors", len(input.Vendors)).
		Int("invoices", len(input.Invoices)).
		Int("record_errors", len(recErrs)).
		Msg("Parsed GSTR2B document")

	return input, recErrs, nil
}
