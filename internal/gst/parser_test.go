package gst

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConversionInput(t *testing.T) {
	data := []byte(`{
		"vendors": [
			{"legal_name": "Acme Supplies", "gstin": "27AAPFU0939F1ZV"},
			{"legal_name": "Bharat Traders", "gstin": "29AACCB1234F1Z5", "state_code": "29"}
		],
		"invoices": [
			{
				"gstin": "27AAPFU0939F1ZV",
				"number": "INV-001",
				"date": "2025-04-01",
				"taxable_value": 1000.00,
				"cgst": 90.00,
				"sgst": 90.00,
				"total_value": 1180.00
			},
			{
				"gstin": "29AACCB1234F1Z5",
				"number": "INV-002",
				"date": "15-04-2025",
				"taxable_value": 500.00,
				"igst": 90.00,
				"place_of_supply": "29",
				"total_value": 590.00
			}
		]
	}`)

	input, recErrs, err := ParseConversionInput(data)
	require.NoError(t, err)
	assert.Empty(t, recErrs)
	require.Len(t, input.Vendors, 2)
	require.Len(t, input.Invoices, 2)

	assert.Equal(t, "Acme Supplies", input.Vendors[0].LegalName)
	assert.Equal(t, "27", input.Vendors[0].StateCode, "state code defaults from GSTIN prefix")

	first := input.Invoices[0]
	assert.Equal(t, "27AAPFU0939F1ZV", first.VendorKey)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, int64(100000), first.TaxableValue)
	assert.Equal(t, int64(9000), first.Components[TaxCGST])
	assert.Equal(t, int64(9000), first.Components[TaxSGST])
	assert.Equal(t, "27", first.PlaceOfSupply, "place of supply defaults to vendor state")

	second := input.Invoices[1]
	assert.Equal(t, time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), second.Date, "dd-mm-yyyy dates accepted")
	assert.Equal(t, int64(9000), second.Components[TaxIGST])
	assert.NotContains(t, second.Components, TaxCGST, "zero components are omitted")
}

func TestParseConversionInputPartialTolerance(t *testing.T) {
	data := []byte(`{
		"vendors": [
			{"legal_name": "Good Vendor", "gstin": "27AAPFU0939F1ZV"},
			{"legal_name": "", "gstin": "29AACCB1234F1Z5"},
			{"legal_name": "Bad GSTIN Vendor", "gstin": "NOT-A-GSTIN"}
		],
		"invoices": [
			{
				"gstin": "27AAPFU0939F1ZV",
				"number": "OK-1",
				"date": "2025-04-01",
				"taxable_value": 100.00,
				"igst": 18.00,
				"place_of_supply": "29",
				"total_value": 118.00
			},
			{
				"gstin": "27AAPFU0939F1ZV",
				"number": "",
				"date": "2025-04-01",
				"taxable_value": 100.00,
				"total_value": 118.00
			},
			{
				"gstin": "29AACCB1234F1Z5",
				"number": "ORPHAN-1",
				"date": "2025-04-01",
				"taxable_value": 100.00,
				"total_value": 100.00
			}
		]
	}`)

	input, recErrs, err := ParseConversionInput(data)
	require.NoError(t, err, "record-level problems never fail the parse")

	require.Len(t, input.Vendors, 1, "only the valid vendor survives")
	require.Len(t, input.Invoices, 1, "only the valid invoice survives")
	assert.Equal(t, "OK-1", input.Invoices[0].Number)

	paths := make([]string, 0, len(recErrs))
	for _, recErr := range recErrs {
		paths = append(paths, recErr.Path)
	}
	assert.Contains(t, paths, "vendors[1].legal_name")
	assert.Contains(t, paths, "vendors[2].gstin")
	assert.Contains(t, paths, "invoices[1].number")
	assert.Contains(t, paths, "invoices[2].gstin", "invoice referencing a rejected vendor is itself rejected")
}

func TestParseConversionInputMissingAmounts(t *testing.T) {
	data := []byte(`{
		"vendors": [{"legal_name": "Acme", "gstin": "27AAPFU0939F1ZV"}],
		"invoices": [{"gstin": "27AAPFU0939F1ZV", "number": "X-1", "date": "2025-04-01"}]
	}`)

	input, recErrs, err := ParseConversionInput(data)
	require.NoError(t, err)
	assert.Empty(t, input.Invoices)

	reasons := make([]string, 0, len(recErrs))
	for _, recErr := range recErrs {
		reasons = append(reasons, recErr.Reason)
	}
	assert.Contains(t, reasons, "taxable value is required", "absent amount is distinct from explicit zero")
	assert.Contains(t, reasons, "total value is required")
}

func TestParseConversionInputTotalsMismatch(t *testing.T) {
	data := []byte(`{
		"vendors": [{"legal_name": "Acme", "gstin": "27AAPFU0939F1ZV"}],
		"invoices": [{
			"gstin": "27AAPFU0939F1ZV",
			"number": "BAD-1",
			"date": "2025-04-01",
			"taxable_value": 1000.00,
			"cgst": 90.00,
			"sgst": 90.00,
			"total_value": 1200.00
		}]
	}`)

	input, recErrs, err := ParseConversionInput(data)
	require.NoError(t, err)
	assert.Empty(t, input.Invoices, "totals mismatch beyond tolerance rejects the record")
	require.Len(t, recErrs, 1)
	assert.Equal(t, "invoices[0].total_value", recErrs[0].Path)
}

func TestParseConversionInputBadJSON(t *testing.T) {
	_, _, err := ParseConversionInput([]byte("{not json"))
	assert.Error(t, err, "an unreadable document is a hard error")
}
