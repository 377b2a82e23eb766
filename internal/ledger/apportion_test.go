package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tallytools/internal/gst"
)

func testInvoice(pos string, components map[gst.TaxType]int64) gst.InvoiceRecord {
	return gst.InvoiceRecord{
		VendorKey:     "27AAPFU0939F1ZV",
		Number:        "INV-001",
		Date:          time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		TaxableValue:  100000,
		Components:    components,
		PlaceOfSupply: pos,
		TotalValue:    100000 + sum(components),
	}
}

func sum(components map[gst.TaxType]int64) int64 {
	var total int64
	for _, amount := range components {
		total += amount
	}
	return total
}

func TestApportionIntraState(t *testing.T) {
	a := NewApportioner("27")

	result, err := a.Apportion(testInvoice("27", map[gst.TaxType]int64{
		gst.TaxCGST: 9000,
		gst.TaxSGST: 9000,
	}))
	require.NoError(t, err)

	assert.Equal(t, RegimeIntraState, result.Regime)
	require.Len(t, result.Lines, 2)
	assert.Equal(t, gst.TaxCGST, result.Lines[0].Type, "lines come in fixed CGST, SGST, IGST order")
	assert.Equal(t, gst.TaxSGST, result.Lines[1].Type)
	assert.Empty(t, result.Warnings)
}

func TestApportionInterState(t *testing.T) {
	a := NewApportioner("27")

	result, err := a.Apportion(testInvoice("29", map[gst.TaxType]int64{
		gst.TaxIGST: 18000,
	}))
	require.NoError(t, err)

	assert.Equal(t, RegimeInterState, result.Regime)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, gst.TaxIGST, result.Lines[0].Type)
	assert.Equal(t, int64(18000), result.Lines[0].Amount)
	assert.Empty(t, result.Warnings)
}

func TestApportionNoComponents(t *testing.T) {
	a := NewApportioner("27")

	_, err := a.Apportion(testInvoice("27", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoTaxComponents)

	var appErr *ApportionmentError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INV-001", appErr.InvoiceNumber)
}

func TestApportionZeroRatedInvoice(t *testing.T) {
	a := NewApportioner("27")

	inv := testInvoice("27", nil)
	inv.TaxableValue = 0
	inv.TotalValue = 0

	result, err := a.Apportion(inv)
	require.NoError(t, err, "zero taxable value with no components is not an error")
	assert.Empty(t, result.Lines)
}

func TestApportionRegimeWarnings(t *testing.T) {
	a := NewApportioner("27")

	// IGST on an intra-state supply.
	result, err := a.Apportion(testInvoice("27", map[gst.TaxType]int64{gst.TaxIGST: 18000}))
	require.NoError(t, err)
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "IGST present on an intra-state supply")
	assert.Contains(t, result.Warnings[1], "expects both CGST and SGST")
	require.Len(t, result.Lines, 1, "components pass through unchanged despite warnings")

	// CGST/SGST on an inter-state supply.
	result, err = a.Apportion(testInvoice("29", map[gst.TaxType]int64{
		gst.TaxCGST: 9000,
		gst.TaxSGST: 9000,
	}))
	require.NoError(t, err)
	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "CGST/SGST present on an inter-state supply")
	assert.Contains(t, result.Warnings[1], "expects IGST")

	// Uneven halves beyond tolerance.
	result, err = a.Apportion(testInvoice("27", map[gst.TaxType]int64{
		gst.TaxCGST: 9005,
		gst.TaxSGST: 8995,
	}))
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "not equal halves")

	// One paisa apart is fine.
	result, err = a.Apportion(testInvoice("27", map[gst.TaxType]int64{
		gst.TaxCGST: 9001,
		gst.TaxSGST: 9000,
	}))
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
}
