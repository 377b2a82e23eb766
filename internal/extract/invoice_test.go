package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tallytools/internal/gst"
)

func TestFindGSTINInText(t *testing.T) {
	text := "Tax Invoice\nSupplier: Acme Supplies\nGSTIN: 27AAPFU0939F1ZV\nDate: 01-04-2025"
	assert.Equal(t, "27AAPFU0939F1ZV", findGSTINInText(text))

	assert.Equal(t, "27AAPFU0939F1ZV", findGSTINInText("gstin 27aapfu0939f1zv"), "matching is case-insensitive")
	assert.Equal(t, "", findGSTINInText("no identifiers here"))
	assert.Equal(t, "", findGSTINInText("almost 27AAPFU0939F1Z but short"))
}

func TestFindTaxComponents(t *testing.T) {
	text := `Taxable Value: 1,000.00
CGST @9%: 90.00
SGST @9%: 90.00
Total: 1,180.00`

	cgst, sgst, igst, found := findTaxComponents(text)
	require.True(t, found)
	assert.Equal(t, int64(9000), cgst)
	assert.Equal(t, int64(9000), sgst)
	assert.Zero(t, igst)

	cgst, sgst, igst, found = findTaxComponents("IGST 18%: 1,800.00")
	require.True(t, found)
	assert.Zero(t, cgst)
	assert.Zero(t, sgst)
	assert.Equal(t, int64(180000), igst)

	_, _, _, found = findTaxComponents("no tax lines at all")
	assert.False(t, found)
}

func TestAssignComponents(t *testing.T) {
	p := &DocumentAIInvoiceExtractor{config: InvoiceConfig{HomeStateCode: "27"}}

	// Printed components win over the state split.
	inv := &gst.InvoiceRecord{Components: make(map[gst.TaxType]int64)}
	p.assignComponents("CGST: 90.00 SGST: 90.00", inv, &gst.VendorRecord{StateCode: "29"}, 18000)
	assert.Equal(t, int64(9000), inv.Components[gst.TaxCGST])
	assert.Equal(t, int64(9000), inv.Components[gst.TaxSGST])
	assert.NotContains(t, inv.Components, gst.TaxIGST)

	// Same-state supplier splits the tax total into equal halves.
	inv = &gst.InvoiceRecord{Components: make(map[gst.TaxType]int64)}
	p.assignComponents("no printed tax lines", inv, &gst.VendorRecord{StateCode: "27"}, 18001)
	assert.Equal(t, int64(9000), inv.Components[gst.TaxCGST])
	assert.Equal(t, int64(9001), inv.Components[gst.TaxSGST], "odd paisa goes to SGST")

	// Other-state supplier posts the whole amount as IGST.
	inv = &gst.InvoiceRecord{Components: make(map[gst.TaxType]int64)}
	p.assignComponents("no printed tax lines", inv, &gst.VendorRecord{StateCode: "29"}, 18000)
	assert.Equal(t, int64(18000), inv.Components[gst.TaxIGST])
	assert.NotContains(t, inv.Components, gst.TaxCGST)

	// No tax at all leaves the components empty.
	inv = &gst.InvoiceRecord{Components: make(map[gst.TaxType]int64)}
	p.assignComponents("", inv, &gst.VendorRecord{StateCode: "27"}, 0)
	assert.Empty(t, inv.Components)
}
