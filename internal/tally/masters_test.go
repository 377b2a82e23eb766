package tally

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tallytools/internal/ledger"
)

func TestEmitMastersDocument(t *testing.T) {
	e := NewMastersEmitter("Test Co")

	entities := []*ledger.Entity{
		{
			Kind:      ledger.KindVendor,
			Key:       "27AAPFU0939F1ZV",
			Name:      "Acme Supplies",
			Group:     ledger.GroupSundryCreditors,
			GSTIN:     "27AAPFU0939F1ZV",
			StateName: "Maharashtra",
		},
		{Kind: ledger.KindPurchase, Key: ledger.PurchaseLedgerName, Name: ledger.PurchaseLedgerName, Group: ledger.GroupPurchaseAccounts},
		{Kind: ledger.KindTax, Key: "CGST", Name: "Input CGST", Group: ledger.GroupDutiesAndTaxes},
	}

	out, err := e.Emit(entities)
	require.NoError(t, err)

	doc := string(out)
	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, doc, "<REPORTNAME>All Masters</REPORTNAME>")
	assert.Contains(t, doc, "<SVCURRENTCOMPANY>Test Co</SVCURRENTCOMPANY>")

	assert.Contains(t, doc, `<LEDGER NAME="Acme Supplies" ACTION="Create">`)
	assert.Contains(t, doc, "<NAME>Acme Supplies</NAME>")
	assert.Contains(t, doc, "<PARENT>Sundry Creditors</PARENT>")
	assert.Contains(t, doc, "<PARTYGSTIN>27AAPFU0939F1ZV</PARTYGSTIN>")
	assert.Contains(t, doc, "<LEDSTATENAME>Maharashtra</LEDSTATENAME>")
	assert.Contains(t, doc, "<OPENINGBALANCE>0</OPENINGBALANCE>")

	assert.Contains(t, doc, "<PARENT>Purchase Accounts</PARENT>")
	assert.Contains(t, doc, "<PARENT>Duties &amp; Taxes</PARENT>")

	// Non-vendor ledgers carry no GSTIN or state.
	purchaseIdx := strings.Index(doc, `<LEDGER NAME="Purchases"`)
	require.Greater(t, purchaseIdx, 0)
	assert.NotContains(t, doc[purchaseIdx:], "<PARTYGSTIN>")

	// Entity order is preserved.
	assert.Less(t, strings.Index(doc, "Acme Supplies"), strings.Index(doc, "Purchases"))
	assert.Less(t, strings.Index(doc, "Purchases"), strings.Index(doc, "Input CGST"))

	again, err := e.Emit(entities)
	require.NoError(t, err)
	assert.Equal(t, out, again, "identical input yields byte-identical output")
}

func TestEmitMastersEmpty(t *testing.T) {
	e := NewMastersEmitter("Test Co")

	out, err := e.Emit(nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), "<REPORTNAME>All Masters</REPORTNAME>")
	assert.NotContains(t, string(out), "<LEDGER ")
}
