package convert

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tallytools/internal/gst"
)

var testOptions = Options{CompanyName: "Test Co", HomeStateCode: "27"}

func canonicalInput() []byte {
	return []byte(`{
		"vendors": [
			{"legal_name": "Acme Supplies", "gstin": "27AAPFU0939F1ZV"},
			{"legal_name": "Bharat Traders", "gstin": "29AACCB1234F1Z5"}
		],
		"invoices": [
			{
				"gstin": "27AAPFU0939F1ZV",
				"number": "INV-001",
				"date": "2025-04-01",
				"taxable_value": 1000.00,
				"cgst": 90.00,
				"sgst": 90.00,
				"place_of_supply": "27",
				"total_value": 1180.00
			},
			{
				"gstin": "29AACCB1234F1Z5",
				"number": "INV-002",
				"date": "2025-04-02",
				"taxable_value": 500.00,
				"igst": 90.00,
				"place_of_supply": "29",
				"total_value": 590.00
			}
		]
	}`)
}

func TestConvertProducesCoupledDocuments(t *testing.T) {
	c := New(testOptions)

	result, err := c.Convert(canonicalInput())
	require.NoError(t, err)

	s := result.Summary
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 2, s.VendorLedgers)
	assert.Equal(t, 3, s.TaxLedgers)
	assert.Equal(t, 2, s.InvoicesParsed)
	assert.Equal(t, 2, s.InvoicesEmitted)
	assert.Zero(t, s.InvoicesSkipped)
	assert.Empty(t, s.Warnings)

	masters := string(result.MastersXML)
	assert.Contains(t, masters, "<REPORTNAME>All Masters</REPORTNAME>")
	transactions := string(result.TransactionsXML)
	assert.Contains(t, transactions, "<REPORTNAME>Vouchers</REPORTNAME>")

	assertReferentialClosure(t, result)
}

// assertReferentialClosure checks that every ledger name a voucher references
// is declared in the masters document.
func assertReferentialClosure(t *testing.T, result *Result) {
	t.Helper()

	namePattern := regexp.MustCompile(`<NAME>([^<]+)</NAME>`)
	declared := make(map[string]bool)
	for _, match := range namePattern.FindAllStringSubmatch(string(result.MastersXML), -1) {
		declared[match[1]] = true
	}

	refPattern := regexp.MustCompile(`<(?:LEDGERNAME|PARTYLEDGERNAME)>([^<]+)</(?:LEDGERNAME|PARTYLEDGERNAME)>`)
	refs := refPattern.FindAllStringSubmatch(string(result.TransactionsXML), -1)
	require.NotEmpty(t, refs)
	for _, match := range refs {
		assert.True(t, declared[match[1]], "transactions reference undeclared ledger %q", match[1])
	}
}

func TestConvertDeterministic(t *testing.T) {
	c := New(testOptions)

	first, err := c.Convert(canonicalInput())
	require.NoError(t, err)
	second, err := c.Convert(canonicalInput())
	require.NoError(t, err)

	assert.Equal(t, first.MastersXML, second.MastersXML, "masters output is byte-identical across runs")
	assert.Equal(t, first.TransactionsXML, second.TransactionsXML, "transactions output is byte-identical across runs")
	assert.NotEqual(t, first.Summary.RunID, second.Summary.RunID, "each run gets its own ID")
}

func TestConvertAutoDetectsGSTR2B(t *testing.T) {
	c := New(testOptions)

	data := []byte(`{
		"data": {
			"gstin": "27AABCU9603R1ZM",
			"rtnprd": "042025",
			"docdata": {
				"b2b": [{
					"ctin": "27AAPFU0939F1ZV",
					"trdnm": "Acme Supplies",
					"inv": [{
						"inum": "INV-001",
						"dt": "01-04-2025",
						"val": 1180.00,
						"pos": "27",
						"txval": 1000.00,
						"cgst": 90.00,
						"sgst": 90.00
					}]
				}]
			}
		}
	}`)

	result, err := c.Convert(data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.VendorLedgers)
	assert.Equal(t, 1, result.Summary.InvoicesEmitted)
	assert.Contains(t, string(result.MastersXML), "Acme Supplies")
	assertReferentialClosure(t, result)
}

func TestConvertSkipsUnapportionableInvoices(t *testing.T) {
	c := New(testOptions)

	// Second invoice has a taxable value but no tax components at all.
	data := []byte(`{
		"vendors": [{"legal_name": "Acme Supplies", "gstin": "27AAPFU0939F1ZV"}],
		"invoices": [
			{
				"gstin": "27AAPFU0939F1ZV",
				"number": "GOOD-1",
				"date": "2025-04-01",
				"taxable_value": 1000.00,
				"cgst": 90.00,
				"sgst": 90.00,
				"place_of_supply": "27",
				"total_value": 1180.00
			},
			{
				"gstin": "27AAPFU0939F1ZV",
				"number": "NOTAX-1",
				"date": "2025-04-02",
				"taxable_value": 200.00,
				"place_of_supply": "27",
				"total_value": 200.00
			}
		]
	}`)

	result, err := c.Convert(data)
	require.NoError(t, err, "partial failure does not abort the run")

	s := result.Summary
	assert.Equal(t, 2, s.InvoicesParsed)
	assert.Equal(t, 1, s.InvoicesEmitted)
	assert.Equal(t, 1, s.InvoicesSkipped)
	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "NOTAX-1")

	require.Len(t, result.Outcomes, 2)
	assert.True(t, result.Outcomes[0].Emitted)
	assert.False(t, result.Outcomes[1].Emitted)
	assert.NotEmpty(t, result.Outcomes[1].SkipReason)

	assert.NotContains(t, string(result.TransactionsXML), "NOTAX-1")
	assertReferentialClosure(t, result)
}

func TestConvertCountsParseRejectedInvoices(t *testing.T) {
	c := New(testOptions)

	data := []byte(`{
		"vendors": [{"legal_name": "Acme Supplies", "gstin": "27AAPFU0939F1ZV"}],
		"invoices": [
			{
				"gstin": "27AAPFU0939F1ZV",
				"number": "GOOD-1",
				"date": "2025-04-01",
				"taxable_value": 1000.00,
				"cgst": 90.00,
				"sgst": 90.00,
				"place_of_supply": "27",
				"total_value": 1180.00
			},
			{
				"gstin": "27AAPFU0939F1ZV",
				"number": "",
				"date": "not-a-date",
				"taxable_value": 100.00,
				"total_value": 100.00
			}
		]
	}`)

	result, err := c.Convert(data)
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, 1, s.InvoicesParsed, "rejected records never reach the pipeline")
	assert.Equal(t, 1, s.InvoicesEmitted)
	assert.Equal(t, 1, s.InvoicesSkipped, "multiple errors on one record count as one skipped invoice")
	assert.NotEmpty(t, s.Warnings)
}

func TestConvertEmptyInput(t *testing.T) {
	c := New(testOptions)

	_, err := c.Convert([]byte(`{"vendors": [], "invoices": []}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = c.Convert([]byte(`{"vendors": [{"legal_name": "", "gstin": "bad"}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyInput, "all-invalid input is a total failure")

	_, err = c.Convert([]byte(`{malformed`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestConvertRecords(t *testing.T) {
	c := New(testOptions)

	input := &gst.ConversionInput{
		Vendors: []gst.VendorRecord{
			{LegalName: "Acme Supplies", GSTIN: "27AAPFU0939F1ZV", StateCode: "27"},
		},
		Invoices: []gst.InvoiceRecord{
			{
				VendorKey:     "27AAPFU0939F1ZV",
				Number:        "INV-001",
				Date:          time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
				TaxableValue:  100000,
				Components:    map[gst.TaxType]int64{gst.TaxIGST: 18000},
				PlaceOfSupply: "29",
				TotalValue:    118000,
			},
		},
	}

	result, err := c.ConvertRecords(input)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.InvoicesEmitted)
	assert.Contains(t, string(result.MastersXML), "Input IGST")
	assertReferentialClosure(t, result)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(42)", State(42).String())
}
