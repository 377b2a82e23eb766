package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	plain := `{"transactions": []}`
	assert.Equal(t, plain, stripCodeFence(plain))
	assert.Equal(t, plain, stripCodeFence("```json\n"+plain+"\n```"))
	assert.Equal(t, plain, stripCodeFence("```\n"+plain+"\n```"))
	assert.Equal(t, plain, stripCodeFence("  \n"+plain+"\n  "))
}

func TestParseStatementAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1,23,456.78", 12345678},
		{"1180.50", 118050},
		{"₹ 500.00", 50000},
		{"Rs. 500.00", 50000},
		{"250.00 Dr", 25000},
		{"250.00 Cr", 25000},
		{"", 0},
		{"-", 0},
	}
	for _, tc := range cases {
		got, err := parseStatementAmount(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}

	_, err := parseStatementAmount("not-a-number")
	assert.Error(t, err)
	_, err = parseStatementAmount("-100.00")
	assert.Error(t, err, "negative amounts are rejected, debits use the debit column")
}

func TestParseStatementDate(t *testing.T) {
	want := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"01-04-2025", "01/04/2025", "2025-04-01", "01 Apr 2025", "01-Apr-2025"} {
		got, err := parseStatementDate(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := parseStatementDate("")
	assert.Error(t, err)
	_, err = parseStatementDate("April the first")
	assert.Error(t, err)
}

func TestConvertRows(t *testing.T) {
	e := &ChatGPTStatementExtractor{config: StatementConfig{}}

	rows := []statementRow{
		{Date: "01-04-2025", Narration: " NEFT to supplier ", Debit: "2,500.00", Balance: "10,000.00", Reference: "CHQ-42"},
		{Date: "02-04-2025", Narration: "Customer receipt", Credit: "5,000.00"},
		{Date: "bad date", Narration: "Broken row", Debit: "100.00"},
		{Date: "03-04-2025", Narration: "No amounts"},
		{Date: "04-04-2025", Narration: "Both sides", Debit: "100.00", Credit: "100.00"},
	}

	transactions, warnings := e.convertRows(rows)
	require.Len(t, transactions, 2)
	assert.Len(t, warnings, 3)

	first := transactions[0]
	assert.Equal(t, "NEFT to supplier", first.Narration)
	assert.Equal(t, int64(250000), first.Debit)
	assert.Equal(t, int64(1000000), first.Balance)
	assert.Equal(t, "CHQ-42", first.Reference)
	assert.True(t, first.IsOutgoing())

	second := transactions[1]
	assert.Equal(t, int64(500000), second.Credit)
	assert.True(t, second.IsIncoming())
}
