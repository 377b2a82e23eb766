// Package tally emits Tally import XML. Two coupled documents are produced
// per conversion: a masters document declaring ledgers, and a transactions
// document with purchase vouchers referencing those ledgers by exact name.
// Tally resolves references by name match and fails the whole import batch on
// any miss, so every name in the transactions document must appear verbatim
// in the masters document, and masters must be imported first.
package tally

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"
)

// Report names in the import envelope's request description.
const (
	reportMasters  = "All Masters"
	reportVouchers = "Vouchers"

	actionCreate = "Create"

	udfNamespace = "TallyUDF"
)

// Envelope is the root of a Tally import document.
type Envelope struct {
	XMLName xml.Name `xml:"ENVELOPE"`
	Header  Header   `xml:"HEADER"`
	Body    Body     `xml:"BODY"`
}

type Header struct {
	TallyRequest string `xml:"TALLYREQUEST"`
}

type Body struct {
	ImportData ImportData `xml:"IMPORTDATA"`
}

type ImportData struct {
	RequestDesc RequestDesc `xml:"REQUESTDESC"`
	RequestData RequestData `xml:"REQUESTDATA"`
}

type RequestDesc struct {
	ReportName      string          `xml:"REPORTNAME"`
	StaticVariables StaticVariables `xml:"STATICVARIABLES"`
}

type StaticVariables struct {
	CurrentCompany string `xml:"SVCURRENTCOMPANY"`
}

type RequestData struct {
	Messages []Message `xml:"TALLYMESSAGE"`
}

// Message is one TALLYMESSAGE element carrying either a ledger master or a
// voucher.
type Message struct {
	UDF     string        `xml:"xmlns:UDF,attr"`
	Ledger  *LedgerMaster `xml:"LEDGER,omitempty"`
	Voucher *Voucher      `xml:"VOUCHER,omitempty"`
}

// LedgerMaster declares one ledger in the masters document. Masters carry no
// balances; opening balance is always zero.
type LedgerMaster struct {
	NameAttr       string `xml:"NAME,attr"`
	Action         string `xml:"ACTION,attr"`
	Name           string `xml:"NAME"`
	Parent         string `xml:"PARENT"`
	PartyGSTIN     string `xml:"PARTYGSTIN,omitempty"`
	StateName      string `xml:"LEDSTATENAME,omitempty"`
	OpeningBalance string `xml:"OPENINGBALANCE"`
}

// Voucher is one transaction entry in the transactions document.
type Voucher struct {
	VoucherType     string        `xml:"VCHTYPE,attr"`
	Action          string        `xml:"ACTION,attr"`
	Date            string        `xml:"DATE"`
	VoucherTypeName string        `xml:"VOUCHERTYPENAME"`
	VoucherNumber   string        `xml:"VOUCHERNUMBER,omitempty"`
	PartyLedgerName string        `xml:"PARTYLEDGERNAME,omitempty"`
	Narration       string        `xml:"NARRATION,omitempty"`
	Entries         []LedgerEntry `xml:"ALLLEDGERENTRIES.LIST"`
}

// LedgerEntry is one debit or credit line within a voucher. Tally's sign
// convention: debits are deemed positive and carry a negative amount,
// credits the reverse.
type LedgerEntry struct {
	LedgerName       string `xml:"LEDGERNAME"`
	IsDeemedPositive string `xml:"ISDEEMEDPOSITIVE"`
	Amount           string `xml:"AMOUNT"`
}

// newEnvelope builds an import envelope for the given report.
func newEnvelope(reportName, companyName string, messages []Message) *Envelope {
	return &Envelope{
		Header: Header{TallyRequest: "Import Data"},
		Body: Body{
			ImportData: ImportData{
				RequestDesc: RequestDesc{
					ReportName:      reportName,
					StaticVariables: StaticVariables{CurrentCompany: companyName},
				},
				RequestData: RequestData{Messages: messages},
			},
		},
	}
}

// marshalEnvelope serializes an envelope with an XML declaration and stable
// indentation, so identical input yields byte-identical output.
func marshalEnvelope(env *Envelope) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")

	body, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	buf.Write(body)
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// tallyDate formats a date the way Tally expects voucher dates.
func tallyDate(t time.Time) string {
	return t.Format("20060102")
}
