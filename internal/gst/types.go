package gst

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// TaxType identifies a GST tax component on a purchase invoice.
type TaxType string

const (
	TaxCGST TaxType = "CGST"
	TaxSGST TaxType = "SGST"
	TaxIGST TaxType = "IGST"
)

// AmountTolerance is the rounding tolerance, in paise, allowed between an
// invoice's stated total and the sum of its taxable value and tax components.
// Differences beyond this are treated as data errors, never silently corrected.
const AmountTolerance int64 = 1

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{13}$`)

// VendorRecord is one supplier from the purchase return. Immutable once parsed.
type VendorRecord struct {
	LegalName string
	GSTIN     string
	StateCode string
}

// Key returns the vendor's identity key: the GSTIN upper-cased with all
// whitespace stripped. Two records with the same key are the same vendor.
func (v VendorRecord) Key() string {
	return NormalizeGSTIN(v.GSTIN)
}

// InvoiceRecord is one purchase invoice. All amounts are in paise.
type InvoiceRecord struct {
	VendorKey     string
	Number        string
	Date          time.Time
	TaxableValue  int64
	Components    map[TaxType]int64
	PlaceOfSupply string
	TotalValue    int64
}

// ComponentTotal returns the sum of all tax components in paise.
func (i InvoiceRecord) ComponentTotal() int64 {
	var sum int64
	for _, amount := range i.Components {
		sum += amount
	}
	return sum
}

// CheckTotals verifies taxable value + tax components == total value within
// AmountTolerance. It returns the signed difference (stated - computed).
func (i InvoiceRecord) CheckTotals() (int64, bool) {
	diff := i.TotalValue - (i.TaxableValue + i.ComponentTotal())
	if diff < 0 {
		return diff, -diff <= AmountTolerance
	}
	return diff, diff <= AmountTolerance
}

// ConversionInput is the validated record set the conversion engine consumes.
type ConversionInput struct {
	Vendors  []VendorRecord
	Invoices []InvoiceRecord
}

// RecordError describes one malformed input record. Parsing is
// partial-tolerant: these are collected per record and reported alongside the
// records that did parse.
type RecordError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e RecordError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// NormalizeGSTIN upper-cases a GSTIN and strips all whitespace.
func NormalizeGSTIN(gstin string) string {
	return strings.ToUpper(strings.Join(strings.Fields(gstin), ""))
}

// ValidGSTIN reports whether gstin looks like a well-formed registration
// identifier after normalization (two-digit state code plus 13 characters).
func ValidGSTIN(gstin string) bool {
	return gstinPattern.MatchString(NormalizeGSTIN(gstin))
}

// Paise converts a rupee amount to paise, rounding to the nearest paisa.
func Paise(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}

// Rupees formats a paise amount as a rupee string with two decimals,
// e.g. 118050 -> "1180.50".
func Rupees(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s%d.%02d", sign, paise/100, paise%100)
}
