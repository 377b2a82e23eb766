package ledger

import (
	"fmt"

	"github.com/rs/zerolog"
	"tallytools/internal/gst"
	"tallytools/internal/logger"
)

// TaxRegime identifies which side of the intra/inter-state split an invoice
// falls on, based on its place of supply versus the company's home state.
type TaxRegime string

const (
	RegimeIntraState TaxRegime = "intra-state" // CGST + SGST
	RegimeInterState TaxRegime = "inter-state" // IGST
)

// TaxLine is one apportioned tax amount destined for a tax ledger debit.
type TaxLine struct {
	Type   gst.TaxType
	Amount int64
}

// Apportionment is the result of splitting one invoice's tax amounts across
// tax types. Warnings flag regime mismatches and uneven CGST/SGST halves;
// they do not block emission, which proceeds with the components as stated
// in the source data.
type Apportionment struct {
	Regime   TaxRegime
	Lines    []TaxLine
	Warnings []string
}

// Apportioner decides the tax regime per invoice and validates the
// components against it.
type Apportioner struct {
	homeState string
	log       zerolog.Logger
}

// NewApportioner creates an apportioner for the given home state code.
func NewApportioner(homeStateCode string) *Apportioner {
	return &Apportioner{
		homeState: homeStateCode,
		log:       logger.WithComponent("tax-apportioner"),
	}
}

// Apportion determines the tax regime for an invoice and returns its tax
// lines in a fixed order (CGST, SGST, IGST) so voucher output is stable.
//
// It fails only when the invoice carries a taxable value but no tax
// components at all; every other irregularity is reported as a warning and
// the components present are passed through unchanged.
func (a *Apportioner) Apportion(inv gst.InvoiceRecord) (*Apportionment, error) {
	const op = "Apportion"

	regime := RegimeInterState
	if inv.PlaceOfSupply == a.homeState {
		regime = RegimeIntraState
	}

	if len(inv.Components) == 0 {
		if inv.TaxableValue != 0 {
			return nil, NewApportionmentError(op, inv.Number, ErrNoTaxComponents)
		}
		// Zero-rated invoice: nothing to apportion.
		return &Apportionment{Regime: regime}, nil
	}

	result := &Apportionment{Regime: regime}
	for _, taxType := range []gst.TaxType{gst.TaxCGST, gst.TaxSGST, gst.TaxIGST} {
		if amount, ok := inv.Components[taxType]; ok {
			result.Lines = append(result.Lines, TaxLine{Type: taxType, Amount: amount})
		}
	}

	result.Warnings = a.checkRegime(inv, regime)

	a.log.Debug().
		Str("invoice", inv.Number).
		Str("regime", string(regime)).
		Int("tax_lines", len(result.Lines)).
		Int("warnings", len(result.Warnings)).
		Msg("Apportioned invoice tax components")

	return result, nil
}

// checkRegime validates the components against the expected regime.
func (a *Apportioner) checkRegime(inv gst.InvoiceRecord, regime TaxRegime) []string {
	var warnings []string

	cgst, hasCGST := inv.Components[gst.TaxCGST]
	sgst, hasSGST := inv.Components[gst.TaxSGST]
	_, hasIGST := inv.Components[gst.TaxIGST]

	switch regime {
	case RegimeIntraState:
		if hasIGST {
			warnings = append(warnings, fmt.Sprintf(
				"invoice %s: IGST present on an intra-state supply (place of supply %s)", inv.Number, inv.PlaceOfSupply))
		}
		if !hasCGST || !hasSGST {
			warnings = append(warnings, fmt.Sprintf(
				"invoice %s: intra-state supply expects both CGST and SGST", inv.Number))
		} else if diff := cgst - sgst; diff > gst.AmountTolerance || diff < -gst.AmountTolerance {
			// Source-level rounding can split the halves unevenly; report it
			// but keep the stated amounts.
			warnings = append(warnings, fmt.Sprintf(
				"invoice %s: CGST %s and SGST %s are not equal halves", inv.Number, gst.Rupees(cgst), gst.Rupees(sgst)))
		}
	case RegimeInterState:
		if hasCGST || hasSGST {
			warnings = append(warnings, fmt.Sprintf(
				"invoice %s: CGST/SGST present on an inter-state supply (place of supply %s)", inv.Number, inv.PlaceOfSupply))
		}
		if !hasIGST {
			warnings = append(warnings, fmt.Sprintf(
				"invoice %s: inter-state supply expects IGST", inv.Number))
		}
	}

	return warnings
}
