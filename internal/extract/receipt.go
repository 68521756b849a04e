package extract

import (
	"fmt"

	"estratto/internal/core"

	"github.com/shopspring/decimal"
)

// Marker strings for the known receipt layout. Field boundaries have
// shifted between format revisions, so every value is located by its
// surrounding label text rather than by position.
const (
	MarkerAmount   = "Transferred Amount:"
	MarkerDateTime = "Payment Date:"
	MarkerReason   = "Purpose:"
	MarkerTotal    = "Total Amount Debited:"
	MarkerBalance  = "Balance After Transaction:"
	LabelPayer     = "Payer"
	LabelReceiver  = "Receiver"

	lineEnd = "\n"
)

// Receipt is the field set extracted from one receipt document. A nil
// field means its anchor was absent or its content unparsable.
type Receipt struct {
	Amount      *decimal.Decimal
	Date        *core.Date
	Time        *string
	Payer       *string
	Receiver    *string
	Reason      *string
	TotalAmount *decimal.Decimal
	Balance     *decimal.Decimal
}

// HasData reports whether any field was extracted at all. A receipt with
// no recognizable field yields no transaction.
func (r Receipt) HasData() bool {
	return r.Amount != nil ||
		r.Date != nil ||
		r.Time != nil ||
		r.Payer != nil ||
		r.Receiver != nil ||
		r.Reason != nil ||
		r.TotalAmount != nil ||
		r.Balance != nil
}

// ParseReceipt runs anchor extraction over a receipt document. Missing
// anchors are silent nulls; anchors whose content fails to parse produce
// diagnostics (MessageIndex left for the caller to stamp) but never abort
// the receipt.
func ParseReceipt(text string) (Receipt, []core.Diagnostic) {
	var (
		receipt Receipt
		diags   []core.Diagnostic
	)

	receipt.Amount = numericField(text, MarkerAmount, &diags)
	receipt.TotalAmount = numericField(text, MarkerTotal, &diags)
	receipt.Balance = numericField(text, MarkerBalance, &diags)

	if raw, ok := lineValue(text, MarkerDateTime); ok {
		date, clock, err := NormalizeDateTime(raw)
		if err != nil {
			diags = append(diags, core.Diagnostic{Stage: core.StageDate, Detail: err.Error()})
		} else {
			receipt.Date = date
			receipt.Time = clock
		}
	}

	if reason, ok := lineValue(text, MarkerReason); ok && reason != "" {
		receipt.Reason = &reason
	}
	if payer, ok := Party(text, LabelPayer); ok {
		receipt.Payer = &payer
	}
	if receiver, ok := Party(text, LabelReceiver); ok {
		receipt.Receiver = &receiver
	}

	return receipt, diags
}

// lineValue reads a label's value up to the end of its line, or to the end
// of the text for labels on the final, unterminated line.
func lineValue(text, marker string) (string, bool) {
	if value, ok := Between(text, marker, lineEnd); ok {
		return value, true
	}
	return After(text, marker)
}

// numericField extracts one labeled amount, recording a diagnostic when
// the anchor is present but its content does not parse as a number.
func numericField(text, marker string, diags *[]core.Diagnostic) *decimal.Decimal {
	raw, ok := lineValue(text, marker)
	if !ok {
		return nil
	}
	value, ok := Amount(raw)
	if !ok {
		*diags = append(*diags, core.Diagnostic{
			Stage:  core.StageAmount,
			Detail: fmt.Sprintf("%s value %q is not a number", marker, raw),
		})
		return nil
	}
	return &value
}
