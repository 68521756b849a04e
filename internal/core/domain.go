package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date representation used everywhere
// in the system (storage, API, reports).
const DateLayout = "2006-01-02"

type (
	// Message is one entry of a submitted notification batch. Messages are
	// ephemeral input and never mutated. Blank text is legal; such a
	// message simply extracts nothing.
	Message struct {
		Text string `json:"text"`
	}

	// Date is a calendar date without a time-of-day component.
	Date struct {
		time.Time
	}

	// Transaction is one normalized financial record assembled from a
	// notification message and its linked receipt document. A nil field
	// means the receipt did not carry that value. Transactions are
	// immutable once assembled.
	Transaction struct {
		Amount         *decimal.Decimal `json:"amount"`
		Date           *Date            `json:"date"`
		Time           *string          `json:"time"`
		Receiver       *string          `json:"receiver"`
		Payer          *string          `json:"payer"`
		Reason         *string          `json:"reason"`
		TotalAmount    *decimal.Decimal `json:"totalAmount"`
		CurrentBalance *decimal.Decimal `json:"currentBalance"`
	}

	// Diagnostic describes a non-fatal problem encountered while processing
	// a single message. Diagnostics accumulate; they never abort a batch.
	Diagnostic struct {
		MessageIndex int    `json:"messageIndex"`
		Stage        string `json:"stage"`
		Detail       string `json:"detail"`
	}

	// BatchResult is the outcome of processing one message batch.
	// Transactions are in canonical order: newest first, records without a
	// parsable date last. Empty marks a well-formed batch that yielded no
	// transactions, which is not an error condition.
	BatchResult struct {
		Transactions []Transaction `json:"transactions"`
		Diagnostics  []Diagnostic  `json:"diagnostics"`
		Empty        bool          `json:"empty"`
	}
)

// Diagnostic stages.
const (
	StageFetch   = "fetch"
	StageDate    = "date"
	StageAmount  = "amount"
	StageReceipt = "receipt"
)

var (
	ErrEmptyBatch       = errors.New("batch contains no messages")
	ErrMalformedBatch   = errors.New("batch is not a sequence of messages")
	ErrBatchNotFound    = errors.New("batch not found")
	ErrInvalidSortField = errors.New("invalid sort field")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the canonical YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String returns the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM grouping key for monthly rollups.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// Before reports whether d falls on an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// MarshalJSON encodes the date in its canonical form.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a canonical YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// HasReceiptData reports whether at least one receipt-derived field was
// extracted. A transaction with no receipt data is never emitted; the
// message balance alone does not make a record.
func (t Transaction) HasReceiptData() bool {
	return t.Amount != nil ||
		t.Date != nil ||
		t.Time != nil ||
		t.Receiver != nil ||
		t.Payer != nil ||
		t.Reason != nil ||
		t.TotalAmount != nil
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("message %d: %s: %s", d.MessageIndex, d.Stage, d.Detail)
}
