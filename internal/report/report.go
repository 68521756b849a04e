// Package report computes the summary aggregations served by the API:
// top-N groupings, category distributions, and monthly rollups. All
// functions derive fresh values from the transaction list; nothing here is
// persisted or cached.
package report

import (
	"log/slog"
	"sort"

	"estratto/internal/core"
	"estratto/internal/query"

	"github.com/shopspring/decimal"
)

// Attribute selects the grouping key for top-N aggregation.
type Attribute string

const (
	ByReceiver Attribute = "receiver"
	ByPayer    Attribute = "payer"
	ByReason   Attribute = "reason"
)

const (
	// DefaultTopN is the canonical truncation for top-N groupings.
	DefaultTopN = 25

	// tailShare is the share of total count below which a recipient group
	// is folded into the trailing "Others" bucket.
	tailShare = 0.02

	uncategorized    = "Uncategorized"
	unknownRecipient = "Unknown Recipient"
	othersBucket     = "Others"
)

type (
	// Row is one group of a top-N aggregation: the summed absolute amount
	// and the number of transactions attributed to the key.
	Row struct {
		Key    string          `json:"key"`
		Amount decimal.Decimal `json:"amount"`
		Count  int             `json:"count"`
	}

	// NameValue is one slice of a distribution-style summary.
	NameValue struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	// MonthRollup summarizes one calendar month: the sum of all
	// positive-valued amounts and the balance carried by the month's
	// newest transaction.
	MonthRollup struct {
		Month    string           `json:"month"`
		Expenses decimal.Decimal  `json:"expenses"`
		Balance  *decimal.Decimal `json:"balance"`
	}
)

// TopN groups transactions by the chosen attribute, ignoring records where
// the attribute is absent, and returns at most n groups ordered by summed
// absolute amount descending, then count descending, then key ascending.
func TopN(txs []core.Transaction, attr Attribute, n int) []Row {
	if n <= 0 {
		n = DefaultTopN
	}

	sums := make(map[string]*Row)
	order := make([]string, 0)
	for _, tx := range txs {
		key := attributeOf(tx, attr)
		if key == nil {
			continue
		}
		row, ok := sums[*key]
		if !ok {
			row = &Row{Key: *key}
			sums[*key] = row
			order = append(order, *key)
		}
		if tx.Amount != nil {
			row.Amount = row.Amount.Add(tx.Amount.Abs())
		}
		row.Count++
	}

	rows := make([]Row, 0, len(order))
	for _, key := range order {
		rows = append(rows, *sums[key])
	}

	rows = query.Sort(rows, func(a, b Row) bool {
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Key < b.Key
	}, query.Ascending)

	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// CategoryDistribution counts transactions per reason, with an explicit
// bucket for records that state none. The result order carries no meaning;
// it is sorted by name only to keep output deterministic.
func CategoryDistribution(txs []core.Transaction) []NameValue {
	counts := make(map[string]int)
	for _, tx := range txs {
		name := uncategorized
		if tx.Reason != nil {
			name = *tx.Reason
		}
		counts[name]++
	}

	out := make([]NameValue, 0, len(counts))
	for name, count := range counts {
		out = append(out, NameValue{Name: name, Value: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RecipientShare counts transactions per receiver for proportion-style
// views, ordered by count descending. Groups holding less than 2% of the
// total are merged into a single trailing "Others" bucket.
func RecipientShare(txs []core.Transaction) []NameValue {
	counts := make(map[string]int)
	total := 0
	for _, tx := range txs {
		name := unknownRecipient
		if tx.Receiver != nil {
			name = *tx.Receiver
		}
		counts[name]++
		total++
	}
	if total == 0 {
		return nil
	}

	groups := make([]NameValue, 0, len(counts))
	for name, count := range counts {
		groups = append(groups, NameValue{Name: name, Value: count})
	}
	groups = query.Sort(groups, func(a, b NameValue) bool {
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.Name < b.Name
	}, query.Ascending)

	out := make([]NameValue, 0, len(groups))
	others := 0
	for _, g := range groups {
		if float64(g.Value)/float64(total) < tailShare {
			others += g.Value
			continue
		}
		out = append(out, g)
	}
	if others > 0 {
		out = append(out, NameValue{Name: othersBucket, Value: others})
	}
	return out
}

// MonthlyRollup groups transactions by the calendar month of their date.
// The input list is in canonical order (newest first) and is folded in
// reverse, oldest to newest, so each month's balance comes from its
// chronologically newest transaction. Records without a parsable date are
// skipped. Months are emitted in chronological order.
func MonthlyRollup(txs []core.Transaction) []MonthRollup {
	rollups := make(map[string]*MonthRollup)
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if tx.Date == nil {
			slog.Debug("Skipping undated transaction in monthly rollup", "position", i)
			continue
		}
		month := tx.Date.MonthKey()
		r, ok := rollups[month]
		if !ok {
			r = &MonthRollup{Month: month}
			rollups[month] = r
		}
		if tx.Amount != nil && tx.Amount.IsPositive() {
			r.Expenses = r.Expenses.Add(*tx.Amount)
		}
		r.Balance = tx.CurrentBalance
	}

	out := make([]MonthRollup, 0, len(rollups))
	for _, r := range rollups {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func attributeOf(tx core.Transaction, attr Attribute) *string {
	switch attr {
	case ByReceiver:
		return tx.Receiver
	case ByPayer:
		return tx.Payer
	case ByReason:
		return tx.Reason
	default:
		return nil
	}
}
