package services

import (
	"context"
	"log/slog"

	"estratto/internal/core"
	"estratto/internal/query"
)

// Progress is one step of the batch progress stream.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Fraction returns the completed share in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// ProcessorConfig tunes batch processing.
type ProcessorConfig struct {
	// OnProgress, when set, is invoked after each message completes.
	// Progress is strictly monotonic because messages are processed one
	// at a time.
	OnProgress func(Progress)
}

// Processor sequences assembly across an entire message batch. Messages
// are handled strictly in input order, one at a time: a message's document
// retrieval completes or fails before the next message begins, so the
// fetch collaborator is never invoked concurrently within a batch.
type Processor struct {
	assembler *Assembler
	config    ProcessorConfig
}

func NewProcessor(assembler *Assembler, config ProcessorConfig) *Processor {
	return &Processor{assembler: assembler, config: config}
}

// Process runs the whole batch, accumulating transactions and non-fatal
// diagnostics. The returned transaction list is in canonical order: stable
// sort by date, newest first, records without a parsable date last. The
// only error path is context cancellation; every per-message failure is a
// diagnostic instead.
func (p *Processor) Process(ctx context.Context, msgs []core.Message) (core.BatchResult, error) {
	result := core.BatchResult{
		Transactions: make([]core.Transaction, 0, len(msgs)),
	}

	total := len(msgs)
	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return core.BatchResult{}, err
		}

		tx, diags := p.assembler.Assemble(ctx, i, msg)
		result.Diagnostics = append(result.Diagnostics, diags...)
		if tx != nil {
			result.Transactions = append(result.Transactions, *tx)
		}

		if p.config.OnProgress != nil {
			p.config.OnProgress(Progress{Done: i + 1, Total: total})
		}
	}

	result.Transactions = query.Sort(result.Transactions,
		query.ByDate(func(tx core.Transaction) *core.Date { return tx.Date }),
		query.Descending)

	result.Empty = len(result.Transactions) == 0
	if result.Empty {
		slog.InfoContext(ctx, "Batch yielded no transactions",
			"messages", total,
			"diagnostics", len(result.Diagnostics))
	}

	return result, nil
}
