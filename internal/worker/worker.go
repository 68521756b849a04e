// Package worker runs batch-processing jobs delivered over AMQP.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"estratto/internal/core"
	"estratto/internal/report"
	"estratto/internal/services"
)

// progressPersistEvery throttles how often progress updates hit storage.
const progressPersistEvery = 500 * time.Millisecond

// Storage is the slice of the repository the worker needs.
type Storage interface {
	MarkRunning(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, detail string) error
	UpdateProgress(ctx context.Context, id string, done int) error
	SaveResult(ctx context.Context, id string, result core.BatchResult) error
	ListMessages(ctx context.Context, id string) ([]core.Message, error)
}

// ReportExporter pushes a completed batch's headline reports to an
// external sink.
type ReportExporter interface {
	ExportMonthly(ctx context.Context, batchID string, rollups []report.MonthRollup) error
	ExportTopRecipients(ctx context.Context, batchID string, rows []report.Row) error
}

// BatchWorker processes one batch at a time: loads its messages, runs the
// extraction engine with persisted progress, stores the result, and
// optionally exports reports.
type BatchWorker struct {
	storage   Storage
	assembler *services.Assembler
	exporter  ReportExporter
	topLimit  int
}

// NewBatchWorker creates a worker. exporter may be nil to disable export.
func NewBatchWorker(storage Storage, assembler *services.Assembler, exporter ReportExporter, topLimit int) *BatchWorker {
	if topLimit <= 0 {
		topLimit = report.DefaultTopN
	}
	return &BatchWorker{
		storage:   storage,
		assembler: assembler,
		exporter:  exporter,
		topLimit:  topLimit,
	}
}

// ProcessBatch runs one batch end to end. Only infrastructure failures
// (storage, cancellation) return an error; extraction problems are
// diagnostics inside the stored result.
func (w *BatchWorker) ProcessBatch(ctx context.Context, batchID string) error {
	slog.InfoContext(ctx, "Processing batch", "batch_id", batchID)

	msgs, err := w.storage.ListMessages(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load messages for batch %s: %w", batchID, err)
	}

	if err := w.storage.MarkRunning(ctx, batchID); err != nil {
		return fmt.Errorf("mark batch %s running: %w", batchID, err)
	}

	lastPersist := time.Time{}
	processor := services.NewProcessor(w.assembler, services.ProcessorConfig{
		OnProgress: func(p services.Progress) {
			if p.Done != p.Total && time.Since(lastPersist) < progressPersistEvery {
				return
			}
			lastPersist = time.Now()
			if err := w.storage.UpdateProgress(ctx, batchID, p.Done); err != nil {
				slog.WarnContext(ctx, "Failed to persist progress",
					"batch_id", batchID,
					"error", err)
			}
		},
	})

	result, err := processor.Process(ctx, msgs)
	if err != nil {
		if markErr := w.storage.MarkFailed(ctx, batchID, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark batch failed",
				"batch_id", batchID,
				"error", markErr)
		}
		return fmt.Errorf("process batch %s: %w", batchID, err)
	}

	if err := w.storage.SaveResult(ctx, batchID, result); err != nil {
		return fmt.Errorf("save result for batch %s: %w", batchID, err)
	}

	w.export(ctx, batchID, result)
	return nil
}

// export is best-effort: a failed export never fails the batch.
func (w *BatchWorker) export(ctx context.Context, batchID string, result core.BatchResult) {
	if w.exporter == nil || result.Empty {
		return
	}

	if err := w.exporter.ExportMonthly(ctx, batchID, report.MonthlyRollup(result.Transactions)); err != nil {
		slog.WarnContext(ctx, "Monthly export failed", "batch_id", batchID, "error", err)
	}
	if err := w.exporter.ExportTopRecipients(ctx, batchID, report.TopN(result.Transactions, report.ByReceiver, w.topLimit)); err != nil {
		slog.WarnContext(ctx, "Top recipients export failed", "batch_id", batchID, "error", err)
	}
}
