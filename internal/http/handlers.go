package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"estratto/internal/core"
	"estratto/internal/query"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type batchRequest struct {
	Messages []core.Message `json:"messages"`
}

type batchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type batchStatusResponse struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Progress    float64           `json:"progress"`
	ErrorCount  int               `json:"errorCount"`
	Empty       bool              `json:"empty"`
	Error       string            `json:"error,omitempty"`
	Diagnostics []core.Diagnostic `json:"diagnostics"`
}

// handleCreateBatch accepts a message batch. A body that is not a sequence
// of message records is the one fatal error class and rejects the whole
// batch; everything downstream degrades per record instead.
func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, core.ErrMalformedBatch.Error())
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, core.ErrEmptyBatch.Error())
		return
	}

	id := uuid.NewString()
	if err := s.store.CreateBatch(r.Context(), id, req.Messages); err != nil {
		slog.ErrorContext(r.Context(), "Failed to store batch", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store batch")
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishBatchJob(r.Context(), id); err != nil {
			slog.ErrorContext(r.Context(), "Failed to publish batch job",
				"batch_id", id,
				"error", err)
			writeError(w, http.StatusInternalServerError, "failed to enqueue batch")
			return
		}
	} else if s.runner != nil {
		// No queue configured: process in-process. The request context
		// ends with the response, so the run gets its own.
		go func() {
			if err := s.runner.ProcessBatch(context.Background(), id); err != nil {
				slog.Error("Inline batch processing failed",
					"batch_id", id,
					"error", err)
			}
		}()
	}

	writeJSON(w, http.StatusAccepted, batchResponse{ID: id, Status: "pending"})
}

// handleGetBatch reports batch status, progress, and diagnostics.
func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "batchID")

	batch, err := s.store.GetBatch(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "load batch")
		return
	}

	diags, err := s.store.ListDiagnostics(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "load diagnostics")
		return
	}
	if diags == nil {
		diags = []core.Diagnostic{}
	}

	writeJSON(w, http.StatusOK, batchStatusResponse{
		ID:          batch.ID,
		Status:      batch.Status,
		Progress:    batch.Progress(),
		ErrorCount:  batch.ErrorCount,
		Empty:       batch.Empty,
		Error:       batch.ErrorMessage,
		Diagnostics: diags,
	})
}

// handleListTransactions serves the batch's records, optionally re-sorted
// and date-filtered. Without parameters the stored canonical order (newest
// first) is returned untouched.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "batchID")

	txs, err := s.store.ListTransactions(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "load transactions")
		return
	}

	from, to, err := parseDateBounds(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs = query.FilterDateRange(txs,
		func(tx core.Transaction) *core.Date { return tx.Date },
		from, to)

	if field := r.URL.Query().Get("sort"); field != "" {
		less, err := transactionComparator(field)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		txs = query.Sort(txs, less, query.ParseDirection(r.URL.Query().Get("dir")))
	}

	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// transactionComparator maps an API sort field to its comparator. Numeric
// fields treat missing values as zero; text fields treat them as empty.
func transactionComparator(field string) (query.Less[core.Transaction], error) {
	switch field {
	case "date":
		return query.ByDate(func(tx core.Transaction) *core.Date { return tx.Date }), nil
	case "amount":
		return query.ByDecimal(decimalKey(func(tx core.Transaction) *decimal.Decimal { return tx.Amount })), nil
	case "totalAmount":
		return query.ByDecimal(decimalKey(func(tx core.Transaction) *decimal.Decimal { return tx.TotalAmount })), nil
	case "currentBalance":
		return query.ByDecimal(decimalKey(func(tx core.Transaction) *decimal.Decimal { return tx.CurrentBalance })), nil
	case "receiver":
		return query.ByString(stringKey(func(tx core.Transaction) *string { return tx.Receiver })), nil
	case "payer":
		return query.ByString(stringKey(func(tx core.Transaction) *string { return tx.Payer })), nil
	case "reason":
		return query.ByString(stringKey(func(tx core.Transaction) *string { return tx.Reason })), nil
	default:
		return nil, core.ErrInvalidSortField
	}
}

func decimalKey(f func(core.Transaction) *decimal.Decimal) func(core.Transaction) decimal.Decimal {
	return func(tx core.Transaction) decimal.Decimal {
		if v := f(tx); v != nil {
			return *v
		}
		return decimal.Decimal{}
	}
}

func stringKey(f func(core.Transaction) *string) func(core.Transaction) string {
	return func(tx core.Transaction) string {
		if v := f(tx); v != nil {
			return *v
		}
		return ""
	}
}

func parseDateBounds(r *http.Request) (from, to *core.Date, err error) {
	if raw := r.URL.Query().Get("from"); raw != "" {
		d, perr := core.ParseDate(raw)
		if perr != nil {
			return nil, nil, perr
		}
		from = &d
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		d, perr := core.ParseDate(raw)
		if perr != nil {
			return nil, nil, perr
		}
		to = &d
	}
	return from, to, nil
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	if errors.Is(err, core.ErrBatchNotFound) {
		writeError(w, http.StatusNotFound, core.ErrBatchNotFound.Error())
		return
	}
	slog.ErrorContext(r.Context(), "Storage operation failed", "operation", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
