package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"estratto/internal/report"
	"estratto/internal/storage"

	"github.com/go-chi/chi/v5"
)

// reportHandler builds the handler for one report kind. Responses for
// completed batches are cached, since their transaction lists never change.
func (s *Server) reportHandler(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "batchID")

		limit := s.topLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 100 {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q: must be between 1 and 100", raw))
				return
			}
			limit = n
		}

		cacheKey := fmt.Sprintf("%s/%s/%d", id, kind, limit)
		if body, ok := s.reportCache.Get(cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}

		batch, err := s.store.GetBatch(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "load batch")
			return
		}

		txs, err := s.store.ListTransactions(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "load transactions")
			return
		}

		var payload any
		switch kind {
		case "recipients":
			payload = orEmptyRows(report.TopN(txs, report.ByReceiver, limit))
		case "senders":
			payload = orEmptyRows(report.TopN(txs, report.ByPayer, limit))
		case "reasons":
			payload = orEmptyRows(report.TopN(txs, report.ByReason, limit))
		case "categories":
			payload = orEmptySlices(report.CategoryDistribution(txs))
		case "recipient-share":
			payload = orEmptySlices(report.RecipientShare(txs))
		case "monthly":
			payload = orEmptyMonths(report.MonthlyRollup(txs))
		default:
			writeError(w, http.StatusNotFound, "unknown report")
			return
		}

		body, err := json.Marshal(map[string]any{"rows": payload})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if batch.Status == storage.StatusCompleted {
			s.reportCache.Set(cacheKey, body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}
}

func orEmptyRows(rows []report.Row) []report.Row {
	if rows == nil {
		return []report.Row{}
	}
	return rows
}

func orEmptySlices(rows []report.NameValue) []report.NameValue {
	if rows == nil {
		return []report.NameValue{}
	}
	return rows
}

func orEmptyMonths(rows []report.MonthRollup) []report.MonthRollup {
	if rows == nil {
		return []report.MonthRollup{}
	}
	return rows
}
