package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"estratto/internal/core"
	"estratto/internal/storage"

	"github.com/shopspring/decimal"
)

// fakeStore serves a single in-memory batch.
type fakeStore struct {
	batch        storage.Batch
	transactions []core.Transaction
	diagnostics  []core.Diagnostic
	created      []string
}

func (f *fakeStore) CreateBatch(_ context.Context, id string, _ []core.Message) error {
	f.created = append(f.created, id)
	return nil
}

func (f *fakeStore) GetBatch(_ context.Context, id string) (storage.Batch, error) {
	if id != f.batch.ID {
		return storage.Batch{}, core.ErrBatchNotFound
	}
	return f.batch, nil
}

func (f *fakeStore) ListTransactions(_ context.Context, id string) ([]core.Transaction, error) {
	if id != f.batch.ID {
		return nil, core.ErrBatchNotFound
	}
	return f.transactions, nil
}

func (f *fakeStore) ListDiagnostics(_ context.Context, id string) ([]core.Diagnostic, error) {
	if id != f.batch.ID {
		return nil, core.ErrBatchNotFound
	}
	return f.diagnostics, nil
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func datePtr(t *testing.T, s string) *core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%s): %v", s, err)
	}
	return &d
}

func newTestServer(store *fakeStore) *Server {
	return NewServer(ServerConfig{TopLimit: 25, ReportCacheTTL: time.Minute}, store, nil, nil)
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateBatch(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "accepted",
			body:       `{"messages":[{"text":"hello"}]}`,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "malformed json",
			body:       `{"messages": [}`,
			wantStatus: http.StatusBadRequest,
			wantError:  core.ErrMalformedBatch.Error(),
		},
		{
			name:       "not a message sequence",
			body:       `{"messages":["just a string"]}`,
			wantStatus: http.StatusBadRequest,
			wantError:  core.ErrMalformedBatch.Error(),
		},
		{
			name:       "unknown fields",
			body:       `{"records":[{"text":"hello"}]}`,
			wantStatus: http.StatusBadRequest,
			wantError:  core.ErrMalformedBatch.Error(),
		},
		{
			name:       "empty batch",
			body:       `{"messages":[]}`,
			wantStatus: http.StatusBadRequest,
			wantError:  core.ErrEmptyBatch.Error(),
		},
		{
			name:       "blank message text is accepted",
			body:       `{"messages":[{"text":"  "}]}`,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "blank record among valid ones is accepted",
			body:       `{"messages":[{"text":"Current balance is Rs. 100"},{"text":"  "}]}`,
			wantStatus: http.StatusAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			s := newTestServer(store)

			rec := doRequest(t, s, http.MethodPost, "/api/batches", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if tt.wantError != "" {
				var resp map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode error body: %v", err)
				}
				if resp["error"] != tt.wantError {
					t.Errorf("error = %q, want %q", resp["error"], tt.wantError)
				}
				if len(store.created) != 0 {
					t.Errorf("rejected batch was stored: %v", store.created)
				}
				return
			}

			var resp struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.ID == "" || resp.Status != "pending" {
				t.Errorf("response = %+v", resp)
			}
			if len(store.created) != 1 || store.created[0] != resp.ID {
				t.Errorf("created = %v, want [%s]", store.created, resp.ID)
			}
		})
	}
}

func TestHandleGetBatch(t *testing.T) {
	store := &fakeStore{
		batch: storage.Batch{
			ID:                "b1",
			Status:            storage.StatusCompleted,
			TotalMessages:     4,
			ProcessedMessages: 4,
			ErrorCount:        1,
		},
		diagnostics: []core.Diagnostic{
			{MessageIndex: 2, Stage: core.StageFetch, Detail: "connection refused"},
		},
	}
	s := newTestServer(store)

	rec := doRequest(t, s, http.MethodGet, "/api/batches/b1", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Status      string            `json:"status"`
		Progress    float64           `json:"progress"`
		ErrorCount  int               `json:"errorCount"`
		Diagnostics []core.Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Status != storage.StatusCompleted || resp.Progress != 1 || resp.ErrorCount != 1 {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Diagnostics) != 1 || resp.Diagnostics[0].Stage != core.StageFetch {
		t.Errorf("diagnostics = %v", resp.Diagnostics)
	}
}

func TestHandleGetBatch_NotFound(t *testing.T) {
	s := newTestServer(&fakeStore{batch: storage.Batch{ID: "b1"}})

	rec := doRequest(t, s, http.MethodGet, "/api/batches/nope", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleListTransactions(t *testing.T) {
	store := &fakeStore{
		batch: storage.Batch{ID: "b1", Status: storage.StatusCompleted},
		transactions: []core.Transaction{
			{Date: datePtr(t, "2024-03-10"), Amount: decPtr("50"), Receiver: strPtr("B")},
			{Date: datePtr(t, "2024-01-05"), Amount: decPtr("75"), Receiver: strPtr("A")},
		},
	}
	s := newTestServer(store)

	decode := func(t *testing.T, rec *httptest.ResponseRecorder) []core.Transaction {
		t.Helper()
		var resp struct {
			Transactions []core.Transaction `json:"transactions"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return resp.Transactions
	}

	t.Run("stored order untouched by default", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/batches/b1/transactions", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		txs := decode(t, rec)
		if len(txs) != 2 || *txs[0].Receiver != "B" {
			t.Errorf("transactions = %v", txs)
		}
	})

	t.Run("sort by amount ascending", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/batches/b1/transactions?sort=amount", "")
		txs := decode(t, rec)
		if len(txs) != 2 || !txs[0].Amount.Equal(decimal.NewFromInt(50)) {
			t.Errorf("transactions = %v", txs)
		}
	})

	t.Run("sort by receiver descending", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/batches/b1/transactions?sort=receiver&dir=desc", "")
		txs := decode(t, rec)
		if len(txs) != 2 || *txs[0].Receiver != "B" {
			t.Errorf("transactions = %v", txs)
		}
	})

	t.Run("invalid sort field", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/batches/b1/transactions?sort=bogus", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("date range filter", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/batches/b1/transactions?from=2024-02-01", "")
		txs := decode(t, rec)
		if len(txs) != 1 || *txs[0].Receiver != "B" {
			t.Errorf("transactions = %v", txs)
		}
	})

	t.Run("invalid date bound", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/batches/b1/transactions?from=03-10-2024", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestReportHandlers(t *testing.T) {
	store := &fakeStore{
		batch: storage.Batch{ID: "b1", Status: storage.StatusCompleted},
		transactions: []core.Transaction{
			{Date: datePtr(t, "2024-03-20"), Amount: decPtr("100"), Receiver: strPtr("Shop"), CurrentBalance: decPtr("500")},
			{Date: datePtr(t, "2024-03-10"), Amount: decPtr("-30"), Receiver: strPtr("Shop"), Reason: strPtr("Refund"), CurrentBalance: decPtr("480")},
		},
	}
	s := newTestServer(store)

	t.Run("recipients", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/batches/b1/reports/recipients", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		var resp struct {
			Rows []struct {
				Key   string `json:"key"`
				Count int    `json:"count"`
			} `json:"rows"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(resp.Rows) != 1 || resp.Rows[0].Key != "Shop" || resp.Rows[0].Count != 2 {
			t.Errorf("rows = %v", resp.Rows)
		}
	})

	t.Run("monthly", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/batches/b1/reports/monthly", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
		}
		var resp struct {
			Rows []struct {
				Month    string `json:"month"`
				Expenses string `json:"expenses"`
				Balance  string `json:"balance"`
			} `json:"rows"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(resp.Rows) != 1 {
			t.Fatalf("rows = %v", resp.Rows)
		}
		if resp.Rows[0].Month != "2024-03" || resp.Rows[0].Expenses != "100" || resp.Rows[0].Balance != "500" {
			t.Errorf("rows = %v", resp.Rows)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/batches/b1/reports/recipients?limit=0", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown batch", func(t *testing.T) {
		rec := doRequest(t, s, http.MethodGet, "/api/batches/nope/reports/recipients", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(&fakeStore{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, s, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
