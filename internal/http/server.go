// Package http exposes the batch-submission and reporting API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"estratto/internal/cache"
	"estratto/internal/core"
	"estratto/internal/storage"

	"github.com/go-chi/chi/v5"
)

// BatchStore is the slice of the repository the API needs.
type BatchStore interface {
	CreateBatch(ctx context.Context, id string, msgs []core.Message) error
	GetBatch(ctx context.Context, id string) (storage.Batch, error)
	ListTransactions(ctx context.Context, id string) ([]core.Transaction, error)
	ListDiagnostics(ctx context.Context, id string) ([]core.Diagnostic, error)
}

// JobPublisher hands a stored batch to the worker over the queue.
type JobPublisher interface {
	PublishBatchJob(ctx context.Context, batchID string) error
}

// BatchRunner processes a batch in-process. It is the fallback used when
// no queue is configured.
type BatchRunner interface {
	ProcessBatch(ctx context.Context, batchID string) error
}

// ServerConfig collects the knobs NewServer needs beyond its
// collaborators.
type ServerConfig struct {
	Addr           string
	TopLimit       int
	ReportCacheTTL time.Duration
}

type Server struct {
	http.Server

	store     BatchStore
	publisher JobPublisher
	runner    BatchRunner
	topLimit  int

	limiter *rateLimiter

	// reportCache holds marshaled report responses for completed batches,
	// which are immutable once stored.
	reportCache *cache.LRU[[]byte]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. publisher may be nil, in which case batches run in-process via
// runner.
func NewServer(cfg ServerConfig, store BatchStore, publisher JobPublisher, runner BatchRunner) *Server {
	if cfg.TopLimit <= 0 {
		cfg.TopLimit = 25
	}
	if cfg.ReportCacheTTL <= 0 {
		cfg.ReportCacheTTL = 5 * time.Minute
	}

	s := &Server{
		store:       store,
		publisher:   publisher,
		runner:      runner,
		topLimit:    cfg.TopLimit,
		limiter:     newRateLimiter(),
		reportCache: cache.NewLRU[[]byte](200, cfg.ReportCacheTTL),
	}

	r := chi.NewRouter()
	r.Use(s.withRequestLogging)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api/batches", func(r chi.Router) {
		r.Post("/", s.handleCreateBatch)
		r.Get("/{batchID}", s.handleGetBatch)
		r.Get("/{batchID}/transactions", s.handleListTransactions)
		r.Get("/{batchID}/reports/recipients", s.reportHandler("recipients"))
		r.Get("/{batchID}/reports/senders", s.reportHandler("senders"))
		r.Get("/{batchID}/reports/reasons", s.reportHandler("reasons"))
		r.Get("/{batchID}/reports/categories", s.reportHandler("categories"))
		r.Get("/{batchID}/reports/recipient-share", s.reportHandler("recipient-share"))
		r.Get("/{batchID}/reports/monthly", s.reportHandler("monthly"))
	})

	s.Server = http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	return s
}

// Shutdown stops the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// Simple in-memory rate limiter for batch submissions.
type rateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*clientInfo
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-10 * time.Minute)
			for ip, client := range rl.clients {
				if client.lastRequest.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

// allow permits up to 60 requests per client per minute.
func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}
