package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"estratto/internal/core"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Batch statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Batch is the persisted state of one submitted message batch.
type Batch struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	SubmittedAt       time.Time  `json:"submittedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	TotalMessages     int        `json:"totalMessages"`
	ProcessedMessages int        `json:"processedMessages"`
	ErrorCount        int        `json:"errorCount"`
	Empty             bool       `json:"empty"`
	ErrorMessage      string     `json:"errorMessage,omitempty"`
}

// Progress returns the processed fraction in [0, 1].
func (b Batch) Progress() float64 {
	if b.TotalMessages == 0 {
		return 0
	}
	return float64(b.ProcessedMessages) / float64(b.TotalMessages)
}

// SQLiteRepository persists batches, their messages, and the extraction
// results.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateBatch stores a new pending batch together with its messages.
func (r *SQLiteRepository) CreateBatch(ctx context.Context, id string, msgs []core.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, status, total_messages) VALUES (?, ?, ?)`,
		id, StatusPending, len(msgs))
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for i, msg := range msgs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (batch_id, position, body) VALUES (?, ?, ?)`,
			id, i, msg.Text)
		if err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	slog.InfoContext(ctx, "Batch stored", "batch_id", id, "messages", len(msgs))
	return nil
}

// MarkRunning transitions a batch to the running state.
func (r *SQLiteRepository) MarkRunning(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, StatusRunning, "")
}

// MarkFailed records a fatal batch error.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id, detail string) error {
	return r.setStatus(ctx, id, StatusFailed, detail)
}

func (r *SQLiteRepository) setStatus(ctx context.Context, id, status, detail string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, error_message = ? WHERE id = ?`,
		status, detail, id)
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	return checkFound(res)
}

// UpdateProgress records how many messages of the batch have completed.
func (r *SQLiteRepository) UpdateProgress(ctx context.Context, id string, done int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE batches SET processed_messages = ? WHERE id = ?`, done, id)
	if err != nil {
		return fmt.Errorf("update batch progress: %w", err)
	}
	return checkFound(res)
}

// SaveResult stores the outcome of a processed batch: its transactions in
// canonical order, every diagnostic, and the final batch row, all in one
// database transaction.
func (r *SQLiteRepository) SaveResult(ctx context.Context, id string, result core.BatchResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, t := range result.Transactions {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO transactions
			 (batch_id, position, amount, date, time, receiver, payer, reason, total_amount, current_balance)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i,
			decimalString(t.Amount),
			dateString(t.Date),
			nullString(t.Time),
			nullString(t.Receiver),
			nullString(t.Payer),
			nullString(t.Reason),
			decimalString(t.TotalAmount),
			decimalString(t.CurrentBalance))
		if err != nil {
			return fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}

	for _, d := range result.Diagnostics {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO diagnostics (batch_id, message_index, stage, detail) VALUES (?, ?, ?, ?)`,
			id, d.MessageIndex, d.Stage, d.Detail)
		if err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE batches
		 SET status = ?, completed_ts = CURRENT_TIMESTAMP,
		     processed_messages = total_messages,
		     error_count = ?, empty = ?, error_message = ''
		 WHERE id = ?`,
		StatusCompleted, len(result.Diagnostics), boolInt(result.Empty), id)
	if err != nil {
		return fmt.Errorf("finalize batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit result: %w", err)
	}

	slog.InfoContext(ctx, "Batch result saved",
		"batch_id", id,
		"transactions", len(result.Transactions),
		"diagnostics", len(result.Diagnostics),
		"empty", result.Empty)
	return nil
}

// GetBatch returns one batch row.
func (r *SQLiteRepository) GetBatch(ctx context.Context, id string) (Batch, error) {
	var (
		b         Batch
		completed sql.NullTime
		empty     int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, status, submitted_ts, completed_ts, total_messages,
		        processed_messages, error_count, empty, error_message
		 FROM batches WHERE id = ?`, id).
		Scan(&b.ID, &b.Status, &b.SubmittedAt, &completed, &b.TotalMessages,
			&b.ProcessedMessages, &b.ErrorCount, &empty, &b.ErrorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return Batch{}, core.ErrBatchNotFound
	}
	if err != nil {
		return Batch{}, fmt.Errorf("query batch: %w", err)
	}
	if completed.Valid {
		b.CompletedAt = &completed.Time
	}
	b.Empty = empty != 0
	return b, nil
}

// ListMessages returns the batch's messages in submission order.
func (r *SQLiteRepository) ListMessages(ctx context.Context, id string) ([]core.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT body FROM messages WHERE batch_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []core.Message
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, core.Message{Text: body})
	}
	return msgs, rows.Err()
}

// ListTransactions returns the batch's transactions in their stored
// canonical order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, id string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT amount, date, time, receiver, payer, reason, total_amount, current_balance
		 FROM transactions WHERE batch_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t                             core.Transaction
			amount, date, clock, receiver sql.NullString
			payer, reason, total, balance sql.NullString
		)
		if err := rows.Scan(&amount, &date, &clock, &receiver, &payer, &reason, &total, &balance); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Amount = scanDecimal(amount)
		t.Date = scanDate(date)
		t.Time = scanString(clock)
		t.Receiver = scanString(receiver)
		t.Payer = scanString(payer)
		t.Reason = scanString(reason)
		t.TotalAmount = scanDecimal(total)
		t.CurrentBalance = scanDecimal(balance)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ListDiagnostics returns the batch's accumulated diagnostics.
func (r *SQLiteRepository) ListDiagnostics(ctx context.Context, id string) ([]core.Diagnostic, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT message_index, stage, detail FROM diagnostics WHERE batch_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []core.Diagnostic
	for rows.Next() {
		var d core.Diagnostic
		if err := rows.Scan(&d.MessageIndex, &d.Stage, &d.Detail); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

func checkFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrBatchNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func decimalString(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func dateString(d *core.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func scanString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func scanDecimal(ns sql.NullString) *decimal.Decimal {
	if !ns.Valid {
		return nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil
	}
	return &d
}

func scanDate(ns sql.NullString) *core.Date {
	if !ns.Valid {
		return nil
	}
	d, err := core.ParseDate(ns.String)
	if err != nil {
		return nil
	}
	return &d
}
