// Package export writes aggregation reports to an external Google
// Spreadsheet. It is an optional sink: the worker only exports when a
// spreadsheet is configured.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"estratto/internal/report"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// SheetsClient appends report rows to one sheet of one spreadsheet.
type SheetsClient struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsClient builds a client using service-account credentials taken
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewSheetsClient(ctx context.Context, spreadsheetID, sheetName string) (*SheetsClient, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsClient{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	credentialsFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var (
		raw []byte
		err error
	)
	switch {
	case credentialsJSON != "":
		raw = []byte(credentialsJSON)
	case credentialsFile != "":
		raw, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(raw),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// ExportMonthly appends one row per month of the rollup, tagged with the
// batch ID and export time.
func (c *SheetsClient) ExportMonthly(ctx context.Context, batchID string, rollups []report.MonthRollup) error {
	rows := make([][]interface{}, 0, len(rollups))
	now := time.Now().Format(time.RFC3339)
	for _, r := range rollups {
		balance := ""
		if r.Balance != nil {
			balance = r.Balance.String()
		}
		rows = append(rows, []interface{}{now, batchID, "monthly", r.Month, r.Expenses.String(), balance})
	}
	return c.append(ctx, rows)
}

// ExportTopRecipients appends the top-recipient rows for the batch.
func (c *SheetsClient) ExportTopRecipients(ctx context.Context, batchID string, rows []report.Row) error {
	values := make([][]interface{}, 0, len(rows))
	now := time.Now().Format(time.RFC3339)
	for _, r := range rows {
		values = append(values, []interface{}{now, batchID, "top_recipient", r.Key, r.Amount.String(), r.Count})
	}
	return c.append(ctx, values)
}

func (c *SheetsClient) append(ctx context.Context, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	rangeRef := fmt.Sprintf("%s!A1", c.sheetName)
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, rangeRef, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append rows to %s: %w", rangeRef, err)
	}

	slog.InfoContext(ctx, "Report rows exported",
		"spreadsheet_id", c.spreadsheetID,
		"sheet", c.sheetName,
		"rows", len(rows))
	return nil
}
