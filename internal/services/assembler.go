// Package services contains the per-message transaction assembler and the
// batch processor that drives it across a whole submission.
package services

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"estratto/internal/core"
	"estratto/internal/extract"
)

// DocumentFetcher retrieves the raw text of a receipt document. Retry and
// caching policy belong to the implementation and are invisible here.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Assembler turns one notification message into at most one transaction.
type Assembler struct {
	fetcher DocumentFetcher

	// receiptHost is the one issuing domain whose links are followed.
	// Links to any other host are treated as no link at all.
	receiptHost string
}

func NewAssembler(fetcher DocumentFetcher, receiptHost string) *Assembler {
	return &Assembler{
		fetcher:     fetcher,
		receiptHost: strings.ToLower(receiptHost),
	}
}

// Assemble runs the per-message pipeline: the stated balance is always
// extracted, the receipt link is followed only when it points at the
// configured issuing host, and a transaction is emitted only when the
// receipt yielded at least one field. The message balance always wins over
// a receipt-stated balance. A message without a qualifying link
// contributes nothing and is not an error.
func (a *Assembler) Assemble(ctx context.Context, index int, msg core.Message) (*core.Transaction, []core.Diagnostic) {
	balance, hasBalance := extract.Balance(msg.Text)

	link, ok := extract.Link(msg.Text)
	if !ok || !a.qualifies(link) {
		return nil, nil
	}

	text, err := a.fetcher.Fetch(ctx, link)
	if err != nil {
		slog.WarnContext(ctx, "Receipt retrieval failed",
			"message_index", index,
			"url", link,
			"error", err)
		return nil, []core.Diagnostic{{
			MessageIndex: index,
			Stage:        core.StageFetch,
			Detail:       err.Error(),
		}}
	}

	receipt, diags := extract.ParseReceipt(text)
	for i := range diags {
		diags[i].MessageIndex = index
	}

	if !receipt.HasData() {
		diags = append(diags, core.Diagnostic{
			MessageIndex: index,
			Stage:        core.StageReceipt,
			Detail:       "document contains no recognizable fields",
		})
		return nil, diags
	}

	tx := &core.Transaction{
		Amount:      receipt.Amount,
		Date:        receipt.Date,
		Time:        receipt.Time,
		Receiver:    receipt.Receiver,
		Payer:       receipt.Payer,
		Reason:      receipt.Reason,
		TotalAmount: receipt.TotalAmount,
	}
	switch {
	case hasBalance:
		tx.CurrentBalance = &balance
	default:
		tx.CurrentBalance = receipt.Balance
	}

	return tx, diags
}

// qualifies reports whether the link's host matches the configured issuing
// domain.
func (a *Assembler) qualifies(link string) bool {
	if a.receiptHost == "" {
		return false
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Hostname(), a.receiptHost)
}
