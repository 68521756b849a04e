// Package fetch retrieves receipt documents over HTTP. The engine only
// ever sees the raw text and a success/failure outcome; retry and caching
// policy live entirely here.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"estratto/internal/cache"
)

// maxDocumentBytes bounds how much receipt text is read from one response.
const maxDocumentBytes = 1 << 20

// Client fetches receipt documents, answering repeated requests for the
// same URL from an injected cache.
type Client struct {
	http  *http.Client
	cache cache.Cache[string]
}

// NewClient builds a fetcher. docCache may be nil to disable caching.
func NewClient(timeout time.Duration, docCache cache.Cache[string]) *Client {
	return &Client{
		http:  &http.Client{Timeout: timeout},
		cache: docCache,
	}
}

// Fetch returns the raw text of the document at url. Any transport error,
// non-success status, or truncated body is reported as an error; the
// caller records it as a per-message diagnostic.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	if c.cache != nil {
		if text, ok := c.cache.Get(url); ok {
			slog.DebugContext(ctx, "Receipt served from cache", "url", url)
			return text, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch document: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("read document body: %w", err)
	}

	text := string(body)
	if c.cache != nil {
		c.cache.Set(url, text)
	}

	slog.DebugContext(ctx, "Receipt fetched", "url", url, "bytes", len(text))
	return text, nil
}
