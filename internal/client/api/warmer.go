package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Warmer wakes a sleeping backend.
type Warmer interface {
	Warm(ctx context.Context) error
}

// HTTPWarmer triggers the warmup relay with a bodyless POST.
// It adds no timeout of its own; the relay bounds its own latency.
type HTTPWarmer struct {
	url    string
	client *http.Client
}

// NewHTTPWarmer returns a Warmer posting to url. A nil client uses http.DefaultClient.
func NewHTTPWarmer(url string, client *http.Client) *HTTPWarmer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPWarmer{url: url, client: client}
}

// Warm posts to the relay and reports whether it answered 2xx.
func (w *HTTPWarmer) Warm(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, nil)
	if err != nil {
		return fmt.Errorf("build warmup request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("warmup relay: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("warmup relay: %s", resp.Status)
	}
	return nil
}
