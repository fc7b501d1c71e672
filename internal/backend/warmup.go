// Package backend talks to the memedesk backend on behalf of the warmup relay.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNoOrigin is returned when the backend origin is not configured.
var ErrNoOrigin = errors.New("backend origin is not configured")

// Response is a relayed backend answer.
type Response struct {
	// StatusCode is the numeric HTTP status.
	StatusCode int
	// Status is the status line text, e.g. "503 Service Unavailable".
	Status string
	// ContentType is the backend's content-type header, possibly empty.
	ContentType string
	// Body is the full response body.
	Body []byte
}

// Prober issues warmup probes against GET <origin>/warmup.
type Prober struct {
	origin string
	key    string
	client *http.Client
}

// NewProber creates a Prober. key is attached as x-warmup-key only when non-empty.
// A nil client means http.DefaultClient; per-attempt deadlines come from the context.
func NewProber(origin, key string, client *http.Client) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	return &Prober{
		origin: strings.TrimRight(origin, "/"),
		key:    key,
		client: client,
	}
}

// Probe performs a single warmup request and reads the whole body.
func (p *Prober) Probe(ctx context.Context) (*Response, error) {
	if p.origin == "" {
		return nil, ErrNoOrigin
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.origin+"/warmup", nil)
	if err != nil {
		return nil, fmt.Errorf("create warmup request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")
	if p.key != "" {
		req.Header.Set("x-warmup-key", p.key)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read warmup response: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
