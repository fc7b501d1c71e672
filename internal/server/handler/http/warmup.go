// Package http provides the HTTP handlers of the memedesk relay server.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/memedesk/internal/backend"
	"go.uber.org/zap"
)

// WarmupService defines the warmup operation required by the HTTP handler.
type WarmupService interface {
	// Warmup wakes the backend and returns its final answer.
	Warmup(ctx context.Context) (*backend.Response, error)
}

// WarmupHandler relays warmup probes so browsers never see the warmup secret.
type WarmupHandler struct {
	// WarmupService performs the bounded probe sequence.
	WarmupService WarmupService
	// OriginSetting names the configuration key reported when the backend origin is missing.
	OriginSetting string
	// Logger records relay failures. Nil disables logging.
	Logger *zap.Logger
}

// failure is the JSON body of every non-relayed answer.
type failure struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Warmup handles POST /api/warmup.
// A backend answer is relayed verbatim (status, body and content-type, which
// defaults to application/json). A missing origin yields 500 and an exhausted
// retry budget yields 502, both with {"ok":false,"error":...}.
func (h *WarmupHandler) Warmup(w http.ResponseWriter, r *http.Request) {
	resp, err := h.WarmupService.Warmup(r.Context())
	if err != nil {
		if errors.Is(err, backend.ErrNoOrigin) {
			setting := h.OriginSetting
			if setting == "" {
				setting = "API_URL"
			}
			writeFailure(w, http.StatusInternalServerError, "missing "+setting)
			return
		}
		if h.Logger != nil {
			h.Logger.Warn("warmup relay failed", zap.Error(err))
		}
		writeFailure(w, http.StatusBadGateway, err.Error())
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(failure{OK: false, Error: msg})
}
