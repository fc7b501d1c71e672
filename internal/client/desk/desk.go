// Package desk exposes the journal endpoints of the memedesk backend as typed calls.
package desk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/memedesk/internal/client/api"
	"github.com/atinyakov/memedesk/internal/models"
)

// ValidationError is returned before any request when arguments are invalid.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Service wraps an api.Client.
type Service struct {
	client *api.Client
}

// New returns a Service over client.
func New(client *api.Client) *Service {
	return &Service{client: client}
}

// number renders d as a bare JSON number.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func numberPtr(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := number(*d)
	return &n
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func requireCA(ca string) (string, error) {
	ca = strings.TrimSpace(ca)
	if len(ca) < 3 {
		return "", &ValidationError{Field: "ca", Reason: "must be at least 3 characters"}
	}
	return ca, nil
}

// CoinSummaries returns GET /coins/summary.
func (s *Service) CoinSummaries(ctx context.Context) ([]models.CoinSummary, error) {
	return api.GetJSON[[]models.CoinSummary](ctx, s.client, "/coins/summary")
}

// CoinDetail returns the coin with its trades, tips, bubbles and scores.
func (s *Service) CoinDetail(ctx context.Context, ca string) (models.CoinDetail, error) {
	ca, err := requireCA(ca)
	if err != nil {
		return models.CoinDetail{}, err
	}
	return api.GetJSON[models.CoinDetail](ctx, s.client, "/coins/"+url.PathEscape(ca)+"/detail")
}

// DeleteCoin removes a coin and everything recorded against it.
func (s *Service) DeleteCoin(ctx context.Context, ca string) error {
	ca, err := requireCA(ca)
	if err != nil {
		return err
	}
	return s.client.Mutate(ctx, "/coins/"+url.PathEscape(ca), http.MethodDelete, nil, nil)
}

// OpenTrades returns up to limit trades without an exit.
func (s *Service) OpenTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	if limit < 1 {
		limit = 500
	}
	return api.GetJSON[[]models.Trade](ctx, s.client, "/trades?only_open=true&limit="+strconv.Itoa(limit))
}

type closeTradeRequest struct {
	ExitMcapUSD json.Number `json:"exit_mcap_usd"`
	ExitReason  *string     `json:"exit_reason"`
}

// CloseTrade records the exit of an open trade.
func (s *Service) CloseTrade(ctx context.Context, tradeID string, exitMcap decimal.Decimal, reason string) error {
	tradeID = strings.TrimSpace(tradeID)
	if tradeID == "" {
		return &ValidationError{Field: "trade_id", Reason: "is required"}
	}
	if !exitMcap.IsPositive() {
		return &ValidationError{Field: "exit_mcap_usd", Reason: "must be greater than 0"}
	}
	body := closeTradeRequest{ExitMcapUSD: number(exitMcap), ExitReason: optional(reason)}
	return s.client.Mutate(ctx, "/trades/"+url.PathEscape(tradeID)+"/close", http.MethodPost, body, nil)
}

// DeleteTrade removes a trade.
func (s *Service) DeleteTrade(ctx context.Context, tradeID string) error {
	tradeID = strings.TrimSpace(tradeID)
	if tradeID == "" {
		return &ValidationError{Field: "trade_id", Reason: "is required"}
	}
	return s.client.Mutate(ctx, "/trades/"+url.PathEscape(tradeID), http.MethodDelete, nil, nil)
}

// Tips returns up to limit influencer calls.
func (s *Service) Tips(ctx context.Context, limit int) ([]models.Tip, error) {
	if limit < 1 {
		limit = 500
	}
	return api.GetJSON[[]models.Tip](ctx, s.client, "/tips?limit="+strconv.Itoa(limit))
}

// DeleteTip removes a tip.
func (s *Service) DeleteTip(ctx context.Context, tipID int64) error {
	return s.client.Mutate(ctx, "/tips/"+strconv.FormatInt(tipID, 10), http.MethodDelete, nil, nil)
}

// ValidateBubbles checks that ranks are positive and unique within each
// list and that percentages are not negative.
func ValidateBubbles(clusters, others []models.BubbleRow) error {
	check := func(field string, rows []models.BubbleRow) error {
		seen := make(map[int]struct{}, len(rows))
		for _, r := range rows {
			if r.Rank < 1 {
				return &ValidationError{Field: field, Reason: fmt.Sprintf("rank %d must be positive", r.Rank)}
			}
			if r.Pct.IsNegative() {
				return &ValidationError{Field: field, Reason: fmt.Sprintf("rank %d has a negative share", r.Rank)}
			}
			if _, dup := seen[r.Rank]; dup {
				return &ValidationError{Field: field, Reason: fmt.Sprintf("duplicate rank %d", r.Rank)}
			}
			seen[r.Rank] = struct{}{}
		}
		return nil
	}
	if err := check("clusters", clusters); err != nil {
		return err
	}
	return check("others", others)
}

type bubbleRow struct {
	Rank int         `json:"rank"`
	Pct  json.Number `json:"pct"`
}

type setBubblesRequest struct {
	CA       string      `json:"ca"`
	Clusters []bubbleRow `json:"clusters"`
	Others   []bubbleRow `json:"others"`
}

func bubbleRows(rows []models.BubbleRow) []bubbleRow {
	out := make([]bubbleRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, bubbleRow{Rank: r.Rank, Pct: number(r.Pct)})
	}
	return out
}

// SetBubbles replaces the holder-distribution estimates of a coin.
func (s *Service) SetBubbles(ctx context.Context, ca string, clusters, others []models.BubbleRow) error {
	ca, err := requireCA(ca)
	if err != nil {
		return err
	}
	if err := ValidateBubbles(clusters, others); err != nil {
		return err
	}
	body := setBubblesRequest{CA: ca, Clusters: bubbleRows(clusters), Others: bubbleRows(others)}
	return s.client.Mutate(ctx, "/bubbles/set", http.MethodPost, body, nil)
}

// ValidateScore checks the 1..10 intuition score range.
func ValidateScore(score int) error {
	if score < 1 || score > 10 {
		return &ValidationError{Field: "intuition_score", Reason: "must be between 1 and 10"}
	}
	return nil
}

// Scores returns GET /scoring.
func (s *Service) Scores(ctx context.Context) ([]models.Score, error) {
	return api.GetJSON[[]models.Score](ctx, s.client, "/scoring")
}

type addScoreRequest struct {
	CA             string `json:"ca"`
	IntuitionScore int    `json:"intuition_score"`
}

type addScoreResponse struct {
	OK    bool         `json:"ok"`
	Score models.Score `json:"score"`
}

// AddScore records an intuition score for a coin and returns the stored entry.
func (s *Service) AddScore(ctx context.Context, ca string, score int) (models.Score, error) {
	ca, err := requireCA(ca)
	if err != nil {
		return models.Score{}, err
	}
	if err := ValidateScore(score); err != nil {
		return models.Score{}, err
	}
	resp, err := api.MutateJSON[addScoreResponse](ctx, s.client, "/scoring", http.MethodPost, addScoreRequest{CA: ca, IntuitionScore: score})
	return resp.Score, err
}

// TokenMeta asks the backend for DexScreener metadata of a token.
func (s *Service) TokenMeta(ctx context.Context, ca string) (models.TokenMeta, error) {
	ca, err := requireCA(ca)
	if err != nil {
		return models.TokenMeta{}, err
	}
	return api.GetJSON[models.TokenMeta](ctx, s.client, "/dexscreener/token_meta?ca="+url.QueryEscape(ca))
}

// Snapshot returns the assistant snapshot as raw JSON.
func (s *Service) Snapshot(ctx context.Context) (json.RawMessage, error) {
	return api.GetJSON[json.RawMessage](ctx, s.client, "/assistant_snapshot")
}

// Login exchanges password for a session credential.
func (s *Service) Login(ctx context.Context, password string) (models.Credential, error) {
	if password == "" {
		return models.Credential{}, &ValidationError{Field: "password", Reason: "is required"}
	}
	return s.client.Login(ctx, password)
}

// Logout forgets the session credential.
func (s *Service) Logout(ctx context.Context) error {
	return s.client.Logout(ctx)
}
