package desk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/memedesk/internal/client/api"
	"github.com/atinyakov/memedesk/internal/models"
)

// TradeUpdate lists the trade fields to change. Nil fields are left alone.
type TradeUpdate struct {
	EntryMcapUSD *decimal.Decimal
	SizeUSD      *decimal.Decimal
	ExitMcapUSD  *decimal.Decimal
	ExitReason   *string
}

type tradeUpdateRequest struct {
	EntryMcapUSD *json.Number `json:"entry_mcap_usd,omitempty"`
	SizeUSD      *json.Number `json:"size_usd,omitempty"`
	ExitMcapUSD  *json.Number `json:"exit_mcap_usd,omitempty"`
	ExitReason   *string      `json:"exit_reason,omitempty"`
}

func positive(field string, d *decimal.Decimal) error {
	if d != nil && !d.IsPositive() {
		return &ValidationError{Field: field, Reason: "must be greater than 0"}
	}
	return nil
}

// UpdateTrade patches a trade. At least one field must be set.
func (s *Service) UpdateTrade(ctx context.Context, tradeID string, in TradeUpdate) error {
	tradeID = strings.TrimSpace(tradeID)
	if tradeID == "" {
		return &ValidationError{Field: "trade_id", Reason: "is required"}
	}
	if in.EntryMcapUSD == nil && in.SizeUSD == nil && in.ExitMcapUSD == nil && in.ExitReason == nil {
		return &ValidationError{Field: "trade", Reason: "no fields to update"}
	}
	for field, v := range map[string]*decimal.Decimal{
		"entry_mcap_usd": in.EntryMcapUSD,
		"size_usd":       in.SizeUSD,
		"exit_mcap_usd":  in.ExitMcapUSD,
	} {
		if err := positive(field, v); err != nil {
			return err
		}
	}
	body := tradeUpdateRequest{
		EntryMcapUSD: numberPtr(in.EntryMcapUSD),
		SizeUSD:      numberPtr(in.SizeUSD),
		ExitMcapUSD:  numberPtr(in.ExitMcapUSD),
		ExitReason:   in.ExitReason,
	}
	return s.client.Mutate(ctx, "/trades/"+url.PathEscape(tradeID), http.MethodPatch, body, nil)
}

// TipUpdate lists the tip outcome fields to change. Nil fields are left alone.
type TipUpdate struct {
	PeakMcapUSD   *decimal.Decimal
	TroughMcapUSD *decimal.Decimal
	Rug           *bool
}

type tipUpdateRequest struct {
	PeakMcapUSD   *json.Number `json:"peak_mcap_usd,omitempty"`
	TroughMcapUSD *json.Number `json:"trough_mcap_usd,omitempty"`
	RugFlag       *int         `json:"rug_flag,omitempty"`
}

// UpdateTip records how a tipped coin played out. At least one field must be set.
func (s *Service) UpdateTip(ctx context.Context, tipID int64, in TipUpdate) error {
	if tipID < 1 {
		return &ValidationError{Field: "tip_id", Reason: "must be positive"}
	}
	if in.PeakMcapUSD == nil && in.TroughMcapUSD == nil && in.Rug == nil {
		return &ValidationError{Field: "tip", Reason: "no fields to update"}
	}
	if err := positive("peak_mcap_usd", in.PeakMcapUSD); err != nil {
		return err
	}
	if err := positive("trough_mcap_usd", in.TroughMcapUSD); err != nil {
		return err
	}
	body := tipUpdateRequest{
		PeakMcapUSD:   numberPtr(in.PeakMcapUSD),
		TroughMcapUSD: numberPtr(in.TroughMcapUSD),
	}
	if in.Rug != nil {
		flag := 0
		if *in.Rug {
			flag = 1
		}
		body.RugFlag = &flag
	}
	return s.client.Mutate(ctx, "/tips/"+strconv.FormatInt(tipID, 10), http.MethodPatch, body, nil)
}

// TipsQuery selects a page of GET /tips/paged.
type TipsQuery struct {
	// Limit defaults to 100 and may not exceed 500.
	Limit int
	CA    string
	// Search matches coin, handle or platform text.
	Search string
	// Cursor is the NextCursor of the previous page.
	Cursor string
}

// TipsPage returns one page of tips, newest first.
func (s *Service) TipsPage(ctx context.Context, q TipsQuery) (models.TipsPage, error) {
	if q.Limit == 0 {
		q.Limit = 100
	}
	if q.Limit < 1 || q.Limit > 500 {
		return models.TipsPage{}, &ValidationError{Field: "limit", Reason: "must be between 1 and 500"}
	}
	values := url.Values{}
	values.Set("limit", strconv.Itoa(q.Limit))
	if ca := strings.TrimSpace(q.CA); ca != "" {
		values.Set("ca", ca)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		values.Set("q", search)
	}
	if q.Cursor != "" {
		values.Set("cursor", q.Cursor)
	}
	return api.GetJSON[models.TipsPage](ctx, s.client, "/tips/paged?"+values.Encode())
}

type contextSetRequest struct {
	ActiveCA    *string `json:"active_ca"`
	ActiveChain *string `json:"active_chain"`
}

// ActiveCoin returns the dashboard's active-coin context.
func (s *Service) ActiveCoin(ctx context.Context) (models.ActiveContext, error) {
	return api.GetJSON[models.ActiveContext](ctx, s.client, "/context")
}

// SetActiveCoin makes ca the active coin. An empty chain lets the backend
// pick the only chain the address is known on.
func (s *Service) SetActiveCoin(ctx context.Context, ca, chain string) (models.ActiveContext, error) {
	ca, err := requireCA(ca)
	if err != nil {
		return models.ActiveContext{}, err
	}
	return s.postContext(ctx, contextSetRequest{ActiveCA: &ca, ActiveChain: optional(chain)})
}

// ClearActiveCoin unsets the active coin.
func (s *Service) ClearActiveCoin(ctx context.Context) (models.ActiveContext, error) {
	return s.postContext(ctx, contextSetRequest{})
}

func (s *Service) postContext(ctx context.Context, body contextSetRequest) (models.ActiveContext, error) {
	var out models.ActiveContext
	err := s.client.Mutate(ctx, "/context", http.MethodPost, body, &out)
	return out, err
}
