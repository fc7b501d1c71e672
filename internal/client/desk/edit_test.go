package desk

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestUpdateTrade(t *testing.T) {
	svc, b := newService(t, "")

	reason := "moved stop"
	err := svc.UpdateTrade(context.Background(), "trade_8cd09a1a", TradeUpdate{SizeUSD: dec("250.75"), ExitReason: &reason})
	require.NoError(t, err)
	last := b.last(t)
	assert.Equal(t, http.MethodPatch, last.method)
	assert.Equal(t, "/trades/trade_8cd09a1a", last.uri)
	assert.Equal(t, map[string]any{"size_usd": 250.75, "exit_reason": "moved stop"}, last.body)
}

func TestUpdateTip(t *testing.T) {
	svc, b := newService(t, "")

	rug := true
	require.NoError(t, svc.UpdateTip(context.Background(), 42, TipUpdate{PeakMcapUSD: dec("1200000"), Rug: &rug}))
	last := b.last(t)
	assert.Equal(t, http.MethodPatch, last.method)
	assert.Equal(t, "/tips/42", last.uri)
	assert.Equal(t, map[string]any{"peak_mcap_usd": 1200000.0, "rug_flag": 1.0}, last.body)

	rug = false
	require.NoError(t, svc.UpdateTip(context.Background(), 42, TipUpdate{Rug: &rug}))
	assert.Equal(t, map[string]any{"rug_flag": 0.0}, b.last(t).body, "a cleared flag is still sent")
}

func TestTipsPage(t *testing.T) {
	svc, b := newService(t, `{"items":[{"tip_id":7,"ca":"0xabc","platform":"x","handle":"h","post_mcap_usd":1000}],"total_count":31,"next_cursor":"2026-01-01T00:00:00,7"}`)

	page, err := svc.TipsPage(context.Background(), TipsQuery{})
	require.NoError(t, err)
	assert.Equal(t, "/tips/paged?limit=100", b.last(t).uri)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(7), page.Items[0].TipID)
	assert.Equal(t, 31, page.TotalCount)
	require.NotNil(t, page.NextCursor)

	_, err = svc.TipsPage(context.Background(), TipsQuery{Limit: 50, CA: " 0xabc ", Search: "pepe", Cursor: *page.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, "/tips/paged?ca=0xabc&cursor=2026-01-01T00%3A00%3A00%2C7&limit=50&q=pepe", b.last(t).uri)
}

func TestActiveCoin(t *testing.T) {
	svc, b := newService(t, `{"id":1,"active_ca":"0xabc","active_chain":"eth","updated_ts":"2026-01-02T03:04:05"}`)
	ctx := context.Background()

	got, err := svc.ActiveCoin(ctx)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, b.last(t).method)
	assert.Equal(t, "/context", b.last(t).uri)
	require.NotNil(t, got.ActiveCA)
	assert.Equal(t, "0xabc", *got.ActiveCA)

	_, err = svc.SetActiveCoin(ctx, " 0xABC ", "")
	require.NoError(t, err)
	last := b.last(t)
	assert.Equal(t, http.MethodPost, last.method)
	assert.Equal(t, map[string]any{"active_ca": "0xABC", "active_chain": nil}, last.body)

	_, err = svc.SetActiveCoin(ctx, "0xabc", "base")
	require.NoError(t, err)
	assert.Equal(t, "base", b.last(t).body["active_chain"])

	_, err = svc.ClearActiveCoin(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"active_ca": nil, "active_chain": nil}, b.last(t).body)
}

func TestEditValidationIssuesNoRequest(t *testing.T) {
	svc, b := newService(t, "")
	ctx := context.Background()
	yes := true

	cases := map[string]func() error{
		"trade without fields": func() error { return svc.UpdateTrade(ctx, "trade_1", TradeUpdate{}) },
		"trade without id":     func() error { return svc.UpdateTrade(ctx, " ", TradeUpdate{SizeUSD: dec("1")}) },
		"trade zero entry":     func() error { return svc.UpdateTrade(ctx, "trade_1", TradeUpdate{EntryMcapUSD: dec("0")}) },
		"trade negative size":  func() error { return svc.UpdateTrade(ctx, "trade_1", TradeUpdate{SizeUSD: dec("-5")}) },
		"trade zero exit":      func() error { return svc.UpdateTrade(ctx, "trade_1", TradeUpdate{ExitMcapUSD: dec("0")}) },
		"tip without fields":   func() error { return svc.UpdateTip(ctx, 1, TipUpdate{}) },
		"tip zero id":          func() error { return svc.UpdateTip(ctx, 0, TipUpdate{Rug: &yes}) },
		"tip zero peak":        func() error { return svc.UpdateTip(ctx, 1, TipUpdate{PeakMcapUSD: dec("0")}) },
		"tip negative trough":  func() error { return svc.UpdateTip(ctx, 1, TipUpdate{TroughMcapUSD: dec("-1")}) },
		"page limit too high":  func() error { _, err := svc.TipsPage(ctx, TipsQuery{Limit: 501}); return err },
		"page limit negative":  func() error { _, err := svc.TipsPage(ctx, TipsQuery{Limit: -1}); return err },
		"context short ca":     func() error { _, err := svc.SetActiveCoin(ctx, "ab", ""); return err },
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			var verr *ValidationError
			assert.ErrorAs(t, run(), &verr)
		})
	}
	assert.Zero(t, b.count())
}
