package desk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/memedesk/internal/client/api"
	"github.com/atinyakov/memedesk/internal/models"
)

type call struct {
	method string
	uri    string
	body   map[string]any
}

type backend struct {
	mu    sync.Mutex
	calls []call
	reply string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	c := call{method: r.Method, uri: r.URL.RequestURI()}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &c.body)
	}
	b.mu.Lock()
	b.calls = append(b.calls, c)
	reply := b.reply
	b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if reply == "" {
		reply = `{"ok":true}`
	}
	_, _ = w.Write([]byte(reply))
}

func (b *backend) last(t *testing.T) call {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.calls)
	return b.calls[len(b.calls)-1]
}

func (b *backend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func newService(t *testing.T, reply string) (*Service, *backend) {
	t.Helper()
	b := &backend{reply: reply}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return New(api.New(srv.URL)), b
}

func TestCoinSummaries(t *testing.T) {
	svc, b := newService(t, `[{"ca":"0xabc","name":"Pepe","chain":"eth","source_type":"dex","trades_total":2,"trades_open":1,"tips_total":0}]`)

	coins, err := svc.CoinSummaries(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, "eth", coins[0].ChainCode())
	assert.Equal(t, models.SourceDex, coins[0].SourceType)
	assert.Equal(t, "/coins/summary", b.last(t).uri)
}

func TestCoinDetailAndDelete(t *testing.T) {
	svc, b := newService(t, `{"coin":{"ca":"So1abc","name":"Dog"},"trades":[],"tips":[],"bubbles":{"clusters":[{"rank":1,"pct":"12.5"}],"others":[]},"scoring":[]}`)

	detail, err := svc.CoinDetail(context.Background(), " So1abc ")
	require.NoError(t, err)
	assert.Equal(t, "/coins/So1abc/detail", b.last(t).uri)
	require.Len(t, detail.Bubbles.Clusters, 1)
	assert.True(t, decimal.RequireFromString("12.5").Equal(detail.Bubbles.Clusters[0].Pct))

	require.NoError(t, svc.DeleteCoin(context.Background(), "So1abc"))
	last := b.last(t)
	assert.Equal(t, http.MethodDelete, last.method)
	assert.Equal(t, "/coins/So1abc", last.uri)
}

func TestOpenTradesAndTipsQueries(t *testing.T) {
	svc, b := newService(t, `[]`)

	_, err := svc.OpenTrades(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "/trades?only_open=true&limit=500", b.last(t).uri)

	_, err = svc.Tips(context.Background(), 25)
	require.NoError(t, err)
	assert.Equal(t, "/tips?limit=25", b.last(t).uri)
}

func TestCloseTrade(t *testing.T) {
	svc, b := newService(t, "")

	err := svc.CloseTrade(context.Background(), "trade_8cd09a1a", decimal.RequireFromString("125000.50"), " tp hit ")
	require.NoError(t, err)
	last := b.last(t)
	assert.Equal(t, http.MethodPost, last.method)
	assert.Equal(t, "/trades/trade_8cd09a1a/close", last.uri)
	assert.Equal(t, 125000.5, last.body["exit_mcap_usd"], "sent as a JSON number")
	assert.Equal(t, "tp hit", last.body["exit_reason"])

	require.NoError(t, svc.CloseTrade(context.Background(), "trade_1", decimal.NewFromInt(1), ""))
	reason, present := b.last(t).body["exit_reason"]
	assert.True(t, present)
	assert.Nil(t, reason)
}

func TestAddScore(t *testing.T) {
	svc, b := newService(t, `{"ok":true,"score":{"id":7,"intuition_score":8,"scored_ts":"2026-10-01T00:00:00Z"}}`)

	score, err := svc.AddScore(context.Background(), "0xabc", 8)
	require.NoError(t, err)
	assert.Equal(t, int64(7), score.ID)
	last := b.last(t)
	assert.Equal(t, "/scoring", last.uri)
	assert.Equal(t, map[string]any{"ca": "0xabc", "intuition_score": float64(8)}, last.body)
}

func TestSetBubbles(t *testing.T) {
	svc, b := newService(t, "")
	clusters := []models.BubbleRow{{Rank: 1, Pct: decimal.RequireFromString("10.5")}, {Rank: 2, Pct: decimal.NewFromInt(3)}}

	require.NoError(t, svc.SetBubbles(context.Background(), "0xabc", clusters, nil))
	last := b.last(t)
	assert.Equal(t, "/bubbles/set", last.uri)
	assert.Equal(t, []any{
		map[string]any{"rank": float64(1), "pct": 10.5},
		map[string]any{"rank": float64(2), "pct": float64(3)},
	}, last.body["clusters"])
	assert.Equal(t, []any{}, last.body["others"])
}

func TestTokenMetaEscapesQuery(t *testing.T) {
	svc, b := newService(t, `{"name":"Pepe","pairs_found":3}`)

	meta, err := svc.TokenMeta(context.Background(), "0xa&b")
	require.NoError(t, err)
	assert.Equal(t, 3, meta.PairsFound)
	assert.Equal(t, "/dexscreener/token_meta?ca=0xa%26b", b.last(t).uri)
}

func TestSnapshotIsRaw(t *testing.T) {
	svc, _ := newService(t, `{"coins":[1,2]}`)
	raw, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"coins":[1,2]}`, string(raw))
}

func TestAddDex(t *testing.T) {
	svc, b := newService(t, "")
	size := decimal.NewFromInt(250)
	score := 6
	launch := time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC)

	err := svc.AddDex(context.Background(), DexAdd{
		Coin:         CoinDraft{CA: "0xabc", Name: "Pepe", Chain: "eth", LaunchTS: &launch},
		EntryMcapUSD: decimal.NewFromInt(50000),
		SizeUSD:      &size,
		Clusters:     []models.BubbleRow{{Rank: 1, Pct: decimal.NewFromInt(5)}},
		Score:        &score,
	})
	require.NoError(t, err)
	last := b.last(t)
	assert.Equal(t, "/wizard/dex_add", last.uri)
	assert.Equal(t, "0xabc", last.body["ca"])
	assert.Equal(t, "Pepe", last.body["name"])
	assert.Nil(t, last.body["symbol"])
	assert.Equal(t, "2026-09-30T12:00:00Z", last.body["launch_ts"])
	assert.Equal(t, float64(50000), last.body["entry_mcap_usd"])
	assert.Equal(t, float64(250), last.body["size_usd"])
	assert.Equal(t, float64(6), last.body["intuition_score"])
	bubbles, ok := last.body["bubbles"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, bubbles["clusters"], 1)
}

func TestAddInfluencer(t *testing.T) {
	svc, b := newService(t, "")
	post := time.Date(2026, 10, 1, 8, 30, 0, 0, time.FixedZone("CET", 3600))

	err := svc.AddInfluencer(context.Background(), InfluencerAdd{
		Coin:        CoinDraft{CA: "So1abc", Chain: "sol"},
		Platform:    "x",
		Handle:      " @caller ",
		PostTS:      post,
		PostMcapUSD: decimal.NewFromInt(90000),
	})
	require.NoError(t, err)
	last := b.last(t)
	assert.Equal(t, "/wizard/influencer_add", last.uri)
	assert.Equal(t, "@caller", last.body["handle"])
	assert.Equal(t, "2026-10-01T07:30:00Z", last.body["post_ts"])
	assert.Nil(t, last.body["intuition_score"])
}

func TestValidationIssuesNoRequest(t *testing.T) {
	svc, b := newService(t, "")
	ctx := context.Background()
	zero := 0
	eleven := 11

	cases := map[string]func() error{
		"short ca": func() error { _, err := svc.CoinDetail(ctx, "ab"); return err },
		"duplicate rank": func() error {
			rows := []models.BubbleRow{{Rank: 1}, {Rank: 1}}
			return svc.SetBubbles(ctx, "0xabc", rows, nil)
		},
		"zero rank": func() error {
			return svc.SetBubbles(ctx, "0xabc", nil, []models.BubbleRow{{Rank: 0}})
		},
		"negative pct": func() error {
			return svc.SetBubbles(ctx, "0xabc", []models.BubbleRow{{Rank: 1, Pct: decimal.NewFromInt(-1)}}, nil)
		},
		"score too low":  func() error { _, err := svc.AddScore(ctx, "0xabc", 0); return err },
		"score too high": func() error { _, err := svc.AddScore(ctx, "0xabc", 11); return err },
		"exit mcap zero": func() error { return svc.CloseTrade(ctx, "trade_1", decimal.Zero, "") },
		"no trade id":    func() error { return svc.CloseTrade(ctx, " ", decimal.NewFromInt(1), "") },
		"dex mcap": func() error {
			return svc.AddDex(ctx, DexAdd{Coin: CoinDraft{CA: "0xabc"}})
		},
		"dex score": func() error {
			return svc.AddDex(ctx, DexAdd{Coin: CoinDraft{CA: "0xabc"}, EntryMcapUSD: decimal.NewFromInt(1), Score: &zero})
		},
		"influencer handle": func() error {
			return svc.AddInfluencer(ctx, InfluencerAdd{Coin: CoinDraft{CA: "0xabc"}, Platform: "x", PostTS: time.Now(), PostMcapUSD: decimal.NewFromInt(1)})
		},
		"influencer score": func() error {
			return svc.AddInfluencer(ctx, InfluencerAdd{
				Coin: CoinDraft{CA: "0xabc"}, Platform: "x", Handle: "h", PostTS: time.Now(),
				PostMcapUSD: decimal.NewFromInt(1), Score: &eleven,
			})
		},
		"empty password": func() error { _, err := svc.Login(ctx, ""); return err },
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			var verr *ValidationError
			assert.ErrorAs(t, run(), &verr)
		})
	}
	assert.Zero(t, b.count())
}

func TestBackendErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"duplicate rank"}`))
	}))
	defer srv.Close()
	svc := New(api.New(srv.URL))

	err := svc.SetBubbles(context.Background(), "0xabc", []models.BubbleRow{{Rank: 1}}, nil)
	var herr *api.HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusUnprocessableEntity, herr.Status)
	assert.Contains(t, herr.Body, "duplicate rank")
}
