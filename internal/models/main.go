// Package models defines the session credential and the backend records
// exchanged with the memedesk API.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credential is a bearer token together with its absolute expiry instant.
type Credential struct {
	// Token is the opaque bearer token issued by the login endpoint.
	Token string `json:"token"`
	// ExpiresAt is the instant after which the token must not be presented.
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidAt reports whether the credential carries a token that has not
// expired at the given instant.
func (c Credential) ValidAt(now time.Time) bool {
	return c.Token != "" && c.ExpiresAt.After(now)
}

// LoginRequest is the payload of POST /auth/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse is the body returned by a successful login exchange.
type LoginResponse struct {
	OK        bool   `json:"ok"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// SourceType tells how a coin entered the journal.
type SourceType string

const (
	// SourceDex marks coins added from a DEX listing.
	SourceDex SourceType = "dex"
	// SourceInfluencer marks coins added from an influencer call.
	SourceInfluencer SourceType = "influencer"
	// SourceBoth marks coins that have both origins.
	SourceBoth SourceType = "both"
)

// CoinSummary is one row of GET /coins/summary.
type CoinSummary struct {
	CA             string     `json:"ca"`
	Name           string     `json:"name"`
	Symbol         *string    `json:"symbol"`
	LaunchTS       *string    `json:"launch_ts"`
	Chain          *string    `json:"chain"`
	SourceType     SourceType `json:"source_type"`
	CreatedTS      *string    `json:"created_ts"`
	TradesTotal    int        `json:"trades_total"`
	TradesOpen     int        `json:"trades_open"`
	TipsTotal      int        `json:"tips_total"`
	LastActivityTS *string    `json:"last_activity_ts"`
}

// ChainCode returns the chain code or an empty string when unknown.
func (c CoinSummary) ChainCode() string {
	if c.Chain == nil {
		return ""
	}
	return *c.Chain
}

// Trade is a recorded position.
type Trade struct {
	ID           int64               `json:"id"`
	TradeID      string              `json:"trade_id"`
	CA           string              `json:"ca"`
	CoinName     string              `json:"coin_name"`
	EntryTS      *string             `json:"entry_ts"`
	EntryMcapUSD decimal.NullDecimal `json:"entry_mcap_usd"`
	SizeUSD      decimal.NullDecimal `json:"size_usd"`
	ExitTS       *string             `json:"exit_ts"`
	ExitMcapUSD  decimal.NullDecimal `json:"exit_mcap_usd"`
	ExitReason   *string             `json:"exit_reason"`
	PnLPct       decimal.NullDecimal `json:"pnl_pct"`
	PnLUSD       decimal.NullDecimal `json:"pnl_usd"`
}

// Tip is an influencer call logged against a coin.
type Tip struct {
	TipID         int64               `json:"tip_id"`
	CA            string              `json:"ca"`
	CoinName      string              `json:"coin_name"`
	AccountID     int64               `json:"account_id"`
	Platform      string              `json:"platform"`
	Handle        string              `json:"handle"`
	PostTS        *string             `json:"post_ts"`
	PostMcapUSD   decimal.Decimal     `json:"post_mcap_usd"`
	PeakMcapUSD   decimal.NullDecimal `json:"peak_mcap_usd"`
	TroughMcapUSD decimal.NullDecimal `json:"trough_mcap_usd"`
	RugFlag       *int                `json:"rug_flag"`
	GainPct       decimal.NullDecimal `json:"gain_pct"`
	DropPct       decimal.NullDecimal `json:"drop_pct"`
	EffectPct     decimal.NullDecimal `json:"effect_pct"`
}

// BubbleRow is one manual holder-distribution estimate.
type BubbleRow struct {
	Rank int             `json:"rank"`
	Pct  decimal.Decimal `json:"pct"`
}

// Bubbles groups cluster and other-holder estimates for a coin.
type Bubbles struct {
	Clusters []BubbleRow `json:"clusters"`
	Others   []BubbleRow `json:"others"`
}

// Score is an intuition score entry.
type Score struct {
	ID             int64  `json:"id,omitempty"`
	IntuitionScore int    `json:"intuition_score"`
	ScoredTS       string `json:"scored_ts"`
}

// AccountSummary aggregates tips by influencer account.
type AccountSummary struct {
	AccountID    int64               `json:"account_id"`
	Platform     string              `json:"platform"`
	Handle       string              `json:"handle"`
	TipsTotal    int                 `json:"tips_total"`
	WinRate50p   decimal.NullDecimal `json:"win_rate_50p"`
	RugRate      decimal.NullDecimal `json:"rug_rate"`
	AvgEffectPct decimal.NullDecimal `json:"avg_effect_pct"`
}

// CoinDetail is the body of GET /coins/{ca}/detail.
type CoinDetail struct {
	Coin            CoinSummary      `json:"coin"`
	Trades          []Trade          `json:"trades"`
	Tips            []Tip            `json:"tips"`
	Bubbles         Bubbles          `json:"bubbles"`
	Scoring         []Score          `json:"scoring"`
	AccountsSummary []AccountSummary `json:"accounts_summary"`
}

// TokenMeta is the body of GET /dexscreener/token_meta.
type TokenMeta struct {
	Name       *string `json:"name"`
	Symbol     *string `json:"symbol"`
	LaunchTS   *string `json:"launch_ts"`
	PairsFound int     `json:"pairs_found"`
	Chain      *string `json:"chain"`
}

// OKResponse is the minimal acknowledgement returned by mutating endpoints.
type OKResponse struct {
	OK bool  `json:"ok"`
	ID int64 `json:"id,omitempty"`
}

// TipsPage is one page of GET /tips/paged. NextCursor is nil on the last page.
type TipsPage struct {
	Items      []Tip   `json:"items"`
	TotalCount int     `json:"total_count"`
	NextCursor *string `json:"next_cursor"`
}

// ActiveContext is the coin the dashboard currently works on.
type ActiveContext struct {
	ID          int64   `json:"id"`
	ActiveCA    *string `json:"active_ca"`
	ActiveChain *string `json:"active_chain"`
	UpdatedTS   string  `json:"updated_ts"`
}
