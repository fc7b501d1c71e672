package desk

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/memedesk/internal/models"
)

// CoinDraft describes the coin a wizard entry is recorded against.
type CoinDraft struct {
	CA       string
	Name     string
	Symbol   string
	Chain    string
	LaunchTS *time.Time
}

// DexAdd records a coin bought from a DEX listing together with its trade.
type DexAdd struct {
	Coin         CoinDraft
	EntryMcapUSD decimal.Decimal
	SizeUSD      *decimal.Decimal
	Clusters     []models.BubbleRow
	Others       []models.BubbleRow
	Score        *int
}

// InfluencerAdd records an influencer call for a coin.
type InfluencerAdd struct {
	Coin        CoinDraft
	Platform    string
	Handle      string
	PostTS      time.Time
	PostMcapUSD decimal.Decimal
	Clusters    []models.BubbleRow
	Others      []models.BubbleRow
	Score       *int
}

type wizardBubbles struct {
	Clusters []bubbleRow `json:"clusters"`
	Others   []bubbleRow `json:"others"`
}

type coinFields struct {
	CA       string     `json:"ca"`
	Name     *string    `json:"name"`
	Symbol   *string    `json:"symbol"`
	LaunchTS *time.Time `json:"launch_ts"`
	Chain    *string    `json:"chain"`
}

type dexAddRequest struct {
	coinFields
	EntryMcapUSD   json.Number   `json:"entry_mcap_usd"`
	SizeUSD        *json.Number  `json:"size_usd"`
	Bubbles        wizardBubbles `json:"bubbles"`
	IntuitionScore *int          `json:"intuition_score"`
}

type influencerAddRequest struct {
	coinFields
	Platform       string        `json:"platform"`
	Handle         string        `json:"handle"`
	PostTS         time.Time     `json:"post_ts"`
	PostMcapUSD    json.Number   `json:"post_mcap_usd"`
	Bubbles        wizardBubbles `json:"bubbles"`
	IntuitionScore *int          `json:"intuition_score"`
}

func (d CoinDraft) fields() (coinFields, error) {
	ca, err := requireCA(d.CA)
	if err != nil {
		return coinFields{}, err
	}
	return coinFields{
		CA:       ca,
		Name:     optional(d.Name),
		Symbol:   optional(d.Symbol),
		LaunchTS: d.LaunchTS,
		Chain:    optional(d.Chain),
	}, nil
}

func validateExtras(clusters, others []models.BubbleRow, score *int) error {
	if err := ValidateBubbles(clusters, others); err != nil {
		return err
	}
	if score != nil {
		return ValidateScore(*score)
	}
	return nil
}

// AddDex posts a DexAdd to /wizard/dex_add.
func (s *Service) AddDex(ctx context.Context, in DexAdd) error {
	coin, err := in.Coin.fields()
	if err != nil {
		return err
	}
	if !in.EntryMcapUSD.IsPositive() {
		return &ValidationError{Field: "entry_mcap_usd", Reason: "must be greater than 0"}
	}
	if in.SizeUSD != nil && !in.SizeUSD.IsPositive() {
		return &ValidationError{Field: "size_usd", Reason: "must be greater than 0"}
	}
	if err := validateExtras(in.Clusters, in.Others, in.Score); err != nil {
		return err
	}
	body := dexAddRequest{
		coinFields:     coin,
		EntryMcapUSD:   number(in.EntryMcapUSD),
		SizeUSD:        numberPtr(in.SizeUSD),
		Bubbles:        wizardBubbles{Clusters: bubbleRows(in.Clusters), Others: bubbleRows(in.Others)},
		IntuitionScore: in.Score,
	}
	return s.client.Mutate(ctx, "/wizard/dex_add", http.MethodPost, body, nil)
}

// AddInfluencer posts an InfluencerAdd to /wizard/influencer_add.
func (s *Service) AddInfluencer(ctx context.Context, in InfluencerAdd) error {
	coin, err := in.Coin.fields()
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.Platform) == "" {
		return &ValidationError{Field: "platform", Reason: "is required"}
	}
	if strings.TrimSpace(in.Handle) == "" {
		return &ValidationError{Field: "handle", Reason: "is required"}
	}
	if in.PostTS.IsZero() {
		return &ValidationError{Field: "post_ts", Reason: "is required"}
	}
	if !in.PostMcapUSD.IsPositive() {
		return &ValidationError{Field: "post_mcap_usd", Reason: "must be greater than 0"}
	}
	if err := validateExtras(in.Clusters, in.Others, in.Score); err != nil {
		return err
	}
	body := influencerAddRequest{
		coinFields:     coin,
		Platform:       strings.TrimSpace(in.Platform),
		Handle:         strings.TrimSpace(in.Handle),
		PostTS:         in.PostTS.UTC(),
		PostMcapUSD:    number(in.PostMcapUSD),
		Bubbles:        wizardBubbles{Clusters: bubbleRows(in.Clusters), Others: bubbleRows(in.Others)},
		IntuitionScore: in.Score,
	}
	return s.client.Mutate(ctx, "/wizard/influencer_add", http.MethodPost, body, nil)
}
