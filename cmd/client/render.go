package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/atinyakov/memedesk/internal/client/logos"
	"github.com/atinyakov/memedesk/internal/models"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func str(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return *p
}

func money(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

func logo(snapshot map[string]string, ca string) string {
	if url, ok := snapshot[logos.Key(ca)]; ok {
		return url
	}
	return "-"
}

func renderCoins(coins []models.CoinSummary, snapshot map[string]string) string {
	if len(coins) == 0 {
		return "No coins"
	}
	t := newTable("Name", "Symbol", "Chain", "CA", "Source", "Trades", "Tips", "Logo", "Dex")
	for _, c := range coins {
		t.Row(
			c.Name,
			str(c.Symbol),
			str(c.Chain),
			c.CA,
			string(c.SourceType),
			fmt.Sprintf("%d/%d", c.TradesOpen, c.TradesTotal),
			strconv.Itoa(c.TipsTotal),
			logo(snapshot, c.CA),
			logos.DexURL(c.ChainCode(), c.CA),
		)
	}
	return t.String()
}

func renderTrades(trades []models.Trade, snapshot map[string]string) string {
	if len(trades) == 0 {
		return "No open trades"
	}
	t := newTable("Trade", "Coin", "CA", "Entry", "Entry mcap", "Size", "Exit mcap", "PnL %", "Logo")
	for _, tr := range trades {
		t.Row(
			tr.TradeID,
			tr.CoinName,
			tr.CA,
			str(tr.EntryTS),
			money(tr.EntryMcapUSD),
			money(tr.SizeUSD),
			money(tr.ExitMcapUSD),
			money(tr.PnLPct),
			logo(snapshot, tr.CA),
		)
	}
	return t.String()
}

func renderTips(tips []models.Tip) string {
	if len(tips) == 0 {
		return "No tips"
	}
	t := newTable("Tip", "Coin", "Platform", "Handle", "Posted", "Post mcap", "Peak mcap", "Effect %")
	for _, tp := range tips {
		t.Row(
			strconv.FormatInt(tp.TipID, 10),
			tp.CoinName,
			tp.Platform,
			tp.Handle,
			str(tp.PostTS),
			tp.PostMcapUSD.StringFixed(2),
			money(tp.PeakMcapUSD),
			money(tp.EffectPct),
		)
	}
	return t.String()
}

func renderScores(scores []models.Score) string {
	if len(scores) == 0 {
		return "No scores"
	}
	t := newTable("ID", "Score", "Scored")
	for _, s := range scores {
		t.Row(strconv.FormatInt(s.ID, 10), strconv.Itoa(s.IntuitionScore), s.ScoredTS)
	}
	return t.String()
}

func renderBubbles(title string, rows []models.BubbleRow) string {
	if len(rows) == 0 {
		return title + ": none"
	}
	t := newTable("Rank", "Pct")
	for _, r := range rows {
		t.Row(strconv.Itoa(r.Rank), r.Pct.String())
	}
	return title + "\n" + t.String()
}

func renderCoinDetail(d models.CoinDetail, snapshot map[string]string) string {
	c := d.Coin
	out := fmt.Sprintf("%s (%s) on %s\nCA:   %s\nLogo: %s\nDex:  %s\n",
		c.Name, str(c.Symbol), str(c.Chain), c.CA, logo(snapshot, c.CA), logos.DexURL(c.ChainCode(), c.CA))
	out += "\nTrades\n" + renderTrades(d.Trades, snapshot) + "\n"
	out += "\nTips\n" + renderTips(d.Tips) + "\n"
	out += "\n" + renderBubbles("Clusters", d.Bubbles.Clusters) + "\n"
	out += renderBubbles("Others", d.Bubbles.Others) + "\n"
	out += "\nScores\n" + renderScores(d.Scoring)
	return out
}

func renderTipsPage(page models.TipsPage) string {
	out := fmt.Sprintf("%s\n%d of %d tips", renderTips(page.Items), len(page.Items), page.TotalCount)
	if page.NextCursor != nil {
		out += "; next: tippage " + *page.NextCursor
	}
	return out
}

func renderActive(c models.ActiveContext) string {
	if c.ActiveCA == nil {
		return "No active coin"
	}
	return fmt.Sprintf("Active coin %s on %s since %s", *c.ActiveCA, str(c.ActiveChain), c.UpdatedTS)
}
