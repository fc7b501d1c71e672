package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/memedesk/internal/client/api"
	"github.com/atinyakov/memedesk/internal/client/desk"
	"github.com/atinyakov/memedesk/internal/client/logos"
	"github.com/atinyakov/memedesk/internal/models"
)

const helpText = `Available commands:
  coins                                   list coins with logos and dex links
  coin <ca>                               show one coin with trades, tips and bubbles
  delcoin <ca>                            delete a coin
  trades [limit]                          list open trades
  close <trade_id> <exit_mcap> [reason]   close an open trade
  deltrade <trade_id>                     delete a trade
  edittrade <trade_id> [entry=N] [size=N] [exit=N] [reason=text]
                                          correct a trade; reason runs to end of line
  tips [limit]                            list influencer calls
  deltip <tip_id>                         delete a tip
  edittip <tip_id> [peak=N] [trough=N] [rug=0|1]
                                          record how a tip played out
  tippage [cursor]                        one page of tips; repeat with the printed cursor
  context                                 show the active coin
  use <ca> [chain] | use -                set or clear the active coin
  dex <ca> <entry_mcap> [size_usd] [chain]
                                          record a DEX buy
  tip <ca> <platform> <handle> <post_mcap> [post_ts]
                                          record an influencer call
  bubbles <ca> <rank:pct,...> [rank:pct,...]
                                          replace cluster and other-holder estimates
  score <ca> <1-10>                       add an intuition score
  scores                                  list intuition scores
  meta <ca>                               DexScreener metadata of a token
  snapshot                                assistant snapshot
  get <path>                              raw GET
  post|patch|put|delete <path> [json]     raw mutation
  login | logout                          manage the admin session
  help | exit`

// shell is the interactive command loop.
type shell struct {
	desk       *desk.Service
	api        *api.Client
	cache      *logos.Cache
	coinLogos  *logos.Resolver[models.CoinSummary]
	tradeLogos *logos.Resolver[models.Trade]
	// chains maps a logo key to the chain last reported for it by /coins/summary.
	chains  map[string]string
	creds   api.CredentialProvider
	in      *bufio.Reader
	out     io.Writer
	timeout time.Duration
}

func newShell(svc *desk.Service, client *api.Client, creds api.CredentialProvider, cache *logos.Cache, lookup logos.Lookup, in *bufio.Reader, out io.Writer, opts ...logos.ResolverOption) *shell {
	s := &shell{
		desk:    svc,
		api:     client,
		creds:   creds,
		cache:   cache,
		chains:  make(map[string]string),
		in:      in,
		out:     out,
		timeout: commandTimeout,
	}
	s.coinLogos = logos.NewResolver(cache, lookup, coinCA, coinChain, opts...)
	s.tradeLogos = logos.NewResolver(cache, lookup, tradeCA, s.tradeChain, opts...)
	return s
}

func (s *shell) tradeChain(t models.Trade) string {
	return s.chains[logos.Key(t.CA)]
}

func (s *shell) close() {
	s.coinLogos.Close()
	s.tradeLogos.Close()
}

// run reads commands until exit, end of input, or ctx is done.
func (s *shell) run(ctx context.Context) {
	for ctx.Err() == nil {
		fmt.Fprint(s.out, "memedesk> ")
		line, err := s.in.ReadString('\n')
		if strings.TrimSpace(line) != "" {
			if quit := s.exec(ctx, line); quit {
				return
			}
		}
		if err != nil {
			fmt.Fprintln(s.out)
			return
		}
	}
}

// exec runs one command line and reports whether the shell should stop.
func (s *shell) exec(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	if args[0] == "exit" || args[0] == "quit" {
		fmt.Fprintln(s.out, "Bye")
		return true
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.dispatch(cctx, args, line); err != nil {
		fmt.Fprintln(s.out, err)
	}
	return false
}

type usageError string

func (u usageError) Error() string { return "Usage: " + string(u) }

func (s *shell) dispatch(ctx context.Context, args []string, line string) error {
	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "coins":
		return s.coins(ctx)
	case "coin":
		if len(args) < 2 {
			return usageError("coin <ca>")
		}
		return s.coin(ctx, args[1])
	case "delcoin":
		if len(args) < 2 {
			return usageError("delcoin <ca>")
		}
		return s.done(s.desk.DeleteCoin(ctx, args[1]), "Coin deleted")
	case "trades":
		limit, err := optionalInt(args, 1)
		if err != nil {
			return usageError("trades [limit]")
		}
		return s.trades(ctx, limit)
	case "close":
		if len(args) < 3 {
			return usageError("close <trade_id> <exit_mcap> [reason]")
		}
		mcap, err := decimal.NewFromString(args[2])
		if err != nil {
			return fmt.Errorf("exit_mcap: %w", err)
		}
		return s.done(s.desk.CloseTrade(ctx, args[1], mcap, rest(line, 3)), "Trade closed")
	case "deltrade":
		if len(args) < 2 {
			return usageError("deltrade <trade_id>")
		}
		return s.done(s.desk.DeleteTrade(ctx, args[1]), "Trade deleted")
	case "tips":
		limit, err := optionalInt(args, 1)
		if err != nil {
			return usageError("tips [limit]")
		}
		return s.tips(ctx, limit)
	case "deltip":
		if len(args) < 2 {
			return usageError("deltip <tip_id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return usageError("deltip <tip_id>")
		}
		return s.done(s.desk.DeleteTip(ctx, id), "Tip deleted")
	case "edittrade":
		return s.editTrade(ctx, args, line)
	case "edittip":
		return s.editTip(ctx, args)
	case "tippage":
		var cursor string
		if len(args) > 1 {
			cursor = args[1]
		}
		page, err := s.desk.TipsPage(ctx, desk.TipsQuery{Cursor: cursor})
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, renderTipsPage(page))
	case "context":
		active, err := s.desk.ActiveCoin(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, renderActive(active))
	case "use":
		if len(args) < 2 {
			return usageError("use <ca> [chain] | use -")
		}
		var (
			active models.ActiveContext
			err    error
		)
		if args[1] == "-" {
			active, err = s.desk.ClearActiveCoin(ctx)
		} else {
			var chain string
			if len(args) > 2 {
				chain = args[2]
			}
			active, err = s.desk.SetActiveCoin(ctx, args[1], chain)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, renderActive(active))
	case "dex":
		return s.dex(ctx, args)
	case "tip":
		return s.tip(ctx, args)
	case "bubbles":
		return s.bubbles(ctx, args)
	case "score":
		if len(args) < 3 {
			return usageError("score <ca> <1-10>")
		}
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return usageError("score <ca> <1-10>")
		}
		score, err := s.desk.AddScore(ctx, args[1], n)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Scored %d at %s\n", score.IntuitionScore, score.ScoredTS)
	case "scores":
		scores, err := s.desk.Scores(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, renderScores(scores))
	case "meta":
		if len(args) < 2 {
			return usageError("meta <ca>")
		}
		meta, err := s.desk.TokenMeta(ctx, args[1])
		if err != nil {
			return err
		}
		return s.printJSON(meta)
	case "snapshot":
		raw, err := s.desk.Snapshot(ctx)
		if err != nil {
			return err
		}
		return s.printRaw(raw)
	case "get":
		if len(args) < 2 {
			return usageError("get <path>")
		}
		raw, err := api.GetJSON[json.RawMessage](ctx, s.api, args[1])
		if err != nil {
			return err
		}
		return s.printRaw(raw)
	case "post", "patch", "put", "delete":
		if len(args) < 2 {
			return usageError(args[0] + " <path> [json]")
		}
		var body any
		if payload := rest(line, 2); payload != "" {
			if !json.Valid([]byte(payload)) {
				return errors.New("body is not valid JSON")
			}
			body = json.RawMessage(payload)
		}
		raw, err := api.MutateJSON[json.RawMessage](ctx, s.api, args[1], strings.ToUpper(args[0]), body)
		if err != nil {
			return err
		}
		return s.printRaw(raw)
	case "login":
		password, err := s.creds.RequestPassword(ctx)
		if err != nil {
			return err
		}
		cred, err := s.desk.Login(ctx, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Logged in until %s\n", cred.ExpiresAt.Local().Format(time.RFC1123))
	case "logout":
		return s.done(s.desk.Logout(ctx), "Logged out")
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func (s *shell) done(err error, msg string) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, msg)
	return nil
}

func (s *shell) coins(ctx context.Context) error {
	coins, err := s.desk.CoinSummaries(ctx)
	if err != nil {
		return err
	}
	for _, c := range coins {
		if chain := c.ChainCode(); chain != "" {
			s.chains[logos.Key(c.CA)] = chain
		}
	}
	// lookups outlive the command; the next listing shows what resolved
	pass := s.coinLogos.Refresh(context.WithoutCancel(ctx), coins)
	fmt.Fprintln(s.out, renderCoins(coins, s.cache.Snapshot()))
	if n := pass.Candidates(); n > 0 {
		fmt.Fprintf(s.out, "resolving %d logos in the background\n", n)
	}
	return nil
}

func (s *shell) coin(ctx context.Context, ca string) error {
	detail, err := s.desk.CoinDetail(ctx, ca)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, renderCoinDetail(detail, s.cache.Snapshot()))
	return nil
}

func (s *shell) trades(ctx context.Context, limit int) error {
	trades, err := s.desk.OpenTrades(ctx, limit)
	if err != nil {
		return err
	}
	s.tradeLogos.Refresh(context.WithoutCancel(ctx), trades)
	fmt.Fprintln(s.out, renderTrades(trades, s.cache.Snapshot()))
	return nil
}

func (s *shell) tips(ctx context.Context, limit int) error {
	tips, err := s.desk.Tips(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, renderTips(tips))
	return nil
}

func (s *shell) dex(ctx context.Context, args []string) error {
	const usage = usageError("dex <ca> <entry_mcap> [size_usd] [chain]")
	if len(args) < 3 {
		return usage
	}
	mcap, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("entry_mcap: %w", err)
	}
	in := desk.DexAdd{Coin: desk.CoinDraft{CA: args[1]}, EntryMcapUSD: mcap}
	if len(args) > 3 {
		size, err := decimal.NewFromString(args[3])
		if err != nil {
			return fmt.Errorf("size_usd: %w", err)
		}
		in.SizeUSD = &size
	}
	if len(args) > 4 {
		in.Coin.Chain = args[4]
	}
	return s.done(s.desk.AddDex(ctx, in), "Trade recorded")
}

func (s *shell) tip(ctx context.Context, args []string) error {
	const usage = usageError("tip <ca> <platform> <handle> <post_mcap> [post_ts]")
	if len(args) < 5 {
		return usage
	}
	mcap, err := decimal.NewFromString(args[4])
	if err != nil {
		return fmt.Errorf("post_mcap: %w", err)
	}
	posted := time.Now()
	if len(args) > 5 {
		if posted, err = time.Parse(time.RFC3339, args[5]); err != nil {
			return fmt.Errorf("post_ts: %w", err)
		}
	}
	in := desk.InfluencerAdd{
		Coin:        desk.CoinDraft{CA: args[1]},
		Platform:    args[2],
		Handle:      args[3],
		PostTS:      posted,
		PostMcapUSD: mcap,
	}
	return s.done(s.desk.AddInfluencer(ctx, in), "Tip recorded")
}

func (s *shell) editTrade(ctx context.Context, args []string, line string) error {
	const usage = usageError("edittrade <trade_id> [entry=N] [size=N] [exit=N] [reason=text]")
	if len(args) < 2 {
		return usage
	}
	var in desk.TradeUpdate
	fields := args[2:]
	if i := strings.Index(line, " reason="); i >= 0 {
		head := strings.Fields(line[:i])
		if len(head) < 2 {
			return usage
		}
		reason := strings.TrimSpace(line[i+len(" reason="):])
		in.ExitReason = &reason
		fields = head[2:]
	}
	for _, f := range fields {
		key, val, ok := strings.Cut(f, "=")
		if !ok {
			return usage
		}
		d, err := decimal.NewFromString(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "entry":
			in.EntryMcapUSD = &d
		case "size":
			in.SizeUSD = &d
		case "exit":
			in.ExitMcapUSD = &d
		default:
			return usage
		}
	}
	return s.done(s.desk.UpdateTrade(ctx, args[1], in), "Trade updated")
}

func (s *shell) editTip(ctx context.Context, args []string) error {
	const usage = usageError("edittip <tip_id> [peak=N] [trough=N] [rug=0|1]")
	if len(args) < 2 {
		return usage
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return usage
	}
	var in desk.TipUpdate
	for _, f := range args[2:] {
		key, val, ok := strings.Cut(f, "=")
		if !ok {
			return usage
		}
		if key == "rug" {
			if val != "0" && val != "1" {
				return usage
			}
			rug := val == "1"
			in.Rug = &rug
			continue
		}
		d, err := decimal.NewFromString(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "peak":
			in.PeakMcapUSD = &d
		case "trough":
			in.TroughMcapUSD = &d
		default:
			return usage
		}
	}
	return s.done(s.desk.UpdateTip(ctx, id, in), "Tip updated")
}

func (s *shell) bubbles(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usageError("bubbles <ca> <rank:pct,...> [rank:pct,...]")
	}
	clusters, err := parseBubbles(args[2])
	if err != nil {
		return err
	}
	var others []models.BubbleRow
	if len(args) > 3 {
		if others, err = parseBubbles(args[3]); err != nil {
			return err
		}
	}
	return s.done(s.desk.SetBubbles(ctx, args[1], clusters, others), "Bubbles saved")
}

func (s *shell) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, string(b))
	return nil
}

func (s *shell) printRaw(raw json.RawMessage) error {
	if len(raw) == 0 {
		fmt.Fprintln(s.out, "OK")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Fprintln(s.out, string(raw))
		return nil
	}
	fmt.Fprintln(s.out, buf.String())
	return nil
}

// parseBubbles reads "1:12.5,2:3" into rows. "-" means an empty list.
func parseBubbles(arg string) ([]models.BubbleRow, error) {
	if arg == "-" {
		return nil, nil
	}
	var rows []models.BubbleRow
	for _, part := range strings.Split(arg, ",") {
		rank, pct, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("bubble %q: want rank:pct", part)
		}
		r, err := strconv.Atoi(rank)
		if err != nil {
			return nil, fmt.Errorf("bubble %q: rank: %w", part, err)
		}
		p, err := decimal.NewFromString(pct)
		if err != nil {
			return nil, fmt.Errorf("bubble %q: pct: %w", part, err)
		}
		rows = append(rows, models.BubbleRow{Rank: r, Pct: p})
	}
	return rows, nil
}

func optionalInt(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, nil
	}
	return strconv.Atoi(args[i])
}

// rest returns line without its first n fields.
func rest(line string, n int) string {
	line = strings.TrimSpace(line)
	for i := 0; i < n && line != ""; i++ {
		end := strings.IndexFunc(line, unicode.IsSpace)
		if end < 0 {
			return ""
		}
		line = strings.TrimLeftFunc(line[end:], unicode.IsSpace)
	}
	return line
}
