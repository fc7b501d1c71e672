// Package main is the memedesk operator console: an interactive shell over
// the memedesk backend API.
package main

import (
	"bufio"
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/atinyakov/memedesk/internal/client/api"
	"github.com/atinyakov/memedesk/internal/client/desk"
	"github.com/atinyakov/memedesk/internal/client/logos"
	"github.com/atinyakov/memedesk/internal/client/prompt"
	"github.com/atinyakov/memedesk/internal/client/session"
	"github.com/atinyakov/memedesk/internal/config"
	"github.com/atinyakov/memedesk/internal/db"
	"github.com/atinyakov/memedesk/internal/logger"
	"github.com/atinyakov/memedesk/internal/models"
	"github.com/atinyakov/memedesk/internal/repository"
)

var (
	version   string
	buildDate string
)

// commandTimeout bounds one shell command, warmup included.
const commandTimeout = 2 * time.Minute

func main() {
	options, err := config.ParseClient(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{}
	if options.CAFile != "" {
		if httpClient, err = api.NewTLSHTTPClient(options.CAFile, 0); err != nil {
			zapLogger.Fatal("failed to load CA bundle", zap.Error(err))
		}
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		zapLogger.Fatal("failed to create cookie jar", zap.Error(err))
	}

	store, closeStore, err := openStore(ctx, options, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to open session store", zap.Error(err))
	}
	defer closeStore()

	in := bufio.NewReader(os.Stdin)
	creds := choosePrompt(options.Prompt, in)
	client := api.New(options.APIURL,
		api.WithHTTPClient(httpClient),
		api.WithCookieJar(jar),
		api.WithSessionStore(store),
		api.WithCredentialProvider(creds),
		api.WithWarmupURL(options.WarmupURL),
		api.WithLogger(zapLogger),
	)

	cache := logos.NewCache()
	dex := logos.NewDexScreener(options.DexScreenerURL, logos.WithDexLogger(zapLogger))
	sh := newShell(desk.New(client), client, creds, cache, dex, in, os.Stdout,
		logos.WithLimit(options.LogoLimit), logos.WithLogger(zapLogger))
	defer sh.close()

	fmt.Printf("memedesk %s (%s), API %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"), cmp.Or(client.BaseURL(), "N/A"))
	sh.run(ctx)
}

// openStore picks the SQL session store when a DSN is configured and the
// JSON file store otherwise.
func openStore(ctx context.Context, options *config.ClientOptions, log *zap.Logger) (session.Store, func(), error) {
	if options.SessionDSN == "" {
		return session.NewFileStore(options.SessionFile, time.Now), func() {}, nil
	}
	conn, err := db.Open(options.SessionDSN)
	if err != nil {
		return nil, nil, err
	}
	db.StartExpiredSessionCleaner(ctx, conn, time.Hour, log)
	repo := repository.NewSQLSessionRepository(conn)
	closeFn := func() {
		if err := conn.Close(); err != nil && err != sql.ErrConnDone {
			log.Warn("failed to close session database", zap.Error(err))
		}
	}
	return session.NewSQLStore(repo, options.Profile, time.Now), closeFn, nil
}

// choosePrompt returns the huh form on a terminal (or when forced with
// "tui") and a line reader sharing the shell's input otherwise.
func choosePrompt(mode string, in *bufio.Reader) api.CredentialProvider {
	switch mode {
	case "tui":
		return &prompt.FormPrompt{}
	case "accessible":
		return &prompt.FormPrompt{Accessible: true}
	case "plain":
		return prompt.NewPlainPrompt(in, os.Stdout)
	}
	fd := os.Stdin.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return &prompt.FormPrompt{}
	}
	return prompt.NewPlainPrompt(in, os.Stdout)
}

// coinCA and friends are the logo accessors of the listed records.
func coinCA(c models.CoinSummary) string    { return c.CA }
func coinChain(c models.CoinSummary) string { return c.ChainCode() }
func tradeCA(t models.Trade) string         { return t.CA }
