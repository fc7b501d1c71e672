// Package main starts the memedesk warmup relay: a small HTTP(S) server that
// wakes the backend API on behalf of clients without exposing the warmup key.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/memedesk/internal/backend"
	"github.com/atinyakov/memedesk/internal/config"
	"github.com/atinyakov/memedesk/internal/logger"
	"github.com/atinyakov/memedesk/internal/server/handler/http"
	"github.com/atinyakov/memedesk/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	options, err := config.ParseServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	if options.BackendURL == "" {
		zapLogger.Warn("API_URL is not set; warmup requests will fail")
	}

	timeout := time.Duration(options.WarmupTimeout)
	prober := backend.NewProber(options.BackendURL, options.WarmupKey, &nethttp.Client{Timeout: timeout})
	warmupService := service.NewWarmupService(prober,
		service.WithAttempts(options.WarmupAttempts),
		service.WithTimeout(timeout),
		service.WithBackoff(time.Duration(options.WarmupBackoff)),
		service.WithLogger(zapLogger),
	)
	warmupHandler := &http.WarmupHandler{
		WarmupService: warmupService,
		OriginSetting: "API_URL",
		Logger:        zapLogger,
	}
	router := http.NewRouter(warmupHandler, zapLogger)

	// Probes can take attempts*timeout plus backoff, so the write timeout is derived from them.
	budget := time.Duration(options.WarmupAttempts)*(timeout+time.Duration(options.WarmupBackoff)) + 5*time.Second
	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      budget,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if options.TLSCert != "" && options.TLSKey != "" {
			server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr))
			errCh <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
