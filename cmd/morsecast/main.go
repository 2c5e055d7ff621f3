package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/morsecast/morsecast/internal/api"
	"github.com/morsecast/morsecast/internal/api/middleware"
	"github.com/morsecast/morsecast/internal/config"
	"github.com/morsecast/morsecast/internal/database"
	"github.com/morsecast/morsecast/internal/database/pgstore"
	"github.com/morsecast/morsecast/internal/media"
	"github.com/morsecast/morsecast/internal/metrics"
	"github.com/morsecast/morsecast/internal/pipeline"
	"github.com/morsecast/morsecast/internal/retention"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging.
	slog.SetDefault(slog.New(cfg.SlogHandler(os.Stderr)))

	startTime := time.Now()

	slog.Info("starting morsecast",
		"http_port", cfg.HTTPPort,
		"data_dir", cfg.DataDir,
		"tls", cfg.TLSEnabled(),
		"auth", cfg.AuthEnabled(),
	)
	if !cfg.AuthEnabled() {
		slog.Warn("no jwt secret configured, the api is open to anyone who can reach it")
	}

	// Application context for background goroutines, cancelled on SIGINT/SIGTERM.
	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clips, closeStore, err := openClipStore(appCtx, cfg)
	if err != nil {
		slog.Error("failed to open clip store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	synth := media.NewSynthesizer(media.WithLogger(slog.Default()))
	svc := pipeline.NewService(synth, clips, cfg.PipelineConfig(), slog.Default())

	// Expire old clips in the background.
	sweeper := retention.NewSweeper(clips, cfg.ClipMaxDays, retention.DefaultInterval)
	sweeperDone := sweeper.Start(appCtx)

	metricsHandler, err := metrics.Handler(metrics.NewCollector(svc, clips, sweeper, startTime))
	if err != nil {
		slog.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	handler, err := api.NewServer(appCtx, cfg, svc, clips, metricsHandler)
	if err != nil {
		slog.Error("failed to create api server", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var redirectSrv *http.Server
	if cfg.RedirectPort != 0 {
		redirectSrv = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.RedirectPort),
			Handler:      middleware.HTTPSRedirectHandler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		}
	}

	// Start servers in goroutines.
	errCh := make(chan error, 2)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr, "tls", cfg.TLSEnabled())
		var err error
		if cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if redirectSrv != nil {
		go func() {
			slog.Info("https redirect listening", "addr", redirectSrv.Addr)
			if err := redirectSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	// Wait for a shutdown signal or server error.
	exitCode := 0
	select {
	case <-appCtx.Done():
		slog.Info("received shutdown signal")
	case err := <-errCh:
		slog.Error("http server error", "error", err)
		exitCode = 1
	}
	stop()

	// Graceful shutdown with timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutting down servers")
	if redirectSrv != nil {
		if err := redirectSrv.Shutdown(ctx); err != nil {
			slog.Error("redirect server shutdown error", "error", err)
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", "error", err)
		exitCode = 1
	}

	select {
	case <-sweeperDone:
	case <-ctx.Done():
		slog.Warn("retention sweeper did not stop in time")
	}

	slog.Info("morsecast stopped")
	if exitCode != 0 {
		closeStore()
		os.Exit(exitCode)
	}
}

// openClipStore opens PostgreSQL when a DSN is configured and SQLite in the
// data directory otherwise. The returned func closes the store.
func openClipStore(ctx context.Context, cfg *config.Config) (database.ClipRepository, func(), error) {
	if cfg.DatabaseDSN != "" {
		store, err := pgstore.New(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}

	db, err := database.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return database.NewClipRepository(db), func() { db.Close() }, nil
}

// issueToken prints a bearer token for the subject named by the first
// positional argument. It reads the same flags and environment as the
// server so the secret and lifetime match.
func issueToken(args []string, out io.Writer) error {
	cfg, err := config.LoadArgs(args)
	if err != nil {
		return err
	}
	if len(cfg.Args) != 1 {
		return errors.New("usage: morsecast token [flags] <subject>")
	}

	secret, err := cfg.JWTSecretBytes()
	if err != nil {
		return err
	}
	if secret == nil {
		return errors.New("jwt-secret is not configured, the api does not need tokens")
	}

	token, expires, err := middleware.GenerateToken(secret, cfg.Args[0], cfg.TokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	slog.Info("token issued", "subject", cfg.Args[0], "expires_at", expires.Format(time.RFC3339))
	return nil
}
