package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/credkeeper/internal/adapter/driven/digest"
	metricsadapter "github.com/ericfisherdev/credkeeper/internal/adapter/driven/metrics"
	sqliteadapter "github.com/ericfisherdev/credkeeper/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/credkeeper/internal/adapter/driving/http"
	"github.com/ericfisherdev/credkeeper/internal/application"
	"github.com/ericfisherdev/credkeeper/internal/config"
	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars or config file).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"username", cfg.Auth.Username,
		"auth_enabled", cfg.Auth.Enabled,
		"metrics_enabled", cfg.MetricsEnabled,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open journal database and run migrations.
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 4. Metrics.
	mux := http.NewServeMux()
	var metrics driven.Metrics
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = metricsadapter.NewCollector(reg)
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	// 5. Probe digest tiers and wire the credential services.
	tiers := digest.Probe(slog.Default(), digest.DefaultTiers()...)

	credSvc := application.NewCredentialService(cfg.CredentialRecord(), tiers, metrics, slog.Default())
	journal := sqliteadapter.NewEventJournalRepo(db)
	application.AttachJournal(credSvc, journal, slog.Default())
	verifier := application.NewLoginVerifier(credSvc, slog.Default())
	sessions := application.NewSessionManager(credSvc, slog.Default())

	// 6. Initialize the digest. Failures leave the store ready with no digest.
	if err := credSvc.Initialize(ctx); err != nil {
		slog.Error("credential initialization failed, credential checks will be rejected", "error", err)
	}

	// 7. HTTP API.
	settings := map[string]any{
		"proxy": cfg.Proxy,
		"ui":    cfg.UI,
		"app":   cfg.App,
	}
	apiHandler := httphandler.NewHandler(credSvc, verifier, sessions, journal, settings, slog.Default())
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.ApplyMiddleware(mux, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sessions.Start(gctx, cfg.SessionSweep)
		return nil
	})

	g.Go(func() error {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	slog.Info("credkeeper started", "listen_addr", cfg.ListenAddr, "digest_tiers", len(tiers))

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}
