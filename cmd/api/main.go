package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/app"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/auth"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/guard"
	"github.com/SABARISH0014/MXshare-dev-sub000/internal/infra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Store, catalog, gateway, engine
	comps, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	dedupe, err := guard.NewIdempotencyGuard(cfg.IdempotencyCapacity)
	if err != nil {
		return err
	}

	router := app.NewRouter(app.RouterDeps{
		Engine:             comps.Engine,
		Catalog:            comps.Catalog,
		Hub:                comps.Hub,
		JWTMgr:             auth.NewJWTManager(cfg.JWTSecret, cfg.JWTUserExpiry, cfg.JWTServiceExpiry),
		Logger:             logger,
		Dedupe:             dedupe,
		RerollLimit:        cfg.RerollRateLimit,
		HealthChecks:       comps.HealthChecks,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api server starting", "addr", addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if comps.Fanout != nil {
		g.Go(func() error { return comps.Fanout.Run(gctx) })
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		comps.Hub.Shutdown(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}
