package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rostersync/internal/app"
	notificationhandler "rostersync/internal/notification/handler"
	"rostersync/internal/platform/config"
	"rostersync/internal/platform/httpserver"
	"rostersync/internal/platform/logger"
	httpmetrics "rostersync/internal/platform/metrics"
	"rostersync/internal/platform/middleware"
	rosterhandler "rostersync/internal/roster/handler"
	"rostersync/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, runs the
// periodic notification sweep and keeps the server lifecycle small.
// Business logic lives in internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log, app.WithMetrics(app.NewMetrics()))
	if err != nil {
		log.Error("failed to open backends", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.Postgres.URL != "" {
		if err := a.Migrate(ctx); err != nil {
			log.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
	}

	ingestion, err := a.Ingestion(ctx)
	if err != nil {
		log.Error("failed to build ingestion service", "error", err)
		os.Exit(1)
	}
	sweeper, err := a.Sweeper()
	if err != nil {
		log.Error("failed to build notification sweeper", "error", err)
		os.Exit(1)
	}

	m := httpmetrics.New()
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log, m))
	r.Use(middleware.Logger(log, m))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.Health(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	rosterhandler.New(ingestion, log, cfg.Server.AdminToken).Register(r)
	notificationhandler.New(sweeper, log, cfg.Server.AdminToken).Register(r)

	if cfg.Server.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set, write endpoints are unauthenticated")
	}

	srv := httpserver.New(cfg.Server.Addr, r)
	go func() {
		log.Info("starting rostersync", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runSweeps(ctx, sweeper, cfg.Notification.SweepInterval, log)
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	<-done
}
