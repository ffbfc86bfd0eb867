// Command scraper runs the news scraping service: the HTTP API, the
// background scheduler, and the Postgres-backed article store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dawnscraper/internal/api"
	"dawnscraper/internal/config"
	collyfetcher "dawnscraper/internal/fetcher/colly"
	"dawnscraper/internal/logging"
	"dawnscraper/internal/metrics"
	"dawnscraper/internal/pipeline"
	"dawnscraper/internal/query"
	"dawnscraper/internal/scheduler"
	"dawnscraper/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, env vars used otherwise)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "scraper: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:      cfg.Scraper.UserAgent,
		RespectRobots:  true,
		Timeout:        cfg.Timeout(),
		MaxRetries:     cfg.HTTP.MaxRetries,
		BackoffInitial: time.Duration(cfg.HTTP.BackoffInitialMs) * time.Millisecond,
		BackoffMax:     time.Duration(cfg.HTTP.BackoffMaxMs) * time.Millisecond,
		Delay:          cfg.PolitenessDelay(),
	}, logger.Named("fetcher"))

	pipe := pipeline.New(fetcher, store, pipeline.Config{
		BaseURL:         cfg.Source.BaseURL,
		ListingURL:      cfg.Source.ListingURL,
		MaxListingPages: cfg.Source.MaxListingPages,
		Staleness:       cfg.Staleness(),
	}, logger.Named("pipeline"))

	sched := scheduler.New(pipe, logger.Named("scheduler"))
	if cfg.Scheduler.Enabled {
		sched.Start(cfg.SchedulerInterval(), cfg.Scheduler.MaxArticles)
	}

	queries := query.New(store, logger.Named("query"))
	handler := api.New(queries, pipe, sched, api.Defaults{
		MaxArticles:          cfg.Scraper.DefaultMaxArticles,
		SchedulerInterval:    cfg.SchedulerInterval(),
		SchedulerMaxArticles: cfg.Scheduler.MaxArticles,
	}, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}

	sched.Stop()
	logger.Info("scraper stopped")
	return nil
}
