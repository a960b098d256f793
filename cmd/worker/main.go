// Package main implements the capture worker: an HTTP surface for enqueueing
// page captures plus the queue engine that fetches, converts, and indexes
// them in the background.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/clippings/clippings-api/db"
	"github.com/clippings/clippings-api/internal/api"
	"github.com/clippings/clippings-api/internal/config"
	"github.com/clippings/clippings-api/internal/events"
	"github.com/clippings/clippings-api/internal/platform/gemini"
	"github.com/clippings/clippings-api/internal/platform/htmlmd"
	"github.com/clippings/clippings-api/internal/platform/logger"
	"github.com/clippings/clippings-api/internal/platform/postgres"
	"github.com/clippings/clippings-api/internal/platform/webfetch"
	"github.com/clippings/clippings-api/internal/queue"
	"github.com/clippings/clippings-api/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker exited with error: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logg, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	logg.Info("worker starting",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"fetch_concurrency", cfg.Worker.FetchConcurrency,
		"max_retries", cfg.Worker.MaxRetries)

	pool, err := openDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Close() }()

	if err := runMigrations(pool); err != nil {
		return err
	}

	// Stores
	items := postgres.NewPostgresItemStore(pool)
	content := postgres.NewPostgresContentStore(pool)
	jobs := postgres.NewPostgresJobStore(pool)

	// Collaborators
	fetcher := webfetch.NewHTTPFetcher(
		time.Duration(cfg.Worker.FetchTimeoutMs)*time.Millisecond, logg)
	extractor := htmlmd.NewMarkdownExtractor(logg)

	generator, err := gemini.NewGeminiGenerator(ctx, logg, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create QA generator: %w", err)
	}
	embedder, err := gemini.NewGeminiEmbedder(ctx, logg, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	broadcaster := events.NewBroadcaster(logg)
	go logPipelineEvents(ctx, broadcaster, logg)

	// Queue engine
	policy := queue.BackoffPolicy{
		MaxRetries: cfg.Worker.MaxRetries,
		BaseDelay:  time.Duration(cfg.Worker.BaseDelayMs) * time.Millisecond,
		MaxDelay:   time.Duration(cfg.Worker.MaxDelayMs) * time.Millisecond,
	}
	coordinator := queue.NewRetryCoordinator(items, jobs, broadcaster, policy, logg)
	fetchPhase := queue.NewFetchPhase(items, jobs, fetcher, coordinator, cfg.Worker.FetchConcurrency, logg)
	processPhase := queue.NewProcessPhase(
		items, content, jobs,
		extractor, generator, embedder,
		coordinator, broadcaster, logg,
	)

	if cfg.Worker.SyncEnabled {
		logg.Warn("sync_enabled is set but no sync target is configured, sync is a no-op")
	}
	orchestrator := queue.NewOrchestrator(items, fetchPhase, processPhase, queue.NoopSyncTrigger{}, logg)

	// Items left mid-flight by an unclean shutdown are reset before the
	// first pass.
	scanner := queue.NewRecoveryScanner(items, jobs, logg)
	if err := scanner.Recover(ctx); err != nil {
		return fmt.Errorf("crash recovery failed: %w", err)
	}

	// The trigger channel coalesces pass requests; the orchestrator's own
	// guard handles anything that slips through concurrently.
	trigger := make(chan struct{}, 1)
	requestPass := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}
	go runTriggerLoop(ctx, orchestrator, trigger,
		time.Duration(cfg.Worker.TriggerIntervalS)*time.Second, logg)

	// HTTP surface
	captures := service.NewCaptureService(items, jobs, requestPass, logg)
	handler := api.NewCaptureHandler(captures, logg)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newRouter(handler, logg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Run an initial pass so work left from the previous process starts
	// immediately.
	requestPass()

	select {
	case <-ctx.Done():
		logg.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	logg.Info("worker stopped")
	return nil
}

// openDatabase opens and verifies the connection pool.
func openDatabase(ctx context.Context, url string) (*sql.DB, error) {
	pool, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// runMigrations applies the embedded goose migrations.
func runMigrations(pool *sql.DB) error {
	goose.SetBaseFS(db.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(pool, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// runTriggerLoop runs a queue pass whenever the interval elapses or a pass is
// requested explicitly.
func runTriggerLoop(
	ctx context.Context,
	orchestrator *queue.Orchestrator,
	trigger <-chan struct{},
	interval time.Duration,
	logg *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-trigger:
		}

		if err := orchestrator.Run(ctx); err != nil {
			logg.Error("queue pass failed", "error", err)
		}
	}
}

// logPipelineEvents subscribes to the broadcaster and mirrors pipeline events
// into the log.
func logPipelineEvents(ctx context.Context, broadcaster *events.Broadcaster, logg *slog.Logger) {
	ch, cancel := broadcaster.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			logg.Info("pipeline event",
				"event_type", event.Type,
				"item_id", event.ItemID,
				"message", event.Message)
		}
	}
}
