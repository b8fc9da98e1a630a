// Package main is the entrypoint for the BrandPulse API server.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiranshivaraju/brandpulse/internal/analysis"
	"github.com/kiranshivaraju/brandpulse/internal/api"
	"github.com/kiranshivaraju/brandpulse/internal/api/handler"
	mw "github.com/kiranshivaraju/brandpulse/internal/api/middleware"
	"github.com/kiranshivaraju/brandpulse/internal/cache"
	"github.com/kiranshivaraju/brandpulse/internal/config"
	"github.com/kiranshivaraju/brandpulse/internal/insights"
	"github.com/kiranshivaraju/brandpulse/internal/metrics"
	"github.com/kiranshivaraju/brandpulse/internal/store"
)

const shutdownTimeout = 30 * time.Second

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var logLevel = new(slog.LevelVar)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logLevel.Set(cfg.SlogLevel())
	slog.Info("config loaded", "env", cfg.Server.Env, "log_level", cfg.Server.LogLevel, "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Load the analysis lexicon
	analyzer, err := newAnalyzer(cfg.Analysis)
	if err != nil {
		return fmt.Errorf("load lexicon: %w", err)
	}

	// 3. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 4. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied", "dir", cfg.Database.MigrationsDir)

	// 5. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 6. Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 7. Build router with dependencies
	pgStore := store.NewPostgresStore(pool)
	svc := insights.NewService(pgStore, redisCache, analyzer, m, ttlsFrom(cfg.Analysis), cfg.Analysis.Timeout)
	router := api.NewRouter(newDependencies(pgStore, redisCache, svc, m, reg, cfg.Server.RateLimitPerMinute))

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Analysis.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newAnalyzer returns an analyzer on the configured lexicon, or on the
// built-in one when no lexicon file is configured.
func newAnalyzer(cfg config.AnalysisConfig) (*analysis.Analyzer, error) {
	if cfg.LexiconPath == "" {
		return analysis.NewAnalyzer(nil), nil
	}
	lex, err := analysis.LoadLexicon(cfg.LexiconPath)
	if err != nil {
		return nil, err
	}
	slog.Info("lexicon loaded", "path", cfg.LexiconPath)
	return analysis.NewAnalyzer(lex), nil
}

func ttlsFrom(cfg config.AnalysisConfig) insights.TTLs {
	return insights.TTLs{
		Clusters:    cfg.ClusterTTL,
		Trends:      cfg.TrendTTL,
		Gaps:        cfg.GapTTL,
		Suggestions: cfg.SuggestionTTL,
	}
}

// newDependencies wires every handler of the API onto s, c and svc.
func newDependencies(s store.Store, c cache.Cache, svc *insights.Service, m *metrics.Metrics,
	gatherer prometheus.Gatherer, ratePerMinute int) api.Dependencies {
	return api.Dependencies{
		Auth:      mw.NewAuth(s),
		RateLimit: mw.NewRateLimit(c, ratePerMinute),
		Metrics:   m,

		HealthHandler: handler.NewHealthHandler(version, map[string]handler.Pinger{
			"database": s,
			"cache":    c,
		}),
		MetricsHandler: promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),

		IngestConversation: handler.NewIngestConversationHandler(s, m),
		ListConversations:  handler.NewListConversationsHandler(s),
		GetConversation:    handler.NewGetConversationHandler(s),

		TopicClusters:      handler.NewTopicClustersHandler(svc),
		QueryTrends:        handler.NewQueryTrendsHandler(svc),
		TopicGaps:          handler.NewTopicGapsHandler(svc),
		ContentSuggestions: handler.NewContentSuggestionsHandler(svc),

		CreateKeyHandler: handler.NewCreateKeyHandler(s),
		ListKeysHandler:  handler.NewListKeysHandler(s),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(s),
	}
}
