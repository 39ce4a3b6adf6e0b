// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/picms/article/internal/cache"
	"github.com/picms/article/internal/config"
	"github.com/picms/article/internal/field"
	"github.com/picms/article/internal/handler"
	"github.com/picms/article/internal/imaging"
	"github.com/picms/article/internal/logging"
	"github.com/picms/article/internal/render"
	"github.com/picms/article/internal/rule"
	"github.com/picms/article/internal/scheduler"
	"github.com/picms/article/internal/service"
	"github.com/picms/article/internal/store"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showVersion {
		_, _ = fmt.Printf("article %s (commit: %s)\n", appVersion, appGitCommit)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	events := store.NewEventStore(db)
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger = slog.New(logging.NewEventLogHandler(textHandler, events))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Cache backend: Redis when configured, in-process memory otherwise
	cacheConfig := cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      time.Duration(cfg.CacheTTL) * time.Second,
		CleanupInterval: time.Minute,
	}
	cacher, err := cache.New(cacheConfig)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = cacher.Close() }()
	if cfg.UseRedisCache() {
		slog.Info("cache initialized", "backend", "redis", "url", cfg.RedisURL)
	} else {
		slog.Info("cache initialized", "backend", "memory")
	}

	// Permission rules
	resolver, err := loadRules(cfg.RulesPath)
	if err != nil {
		return err
	}

	// Stores and services
	articles := store.NewArticleStore(db)
	drafts := store.NewDraftStore(db)
	stats := store.NewStatsStore(db)
	compiled := store.NewCompiledStore(db)
	visits := store.NewVisitStore(db)
	categories := store.NewCategoryStore(db)

	registry := field.NewRegistry()
	if err := registry.Register(field.KindCustom, "seo", field.NewSEOHandler(db)); err != nil {
		return fmt.Errorf("registering seo field handler: %w", err)
	}
	if err := registry.Register(field.KindCompound, "related", field.NewRelatedHandler(db)); err != nil {
		return fmt.Errorf("registering related field handler: %w", err)
	}

	compiler := render.NewCompiler(compiled, cacher, logger)
	files := imaging.NewDiskStore(cfg.UploadsDir)

	articleHandler := handler.NewArticleHandler(
		service.NewCanonicalizer(articles, articles),
		service.NewListService(articles, categories, resolver, nil, logger),
		service.NewDraftService(articles, drafts, registry, resolver, logger),
		service.NewDeleteCoordinator(articles, stats, compiled, visits, registry, files, compiler, resolver, logger),
		service.NewStatsService(stats, visits, logger),
		compiler,
		articles,
		logger,
	)

	// Maintenance jobs
	sched := scheduler.New(compiled, visits, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.Timeout(30 * time.Second))

	articleHandler.Routes(r, cfg.SearchRateLimit, cfg.SearchRateBurst)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := db.PingContext(req.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// loadRules reads the JSON rule map. With no path configured the
// resolver grants nothing, which fails closed on every authorized
// operation.
func loadRules(path string) (rule.Resolver, error) {
	if path == "" {
		slog.Warn("no rules file configured; all authorized operations will be denied")
		return rule.StaticResolver{Rules: rule.Rules{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	rules, err := rule.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}
	slog.Info("permission rules loaded", "path", path, "categories", len(rules.Categories()))
	return rule.StaticResolver{Rules: rules}, nil
}
