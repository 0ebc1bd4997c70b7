// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/bot"
	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/source"
	"github.com/starford/ansuz/internal/unanswered"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	fetcher, fileSource, err := buildFetcher(cfg)
	if err != nil {
		return fmt.Errorf("init source: %w", err)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source", fetcher.Describe()),
		slog.Duration("cache_duration", cfg.Knowledge.CacheDuration()),
		slog.Float64("similarity_threshold", cfg.Knowledge.SimilarityThreshold),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store := knowledge.NewStore(fetcher, cfg.Knowledge.CacheDuration(), cfg.Knowledge.FetchTimeout(), logger)

	// MCP mode serves tools over stdio instead of the bot+HTTP stack.
	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(store, cfg.Knowledge.SimilarityThreshold, cfg.Knowledge.MaxResults).ServeStdio()
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram: token is required")
	}

	unansweredLog := unanswered.New(cfg.Unanswered.Path)

	tgBot, err := bot.New(cfg.Telegram.Token, store, unansweredLog, bot.Options{
		Threshold:   cfg.Knowledge.SimilarityThreshold,
		MaxResults:  cfg.Knowledge.MaxResults,
		PollTimeout: cfg.Telegram.PollTimeoutSeconds,
	}, logger)
	if err != nil {
		return fmt.Errorf("init bot: %w", err)
	}

	// Build chi router: keep-alive status, health checks, diagnostics API.
	h := api.NewHandler(store, cfg.Knowledge.SimilarityThreshold, cfg.Knowledge.MaxResults)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.Status)
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/api", api.NewRouter(store, cfg.Knowledge.SimilarityThreshold, cfg.Knowledge.MaxResults))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch a local CSV source and invalidate the cache on changes.
	if fileSource != nil {
		g.Go(func() error {
			return source.Watch(gCtx, fileSource.Path(), logger, store.Invalidate)
		})
	}

	// Start the Telegram polling loop.
	g.Go(func() error {
		return tgBot.Run(gCtx)
	})

	// Start keep-alive HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// buildFetcher picks the source backend from the configuration. The file
// source is returned separately so the caller can attach a watcher.
func buildFetcher(cfg *Config) (knowledge.Fetcher, *source.File, error) {
	if cfg.Source.File != "" {
		f, err := source.NewFile(cfg.Source.File)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
	h, err := source.NewHTTP(cfg.Source.URL, &http.Client{Timeout: cfg.Knowledge.FetchTimeout()})
	if err != nil {
		return nil, nil, err
	}
	return h, nil, nil
}
