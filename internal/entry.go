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

	"github.com/jponter/proxyforge/internal/api"
	"github.com/jponter/proxyforge/internal/catalog"
	"github.com/jponter/proxyforge/internal/fetch"
	"github.com/jponter/proxyforge/internal/hotfolder"
	"github.com/jponter/proxyforge/internal/imaging"
	"github.com/jponter/proxyforge/internal/importer"
	"github.com/jponter/proxyforge/internal/resolver"
	"github.com/jponter/proxyforge/internal/sse"
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
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("lookup_base_url", cfg.Fetcher.BaseURL),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("hot_folder", cfg.Orders.HotFolder),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the order catalog.
	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init catalog: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build the resolution pipeline.
	fetcher := fetch.NewHTTPFetcher(cfg.Fetcher.BaseURL, cfg.Fetcher.Timeout())
	svc := importer.NewService(resolver.New(fetcher), db, importer.Config{
		BleedDefault:  cfg.Print.BleedDefault,
		MaxConcurrent: cfg.Fetcher.MaxConcurrent,
		CardWidthMM:   cfg.Print.CardWidthMM,
		CardHeightMM:  cfg.Print.CardHeightMM,
	}, sse.ImportEvents{Broker: broker})

	bitmaps := imaging.NewBitmapCache(cfg.Print.BitmapCacheSize)

	apiRouter := api.NewRouter(api.RouterConfig{
		Service:     svc,
		Store:       db,
		Bitmaps:     bitmaps,
		JPEGQuality: cfg.Print.JPEGQuality,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		AuthToken:   cfg.Auth.Token,
		SSEHandler:  broker,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the hot folder for dropped order files, if configured.
	if cfg.Orders.HotFolder != "" {
		if err := os.MkdirAll(cfg.Orders.HotFolder, 0o755); err != nil {
			return fmt.Errorf("create hot folder: %w", err)
		}
		g.Go(func() error {
			return hotfolder.Watch(gCtx, cfg.Orders.HotFolder, logger,
				func(ctx context.Context, path string, data []byte) {
					if _, err := svc.ImportXML(ctx, path, data); err != nil {
						logger.Error("hot folder import failed",
							slog.String("path", path),
							slog.String("error", err.Error()))
					}
				})
		})
	}

	// Start HTTP server.
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
