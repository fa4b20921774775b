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

	"github.com/gauravkale/ComicsLibrary/internal/api"
	"github.com/gauravkale/ComicsLibrary/internal/catalog"
	"github.com/gauravkale/ComicsLibrary/internal/collection"
	"github.com/gauravkale/ComicsLibrary/internal/connectivity"
	"github.com/gauravkale/ComicsLibrary/internal/coordinator"
	"github.com/gauravkale/ComicsLibrary/internal/sse"
	"github.com/gauravkale/ComicsLibrary/internal/store"
	"github.com/gauravkale/ComicsLibrary/pkg/config"
)

const probeDialTimeout = 3 * time.Second

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
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("catalog_base_url", cfg.Catalog.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize SQLite store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// SSE broker; repository mutations feed it directly.
	broker := sse.NewBroker(cfg.Search.EventThrottle)
	defer broker.Close()

	repo, err := collection.New(db, logger, broker.PublishChange)
	if err != nil {
		return fmt.Errorf("init collection: %w", err)
	}
	defer repo.Close()

	// Connectivity probing is optional; without a probe address the signal
	// stays pinned to available.
	var probe connectivity.Prober
	if cfg.Connectivity.ProbeAddr != "" {
		probe = connectivity.DialProber(cfg.Connectivity.ProbeAddr, probeDialTimeout)
	}
	monitor := connectivity.NewMonitor(probe, cfg.Connectivity.Interval)
	defer monitor.Close()

	cat := catalog.NewClient(catalog.Options{
		BaseURL:           cfg.Catalog.BaseURL,
		PublicKey:         cfg.Catalog.PublicKey,
		PrivateKey:        cfg.Catalog.PrivateKey,
		Timeout:           cfg.Catalog.Timeout,
		RetryAttempts:     uint(cfg.Catalog.RetryAttempts),
		PageSize:          cfg.Catalog.PageSize,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
	})
	defer cat.Close()

	coord := coordinator.New(cat, repo, monitor, cfg.Search.Debounce)
	defer coord.Close()

	apiRouter := api.NewRouter(coord, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Forward search state transitions to SSE clients.
	g.Go(func() error {
		ch := coord.Results().Subscribe()
		defer coord.Results().Unsubscribe(ch)
		for {
			select {
			case res, open := <-ch:
				if !open {
					return nil
				}
				broker.PublishSearchState(res.Kind.String())
			case <-gCtx.Done():
				return nil
			}
		}
	})

	// Forward connectivity transitions to SSE clients.
	g.Go(func() error {
		ch := monitor.Status().Subscribe()
		defer monitor.Status().Unsubscribe(ch)
		for {
			select {
			case status, open := <-ch:
				if !open {
					return nil
				}
				broker.Publish(sse.Event{Type: "connectivity.changed", Data: status.String()})
			case <-gCtx.Done():
				return nil
			}
		}
	})

	// Watch the config file and apply live-tunable search settings.
	if app.configPath != "" {
		g.Go(func() error {
			return config.Watch(gCtx, app.configPath, func() {
				updated := NewDefaultConfig()
				if err := config.Load(app.configPath, updated); err != nil {
					logger.Warn("config reload failed", slog.String("error", err.Error()))
					return
				}
				coord.SetDebounce(updated.Search.Debounce)
				logger.Info("search settings reloaded",
					slog.Duration("debounce", updated.Search.Debounce))
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
