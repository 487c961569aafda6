// Package app wires configuration, services, transport and the
// websocket hub into a runnable dashboard server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filipesmpacheco/projdataviz/internal/config"
	apierrors "github.com/filipesmpacheco/projdataviz/internal/errors"
	"github.com/filipesmpacheco/projdataviz/internal/infrastructure"
	"github.com/filipesmpacheco/projdataviz/internal/middleware"
	"github.com/filipesmpacheco/projdataviz/internal/services"
	transporthttp "github.com/filipesmpacheco/projdataviz/internal/transport/http"
	"github.com/filipesmpacheco/projdataviz/internal/websocket"
)

// AppName identifies the service in logs.
const AppName = "pricedash"

// Application holds the assembled server and its dependencies.
type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	Service *services.DatasetService
	Hub     *websocket.Hub
	Router  chi.Router
	Server  *http.Server
}

// New builds a fully wired Application from configuration.
func New(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &Application{
		Config:  cfg,
		Logger:  logger,
		Service: services.NewDatasetService(cfg, logger),
		Hub:     websocket.NewHub(logger),
	}

	app.setupRouter()
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// setupRouter configures the HTTP router with all routes.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Keep the outer middleware minimal so the websocket upgrade is
	// not wrapped by a response writer it cannot hijack.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWS(a.Hub, w, req, a.Logger)
	})

	// Metrics and health stay outside the rate limited group.
	r.Handle("/metrics", promhttp.Handler())

	healthHandler := transporthttp.NewHealthHandler(a.Logger)
	r.Get("/healthz", healthHandler.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(middleware.StructuredLogger(a.Logger))
		r.Use(middleware.Recoverer(a.Logger))

		if a.Config.Server.RateLimit.Enabled {
			r.Use(middleware.NewRateLimiter(
				a.Config.Server.RateLimit.RPS,
				a.Config.Server.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		errorHandler := apierrors.NewErrorHandler(a.Logger)
		datasetHandler := transporthttp.NewDatasetHandler(
			a.Service,
			a.Hub,
			a.Config.Ingest.MaxUploadBytes,
			a.Logger,
			errorHandler,
		)

		r.Route("/api", func(r chi.Router) {
			r.Mount("/datasets", datasetHandler.Routes())
		})
	})

	a.Router = r
}

// Start launches the websocket hub and the HTTP server. The server
// runs in a goroutine; a listen failure cancels the supplied context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("name", AppName),
		slog.Int("port", a.Config.Server.Port),
		slog.String("log_level", a.Config.Logging.Level))

	a.Hub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
}

// Stop gracefully stops the server and background services.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Hub.Stop()
	infrastructure.CloseLogFile()

	a.Logger.InfoContext(ctx, "application stopped")
	return nil
}
