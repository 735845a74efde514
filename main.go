package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/s1natex/todos-web-GO/internal/config"
	"github.com/s1natex/todos-web-GO/internal/middleware"
	"github.com/s1natex/todos-web-GO/internal/telemetry"
	"github.com/s1natex/todos-web-GO/internal/todos"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger) // for third-party packages that use slog

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Exporter:    cfg.TracingExporter,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing_shutdown", slog.String("error", err.Error()))
		}
	}()

	loc, err := todos.ParseDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	store, err := todos.OpenStore(ctx, loc)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("database_open", slog.String("database", loc.String()))

	svc := todos.NewService(store, logger)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(cfg, svc, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server_shutdown", slog.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRouter wires health, readiness, metrics, todo routes and the middleware stack
func newRouter(cfg config.Config, svc *todos.Service, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, traces)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "HX-Request", "HX-Target", "HX-Current-URL", "HX-Trigger"},
		ExposedHeaders: []string{"X-Request-ID", "Trace-Id", todos.OutcomeHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger(logger))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Ready(r.Context()); err != nil {
			logger.WarnContext(r.Context(), "store_unready", slog.String("error", err.Error()))
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})

	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	// /health, /ready and /metrics sit outside the limiter.
	limiter := middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(limiter, logger))
		todos.RegisterRoutes(r, svc, logger)
		todos.RegisterAPIRoutes(r, svc)
	})

	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
