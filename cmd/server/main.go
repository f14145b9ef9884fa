package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Simplici0/hvacquote/internal/config"
	"github.com/Simplici0/hvacquote/internal/db"
	"github.com/Simplici0/hvacquote/internal/logging"
	"github.com/Simplici0/hvacquote/internal/metrics"
	"github.com/Simplici0/hvacquote/internal/migrations"
	"github.com/Simplici0/hvacquote/internal/pricing"
	"github.com/Simplici0/hvacquote/internal/seed"
	"github.com/Simplici0/hvacquote/internal/store"
)

type server struct {
	auth    *authService
	db      *sql.DB
	store   *store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	// engine is swapped wholesale on reload; in-flight requests keep the one they loaded.
	engine atomic.Pointer[pricing.Engine]
}

func main() {
	logging.Setup()
	cfg := config.Load()
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(ctx, database); err != nil {
			return err
		}
		stats, err := seed.Run(ctx, database, seed.Config{
			AdminEmail:    cfg.AdminEmail,
			AdminPassword: cfg.AdminPassword,
		})
		if err != nil {
			return err
		}
		slog.Info("seed applied", "inserts", stats.Inserts)
	}

	srv, err := newServer(ctx, database, cfg, slog.Default())
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", httpServer.Addr, "env", cfg.AppEnv, "db", cfg.DBPath)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newServer(ctx context.Context, database *sql.DB, cfg config.Config, logger *slog.Logger) (*server, error) {
	srv := &server{
		auth:    newAuthService(database, cfg.SessionSecret, cfg.SessionTTL),
		db:      database,
		store:   store.New(database),
		metrics: metrics.New(),
		logger:  logger,
	}
	if err := srv.reloadEngine(ctx); err != nil {
		return nil, err
	}
	return srv, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/rebates", s.handleRebates)
		r.Post("/roi", s.handleROI)
		r.Post("/quotes", s.handleQuoteCreate)
		r.Get("/quotes", s.handleQuotesList)
		r.Get("/quotes/{id}", s.handleQuoteDetail)
		r.Get("/quotes/{id}/checkout", s.handleQuoteCheckout)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/catalog", s.handleAdminCatalog)
		r.Post("/catalog/reload", s.handleAdminCatalogReload)
	})

	return r
}

// reloadEngine reads the pricing tables and replaces the live engine.
func (s *server) reloadEngine(ctx context.Context) error {
	engine, err := s.store.LoadEngine(ctx)
	if err != nil {
		return err
	}
	s.engine.Store(engine)
	s.logger.Info("pricing engine loaded",
		"items", len(engine.Catalog().Items()),
		"rebate_programs", len(engine.Rebates().Programs()),
	)
	return nil
}

// unmatchedRoute is the route label for requests no pattern matched.
const unmatchedRoute = "unmatched"

// instrument records latency per route pattern and logs each request.
func (s *server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(route, r.Method, status, elapsed)

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
