// Package server exposes the checklist store over JSON HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/checklist/internal/audit"
	"github.com/nhle/checklist/internal/store"
)

// Server serves the checklist API.
type Server struct {
	store     store.Store
	auditor   *audit.Auditor
	addr      string
	viewLimit int
	logger    *slog.Logger
	now       func() time.Time
}

// Config holds configuration for the server.
type Config struct {
	Store store.Store
	Addr  string
	// ViewLimit is the default row limit of the overview.
	ViewLimit int
	Logger    *slog.Logger
	// Auditor, when set, backs GET /api/audit.
	Auditor *audit.Auditor
}

// New creates a server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		store:     cfg.Store,
		auditor:   cfg.Auditor,
		addr:      cfg.Addr,
		viewLimit: cfg.ViewLimit,
		logger:    logger,
		now:       time.Now,
	}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", s.handleOverview)
		r.Get("/lists", s.handleTables)
		r.Route("/lists/{list}", func(r chi.Router) {
			r.Get("/", s.handleInfo)
			r.Get("/statuses", s.handleStatuses)
			r.Put("/statuses", s.handleSetStatuses)
			r.Post("/entries", s.handleInsert)
			r.Post("/entries/{id}", s.handleUpdate)
			r.Delete("/entries/{id}", s.handleDelete)
		})
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleApplySettings)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Get("/check", s.handleCheck)
		r.Get("/audit", s.handleAudit)
	})

	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting server", slog.String("addr", s.addr))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", s.now().Sub(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
