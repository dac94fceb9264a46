// Package controller contains the HTTP API server of tmplq.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tmplq/internal/controller/handlers"
	"tmplq/internal/controller/middleware"
)

// Options configures the server.
type Options struct {
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// SubmitRateLimit is the per-client limit on POST /jobs in requests per second. 0 disables it.
	SubmitRateLimit float64
	SubmitRateBurst int
	Logger          *slog.Logger
}

// Server is the HTTP server for the tmplq API.
type Server struct {
	httpServer *http.Server
}

// New creates a new server for svc listening on addr.
func New(addr string, svc handlers.Service, opts Options) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewHandler(svc, opts),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// NewHandler builds the routed handler tree.
func NewHandler(svc handlers.Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	h := handlers.New(svc, opts.Logger)
	submitLimit := middleware.NewRateLimiter(opts.SubmitRateLimit, opts.SubmitRateBurst).Middleware()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /templates", h.CreateTemplate)
	mux.HandleFunc("GET /templates", h.ListTemplates)
	mux.HandleFunc("GET /templates/{id}", h.GetTemplate)
	mux.HandleFunc("PUT /templates/{id}", h.UpdateTemplate)
	mux.HandleFunc("DELETE /templates/{id}", h.DeleteTemplate)

	mux.Handle("POST /jobs", submitLimit(http.HandlerFunc(h.SubmitJob)))
	mux.HandleFunc("GET /jobs", h.ListJobs)
	mux.HandleFunc("GET /jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /history", h.GetHistory)

	mux.HandleFunc("GET /config", h.GetConfig)
	mux.HandleFunc("PATCH /config", h.UpdateConfig)
	mux.HandleFunc("GET /stats", h.Stats)

	mux.HandleFunc("GET /healthz", h.Healthz)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	return middleware.RequestID(mux)
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
