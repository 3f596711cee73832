// Package api provides the HTTP surface of JarvisMD.
//
// It exposes RESTful endpoints for submitting cases, scoring imaging
// findings, and querying scheduling records, plus a WebSocket endpoint that
// streams live workflow progress. The API integrates with the workflow
// engine, the progress manager, the specialist directory, and the store.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aadityaamehrotra17/JarvisMD/internal/directory"
	"github.com/aadityaamehrotra17/JarvisMD/internal/progress"
	"github.com/aadityaamehrotra17/JarvisMD/internal/store"
	"github.com/aadityaamehrotra17/JarvisMD/internal/workflow"
)

// Default server timeouts.
const (
	DefaultAddr            = ":8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultCaseRunTimeout  = 5 * time.Minute
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server bundles the API handlers with their collaborators.
type Server struct {
	engine    *workflow.Engine
	progress  *progress.Manager
	directory directory.Provider
	st        store.Store

	httpServer *http.Server
}

// NewServer creates an API server wired to the given collaborators.
func NewServer(engine *workflow.Engine, prog *progress.Manager, dir directory.Provider, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		engine:    engine,
		progress:  prog,
		directory: dir,
		st:        st,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/cases", s.casesHandler)
	mux.HandleFunc("/analyze", s.analyzeHandler)
	mux.HandleFunc("/requests", s.requestsHandler)
	mux.HandleFunc("/appointments", s.appointmentsHandler)
	mux.HandleFunc("/specialists", s.specialistsHandler)
	mux.HandleFunc("/sessions/", s.sessionHandler)
	mux.HandleFunc("/ws", s.wsHandler)
	mux.HandleFunc("/health", s.healthHandler)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	return s
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: JarvisMD API listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Server.Run: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
