// Package server implements the opsched scheduling API.
//
// The server exposes a read-only scheduling surface over stored graph
// documents: clients submit a graph once, then query execution orders and
// rendered diagrams for it. Every JSON response shares an envelope with a
// request ID that is also echoed in the X-Request-ID header.
package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tensorlab/opsched/pkg/pipeline"
	"github.com/tensorlab/opsched/pkg/store"
)

// Config holds the server's runtime configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// GraphTTL bounds how long submitted graphs live in the store.
	// Zero means records never expire.
	GraphTTL time.Duration

	// StoreBackend and CacheBackend name the configured backends for
	// health reporting. They do not affect behavior.
	StoreBackend string
	CacheBackend string
}

// DefaultConfig returns the standard server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		StoreBackend: "memory",
		CacheBackend: "none",
	}
}

// Server is the HTTP API server. It owns no listener; callers mount
// Handler on an http.Server of their own.
type Server struct {
	router    chi.Router
	logger    *log.Logger
	config    Config
	store     store.Store
	runner    *pipeline.Runner
	startTime time.Time
}

// New creates a server with all routes registered. A nil store falls back
// to the in-memory backend, a nil runner gets the uncached default, and a
// nil logger uses the package default.
func New(cfg Config, st store.Store, runner *pipeline.Runner, logger *log.Logger) *Server {
	if st == nil {
		st = store.NewMemoryStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}

	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		store:     st,
		runner:    runner,
		startTime: time.Now(),
	}
	s.routes()
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestIDMiddleware)
	s.router.Use(loggingMiddleware(s.logger))

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/graphs", func(r chi.Router) {
			r.Post("/", s.handleCreateGraph)
			r.Get("/", s.handleListGraphs)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetGraph)
				r.Delete("/", s.handleDeleteGraph)
				r.Get("/order", s.handleGetOrder)
				r.Get("/render", s.handleRenderGraph)
			})
		})
	})
}
