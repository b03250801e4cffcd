// Package web provides the HTTP server and handlers for the dataset viewer.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/dataviewer/internal/config"
	"github.com/JonMunkholm/dataviewer/internal/core"
	"github.com/JonMunkholm/dataviewer/internal/metrics"
	"github.com/JonMunkholm/dataviewer/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the viewer.
type Server struct {
	service  *core.Service
	cfg      *config.Config
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics in m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// NewServer creates a Server for service.
func NewServer(service *core.Service, cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = &config.Config{}
	}
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(requestMetadata)
	s.router.Use(middleware.Logger(s.metrics))
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if rl := s.newLimiter(s.cfg.Rate.RequestsPerMinute); rl != nil {
		s.router.Use(rl.middleware)
	}
}

// newLimiter returns nil when rate limiting is off.
func (s *Server) newLimiter(perMinute int) *rateLimiter {
	if !s.cfg.Rate.Enabled || perMinute <= 0 {
		return nil
	}
	rl := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Pages
	s.router.Get("/", s.handleCatalog)
	s.router.Get("/view/{id}", s.handleViewPage)

	s.router.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))

		r.Get("/datasets", s.handleListDatasets)

		r.Post("/sessions", s.handleCreateSession)
		r.Group(func(r chi.Router) {
			if rl := s.newLimiter(s.cfg.Rate.UploadLimit); rl != nil {
				r.Use(rl.middleware)
			}
			r.Post("/sessions/upload", s.handleUploadSession)
		})

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(sessionContext)

			r.Delete("/", s.handleCloseSession)

			// Reads
			r.Get("/status", s.handleStatus)
			r.Get("/header", s.handleHeader)
			r.Get("/body", s.handleBody)
			r.Get("/record/{row}", s.handleRecord)
			r.Get("/columns/tree", s.handleColumnTree)

			// Intents
			r.Post("/filters", s.handleFilters)
			r.Post("/filters/clear", s.handleClearFilters)
			r.Post("/filter-row", s.handleToggleFilterRow)
			r.Post("/sort/column", s.handleSortColumn)
			r.Post("/sort/index", s.handleSortIndex)
			r.Post("/columns", s.handleSelectColumns)
			r.Post("/load-more", s.handleLoadMore)

			// Data updates
			r.Put("/data", s.handleSetData)
			r.Patch("/values", s.handlePatchValues)
		})
	})
}

// Start listens on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const contentSecurityPolicy = "default-src 'self'; script-src 'self' https://unpkg.com; " +
	"style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'"

func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				h.Set("Content-Security-Policy", contentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON with the given status. Encoding errors are
// only logged since the header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "json encode error", "error", err)
	}
}
