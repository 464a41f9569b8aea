package server

import (
	"context"
	"net/http"
	"time"

	"benritz/giltcalc/internal/batch"
	"benritz/giltcalc/internal/curve"
	"benritz/giltcalc/internal/metrics"
	"benritz/giltcalc/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config holds server configuration
type Config struct {
	Addr           string
	AllowedOrigins []string
	MaxBodyBytes   int64
	MaxBatchRows   int
	Workers        int
	Log            *zap.Logger

	// Curves, when set, model price requests without a price or discount
	// rate off the spot curve for their settlement date.
	Curves *curve.SpotCurves

	// Now returns the default settlement date.
	Now func() time.Time
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	runner   *batch.Runner
	cfg      Config
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.MaxBatchRows <= 0 {
		cfg.MaxBatchRows = 500
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := metrics.New(registry)

	runner := batch.NewRunner(cfg.Workers, cfg.Log.Named("batch"))
	runner.Metrics = m

	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.Named("server"),
		registry: registry,
		metrics:  m,
		runner:   runner,
		cfg:      cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router.Route("/api/gilts", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/batch", s.handleBatch)
		r.Post("/projection", s.handleProjection)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", zap.String("addr", s.cfg.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// curveFor returns the spot curve for settlement, or nil when none is
// configured or the snapshots do not cover the date.
func (s *Server) curveFor(settlement time.Time) types.Discounter {
	if s.cfg.Curves == nil {
		return nil
	}
	spot, err := s.cfg.Curves.At(settlement)
	if err != nil {
		s.log.Debug("no spot curve", zap.Time("settlement", settlement), zap.Error(err))
		return nil
	}
	return spot
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
