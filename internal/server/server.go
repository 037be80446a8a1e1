package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"socwatch/internal/metrics"
	"socwatch/internal/pipeline"
	"socwatch/internal/storage"
)

// ServiceName is reported by /health.
const ServiceName = "socwatch-backend"

// QueueDepthFunc reports the backlog of the optional log queue.
type QueueDepthFunc func(ctx context.Context) (int64, error)

// Config wires the HTTP API.
type Config struct {
	Store       *storage.Store
	Ingestor    *pipeline.Ingestor
	Realtime    *metrics.Synthesizer
	Metrics     *metrics.Collector
	CORSOrigins []string
	QueueDepth  QueueDepthFunc
	// OnClear runs after /debug/clear wipes the store, e.g. to reset
	// detection state.
	OnClear func()
}

// Server serves the SOC API.
type Server struct {
	store      *storage.Store
	ingestor   *pipeline.Ingestor
	realtime   *metrics.Synthesizer
	metrics    *metrics.Collector
	origins    []string
	queueDepth QueueDepthFunc
	onClear    func()
	now        func() time.Time
}

// New creates the API server.
func New(cfg Config) *Server {
	if cfg.Realtime == nil {
		cfg.Realtime = metrics.NewSynthesizer(nil)
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	return &Server{
		store:      cfg.Store,
		ingestor:   cfg.Ingestor,
		realtime:   cfg.Realtime,
		metrics:    cfg.Metrics,
		origins:    cfg.CORSOrigins,
		queueDepth: cfg.QueueDepth,
		onClear:    cfg.OnClear,
		now:        time.Now,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(s.metrics.Middleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/logs", s.handleIngest)
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", s.handleAlerts)
		r.Get("/{id}", s.handleAlert)
	})
	r.Get("/metrics", s.handleMetrics)
	r.Get("/metrics/realtime", s.handleRealtime)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics/prometheus", s.metrics.Handler())
	}
	r.Post("/chat", s.handleChat)
	r.Route("/debug", func(r chi.Router) {
		r.Get("/logs", s.handleDebugLogs)
		r.Get("/signals", s.handleDebugSignals)
		r.Post("/clear", s.handleDebugClear)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down within 10s.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
