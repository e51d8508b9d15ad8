package api

import (
	"context"
	"net/http"
	"time"

	"askora/internal/common/logger"
	"askora/internal/common/observability"
	"askora/internal/models"
	routeengine "askora/internal/workers/ai-conversation/route-engine"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultMaxBodyBytes   = 64 << 10
	DefaultRequestTimeout = 30 * time.Second
)

// Answerer is the routing engine as seen by the HTTP layer.
type Answerer interface {
	Answer(ctx context.Context, req routeengine.Request) *models.Answer
}

// ReadinessCheck reports whether one backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

type Config struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	ServiceName    string
}

type Server struct {
	config *Config
	engine Answerer
	obs    *observability.Observability
	checks map[string]ReadinessCheck
	logger logger.Logger
	router chi.Router
}

func NewServer(config *Config, engine Answerer, obs *observability.Observability, log logger.Logger) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}
	if config.ServiceName == "" {
		config.ServiceName = "askora"
	}

	s := &Server{
		config: config,
		engine: engine,
		obs:    obs,
		checks: make(map[string]ReadinessCheck),
		logger: log.WithFields(map[string]interface{}{"component": "api"}),
	}
	s.router = s.buildRouter()
	return s
}

// AddReadinessCheck registers a dependency probed by /ready.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.checks[name] = check
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     s.config.AllowedOrigins,
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:     []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:     []string{"X-Request-ID"},
		OptionsPassthrough: true,
		MaxAge:             300,
	}))

	r.MethodNotAllowed(s.methodNotAllowed)
	r.NotFound(s.notFound)

	for _, path := range []string{"/api/ask", "/api/askora"} {
		r.Post(path, s.handleAsk)
		r.Options(path, s.handlePreflight)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", map[string]interface{}{"addr": addr})
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
		s.logger.Info("shutting down HTTP server", nil)
		return srv.Shutdown(shutdownCtx)
	}
}
