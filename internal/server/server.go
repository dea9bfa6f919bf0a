// Package server serves a visstudy output tree over HTTP together with a
// small JSON API for generating experiments.
//
// Chart pages fetch their spec and dataset by relative URL, which browsers
// refuse under file://, so the tree has to be served to be viewed.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/visstudy/pkg/cache"
	"github.com/matzehuels/visstudy/pkg/observability"
	"github.com/matzehuels/visstudy/pkg/page"
	"github.com/matzehuels/visstudy/pkg/pipeline"
	"github.com/matzehuels/visstudy/pkg/sink"
)

// Server owns the runner and the HTTP surface.
type Server struct {
	cfg      Config
	runner   *pipeline.Runner
	logger   *log.Logger
	registry *prometheus.Registry
	metrics  *observability.Prometheus

	// mu serializes every write to the output tree.
	mu sync.Mutex
}

// New builds a server from cfg and installs its metrics as the global
// pipeline and cache hooks. A Redis cache that cannot be reached is logged
// and replaced by no cache.
func New(ctx context.Context, cfg Config, logger *log.Logger) *Server {
	var (
		c     cache.Cache = cache.NewNullCache()
		keyer             = cache.NewDefaultKeyer()
	)
	if cfg.Cache.Enable {
		rc := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", "addr", cfg.Cache.RedisAddr, "err", err)
			_ = rc.Close()
		} else {
			c = rc
			keyer = cache.NewScopedKeyer(keyer, cfg.Cache.KeyPrefix)
			logger.Info("using redis cache", "addr", cfg.Cache.RedisAddr, "db", cfg.Cache.RedisDB)
		}
	}

	runner := pipeline.NewRunner(sink.Dir{Root: cfg.OutputDir}, c, keyer, logger)
	if cfg.Minify {
		runner.Minifier = page.NewMinifier()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewPrometheus(reg)
	observability.SetPipelineHooks(metrics)
	observability.SetCacheHooks(metrics)

	return &Server{
		cfg:      cfg,
		runner:   runner,
		logger:   logger,
		registry: reg,
		metrics:  metrics,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use([]func(http.Handler) http.Handler{
		middleware.RequestID,
		s.requestLogger,
		middleware.Recoverer,
		middleware.Throttle(s.cfg.Server.ThrottleLimit),
		middleware.Timeout(s.cfg.Server.Timeout),
		s.metrics.Middleware,
	}...)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/experiments", s.listExperiments)
		r.Post("/experiments", s.generateExperiment)
		r.Delete("/experiments", s.removeExperiments)
		r.Get("/experiments/{slug}", s.getExperiment)
		r.Post("/index", s.generateIndex)
	})

	r.Handle("/*", http.FileServer(http.Dir(s.cfg.OutputDir)))
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.runner.Close()

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server started", "addr", s.cfg.Server.Addr, "dir", s.cfg.OutputDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// requestLogger logs one line per request through the server logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}
