package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcpmux/mcpmux/internal/domain/app"
)

// moduleVersion is reported on the health endpoint only (the initialize
// handshake advertises its own fixed serverInfo version); it has no
// bearing on protocol behavior.
const moduleVersion = "0.1.0"

// Server is the top-level HTTP listener hosting the admin API, health and
// metrics endpoints, and every registered app's downstream MCP surface.
type Server struct {
	addr           string
	logger         *slog.Logger
	metricsEnabled bool

	mux     *http.ServeMux
	http    *http.Server
	metrics *Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address. Defaults to "127.0.0.1:8080".
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithLogger sets the server's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetricsEnabled controls whether /metrics is mounted. Defaults to true.
func WithMetricsEnabled(enabled bool) Option {
	return func(s *Server) { s.metricsEnabled = enabled }
}

// NewServer creates a Server and mounts the admin API and health endpoint.
// App downstream surfaces are mounted later via MountApp as they come up.
func NewServer(store app.Store, onAppAdded func(a *app.App), opts ...Option) *Server {
	s := &Server{
		addr:           "127.0.0.1:8080",
		logger:         slog.Default(),
		metricsEnabled: true,
		mux:            http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.metrics = NewMetrics(reg)

	admin := NewAdmin(store, s.logger, onAppAdded)
	admin.RegisterRoutes(s.mux, "/admin/apps")

	health := NewHealthChecker(store, moduleVersion)
	s.mux.HandleFunc("/health", health.Handler())

	if s.metricsEnabled {
		s.mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	handler := RequestLoggerMiddleware(s.logger)(MetricsMiddleware(s.metrics)(s.mux))
	s.http = &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	return s
}

// MountApp registers an app's downstream MCP surface under /{name}.
func (s *Server) MountApp(d *Downstream) {
	s.logger.Info("mounting app", "name", d.Name)
	d.RegisterRoutes(s.mux, "/"+d.Name)
}

// Metrics returns the server's metrics set.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving and blocks until the listener stops. Returns nil on
// a clean shutdown (http.ErrServerClosed).
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting up to timeout for
// in-flight requests (including open SSE streams) to finish.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("http server shutting down", "timeout", timeout)
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
