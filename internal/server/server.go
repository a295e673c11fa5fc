// Package server exposes operational endpoints while a grid run is in
// progress: Prometheus metrics and a liveness probe. The server is optional;
// it starts only when an address is configured.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/astropenguin/ndradex/internal/logging"
)

// ShutdownTimeout bounds how long an in-flight scrape may delay shutdown.
const ShutdownTimeout = 5 * time.Second

// Server serves /metrics and /healthz on a dedicated listener.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

// New creates a metrics server.
//
// Parameters:
//   - addr: The listen address (e.g., ":9090").
//   - gatherer: The Prometheus gatherer to expose; nil uses the default.
//   - logger: The structured logger for lifecycle events.
//
// Returns:
//   - *Server: The configured server, not yet listening.
func New(addr string, gatherer prometheus.Gatherer, logger logging.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Nop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start listens in a background goroutine and returns immediately. Listener
// failures are logged, not returned: the metrics endpoint is auxiliary and
// must never abort a grid run.
func (s *Server) Start() {
	s.logger.Info("metrics server listening", logging.String("addr", s.srv.Addr))
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", err)
		}
	}()
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
