package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/canopy-network/spectroscope/lib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsPattern = "/metrics"

// MetricsServer represents a server that exposes Prometheus metrics
type MetricsServer struct {
	server *http.Server
	addr   string
	log    lib.LoggerI
}

// NewMetricsServer creates a new metrics server; nil when disabled
func NewMetricsServer(config lib.MetricsConfig, log lib.LoggerI) *MetricsServer {
	if !config.MetricsEnabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(metricsPattern, promhttp.Handler())
	return &MetricsServer{
		server: &http.Server{Addr: config.PrometheusAddress, Handler: mux},
		addr:   config.PrometheusAddress,
		log:    log,
	}
}

// Start starts the metrics server in the background
func (s *MetricsServer) Start() {
	if s == nil {
		return
	}
	go func() {
		s.log.Infof("Starting metrics server at %s", s.addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("Metrics server failed with err: %s", err.Error())
		}
	}()
}

// Stop gracefully stops the metrics server
func (s *MetricsServer) Stop() error {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// GetAddr returns the address the metrics server is listening on
func (s *MetricsServer) GetAddr() string {
	if s == nil {
		return ""
	}
	return s.addr
}
