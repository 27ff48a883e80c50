// Package pipeline runs captured segments through per-flow decoders,
// correlation, and span conversion, and exposes self-telemetry over
// HTTP.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SelfTelemetryConfig configures the self-telemetry HTTP server.
type SelfTelemetryConfig struct {
	// Enabled enables the self-telemetry HTTP server.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address to listen on.
	ListenAddress string `yaml:"listen_address"`

	// MetricsPath is the path for the metrics endpoint.
	MetricsPath string `yaml:"metrics_path"`

	// HealthPath is the path for the health endpoint.
	HealthPath string `yaml:"health_path"`

	// Namespace is the prometheus metrics namespace.
	Namespace string `yaml:"namespace"`
}

// DefaultSelfTelemetryConfig returns reasonable defaults.
func DefaultSelfTelemetryConfig() SelfTelemetryConfig {
	return SelfTelemetryConfig{
		Enabled:       true,
		ListenAddress: ":8888",
		MetricsPath:   "/metrics",
		HealthPath:    "/health",
		Namespace:     "pgtrace",
	}
}

// Metrics contains the decode-pipeline prometheus metrics.
type Metrics struct {
	// ProbesTotal counts probe outcomes by direction and result
	// (accept or reject). A reject is a protocol mismatch, not an
	// error.
	ProbesTotal *prometheus.CounterVec

	// RecordsTotal counts correlation outcomes (pending, completed,
	// orphan).
	RecordsTotal *prometheus.CounterVec

	// PendingExchanges is the number of requests awaiting their
	// response.
	PendingExchanges prometheus.Gauge
}

// NewMetrics builds and registers the pipeline metrics.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "pgtrace"
	}

	m := &Metrics{
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Probe outcomes by direction and result",
		}, []string{"direction", "result"}),

		RecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Correlation outcomes for decoded records",
		}, []string{"outcome"}),

		PendingExchanges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_exchanges",
			Help:      "Requests currently awaiting their response",
		}),
	}

	reg.MustRegister(m.ProbesTotal, m.RecordsTotal, m.PendingExchanges)
	return m
}

// SelfTelemetry serves the pipeline metrics and health endpoints.
type SelfTelemetry struct {
	config  SelfTelemetryConfig
	logger  *slog.Logger
	server  *http.Server
	mux     *http.ServeMux
	healthy atomic.Bool

	registry *prometheus.Registry
	metrics  *Metrics
}

// NewSelfTelemetry creates a self-telemetry instance with its own
// registry.
func NewSelfTelemetry(config SelfTelemetryConfig, logger *slog.Logger) *SelfTelemetry {
	if logger == nil {
		logger = slog.Default()
	}

	st := &SelfTelemetry{
		config:   config,
		logger:   logger,
		mux:      http.NewServeMux(),
		registry: prometheus.NewRegistry(),
	}

	st.metrics = NewMetrics(st.registry, config.Namespace)
	st.registry.MustRegister(prometheus.NewGoCollector())
	st.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	st.setupHandlers()
	st.healthy.Store(true)

	return st
}

// Metrics returns the pipeline metrics registered on this instance.
func (st *SelfTelemetry) Metrics() *Metrics {
	return st.metrics
}

func (st *SelfTelemetry) setupHandlers() {
	st.mux.Handle(st.config.MetricsPath, promhttp.HandlerFor(st.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	st.mux.HandleFunc(st.config.HealthPath, st.healthHandler)
}

func (st *SelfTelemetry) healthHandler(w http.ResponseWriter, _ *http.Request) {
	if st.healthy.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unhealthy"}`))
	}
}

// Start serves until ctx is cancelled, then shuts down.
func (st *SelfTelemetry) Start(ctx context.Context) error {
	if !st.config.Enabled {
		<-ctx.Done()
		return nil
	}

	st.server = &http.Server{
		Addr:              st.config.ListenAddress,
		Handler:           st.mux,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", st.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("self-telemetry listen on %s: %w", st.config.ListenAddress, err)
	}
	st.logger.Info("self-telemetry listening", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := st.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	st.healthy.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return st.server.Shutdown(shutdownCtx)
}
