package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"MarketPulse/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds all Prometheus metrics for batch runs.
type Metrics struct {
	SymbolsTotal   *prometheus.CounterVec // labels: status
	AlertsTotal    *prometheus.CounterVec // labels: kind
	SymbolDuration prometheus.Histogram
	RunDuration    prometheus.Histogram
	LastRun        prometheus.Gauge
}

// NewMetrics creates the metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SymbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketpulse_symbols_total",
			Help: "Symbols processed, by final status",
		}, []string{"status"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketpulse_alerts_total",
			Help: "Alerts emitted, by kind",
		}, []string{"kind"}),
		SymbolDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketpulse_symbol_duration_seconds",
			Help:    "Per-symbol pipeline latency (load to enriched CSV)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketpulse_run_duration_seconds",
			Help:    "Whole batch run latency",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "marketpulse_last_run_timestamp_seconds",
			Help: "Unix time the last batch run finished",
		}),
	}

	reg.MustRegister(
		m.SymbolsTotal,
		m.AlertsTotal,
		m.SymbolDuration,
		m.RunDuration,
		m.LastRun,
	)
	return m
}

// ObserveSymbol records one symbol's outcome and latency.
func (m *Metrics) ObserveSymbol(state model.SymbolState, d time.Duration) {
	m.SymbolsTotal.WithLabelValues(string(state)).Inc()
	m.SymbolDuration.Observe(d.Seconds())
}

// ObserveAlerts counts alerts by kind.
func (m *Metrics) ObserveAlerts(alerts []model.Alert) {
	for _, a := range alerts {
		m.AlertsTotal.WithLabelValues(string(a.Kind)).Inc()
	}
}

// ObserveRun records a finished batch run.
func (m *Metrics) ObserveRun(d time.Duration, finished time.Time) {
	m.RunDuration.Observe(d.Seconds())
	m.LastRun.Set(float64(finished.Unix()))
}

// HealthStatus tracks the outcome of the latest run for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	StartedAt   time.Time
	LastRunAt   time.Time
	LastRunID   string
	LastRunErr  string
	FailedCount int
}

// NewHealthStatus returns a health status with no runs yet.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

// SetRun records the latest run. A nil err means the run completed.
func (h *HealthStatus) SetRun(id string, at time.Time, failed int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastRunID = id
	h.LastRunAt = at
	h.FailedCount = failed
	h.LastRunErr = ""
	if err != nil {
		h.LastRunErr = err.Error()
	}
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	switch {
	case h.LastRunErr != "":
		overall = "unhealthy"
		code = http.StatusServiceUnavailable
	case h.LastRunAt.IsZero():
		overall = "waiting"
	case h.FailedCount > 0:
		overall = "degraded"
	}

	lastRun := ""
	if !h.LastRunAt.IsZero() {
		lastRun = h.LastRunAt.Format(time.RFC3339)
	}
	status := struct {
		Status        string `json:"status"`
		Uptime        string `json:"uptime"`
		LastRunID     string `json:"last_run_id"`
		LastRunAt     string `json:"last_run_at"`
		LastRunError  string `json:"last_run_error,omitempty"`
		FailedSymbols int    `json:"failed_symbols"`
	}{
		Status:        overall,
		Uptime:        time.Since(h.StartedAt).Round(time.Second).String(),
		LastRunID:     h.LastRunID,
		LastRunAt:     lastRun,
		LastRunError:  h.LastRunErr,
		FailedSymbols: h.FailedCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

// NewServer creates a metrics and health server backed by gatherer.
func NewServer(addr string, gatherer prometheus.Gatherer, health *HealthStatus, log *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log.Named("metrics"),
	}
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.log.Info("metrics server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }
