package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MarketPulse/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveSymbol(model.StateAlerted, 20*time.Millisecond)
	m.ObserveSymbol(model.StateQuiet, 10*time.Millisecond)
	m.ObserveSymbol(model.StateQuiet, 10*time.Millisecond)
	m.ObserveAlerts([]model.Alert{
		{Kind: model.AlertPriceMove},
		{Kind: model.AlertPriceMove},
		{Kind: model.AlertVolumeSpike},
	})
	finished := time.Unix(1717440000, 0)
	m.ObserveRun(time.Second, finished)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SymbolsTotal.WithLabelValues("alerted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SymbolsTotal.WithLabelValues("quiet")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("price_move")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("volume_spike")))
	assert.Equal(t, 1717440000.0, testutil.ToFloat64(m.LastRun))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SymbolDuration))

	expected := `
# HELP marketpulse_last_run_timestamp_seconds Unix time the last batch run finished
# TYPE marketpulse_last_run_timestamp_seconds gauge
marketpulse_last_run_timestamp_seconds 1.71744e+09
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "marketpulse_last_run_timestamp_seconds"))
}

func TestNewMetricsRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestServerEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveSymbol(model.StateFailed, time.Millisecond)

	health := NewHealthStatus()
	srv := NewServer(":0", reg, health, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `marketpulse_symbols_total{status="failed"} 1`)

	decode := func() (int, map[string]any) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec.Code, body
	}

	code, body := decode()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "waiting", body["status"])

	health.SetRun("run-1", time.Now(), 2, nil)
	_, body = decode()
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "run-1", body["last_run_id"])

	health.SetRun("run-2", time.Now(), 0, errors.New("config: boom"))
	code, body = decode()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])
}
