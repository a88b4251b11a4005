package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordCandidate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordCandidate("grid", "accepted", 0.01, 3)
	m.RecordCandidate("grid", "accepted", 0.02, 2)
	m.RecordCandidate("grid", "rejected", 0.01, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CandidatesEvaluated.WithLabelValues("grid", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CandidatesEvaluated.WithLabelValues("grid", "rejected")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.TradesSimulated))
}

func TestMetrics_RecordStoreOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordStoreOp("redis", "save", 0.001, nil)
	m.RecordStoreOp("redis", "save", 0.001, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOpErrors.WithLabelValues("redis", "save")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRun("backtest", "completed", 1)
	m.RecordCandidate("grid", "accepted", 1, 1)
	m.RecordBest(10)
	m.RecordSkippedSymbols(2)
	m.RecordStoreOp("memory", "load", 0, nil)
	m.RecordMarketDataRequest("ok")
	m.SetBreakerOpen(true)
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordRun("optimize", "completed", 2)
	m.SetBreakerOpen(true)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `test_runs_total{kind="optimize",status="completed"} 1`))
	assert.True(t, strings.Contains(body, "test_marketdata_breaker_open 1"))
}
