package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatastoreMetrics(t *testing.T) {
	m, err := NewDatastoreMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordDbOperation(OpReplace, StatusSuccess)
	m.RecordDbOperation(OpReplace, StatusSuccess)
	m.RecordDbOperation(OpDeleteByID, StatusNotFound)
	m.RecordDbOperationError(OpList, "connection")
	m.RecordCacheOperation(CacheHit)
	m.RecordConnectAttempt("mysql", StatusError)
	m.SetConnected(true)
	m.UpdateConnectionMetrics(2, 3, 10)

	assert.InDelta(t, 2, testutil.ToFloat64(m.dbOperationsTotal.WithLabelValues(OpReplace, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dbOperationsTotal.WithLabelValues(OpDeleteByID, StatusNotFound)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dbOperationErrorsTotal.WithLabelValues(OpList, "connection")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cacheOperationsTotal.WithLabelValues(CacheHit)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dbConnectAttemptsTotal.WithLabelValues("mysql", StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.dbConnectedGauge), 0)
	assert.InDelta(t, 10, testutil.ToFloat64(m.dbConnectionsMaxGauge), 0)

	m.SetConnected(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.dbConnectedGauge), 0)
}

func TestDatastoreMetricsDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewDatastoreMetrics(registry)
	require.NoError(t, err)

	_, err = NewDatastoreMetrics(registry)
	assert.Error(t, err, "registering the same collectors twice must fail")
}

func TestHTTPMetrics(t *testing.T) {
	m, err := NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordHTTPRequest("GET", "/movies", 200, 0.002)
	m.RecordHTTPRequest("DELETE", "/movies/:id", 404, 0.001)
	m.RecordHTTPRequest("POST", "/movies", 500, 0.003)
	m.RequestStarted()
	m.RequestStarted()
	m.RequestFinished()

	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/movies", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestErrors.WithLabelValues("DELETE", "/movies/:id", "client_error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpRequestErrors.WithLabelValues("POST", "/movies", "server_error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.httpInFlight), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(m.httpRequestsTotal))
}

func TestHTTPDurationHistogramGathered(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(registry)
	require.NoError(t, err)

	m.RecordHTTPRequest("GET", "/movies", 200, 0.002)
	m.RecordHTTPRequest("GET", "/movies", 200, 0.004)

	families, err := registry.Gather()
	require.NoError(t, err)

	var duration *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "binged_http_request_duration_seconds" {
			duration = mf
		}
	}
	require.NotNil(t, duration, "duration histogram not gathered")
	assert.Equal(t, dto.MetricType_HISTOGRAM, duration.GetType())
	require.Len(t, duration.GetMetric(), 1)

	hist := duration.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.InDelta(t, 0.006, hist.GetSampleSum(), 1e-9)
}
