package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for record store operations
type DatastoreMetrics struct {
	registry *prometheus.Registry

	dbOperationsTotal      *prometheus.CounterVec
	dbOperationDuration    *prometheus.HistogramVec
	dbOperationErrorsTotal *prometheus.CounterVec
	dbQueryResultSizeHist  *prometheus.HistogramVec

	dbConnectAttemptsTotal   *prometheus.CounterVec
	dbConnectedGauge         prometheus.Gauge
	dbConnectionsActiveGauge prometheus.Gauge
	dbConnectionsIdleGauge   prometheus.Gauge
	dbConnectionsMaxGauge    prometheus.Gauge

	cacheOperationsTotal *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers new datastore metrics
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.dbOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binged_datastore_operations_total",
			Help: "Total number of record store operations",
		},
		[]string{"operation", "status"}, // operation: replace, list, delete_by_id; status: success, error, not_found
	)

	m.dbOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "binged_datastore_operation_duration_seconds",
			Help:    "Time taken for record store operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)

	m.dbOperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binged_datastore_operation_errors_total",
			Help: "Total number of record store errors by type",
		},
		[]string{"operation", "error_type"},
	)

	m.dbQueryResultSizeHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "binged_datastore_result_rows",
			Help:    "Number of rows returned by list operations",
			Buckets: prometheus.ExponentialBuckets(1, BucketFactor2, BucketCount10),
		},
		[]string{"operation"},
	)

	m.dbConnectAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binged_datastore_connect_attempts_total",
			Help: "Connection attempts made while opening the store",
		},
		[]string{"backend", "status"},
	)

	m.dbConnectedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "binged_datastore_connected",
		Help: "1 when the store is open, 0 otherwise",
	})
	m.dbConnectionsActiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "binged_datastore_connections_active",
		Help: "Connections currently in use",
	})
	m.dbConnectionsIdleGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "binged_datastore_connections_idle",
		Help: "Idle connections in the pool",
	})
	m.dbConnectionsMaxGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "binged_datastore_connections_max",
		Help: "Maximum number of open connections",
	})

	m.cacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binged_datastore_cache_operations_total",
			Help: "List cache lookups and invalidations",
		},
		[]string{"result"}, // hit, miss, shared, invalidate
	)

	m.collectors = []prometheus.Collector{
		m.dbOperationsTotal,
		m.dbOperationDuration,
		m.dbOperationErrorsTotal,
		m.dbQueryResultSizeHist,
		m.dbConnectAttemptsTotal,
		m.dbConnectedGauge,
		m.dbConnectionsActiveGauge,
		m.dbConnectionsIdleGauge,
		m.dbConnectionsMaxGauge,
		m.cacheOperationsTotal,
	}
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordDbOperation records a store operation outcome
func (m *DatastoreMetrics) RecordDbOperation(operation, status string) {
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDbOperationDuration records the duration of a store operation in seconds
func (m *DatastoreMetrics) RecordDbOperationDuration(operation string, duration float64) {
	m.dbOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordDbOperationError records a store operation error
func (m *DatastoreMetrics) RecordDbOperationError(operation, errorType string) {
	m.dbOperationErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordQueryResultSize records the number of rows a list returned
func (m *DatastoreMetrics) RecordQueryResultSize(operation string, resultSize int) {
	m.dbQueryResultSizeHist.WithLabelValues(operation).Observe(float64(resultSize))
}

// RecordConnectAttempt records one attempt to open the store
func (m *DatastoreMetrics) RecordConnectAttempt(backend, status string) {
	m.dbConnectAttemptsTotal.WithLabelValues(backend, status).Inc()
}

// SetConnected flips the connected gauge
func (m *DatastoreMetrics) SetConnected(connected bool) {
	if connected {
		m.dbConnectedGauge.Set(1)
		return
	}
	m.dbConnectedGauge.Set(0)
}

// UpdateConnectionMetrics updates database connection pool metrics
func (m *DatastoreMetrics) UpdateConnectionMetrics(active, idle, maxConn int) {
	m.dbConnectionsActiveGauge.Set(float64(active))
	m.dbConnectionsIdleGauge.Set(float64(idle))
	m.dbConnectionsMaxGauge.Set(float64(maxConn))
}

// RecordCacheOperation records a list cache lookup or invalidation
func (m *DatastoreMetrics) RecordCacheOperation(result string) {
	m.cacheOperationsTotal.WithLabelValues(result).Inc()
}
