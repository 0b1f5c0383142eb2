package datastore

import (
	"time"

	"github.com/tphakala/binged/internal/errors"
	"github.com/tphakala/binged/internal/observability/metrics"
)

// Metrics is a type alias for the metrics.DatastoreMetrics
type Metrics = metrics.DatastoreMetrics

// observe records outcome and latency of one store operation. A nil Metrics is a no-op.
func observe(m *Metrics, operation string, start time.Time, err error) {
	if m == nil {
		return
	}

	m.RecordDbOperationDuration(operation, time.Since(start).Seconds())

	switch {
	case err == nil:
		m.RecordDbOperation(operation, metrics.StatusSuccess)
	case errors.IsNotFound(err):
		m.RecordDbOperation(operation, metrics.StatusNotFound)
	default:
		m.RecordDbOperation(operation, metrics.StatusError)
		m.RecordDbOperationError(operation, categorizeError(err))
	}
}
