package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/binged/internal/observability/metrics"
)

// unmatchedRoute labels requests that matched no route so random paths
// can't blow up label cardinality
const unmatchedRoute = "unmatched"

// NewMetrics records request count, latency and response size. Errors are
// rendered here through c.Error so the recorded status is the final one.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}

			m.RequestStarted()
			defer m.RequestFinished()

			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			path := routeLabel(c)
			method := c.Request().Method
			status := c.Response().Status

			m.RecordHTTPRequest(method, path, status, time.Since(start).Seconds())
			m.RecordHTTPResponseSize(method, path, c.Response().Size)
			return nil
		}
	}
}

// routeLabel returns the registered route pattern such as /movies/:id
func routeLabel(c echo.Context) string {
	path := c.Path()
	if path == "" || path == "/*" {
		return unmatchedRoute
	}
	return path
}
