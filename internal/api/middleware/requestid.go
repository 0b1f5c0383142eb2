package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/binged/internal/logger"
)

// RequestIDKey is the echo context key holding the request id
const RequestIDKey = "request_id"

// NewRequestID tags each request with a UUID, honouring an incoming
// X-Request-ID header. The id is echoed in the response, stored in the
// context under RequestIDKey and carried as the trace id of the request
// context, so logger.WithContext tags handler log lines with it.
func NewRequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set(RequestIDKey, id)
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithTraceID(req.Context(), id)))
		},
	})
}

// RequestID returns the id assigned to the request, or "" outside the middleware.
func RequestID(c echo.Context) string {
	id, _ := c.Get(RequestIDKey).(string)
	return id
}
