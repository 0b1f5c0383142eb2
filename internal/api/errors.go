package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/binged/internal/api/handlers"
	"github.com/tphakala/binged/internal/errors"
	"github.com/tphakala/binged/internal/logger"
)

// HTTPErrorHandler renders every error that reaches echo as JSON.
// Unknown routes and wrong methods are both "Endpoint not found"; other echo
// HTTP errors keep their status; anything else, panics included, is a 500
// with a generic message and the detail only in the log.
func (s *Server) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		GetLogger().Error("Unhandled request error",
			logger.Error(err),
			logger.String("method", c.Request().Method),
			logger.String("path", c.Request().URL.Path),
			logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		GetLogger().Warn("Failed to write error response", logger.Error(writeErr))
	}
}

// errorResponse maps err to a status and JSON body
func errorResponse(err error) (int, handlers.ErrorResponse) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			return http.StatusNotFound, handlers.ErrorResponse{Error: handlers.MsgEndpointNotFound}
		case http.StatusInternalServerError:
			return http.StatusInternalServerError, handlers.ErrorResponse{Error: handlers.MsgInternalError}
		}
		msg := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok && m != "" {
			msg = m
		}
		return httpErr.Code, handlers.ErrorResponse{Error: msg}
	}
	return http.StatusInternalServerError, handlers.ErrorResponse{Error: handlers.MsgInternalError}
}
