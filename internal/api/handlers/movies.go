package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/errors"
	"github.com/tphakala/binged/internal/logger"
)

// SaveMovie handles POST /movies. The body is a lenient MovieInput; every
// field is optional and the record is written whole, replacing any row
// with the same id.
func (c *Controller) SaveMovie(ctx echo.Context) error {
	in, err := decodeMovieInput(ctx.Request().Body)
	if err != nil {
		// Oversized bodies surface as the body limit's HTTP error
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		c.logger.Debug("rejected malformed movie body", logger.Error(err))
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgInvalidJSON, Message: err.Error()})
	}

	movie := datastore.Normalize(in, c.Clock().In(c.Location))

	saved, err := c.Store.Replace(ctx.Request().Context(), &movie)
	if err != nil {
		c.requestLogger(ctx).Error("Failed to save movie",
			logger.Error(err),
			logger.Int64("id", movie.ID))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   MsgSaveFailed,
			Message: logger.RedactSensitiveData(err.Error()),
		})
	}

	c.logger.Info("Movie saved",
		logger.Int64("id", saved.ID),
		logger.String("title", saved.Title))
	return ctx.String(http.StatusOK, MsgMovieSaved)
}

// ListMovies handles GET /movies.
func (c *Controller) ListMovies(ctx echo.Context) error {
	movies, err := c.Store.List(ctx.Request().Context())
	if err != nil {
		c.requestLogger(ctx).Error("Failed to list movies", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: MsgDatabaseError})
	}
	if movies == nil {
		movies = []datastore.Movie{}
	}
	return ctx.JSON(http.StatusOK, movies)
}

// DeleteMovie handles DELETE /movies/:id. An id that isn't a number can't
// match any row and is reported as not found.
func (c *Controller) DeleteMovie(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusNotFound, ErrorResponse{Error: MsgMovieNotFound})
	}

	if err := c.Store.DeleteByID(ctx.Request().Context(), id); err != nil {
		if errors.IsNotFound(err) {
			return ctx.JSON(http.StatusNotFound, ErrorResponse{Error: MsgMovieNotFound})
		}
		c.requestLogger(ctx).Error("Failed to delete movie",
			logger.Error(err),
			logger.Int64("id", id))
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{Error: MsgDatabaseError})
	}

	c.logger.Info("Movie deleted", logger.Int64("id", id))
	return ctx.JSON(http.StatusOK, MessageResponse{Message: MsgMovieDeleted})
}

// decodeMovieInput reads the body regardless of Content-Type. An empty body
// is an empty record.
func decodeMovieInput(body io.Reader) (*datastore.MovieInput, error) {
	var in datastore.MovieInput
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &in, nil
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// requestLogger tags log lines with the trace id of the request context
func (c *Controller) requestLogger(ctx echo.Context) logger.Logger {
	return c.logger.WithContext(ctx.Request().Context())
}
