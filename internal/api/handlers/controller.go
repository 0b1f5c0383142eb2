// Package handlers implements the movie endpoints of the binged API.
package handlers

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/logger"
)

// Response messages shared with clients. Clients match on some of these, so
// they must not change.
const (
	MsgMovieSaved       = "Movie saved"
	MsgMovieDeleted     = "Movie deleted successfully"
	MsgMovieNotFound    = "Movie not found"
	MsgDatabaseError    = "Database error"
	MsgSaveFailed       = "Failed to save movie"
	MsgInvalidJSON      = "Invalid JSON body"
	MsgEndpointNotFound = "Endpoint not found"
	MsgInternalError    = "Something went wrong!"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is the JSON body of a successful delete.
type MessageResponse struct {
	Message string `json:"message"`
}

// Controller serves the /movies routes against a record store.
type Controller struct {
	Store    datastore.Interface
	Clock    func() time.Time
	Location *time.Location // zone of default dateAdded values
	logger   logger.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithClock overrides the clock used for default dateAdded values
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.Clock = now }
}

// WithLocation sets the zone in which "today" is taken for default dateAdded values
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) { c.Location = loc }
}

// WithLogger overrides the controller logger
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a controller and registers its routes on e.
func New(e *echo.Echo, store datastore.Interface, opts ...Option) *Controller {
	c := &Controller{
		Store:    store,
		Clock:    time.Now,
		Location: time.Local,
		logger:   logger.Global().Module("api").Module("movies"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Location == nil {
		c.Location = time.Local
	}

	c.RegisterRoutes(e)
	return c
}

// RegisterRoutes attaches the movie endpoints.
func (c *Controller) RegisterRoutes(e *echo.Echo) {
	e.POST("/movies", c.SaveMovie)
	e.GET("/movies", c.ListMovies)
	e.DELETE("/movies/:id", c.DeleteMovie)
}
