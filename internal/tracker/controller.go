package tracker

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/errors"
	"github.com/tphakala/binged/internal/logger"
)

// Prefixes of the user visible error message
const (
	loadErrorPrefix   = "Failed to load movies: "
	saveErrorPrefix   = "Failed to save movie: "
	deleteErrorPrefix = "Failed to delete movie: "

	// DeletePrompt is the question put to the Confirmer
	DeletePrompt = "Are you sure you want to delete this movie?"
)

// ErrUnknownMovie is returned by Edit for an id that isn't loaded
var ErrUnknownMovie = errors.NewStd("movie not loaded")

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// State is a snapshot of everything the controller holds.
type State struct {
	Records   []datastore.Movie
	View      []datastore.Movie
	Search    string
	Sort      SortKey
	MinRating *float64
	Editing   bool
	EditingID int64
	Draft     Draft
	Loading   bool
	LastError string
}

// Controller owns the client state and drives the API. All methods are
// safe for concurrent use; network calls run without holding the lock.
type Controller struct {
	mu    sync.RWMutex
	state State

	api    API
	ids    datastore.IDGenerator
	clock  func() time.Time
	loc    *time.Location
	locale language.Tag
	log    logger.Logger
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithIDGenerator sets the generator for ids of new records
func WithIDGenerator(g datastore.IDGenerator) ControllerOption {
	return func(c *Controller) { c.ids = g }
}

// WithClock sets the clock used to stamp dateAdded
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.clock = now }
}

// WithLocation sets the zone that decides "today"
func WithLocation(loc *time.Location) ControllerOption {
	return func(c *Controller) { c.loc = loc }
}

// WithLocale sets the title collation language
func WithLocale(tag language.Tag) ControllerOption {
	return func(c *Controller) { c.locale = tag }
}

// WithLogger overrides the controller logger
func WithLogger(l logger.Logger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// NewController returns a controller with an empty collection.
func NewController(api API, opts ...ControllerOption) *Controller {
	c := &Controller{
		api:    api,
		clock:  time.Now,
		loc:    time.Local,
		locale: language.English,
		log:    logger.Global().Module("tracker"),
		state: State{
			Records: []datastore.Movie{},
			View:    []datastore.Movie{},
			Sort:    SortDateAdded,
			Draft:   EmptyDraft(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ids == nil {
		c.ids = datastore.NewMonotonicGenerator(c.clock)
	}
	return c
}

// Load fetches the full list and re-derives the view. A failure keeps the
// previous records and sets LastError.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.state.Loading = true
	c.state.LastError = ""
	c.mu.Unlock()

	err := c.refresh(ctx)

	c.mu.Lock()
	c.state.Loading = false
	c.mu.Unlock()
	return err
}

// refresh fetches the list. It sets LastError on failure but never clears it.
func (c *Controller) refresh(ctx context.Context) error {
	movies, err := c.api.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.state.LastError = loadErrorPrefix + err.Error()
		c.log.Warn("failed to load movies", logger.Error(err))
		return err
	}
	c.state.Records = movies
	c.deriveLocked()
	return nil
}

// SetSearch updates the search term.
func (c *Controller) SetSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Search = term
	c.deriveLocked()
}

// SetSort updates the sort key.
func (c *Controller) SetSort(key SortKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Sort = key
	c.deriveLocked()
}

// SetMinRating sets the rating filter; nil removes it.
func (c *Controller) SetMinRating(min *float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if min != nil {
		v := *min
		min = &v
	}
	c.state.MinRating = min
	c.deriveLocked()
}

// ParseMinRating sets the rating filter from text. Blank text removes it.
func (c *Controller) ParseMinRating(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		c.SetMinRating(nil)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Newf("minimum rating %q is not a number", s).
			Component("tracker").
			Category(errors.CategoryValidation).
			Build()
	}
	c.SetMinRating(&v)
	return nil
}

// SetDraft replaces the form contents.
func (c *Controller) SetDraft(d Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Draft = d
}

// Edit loads the record with id into the form and enters edit mode.
func (c *Controller) Edit(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.findLocked(id)
	if !ok {
		return errors.New(ErrUnknownMovie).
			Component("tracker").
			Category(errors.CategoryNotFound).
			Context("id", id).
			Build()
	}
	c.state.Draft = DraftFromMovie(m)
	c.state.Editing = true
	c.state.EditingID = id
	return nil
}

// CancelEdit clears the form and leaves edit mode.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetFormLocked()
}

// Submit saves the form as a full record and re-fetches the list. The form
// is reset only when both the save and the re-fetch of this submission
// succeeded. A draft failing validation returns an error without any
// network call.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	draft := c.state.Draft
	if err := draft.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}

	var id int64
	dateAdded := datastore.Today(c.clock(), c.loc).String()
	if c.state.Editing {
		id = c.state.EditingID
		// dateAdded comes from the cached copy and may be stale
		if m, ok := c.findLocked(id); ok && !m.DateAdded.IsZero() {
			dateAdded = m.DateAdded.String()
		}
	} else {
		id = c.ids.NextID()
	}

	c.state.Loading = true
	c.state.LastError = ""
	c.mu.Unlock()

	saveErr := c.api.Save(ctx, draft.toInput(id, dateAdded))
	if saveErr != nil {
		c.log.Warn("failed to save movie", logger.Int64("id", id), logger.Error(saveErr))
		c.mu.Lock()
		c.state.LastError = saveErrorPrefix + saveErr.Error()
		c.mu.Unlock()
	}

	refreshErr := c.refresh(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false

	if saveErr != nil {
		return saveErr
	}
	if refreshErr != nil {
		return refreshErr
	}
	c.resetFormLocked()
	return nil
}

// Delete asks confirm and, on yes, deletes id and re-fetches the list.
// It reports whether a delete was attempted.
func (c *Controller) Delete(ctx context.Context, id int64, confirm Confirmer) (bool, error) {
	if confirm == nil || !confirm.Confirm(DeletePrompt) {
		return false, nil
	}

	c.mu.Lock()
	c.state.Loading = true
	c.state.LastError = ""
	c.mu.Unlock()

	deleteErr := c.api.Delete(ctx, id)
	if deleteErr != nil {
		c.log.Warn("failed to delete movie", logger.Int64("id", id), logger.Error(deleteErr))
		c.mu.Lock()
		c.state.LastError = deleteErrorPrefix + deleteErr.Error()
		c.mu.Unlock()
	}

	refreshErr := c.refresh(ctx)

	c.mu.Lock()
	c.state.Loading = false
	c.mu.Unlock()

	if deleteErr != nil {
		return true, deleteErr
	}
	return true, refreshErr
}

// DismissError clears LastError.
func (c *Controller) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LastError = ""
}

// Snapshot returns a deep enough copy of the state for callers to keep.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.state
	s.Records = slices.Clone(c.state.Records)
	s.View = slices.Clone(c.state.View)
	if c.state.MinRating != nil {
		v := *c.state.MinRating
		s.MinRating = &v
	}
	return s
}

// View returns the derived view.
func (c *Controller) View() []datastore.Movie {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.state.View)
}

// Stats summarizes all loaded records.
func (c *Controller) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ComputeStats(c.state.Records)
}

func (c *Controller) deriveLocked() {
	c.state.View = Derive(c.state.Records, Filter{
		Search:    c.state.Search,
		Sort:      c.state.Sort,
		MinRating: c.state.MinRating,
		Locale:    c.locale,
	})
}

func (c *Controller) findLocked(id int64) (datastore.Movie, bool) {
	for _, m := range c.state.Records {
		if m.ID == id {
			return m, true
		}
	}
	return datastore.Movie{}, false
}

func (c *Controller) resetFormLocked() {
	c.state.Draft = EmptyDraft()
	c.state.Editing = false
	c.state.EditingID = 0
}
