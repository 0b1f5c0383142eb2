package tracker

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/errors"
)

// Draft is the add/edit form. Fields hold text as typed; conversion happens
// when the draft is submitted.
type Draft struct {
	Title       string `json:"title" validate:"required"`
	Genre       string `json:"genre"`
	Rating      string `json:"rating" validate:"required,numeric"`
	Review      string `json:"review"`
	Year        string `json:"year" validate:"omitempty,year"`
	WatchedDate string `json:"watchedDate"`
	Status      string `json:"status" validate:"omitempty,oneof=watched watchlist"`
}

// EmptyDraft returns the form in its initial state.
func EmptyDraft() Draft {
	return Draft{Status: string(datastore.StatusWatched)}
}

// DraftFromMovie loads m into a form verbatim.
func DraftFromMovie(m datastore.Movie) Draft {
	d := Draft{
		Title:  m.Title,
		Genre:  m.Genre,
		Review: m.Review,
		Status: string(m.Status),
	}
	if m.HasRating() {
		d.Rating = strconv.FormatFloat(*m.Rating, 'f', -1, 64)
	}
	if m.Year != nil {
		d.Year = strconv.Itoa(*m.Year)
	}
	if m.WatchedDate != nil {
		d.WatchedDate = m.WatchedDate.String()
	}
	return d
}

// maxYear bounds the year field to four digits
const maxYear = 9999

var draftValidator = newDraftValidator()

func newDraftValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("year", isYear); err != nil {
		panic(err)
	}
	return v
}

// isYear accepts whole numbers from 1 to maxYear
func isYear(fl validator.FieldLevel) bool {
	y, err := strconv.Atoi(fl.Field().String())
	return err == nil && y >= 1 && y <= maxYear
}

// Validate is the submit gate: a title and a numeric rating are required, and
// a year, when given, must be a whole number.
func (d Draft) Validate() error {
	trimmed := d
	trimmed.Title = strings.TrimSpace(d.Title)
	trimmed.Rating = strings.TrimSpace(d.Rating)
	trimmed.Year = strings.TrimSpace(d.Year)

	err := draftValidator.Struct(trimmed)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	msg := err.Error()
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		msg = draftMessage(fieldErrs[0])
	}
	return errors.Newf("%s", msg).
		Component("tracker").
		Category(errors.CategoryValidation).
		Context("field", fieldName(err)).
		Build()
}

func draftMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "numeric":
		return field + " must be a number"
	case "year":
		return field + " must be a whole number"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func fieldName(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return strings.ToLower(fieldErrs[0].Field())
	}
	return ""
}

// toInput builds the full record sent to the API.
func (d Draft) toInput(id int64, dateAdded string) *datastore.MovieInput {
	in := &datastore.MovieInput{
		ID:     datastore.FlexInt64{Value: id, Set: true},
		Title:  strings.TrimSpace(d.Title),
		Genre:  d.Genre,
		Review: d.Review,
		Status: d.Status,
	}
	if in.Status == "" {
		in.Status = string(datastore.StatusWatched)
	}
	if r, err := strconv.ParseFloat(strings.TrimSpace(d.Rating), 64); err == nil {
		in.Rating = datastore.FlexFloat64{Value: r, Set: true}
	}
	if y, err := strconv.Atoi(strings.TrimSpace(d.Year)); err == nil {
		in.Year = datastore.FlexInt64{Value: int64(y), Set: true}
	}
	if d.WatchedDate != "" {
		wd := d.WatchedDate
		in.WatchedDate = &wd
	}
	if dateAdded != "" {
		in.DateAdded = &dateAdded
	}
	return in
}
