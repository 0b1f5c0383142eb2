package datastore

import (
	"strings"
	"time"
)

// dateLayouts are tried in order after RFC3339. 1/2/2006 is what en-US
// browsers produce from Date.toLocaleDateString.
var dateLayouts = []string{
	DateLayout,
	"1/2/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate interprets s as a calendar date. Timestamps with a zone take
// their UTC date. ok is false when s is empty or matches no known layout.
func ParseDate(s string) (d Date, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, false
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateOf(t.UTC()), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	return Date{}, false
}

// Normalize turns a lenient save request into a full record. An unparseable
// watchedDate becomes nil; a missing or unparseable dateAdded becomes the
// calendar date of now in now's own location, so callers pass now already
// converted to the configured zone. An id of 0 is left for Replace to assign.
func Normalize(in *MovieInput, now time.Time) Movie {
	m := Movie{
		ID:     in.ID.Value,
		Title:  in.Title,
		Genre:  in.Genre,
		Review: in.Review,
		Status: normalizeStatus(in.Status),
	}

	if in.Rating.Set {
		m.Rating = RatingOf(in.Rating.Value)
	}

	if in.Year.Set {
		year := int(in.Year.Value)
		m.Year = &year
	}

	if in.WatchedDate != nil {
		if d, ok := ParseDate(*in.WatchedDate); ok {
			m.WatchedDate = &d
		}
	}

	m.DateAdded = DateOf(now)
	if in.DateAdded != nil {
		if d, ok := ParseDate(*in.DateAdded); ok {
			m.DateAdded = d
		}
	}

	return m
}

// normalizeStatus defaults empty or unknown values to watched
func normalizeStatus(s string) Status {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return StatusWatched
	}
	return status
}
