// Package tracker is the client side of binged: an explicit state container
// holding every record fetched from the API, the filter and sort choices, the
// edit form and the last error, plus the pure derivation of the visible view.
package tracker

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tphakala/binged/internal/datastore"
)

// SortKey selects the order of the derived view
type SortKey string

const (
	// SortDateAdded orders by id descending, which mirrors store order.
	// It is not a comparison of dateAdded values.
	SortDateAdded SortKey = "dateAdded"
	SortRating    SortKey = "rating"
	SortTitle     SortKey = "title"
	SortYear      SortKey = "year"
)

// ParseSortKey validates s. An empty string selects SortDateAdded.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case "":
		return SortDateAdded, nil
	case SortDateAdded, SortRating, SortTitle, SortYear:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want rating, title, year or dateAdded)", s)
	}
}

// Filter holds the inputs of Derive besides the records.
type Filter struct {
	Search    string
	Sort      SortKey
	MinRating *float64     // nil means no rating filter
	Locale    language.Tag // title collation; und falls back to English
}

// Derive returns the records that match f in the order f.Sort asks for.
// Unrated records fail any rating filter. It never modifies records.
func Derive(records []datastore.Movie, f Filter) []datastore.Movie {
	term := strings.ToLower(f.Search)

	view := make([]datastore.Movie, 0, len(records))
	for _, m := range records {
		if term != "" &&
			!strings.Contains(strings.ToLower(m.Title), term) &&
			!strings.Contains(strings.ToLower(m.Genre), term) {
			continue
		}
		if f.MinRating != nil && (!m.HasRating() || *m.Rating < *f.MinRating) {
			continue
		}
		view = append(view, m)
	}

	switch f.Sort {
	case SortRating:
		slices.SortStableFunc(view, func(a, b datastore.Movie) int {
			return compareRating(b, a)
		})
	case SortTitle:
		coll := collate.New(collationTag(f.Locale))
		slices.SortStableFunc(view, func(a, b datastore.Movie) int {
			return coll.CompareString(a.Title, b.Title)
		})
	case SortYear:
		slices.SortStableFunc(view, func(a, b datastore.Movie) int {
			return cmp.Compare(yearOrZero(b), yearOrZero(a))
		})
	default:
		slices.SortStableFunc(view, func(a, b datastore.Movie) int {
			return cmp.Compare(b.ID, a.ID)
		})
	}

	return view
}

func collationTag(tag language.Tag) language.Tag {
	if tag == language.Und {
		return language.English
	}
	return tag
}

// compareRating orders unrated records below every rating.
func compareRating(a, b datastore.Movie) int {
	switch {
	case a.HasRating() && b.HasRating():
		return cmp.Compare(*a.Rating, *b.Rating)
	case a.HasRating():
		return 1
	case b.HasRating():
		return -1
	default:
		return 0
	}
}

func yearOrZero(m datastore.Movie) int {
	if m.Year == nil {
		return 0
	}
	return *m.Year
}
