package tracker

import (
	"strconv"

	"github.com/tphakala/binged/internal/datastore"
)

// Stats summarizes the whole collection, not the filtered view.
type Stats struct {
	Total     int    `json:"total"`
	Watched   int    `json:"watched"`
	Watchlist int    `json:"watchlist"`
	AvgRating string `json:"avgRating"` // one decimal, "0" when nothing is rated
}

// ComputeStats counts statuses and averages ratings over the records that
// have one.
func ComputeStats(records []datastore.Movie) Stats {
	s := Stats{Total: len(records), AvgRating: "0"}

	var sum float64
	var rated int
	for _, m := range records {
		switch m.Status {
		case datastore.StatusWatched:
			s.Watched++
		case datastore.StatusWatchlist:
			s.Watchlist++
		}
		if m.HasRating() {
			sum += *m.Rating
			rated++
		}
	}
	if rated > 0 {
		s.AvgRating = strconv.FormatFloat(sum/float64(rated), 'f', 1, 64)
	}
	return s
}
