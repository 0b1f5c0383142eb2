package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/errors"
)

func TestDraftValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		draft   Draft
		wantErr string
	}{
		{"minimal", Draft{Title: "Dune", Rating: "8"}, ""},
		{"full", Draft{Title: "Dune", Rating: "8.5", Year: "2021", Status: "watchlist"}, ""},
		{"missing title", Draft{Rating: "8"}, "title is required"},
		{"blank title", Draft{Title: "   ", Rating: "8"}, "title is required"},
		{"missing rating", Draft{Title: "Dune"}, "rating is required"},
		{"text rating", Draft{Title: "Dune", Rating: "great"}, "rating must be a number"},
		{"text year", Draft{Title: "Dune", Rating: "8", Year: "soon"}, "year must be a whole number"},
		{"fractional year", Draft{Title: "Dune", Rating: "8", Year: "2010.7"}, "year must be a whole number"},
		{"huge year", Draft{Title: "Dune", Rating: "8", Year: "99999999999999999999"}, "year must be a whole number"},
		{"zero year", Draft{Title: "Dune", Rating: "8", Year: "0"}, "year must be a whole number"},
		{"padded year", Draft{Title: "Dune", Rating: "8", Year: " 2010 "}, ""},
		{"bad status", Draft{Title: "Dune", Rating: "8", Status: "maybe"}, "status must be one of: watched watchlist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.draft.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestDraftFromMovie(t *testing.T) {
	t.Parallel()

	year := 2021
	watched := datastore.NewDate(2024, 1, 2)
	m := datastore.Movie{
		ID:          7,
		Title:       "Dune",
		Genre:       "Sci-Fi",
		Rating:      datastore.RatingOf(8.5),
		Review:      "Sand",
		Year:        &year,
		WatchedDate: &watched,
		Status:      datastore.StatusWatchlist,
	}

	assert.Equal(t, Draft{
		Title:       "Dune",
		Genre:       "Sci-Fi",
		Rating:      "8.5",
		Review:      "Sand",
		Year:        "2021",
		WatchedDate: "2024-01-02",
		Status:      "watchlist",
	}, DraftFromMovie(m))

	d := DraftFromMovie(datastore.Movie{Title: "X", Rating: datastore.RatingOf(7)})
	assert.Empty(t, d.Year)
	assert.Empty(t, d.WatchedDate)
	assert.Equal(t, "7", d.Rating)

	d = DraftFromMovie(datastore.Movie{Title: "Unrated"})
	assert.Empty(t, d.Rating, "no rating loads as an empty field")
}

func TestDraftToInput(t *testing.T) {
	t.Parallel()

	d := Draft{Title: " Dune ", Rating: "8.5", Year: "2021", WatchedDate: "2024-01-02"}
	in := d.toInput(42, "2024-03-15")

	assert.Equal(t, datastore.FlexInt64{Value: 42, Set: true}, in.ID)
	assert.Equal(t, "Dune", in.Title)
	assert.Equal(t, datastore.FlexFloat64{Value: 8.5, Set: true}, in.Rating)
	assert.Equal(t, datastore.FlexInt64{Value: 2021, Set: true}, in.Year)
	assert.Equal(t, "watched", in.Status)
	require.NotNil(t, in.WatchedDate)
	assert.Equal(t, "2024-01-02", *in.WatchedDate)
	require.NotNil(t, in.DateAdded)
	assert.Equal(t, "2024-03-15", *in.DateAdded)

	in = Draft{Title: "X", Rating: "1"}.toInput(1, "")
	assert.False(t, in.Year.Set)
	assert.True(t, in.Rating.Set)
	assert.Nil(t, in.WatchedDate)
	assert.Nil(t, in.DateAdded)
}

func TestEmptyDraft(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Draft{Status: "watched"}, EmptyDraft())
}
