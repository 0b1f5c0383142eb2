package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/errors"
	"github.com/tphakala/binged/internal/logger"
)

var testNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

// setupTestEnvironment returns an echo instance with the movie routes bound
// to a fresh mock store.
func setupTestEnvironment(t *testing.T) (*echo.Echo, *MockDataStore, *Controller) {
	t.Helper()
	e := echo.New()
	store := &MockDataStore{}
	c := New(e, store,
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
		WithLogger(logger.NewNopLogger()))
	t.Cleanup(func() { store.AssertExpectations(t) })
	return e, store, c
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSaveMovie(t *testing.T) {
	e, store, _ := setupTestEnvironment(t)

	want := datastore.Movie{
		ID:          1700000000000,
		Title:       "Inception",
		Genre:       "Sci-Fi",
		Rating:      datastore.RatingOf(9),
		Review:      "Dreams within dreams",
		WatchedDate: ptr(datastore.NewDate(2024, time.January, 5)),
		Status:      datastore.StatusWatched,
		DateAdded:   datastore.NewDate(2024, time.January, 1),
	}
	year := 2010
	want.Year = &year

	store.On("Replace", mock.Anything, &want).Return(&want, nil).Once()

	rec := serve(e, http.MethodPost, "/movies", `{
		"id": 1700000000000, "title": "Inception", "genre": "Sci-Fi", "rating": "9",
		"review": "Dreams within dreams", "year": 2010,
		"watchedDate": "2024-01-05T00:00:00.000Z", "status": "watched", "dateAdded": "2024-01-01"
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MsgMovieSaved, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextPlain)
}

func TestSaveMovieEmptyBodyIsAccepted(t *testing.T) {
	e, store, _ := setupTestEnvironment(t)

	store.On("Replace", mock.Anything, mock.MatchedBy(func(m *datastore.Movie) bool {
		return m.ID == 0 && m.Title == "" && m.Status == datastore.StatusWatched &&
			m.DateAdded == datastore.DateOf(testNow) && m.WatchedDate == nil && m.Rating == nil
	})).Return(&datastore.Movie{ID: 1}, nil).Once()

	rec := serve(e, http.MethodPost, "/movies", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSaveMovieStampsTodayInControllerLocation(t *testing.T) {
	e := echo.New()
	store := &MockDataStore{}
	t.Cleanup(func() { store.AssertExpectations(t) })

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	late := time.Date(2024, time.March, 15, 20, 0, 0, 0, time.UTC) // 05:00 on the 16th in Tokyo

	New(e, store,
		WithClock(func() time.Time { return late }),
		WithLocation(tokyo),
		WithLogger(logger.NewNopLogger()))

	store.On("Replace", mock.Anything, mock.MatchedBy(func(m *datastore.Movie) bool {
		return m.DateAdded == datastore.NewDate(2024, time.March, 16)
	})).Return(&datastore.Movie{ID: 1}, nil).Once()

	rec := serve(e, http.MethodPost, "/movies", `{"id":1,"title":"Dune","rating":9}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSaveMovieDropsBadWatchedDate(t *testing.T) {
	e, store, _ := setupTestEnvironment(t)

	store.On("Replace", mock.Anything, mock.MatchedBy(func(m *datastore.Movie) bool {
		return m.WatchedDate == nil && m.ID == 5
	})).Return(&datastore.Movie{ID: 5}, nil).Once()

	rec := serve(e, http.MethodPost, "/movies", `{"id":5,"title":"x","rating":5,"watchedDate":"not a date"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSaveMovieStoreError(t *testing.T) {
	e, store, _ := setupTestEnvironment(t)

	storeErr := errors.Newf("dial tcp: connect root:hunter2@tcp(db:3305)/binged refused").
		Component("datastore").Category(errors.CategoryDatabase).Build()
	store.On("Replace", mock.Anything, mock.Anything).Return(nil, storeErr).Once()

	rec := serve(e, http.MethodPost, "/movies", `{"title":"x","rating":5}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, MsgSaveFailed, body.Error)
	assert.Contains(t, body.Message, "refused")
	assert.NotContains(t, body.Message, "hunter2", "credentials must not leak to clients")
}

func TestSaveMovieMalformedJSON(t *testing.T) {
	e, _, _ := setupTestEnvironment(t)

	rec := serve(e, http.MethodPost, "/movies", `{"title": "unterminated`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, MsgInvalidJSON, body.Error)
}

func TestListMovies(t *testing.T) {
	e, store, _ := setupTestEnvironment(t)

	movies := []datastore.Movie{
		{ID: 3, Title: "C", Rating: datastore.RatingOf(7), Status: datastore.StatusWatched, DateAdded: datastore.NewDate(2024, 1, 3)},
		{ID: 1, Title: "A", Rating: datastore.RatingOf(9), Status: datastore.StatusWatchlist, DateAdded: datastore.NewDate(2024, 1, 1)},
	}
	store.On("List", mock.Anything).Return(movies, nil).Once()

	rec := serve(e, http.MethodGet, "/movies", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []datastore.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, movies, got)
}

func TestStoreErrorLogCarriesTraceID(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	store := &MockDataStore{}
	t.Cleanup(func() { store.AssertExpectations(t) })
	New(e, store, WithLogger(logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC)))

	store.On("List", mock.Anything).Return(nil, errors.NewStd("connection reset")).Once()

	req := httptest.NewRequest(http.MethodGet, "/movies", http.NoBody)
	req = req.WithContext(logger.WithTraceID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), `"trace_id":"req-42"`)
	assert.Contains(t, buf.String(), `"msg":"Failed to list movies"`)
}

func TestListMoviesEmptyIsArray(t *testing.T) {
	e, store, _ := setupTestEnvironment(t)
	store.On("List", mock.Anything).Return(nil, nil).Once()

	rec := serve(e, http.MethodGet, "/movies", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListMoviesStoreError(t *testing.T) {
	e, store, _ := setupTestEnvironment(t)
	store.On("List", mock.Anything).Return(nil, datastore.ErrNotConnected).Once()

	rec := serve(e, http.MethodGet, "/movies", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Database error"}`, rec.Body.String())
}

func TestDeleteMovie(t *testing.T) {
	notFound := errors.Newf("movie 42 not found").Category(errors.CategoryNotFound).Build()

	testCases := []struct {
		name           string
		id             string
		mockSetup      func(*MockDataStore)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "deleted",
			id:   "1700000000000",
			mockSetup: func(m *MockDataStore) {
				m.On("DeleteByID", mock.Anything, int64(1700000000000)).Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"Movie deleted successfully"}`,
		},
		{
			name: "missing id",
			id:   "42",
			mockSetup: func(m *MockDataStore) {
				m.On("DeleteByID", mock.Anything, int64(42)).Return(notFound).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"Movie not found"}`,
		},
		{
			name:           "non numeric id",
			id:             "abc",
			mockSetup:      func(*MockDataStore) {},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"Movie not found"}`,
		},
		{
			name: "store failure",
			id:   "7",
			mockSetup: func(m *MockDataStore) {
				m.On("DeleteByID", mock.Anything, int64(7)).Return(datastore.ErrNotConnected).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"Database error"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, store, _ := setupTestEnvironment(t)
			tc.mockSetup(store)

			rec := serve(e, http.MethodDelete, "/movies/"+tc.id, "")

			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.JSONEq(t, tc.expectedBody, rec.Body.String())
		})
	}
}

func TestHandlersPassRequestContext(t *testing.T) {
	e, store, _ := setupTestEnvironment(t)

	type ctxKey struct{}
	store.On("List", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Value(ctxKey{}) == "marker"
	})).Return([]datastore.Movie{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/movies", http.NoBody)
	req = req.WithContext(context.WithValue(req.Context(), ctxKey{}, "marker"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func ptr[T any](v T) *T { return &v }
