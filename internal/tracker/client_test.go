package tracker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/errors"
	"github.com/tphakala/binged/internal/httpclient"
)

const testBase = "http://api.test"

func newMockedAPI(t *testing.T) *HTTPAPI {
	t.Helper()

	client := httpclient.New(nil)
	httpmock.ActivateNonDefault(client.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	api, err := NewHTTPAPI(testBase+"/", client)
	require.NoError(t, err)
	return api
}

func TestNewHTTPAPIRejectsBadBase(t *testing.T) {
	for _, base := range []string{"", "localhost:3001", "://nope"} {
		_, err := NewHTTPAPI(base, nil)
		require.Error(t, err, base)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration), base)
	}
}

func TestHTTPAPIList(t *testing.T) {
	api := newMockedAPI(t)

	httpmock.RegisterResponder(http.MethodGet, testBase+"/movies",
		httpmock.NewStringResponder(http.StatusOK,
			`[{"id":2,"title":"Dune","genre":"Sci-Fi","rating":8.5,"review":"","year":2021,"watchedDate":null,"status":"watched","dateAdded":"2024-03-15"}]`))

	movies, err := api.List(context.Background())
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, int64(2), movies[0].ID)
	assert.Equal(t, "Dune", movies[0].Title)
	require.NotNil(t, movies[0].Year)
	assert.Equal(t, 2021, *movies[0].Year)
	assert.Nil(t, movies[0].WatchedDate)
	assert.Equal(t, "2024-03-15", movies[0].DateAdded.String())
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestHTTPAPIListNullIsEmpty(t *testing.T) {
	api := newMockedAPI(t)
	httpmock.RegisterResponder(http.MethodGet, testBase+"/movies",
		httpmock.NewStringResponder(http.StatusOK, `null`))

	movies, err := api.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, movies)
	assert.Empty(t, movies)
}

func TestHTTPAPIListServerError(t *testing.T) {
	api := newMockedAPI(t)
	httpmock.RegisterResponder(http.MethodGet, testBase+"/movies",
		httpmock.NewJsonResponderOrPanic(http.StatusInternalServerError, map[string]string{"error": "Database error"}))

	_, err := api.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, "server returned 500: Database error", err.Error())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
}

func TestHTTPAPIListBadJSON(t *testing.T) {
	api := newMockedAPI(t)
	httpmock.RegisterResponder(http.MethodGet, testBase+"/movies",
		httpmock.NewStringResponder(http.StatusOK, `{"not":"a list"}`))

	_, err := api.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid movie list")
}

func TestHTTPAPIListNetworkError(t *testing.T) {
	api := newMockedAPI(t)
	httpmock.RegisterResponder(http.MethodGet, testBase+"/movies",
		httpmock.NewErrorResponder(errors.NewStd("connection refused")))

	_, err := api.List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))

	var ee *errors.EnhancedError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "http-endpoint", ee.Context["url_category"])
	assert.Equal(t, "list", ee.Context["operation"])
	assert.Contains(t, ee.Context, "duration_ms")
	assert.InDelta(t, httpclient.DefaultTimeout.Seconds(), ee.Context["timeout_seconds"], 0.001)
	assert.NotContains(t, ee.Error(), "url_category")
}

func TestHTTPAPISaveSendsFullRecord(t *testing.T) {
	api := newMockedAPI(t)

	var got map[string]any
	httpmock.RegisterResponder(http.MethodPost, testBase+"/movies",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(body, &got); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusOK, "Movie saved"), nil
		})

	in := Draft{Title: "Dune", Rating: "8.5", Year: "2021"}.toInput(42, "2024-03-15")
	require.NoError(t, api.Save(context.Background(), in))

	assert.EqualValues(t, 42, got["id"])
	assert.Equal(t, "Dune", got["title"])
	assert.EqualValues(t, 8.5, got["rating"])
	assert.EqualValues(t, 2021, got["year"])
	assert.Equal(t, "watched", got["status"])
	assert.Equal(t, "2024-03-15", got["dateAdded"])
}

func TestHTTPAPISaveFailureCarriesDetail(t *testing.T) {
	api := newMockedAPI(t)
	httpmock.RegisterResponder(http.MethodPost, testBase+"/movies",
		httpmock.NewJsonResponderOrPanic(http.StatusInternalServerError,
			map[string]string{"error": "Failed to save movie", "message": "disk full"}))

	err := api.Save(context.Background(), &datastore.MovieInput{Title: "x"})
	require.Error(t, err)
	assert.Equal(t, "server returned 500: Failed to save movie: disk full", err.Error())
}

func TestHTTPAPIDelete(t *testing.T) {
	api := newMockedAPI(t)
	httpmock.RegisterResponder(http.MethodDelete, testBase+"/movies/42",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]string{"message": "Movie deleted"}))
	httpmock.RegisterResponder(http.MethodDelete, testBase+"/movies/7",
		httpmock.NewJsonResponderOrPanic(http.StatusNotFound, map[string]string{"error": "Movie not found"}))

	require.NoError(t, api.Delete(context.Background(), 42))

	err := api.Delete(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "Movie not found")

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, info["DELETE "+testBase+"/movies/42"])
	assert.Equal(t, 1, info["DELETE "+testBase+"/movies/7"])
}

func TestHTTPAPIPlainTextError(t *testing.T) {
	api := newMockedAPI(t)
	httpmock.RegisterResponder(http.MethodDelete, testBase+"/movies/1",
		httpmock.NewStringResponder(http.StatusBadGateway, "upstream down\n"))

	err := api.Delete(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, "server returned 502: upstream down", err.Error())
}
