package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/binged/internal/conf"
	"github.com/tphakala/binged/internal/datastore"
	"github.com/tphakala/binged/internal/logger"
	"github.com/tphakala/binged/internal/observability"
	"github.com/tphakala/binged/internal/testutil"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Open() error  { return m.Called().Error(0) }
func (m *mockStore) Close() error { return m.Called().Error(0) }

func (m *mockStore) Replace(ctx context.Context, movie *datastore.Movie) (*datastore.Movie, error) {
	args := m.Called(ctx, movie)
	saved, _ := args.Get(0).(*datastore.Movie)
	return saved, args.Error(1)
}

func (m *mockStore) List(ctx context.Context) ([]datastore.Movie, error) {
	args := m.Called(ctx)
	movies, _ := args.Get(0).([]datastore.Movie)
	return movies, args.Error(1)
}

func (m *mockStore) DeleteByID(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// panicStore blows up on List to exercise the recover middleware
type panicStore struct{ mockStore }

func (p *panicStore) List(context.Context) ([]datastore.Movie, error) {
	panic("boom")
}

var serverNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func testSettings() *conf.Settings {
	return &conf.Settings{
		WebServer: conf.WebServerSettings{
			Port:       "0",
			CORSOrigin: "http://localhost:5173",
			BodyLimit:  "1K",
		},
		Metrics: conf.MetricsSettings{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, store datastore.Interface, opts ...ServerOption) (*Server, *observability.Metrics) {
	t.Helper()

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	opts = append([]ServerOption{
		WithDataStore(store),
		WithMetrics(m),
		WithAccessLogger(logger.NewNopLogger()),
		WithClock(func() time.Time { return serverNow }),
	}, opts...)

	s, err := New(testSettings(), opts...)
	require.NoError(t, err)
	return s, m
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	store := &mockStore{}
	s, _ := newTestServer(t, store)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, HealthStatus, body.Status)
	assert.Equal(t, "2024-03-15T10:30:00.000Z", body.Timestamp)
	store.AssertNotCalled(t, "List", mock.Anything)
}

func TestUnknownRouteReturnsEndpointNotFound(t *testing.T) {
	s, _ := newTestServer(t, &mockStore{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodPut, "/movies"},     // wrong method on a known path
		{http.MethodPatch, "/movies/1"}, // wrong method on a known path
		{http.MethodGet, "/movies/1/x"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := do(s, httptest.NewRequest(tc.method, tc.path, http.NoBody))
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, `{"error":"Endpoint not found"}`, rec.Body.String())
		})
	}
}

func TestPanicReturnsGenericError(t *testing.T) {
	s, _ := newTestServer(t, &panicStore{})

	rec := do(s, httptest.NewRequest(http.MethodGet, "/movies", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Something went wrong!"}`, rec.Body.String())
}

func TestMovieRoutesThroughStack(t *testing.T) {
	store := &mockStore{}
	store.On("List", mock.Anything).Return([]datastore.Movie{}, nil).Once()
	store.On("DeleteByID", mock.Anything, int64(9)).Return(nil).Once()
	s, _ := newTestServer(t, store)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/movies", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))

	rec = do(s, httptest.NewRequest(http.MethodDelete, "/movies/9", http.NoBody))
	assert.Equal(t, http.StatusOK, rec.Code)

	store.AssertExpectations(t)
}

func TestRequestIDIsPropagated(t *testing.T) {
	store := &mockStore{}
	store.On("List", mock.Anything).Return([]datastore.Movie{}, nil)
	s, _ := newTestServer(t, store)

	req := httptest.NewRequest(http.MethodGet, "/movies", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "fixed-id")
	rec := do(s, req)

	assert.Equal(t, "fixed-id", rec.Header().Get(echo.HeaderXRequestID))
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, &mockStore{})

	req := httptest.NewRequest(http.MethodOptions, "/movies", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodDelete)
	rec := do(s, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodDelete)

	// Foreign origins get no CORS grant
	req = httptest.NewRequest(http.MethodOptions, "/movies", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "http://evil.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec = do(s, req)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestBodyLimit(t *testing.T) {
	s, _ := newTestServer(t, &mockStore{})

	big := `{"title":"` + strings.Repeat("x", 4096) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/movies", strings.NewReader(big))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := do(s, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRateLimit(t *testing.T) {
	store := &mockStore{}
	store.On("List", mock.Anything).Return([]datastore.Movie{}, nil)

	cfg := ConfigFromSettings(testSettings())
	cfg.RateLimit = 1
	s, _ := newTestServer(t, store, WithConfig(cfg))

	first := do(s, httptest.NewRequest(http.MethodGet, "/movies", http.NoBody))
	second := do(s, httptest.NewRequest(http.MethodGet, "/movies", http.NoBody))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestMetricsEndpointAndHTTPMetrics(t *testing.T) {
	store := &mockStore{}
	store.On("List", mock.Anything).Return([]datastore.Movie{}, nil)
	s, m := newTestServer(t, store)

	do(s, httptest.NewRequest(http.MethodGet, "/movies", http.NoBody))
	do(s, httptest.NewRequest(http.MethodGet, "/missing", http.NoBody))

	count, err := promtestutil.GatherAndCount(m.Registry(), "binged_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series for /movies 200 and one for the 404")

	rec := do(s, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `binged_http_requests_total{method="GET",path="/movies",status_code="200"}`)
	assert.Contains(t, rec.Body.String(), `status_code="404"`)
}

func TestMetricsDisabled(t *testing.T) {
	settings := testSettings()
	settings.Metrics.Enabled = false

	s, err := New(settings, WithDataStore(&mockStore{}), WithAccessLogger(logger.NewNopLogger()))
	require.NoError(t, err)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewRequiresDataStore(t *testing.T) {
	_, err := New(testSettings())
	require.Error(t, err)
}

func TestStartAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := &mockStore{}
	store.On("List", mock.Anything).Return([]datastore.Movie{}, nil)
	s, _ := newTestServer(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.StartWithGracefulShutdown(ctx) }()

	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = s.Echo().ListenerAddr()
		return addr != nil
	}, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + addr.String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	http.DefaultClient.CloseIdleConnections()

	cancel()
	require.NoError(t, testutil.WaitForResult(t, done, testutil.DefaultTestTimeout, "server did not shut down"))
}

func TestAccessLogCarriesHandlerError(t *testing.T) {
	var buf bytes.Buffer
	s, m := newTestServer(t, &mockStore{},
		WithAccessLogger(logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC)))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/missing", http.NoBody))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Endpoint not found"}`, rec.Body.String())

	out := buf.String()
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"error":"code=404, message=Not Found"`)

	count, err := promtestutil.GatherAndCount(m.Registry(), "binged_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// newSQLiteServer serves the real store on a temporary SQLite database.
func newSQLiteServer(t *testing.T, settings *conf.Settings, now time.Time) *Server {
	t.Helper()

	clock := func() time.Time { return now }
	store, err := datastore.New(settings, datastore.WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	s, err := New(settings,
		WithDataStore(store),
		WithAccessLogger(logger.NewNopLogger()),
		WithClock(clock))
	require.NoError(t, err)
	return s
}

func saveAndList(t *testing.T, s *Server, body string) []map[string]any {
	t.Helper()

	rec := do(s, httptest.NewRequest(http.MethodPost, "/movies", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(s, httptest.NewRequest(http.MethodGet, "/movies", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	return rows
}

func TestDefaultDateAddedUsesConfiguredTimezone(t *testing.T) {
	settings := testutil.SQLiteSettings(t)
	settings.Timezone = "Pacific/Kiritimati" // UTC+14

	s := newSQLiteServer(t, settings, time.Date(2026, time.October, 18, 20, 0, 0, 0, time.UTC))

	rows := saveAndList(t, s, `{"id":1,"title":"Dune","rating":9}`)

	require.Len(t, rows, 1)
	assert.Equal(t, "2026-10-19", rows[0]["dateAdded"])
}

func TestPartialBodyStoresNullRating(t *testing.T) {
	s := newSQLiteServer(t, testutil.SQLiteSettings(t), serverNow)

	rows := saveAndList(t, s, `{"id":2,"genre":"Drama"}`)

	require.Len(t, rows, 1)
	assert.Contains(t, rows[0], "rating")
	assert.Nil(t, rows[0]["rating"], "missing rating is stored as null")
	assert.Equal(t, "Drama", rows[0]["genre"])
	assert.Equal(t, "watched", rows[0]["status"])
}
