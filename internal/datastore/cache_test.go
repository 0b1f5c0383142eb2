package datastore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/binged/internal/errors"
	"github.com/tphakala/binged/internal/observability/metrics"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Open() error  { return m.Called().Error(0) }
func (m *mockStore) Close() error { return m.Called().Error(0) }

func (m *mockStore) Replace(ctx context.Context, movie *Movie) (*Movie, error) {
	args := m.Called(ctx, movie)
	saved, _ := args.Get(0).(*Movie)
	return saved, args.Error(1)
}

func (m *mockStore) List(ctx context.Context) ([]Movie, error) {
	args := m.Called(ctx)
	movies, _ := args.Get(0).([]Movie)
	return movies, args.Error(1)
}

func (m *mockStore) DeleteByID(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

var cachedMovies = []Movie{
	{ID: 2, Title: "Second", Rating: RatingOf(7), Status: StatusWatched, DateAdded: NewDate(2024, 1, 2)},
	{ID: 1, Title: "First", Rating: RatingOf(6), Status: StatusWatched, DateAdded: NewDate(2024, 1, 1)},
}

func TestCachedStoreServesRepeatListsFromCache(t *testing.T) {
	next := &mockStore{}
	next.On("List", mock.Anything).Return(cachedMovies, nil).Once()

	store := NewCachedStore(next, time.Minute, nil)
	ctx := context.Background()

	first, err := store.List(ctx)
	require.NoError(t, err)
	second, err := store.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, cachedMovies, first)
	assert.Equal(t, cachedMovies, second)
	next.AssertNumberOfCalls(t, "List", 1)

	// Callers get copies; mutating one must not leak into the cache
	second[0].Title = "mutated"
	third, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Second", third[0].Title)
}

func TestCachedStoreInvalidatesOnMutation(t *testing.T) {
	ctx := context.Background()
	movie := &Movie{ID: 3, Title: "Third"}

	next := &mockStore{}
	next.On("List", mock.Anything).Return(cachedMovies, nil).Times(3)
	next.On("Replace", mock.Anything, movie).Return(movie, nil).Once()
	next.On("DeleteByID", mock.Anything, int64(3)).Return(nil).Once()

	store := NewCachedStore(next, time.Minute, nil)

	_, err := store.List(ctx)
	require.NoError(t, err)

	_, err = store.Replace(ctx, movie)
	require.NoError(t, err)
	_, err = store.List(ctx)
	require.NoError(t, err)

	require.NoError(t, store.DeleteByID(ctx, 3))
	_, err = store.List(ctx)
	require.NoError(t, err)

	next.AssertExpectations(t)
}

func TestCachedStoreKeepsCacheOnFailedMutation(t *testing.T) {
	ctx := context.Background()

	next := &mockStore{}
	next.On("List", mock.Anything).Return(cachedMovies, nil).Once()
	next.On("DeleteByID", mock.Anything, int64(99)).Return(notFoundError(99)).Once()

	store := NewCachedStore(next, time.Minute, nil)

	_, err := store.List(ctx)
	require.NoError(t, err)

	err = store.DeleteByID(ctx, 99)
	assert.True(t, errors.IsNotFound(err))

	_, err = store.List(ctx)
	require.NoError(t, err)
	next.AssertNumberOfCalls(t, "List", 1)
}

func TestCachedStoreDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()

	next := &mockStore{}
	next.On("List", mock.Anything).Return(nil, ErrNotConnected).Once()
	next.On("List", mock.Anything).Return(cachedMovies, nil).Once()

	store := NewCachedStore(next, time.Minute, nil)

	_, err := store.List(ctx)
	require.ErrorIs(t, err, ErrNotConnected)

	movies, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, movies, 2)
}

func TestCachedStoreSharesConcurrentMisses(t *testing.T) {
	release := make(chan time.Time)
	next := &mockStore{}
	next.On("List", mock.Anything).
		WaitUntil(release).
		Return(cachedMovies, nil)

	m, err := metrics.NewDatastoreMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	store := NewCachedStore(next, time.Minute, m)

	const callers = 10
	var wg sync.WaitGroup
	wg.Add(callers)
	for range callers {
		go func() {
			defer wg.Done()
			movies, err := store.List(context.Background())
			assert.NoError(t, err)
			assert.Len(t, movies, 2)
		}()
	}

	// Give the callers time to pile up behind the first query
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	calls := 0
	for _, c := range next.Calls {
		if c.Method == "List" {
			calls++
		}
	}
	assert.Less(t, calls, callers, "concurrent misses should share queries")
	assert.GreaterOrEqual(t, testutil.CollectAndCount(m, "binged_datastore_cache_operations_total"), 1)
}

// blockingLister holds List open until released and reports the state of
// the context the query ran with.
type blockingLister struct {
	mockStore
	started  chan struct{}
	release  chan struct{}
	queryErr chan error
}

func (b *blockingLister) List(ctx context.Context) ([]Movie, error) {
	close(b.started)
	<-b.release
	b.queryErr <- ctx.Err()
	return cachedMovies, nil
}

func TestCachedStoreCancelledCallerDoesNotFailSharedQuery(t *testing.T) {
	next := &blockingLister{
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		queryErr: make(chan error, 1),
	}
	store := NewCachedStore(next, time.Minute, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := store.List(firstCtx)
		firstErr <- err
	}()

	select {
	case <-next.started:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "shared query never started")
	}

	type result struct {
		movies []Movie
		err    error
	}
	second := make(chan result, 1)
	go func() {
		movies, err := store.List(context.Background())
		second <- result{movies, err}
	}()

	cancelFirst()
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "cancelled caller kept waiting")
	}

	close(next.release)
	select {
	case got := <-second:
		require.NoError(t, got.err)
		assert.Len(t, got.movies, 2)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "waiting caller got no result")
	}
	assert.NoError(t, <-next.queryErr, "query context must not follow the first caller")
}

func TestCachedStoreOpenCloseDelegate(t *testing.T) {
	next := &mockStore{}
	next.On("Open").Return(nil).Once()
	next.On("Close").Return(nil).Once()

	store := NewCachedStore(next, 0, nil)
	require.NoError(t, store.Open())
	require.NoError(t, store.Close())
	next.AssertExpectations(t)
	assert.Same(t, next, store.Unwrap())
}
