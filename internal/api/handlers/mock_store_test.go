package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tphakala/binged/internal/datastore"
)

// MockDataStore implements datastore.Interface for handler tests
type MockDataStore struct {
	mock.Mock
}

func (m *MockDataStore) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Replace(ctx context.Context, movie *datastore.Movie) (*datastore.Movie, error) {
	args := m.Called(ctx, movie)
	saved, _ := args.Get(0).(*datastore.Movie)
	return saved, args.Error(1)
}

func (m *MockDataStore) List(ctx context.Context) ([]datastore.Movie, error) {
	args := m.Called(ctx)
	movies, _ := args.Get(0).([]datastore.Movie)
	return movies, args.Error(1)
}

func (m *MockDataStore) DeleteByID(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
