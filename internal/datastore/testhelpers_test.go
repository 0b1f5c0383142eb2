package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/binged/internal/conf"
)

// fixedNow is the clock used by tests that stamp dateAdded
var fixedNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func sqliteSettings(t *testing.T) *conf.Settings {
	t.Helper()
	return &conf.Settings{
		Timezone: "UTC",
		Database: conf.DatabaseSettings{
			Type:           "sqlite",
			SQLite:         conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "binged.db")},
			ConnectRetries: 1,
			IDGenerator:    "monotonic",
		},
	}
}

// newTestStore opens a fresh SQLite store with deterministic ids and clock.
func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()

	opts = append([]Option{
		WithIDGenerator(NewSequenceGenerator(1000)),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)

	store, err := New(sqliteSettings(t), opts...)
	require.NoError(t, err)

	sqliteStore, ok := store.(*SQLiteStore)
	require.True(t, ok, "expected *SQLiteStore, got %T", store)

	require.NoError(t, sqliteStore.Open())
	t.Cleanup(func() { _ = sqliteStore.Close() })
	return sqliteStore
}

func intPtr(v int) *int { return &v }

func datePtr(d Date) *Date { return &d }

func strPtr(s string) *string { return &s }

