// Package testutil provides shared test helpers for binged packages.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/binged/internal/conf"
)

// Common test timeout constants.
const (
	// DefaultTestTimeout is the standard timeout for most async test operations.
	DefaultTestTimeout = 5 * time.Second

	// ShortTestTimeout is for operations expected to complete quickly.
	ShortTestTimeout = 1 * time.Second
)

// WaitForChannel waits for a signal on the channel or fails after timeout.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}

// WaitForResult receives one value from ch or fails after timeout.
func WaitForResult[T any](t *testing.T, ch <-chan T, timeout time.Duration, msg string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		require.Fail(t, msg)
		var zero T
		return zero
	}
}

// SQLiteSettings returns settings for a store and server backed by a fresh
// SQLite file under t.TempDir(). The server listens on a random port and the
// list cache is off.
func SQLiteSettings(t *testing.T) *conf.Settings {
	t.Helper()
	return &conf.Settings{
		Timezone: "UTC",
		Database: conf.DatabaseSettings{
			Type:           "sqlite",
			SQLite:         conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "binged.db")},
			ConnectRetries: 1,
			IDGenerator:    "monotonic",
		},
		WebServer: conf.WebServerSettings{
			Port:            "0",
			CORSOrigin:      conf.DefaultCORSOrigin,
			BodyLimit:       "1M",
			ShutdownTimeout: time.Second,
		},
		Client: conf.ClientSettings{
			APIBase: conf.DefaultAPIBase,
			Locale:  "en",
			Timeout: DefaultTestTimeout,
		},
	}
}
