package conf

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) error
		value   string
		wantErr bool
	}{
		{"bool ok", validateEnvBool, "true", false},
		{"bool bad", validateEnvBool, "yes", true},
		{"port ok", validateEnvPort, "3305", false},
		{"port zero", validateEnvPort, "0", true},
		{"port text", validateEnvPort, "http", true},
		{"db type", validateEnvDatabaseType, "sqlite", false},
		{"db type bad", validateEnvDatabaseType, "postgres", true},
		{"id generator", validateEnvIDGenerator, "uuid", false},
		{"origin star", validateEnvOrigin, "*", false},
		{"origin url", validateEnvOrigin, "http://localhost:5173", false},
		{"origin bare host", validateEnvOrigin, "localhost:5173", true},
		{"url", validateEnvURL, "http://localhost:3001", false},
		{"url relative", validateEnvURL, "/movies", true},
		{"duration", validateEnvDuration, "30s", false},
		{"duration bad", validateEnvDuration, "30", true},
		{"log level", validateEnvLogLevel, "WARN", false},
		{"log level bad", validateEnvLogLevel, "loud", true},
		{"locale", validateEnvLocale, "fi-FI", false},
		{"timezone", validateEnvTimezone, "Europe/Helsinki", false},
		{"timezone bad", validateEnvTimezone, "Nowhere/Land", true},
		{"rate", validateEnvNonNegativeFloat, "2.5", false},
		{"rate negative", validateEnvNonNegativeFloat, "-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBindEnvVarsReportsInvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("METRICS_ENABLED", "maybe")
	t.Setenv("SENTRY_DSN", "not a url with secret")

	err := bindEnvVars()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "METRICS_ENABLED")
	assert.NotContains(t, err.Error(), "secret", "DSN values must not be echoed")
}

func TestEnvBindingsAreUnique(t *testing.T) {
	seen := make(map[string]string)
	for _, b := range getEnvBindings() {
		for _, env := range b.EnvVars {
			if prev, ok := seen[env]; ok {
				t.Errorf("%s bound to both %s and %s", env, prev, b.ConfigKey)
			}
			seen[env] = b.ConfigKey
		}
	}
}
