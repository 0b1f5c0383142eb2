package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVars   []string           // Environment variable names, first set wins
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Database
		{"database.type", []string{"DB_TYPE"}, validateEnvDatabaseType},
		{"database.mysql.host", []string{"DB_HOST"}, nil},
		{"database.mysql.port", []string{"DB_PORT"}, validateEnvPort},
		{"database.mysql.username", []string{"DB_USER"}, nil},
		{"database.mysql.password", []string{"DB_PASSWORD"}, nil},
		{"database.mysql.database", []string{"DB_NAME"}, nil},
		{"database.mysql.maxopenconns", []string{"DB_MAX_OPEN_CONNS"}, validateEnvPositiveInt},
		{"database.sqlite.path", []string{"DB_SQLITE_PATH"}, nil},
		{"database.connectretries", []string{"DB_CONNECT_RETRIES"}, validateEnvPositiveInt},
		{"database.idgenerator", []string{"DB_ID_GENERATOR"}, validateEnvIDGenerator},
		{"database.cache.enabled", []string{"DB_CACHE_ENABLED"}, validateEnvBool},
		{"database.cache.ttl", []string{"DB_CACHE_TTL"}, validateEnvDuration},

		// Web server
		{"webserver.port", []string{"PORT"}, validateEnvPort},
		{"webserver.corsorigin", []string{"CORS_ORIGIN"}, validateEnvOrigin},
		{"webserver.bodylimit", []string{"BODY_LIMIT"}, nil},
		{"webserver.ratelimit", []string{"RATE_LIMIT"}, validateEnvNonNegativeFloat},
		{"webserver.debug", []string{"WEBSERVER_DEBUG"}, validateEnvBool},

		// Observability
		{"metrics.enabled", []string{"METRICS_ENABLED"}, validateEnvBool},
		{"sentry.enabled", []string{"SENTRY_ENABLED"}, validateEnvBool},
		{"sentry.dsn", []string{"SENTRY_DSN"}, validateEnvURL},

		// Client; VITE_API_BASE is honoured so existing frontend .env files keep working
		{"client.apibase", []string{"VITE_API_BASE", "API_BASE"}, validateEnvURL},
		{"client.locale", []string{"BINGED_LOCALE"}, validateEnvLocale},
		{"client.timeout", []string{"API_TIMEOUT"}, validateEnvDuration},

		{"logging.default_level", []string{"LOG_LEVEL"}, validateEnvLogLevel},
		{"timezone", []string{"TZ_NAME"}, validateEnvTimezone},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		args := append([]string{binding.ConfigKey}, binding.EnvVars...)
		if err := viper.BindEnv(args...); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", strings.Join(binding.EnvVars, "/"), err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		for _, envVar := range binding.EnvVars {
			envValue := os.Getenv(envVar)
			if envValue == "" {
				continue
			}
			if err := binding.Validate(envValue); err != nil {
				shown := envValue
				if strings.Contains(envVar, "DSN") {
					shown = "[REDACTED]"
				}
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", envVar, shown, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f, TRUE/FALSE, T/F")
	}
	return nil
}

func validateEnvPort(value string) error {
	if !isTCPPort(value) {
		return fmt.Errorf("must be a number between 1 and 65535")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		return fmt.Errorf("must be a number >= 0")
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("must be a duration such as 30s or 5m")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch value {
	case "mysql", "sqlite":
		return nil
	}
	return fmt.Errorf("must be mysql or sqlite")
}

func validateEnvIDGenerator(value string) error {
	switch value {
	case "monotonic", "uuid":
		return nil
	}
	return fmt.Errorf("must be monotonic or uuid")
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}

func validateEnvOrigin(value string) error {
	if !isOrigin(value) {
		return fmt.Errorf("must be * or an absolute http(s) URL")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}

func validateEnvLocale(value string) error {
	if !isLocale(value) {
		return fmt.Errorf("must be a language tag such as en or fi-FI")
	}
	return nil
}

func validateEnvTimezone(value string) error {
	if !isTimezone(value) {
		return fmt.Errorf("unknown timezone")
	}
	return nil
}
