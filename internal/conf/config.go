// Package conf loads binged settings from config.yaml, .env files and
// environment variables.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/binged/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// MySQLSettings contains MySQL connection settings
type MySQLSettings struct {
	Host            string        `validate:"required"`
	Port            string        `validate:"tcpport"`
	Username        string        `validate:"required"`
	Password        string        // may be empty for local development
	Database        string        `validate:"required"`
	MaxOpenConns    int           `validate:"gte=1"`
	MaxIdleConns    int           `validate:"gte=0"`
	ConnMaxLifetime time.Duration `validate:"gte=0"`
}

// SQLiteSettings contains settings for the embedded SQLite backend
type SQLiteSettings struct {
	Path string `validate:"required"`
}

// CacheSettings controls the in-memory List cache in front of the store
type CacheSettings struct {
	Enabled bool
	TTL     time.Duration `validate:"gte=0"`
}

// DatabaseSettings selects and configures the record store backend
type DatabaseSettings struct {
	Type               string `validate:"oneof=mysql sqlite"`
	MySQL              MySQLSettings
	SQLite             SQLiteSettings
	ConnectRetries     int           `validate:"gte=1,lte=100"`
	RetryDelay         time.Duration `validate:"gte=0"`
	IDGenerator        string        `validate:"oneof=monotonic uuid"`
	SlowQueryThreshold time.Duration `validate:"gte=0"`
	Cache              CacheSettings
}

// WebServerSettings contains settings for the HTTP API
type WebServerSettings struct {
	Port            string        `validate:"tcpport"`
	CORSOrigin      string        `validate:"origin"`
	BodyLimit       string        `validate:"required"` // echo size notation, e.g. 1M
	RateLimit       float64       `validate:"gte=0"`    // requests per second per client, 0 disables
	ShutdownTimeout time.Duration `validate:"gte=0"`
	Debug           bool
}

// MetricsSettings controls the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool
	Path    string `validate:"startswith=/"`
}

// SentrySettings contains error telemetry settings
type SentrySettings struct {
	Enabled     bool
	DSN         string `validate:"required_if=Enabled true"`
	Environment string
}

// ClientSettings configure the movies command line client
type ClientSettings struct {
	APIBase string        `validate:"url"`
	Locale  string        `validate:"locale"`
	Timeout time.Duration `validate:"gt=0"`
}

// Settings contains all configuration options for binged.
type Settings struct {
	Debug    bool
	Timezone string `validate:"tzname"`

	Database  DatabaseSettings
	WebServer WebServerSettings
	Metrics   MetricsSettings
	Sentry    SentrySettings
	Client    ClientSettings
	Logging   logger.LoggingConfig
}

var (
	settingsMutex  sync.Mutex
	configFileFlag string
)

// SetConfigFile makes Load read exactly this file instead of searching the default paths.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFileFlag = path
}

// Load reads .env, the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	loadDotEnv()

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// loadDotEnv loads .env from the working directory. Variables already set in
// the environment win over the file.
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		GetLogger().Warn("failed to read .env file", logger.Error(err))
	}
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		// Bad env values are reported but don't block startup; validation catches the fatal ones
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if configFileFlag != "" {
		viper.SetConfigFile(configFileFlag)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFileFlag, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range GetDefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Defaults and environment are enough to run
			GetLogger().Debug("no config file found, using defaults")
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Debug("config file loaded", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// DefaultConfig returns the embedded, commented default config.yaml.
func DefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// WriteDefaultConfig writes the embedded default config to path. An existing
// file is only replaced when overwrite is set.
func WriteDefaultConfig(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	data, err := DefaultConfig()
	if err != nil {
		return err
	}

	return writeFileAtomic(path, data)
}

// writeFileAtomic writes through a temp file in the target directory and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}
	if err := os.Chmod(tempFileName, 0o600); err != nil {
		return fmt.Errorf("error setting config file permissions: %w", err)
	}

	if err := os.Rename(tempFileName, path); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// RedactedYAML renders settings as YAML with secrets masked, for display.
func RedactedYAML(settings *Settings) ([]byte, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	masked := *settings
	if masked.Database.MySQL.Password != "" {
		masked.Database.MySQL.Password = "[REDACTED]"
	}
	masked.Sentry.DSN = logger.RedactSensitiveData(masked.Sentry.DSN)

	return yaml.Marshal(&masked)
}

// Location resolves the configured timezone, falling back to local time.
func (s *Settings) Location() *time.Location {
	if s == nil || s.Timezone == "" || s.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
