package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/binged/internal/logger"
)

// Defaults shared with other packages
const (
	DefaultPort       = "3001"
	DefaultCORSOrigin = "http://localhost:5173"
	DefaultAPIBase    = "http://localhost:" + DefaultPort
	DefaultMySQLPort  = "3305"
)

// setDefaultConfig sets default values for every configuration key.
// Keep in sync with config.yaml.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("timezone", "Local")

	// Database
	viper.SetDefault("database.type", "mysql")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", DefaultMySQLPort)
	viper.SetDefault("database.mysql.username", "root")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.database", "binged")
	viper.SetDefault("database.mysql.maxopenconns", 10)
	viper.SetDefault("database.mysql.maxidleconns", 5)
	viper.SetDefault("database.mysql.connmaxlifetime", 5*time.Minute)
	viper.SetDefault("database.sqlite.path", "binged.db")
	viper.SetDefault("database.connectretries", 3)
	viper.SetDefault("database.retrydelay", time.Second)
	viper.SetDefault("database.idgenerator", "monotonic")
	viper.SetDefault("database.slowquerythreshold", 200*time.Millisecond)
	viper.SetDefault("database.cache.enabled", true)
	viper.SetDefault("database.cache.ttl", 30*time.Second)

	// Web server
	viper.SetDefault("webserver.port", DefaultPort)
	viper.SetDefault("webserver.corsorigin", DefaultCORSOrigin)
	viper.SetDefault("webserver.bodylimit", "1M")
	viper.SetDefault("webserver.ratelimit", 0)
	viper.SetDefault("webserver.shutdowntimeout", 10*time.Second)
	viper.SetDefault("webserver.debug", false)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")

	// Client
	viper.SetDefault("client.apibase", DefaultAPIBase)
	viper.SetDefault("client.locale", "en")
	viper.SetDefault("client.timeout", 10*time.Second)

	// Logging
	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.max_size", logger.DefaultMaxSize)
	viper.SetDefault("logging.file_output.max_age", logger.DefaultMaxAge)
	viper.SetDefault("logging.file_output.max_rotated_files", logger.DefaultMaxRotatedFiles)
	viper.SetDefault("logging.file_output.compress", false)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)
}
