package datastore

import (
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tphakala/binged/internal/conf"
	"github.com/tphakala/binged/internal/logger"
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// buildMySQLDSN formats the connection string for settings.
func buildMySQLDSN(s *conf.MySQLSettings) string {
	cfg := mysql.NewConfig()
	cfg.User = s.Username
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, s.Port)
	cfg.DBName = s.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects to MySQL, retrying per settings, and ensures the schema.
func (store *MySQLStore) Open() error {
	mc := &store.Settings.Database.MySQL
	dsn := buildMySQLDSN(mc)

	err := store.openAndMigrate("mysql", dsn, store.Settings,
		func() (*gorm.DB, error) {
			return gorm.Open(gormmysql.Open(dsn), gormConfig(store.Settings))
		},
		func(db *gorm.DB) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			sqlDB.SetMaxOpenConns(mc.MaxOpenConns)
			sqlDB.SetMaxIdleConns(mc.MaxIdleConns)
			sqlDB.SetConnMaxLifetime(mc.ConnMaxLifetime)
			return nil
		})
	if err != nil {
		GetLogger().Error("Failed to open MySQL database",
			logger.String("host", mc.Host),
			logger.String("port", mc.Port),
			logger.String("database", mc.Database),
			logger.Error(err))
		return err
	}

	GetLogger().Info("Connected to MySQL", logger.String("target", describe("mysql", dsn)))
	return nil
}

// Close MySQL database connections
func (store *MySQLStore) Close() error {
	return store.closeDB("mysql")
}
