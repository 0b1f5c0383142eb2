package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"gorm.io/gorm"

	"github.com/tphakala/binged/internal/conf"
	"github.com/tphakala/binged/internal/logger"
	"github.com/tphakala/binged/internal/observability/metrics"
)

const (
	// DefaultSlowQueryThreshold is used when settings leave the threshold at zero.
	DefaultSlowQueryThreshold = 200 * time.Millisecond

	// pingTimeout bounds each connectivity check during Open
	pingTimeout = 5 * time.Second
)

// gormConfig returns the gorm configuration shared by both backends.
func gormConfig(settings *conf.Settings) *gorm.Config {
	threshold := settings.Database.SlowQueryThreshold
	if threshold == 0 {
		threshold = DefaultSlowQueryThreshold
	}
	return &gorm.Config{
		Logger:                 logger.NewGormAdapter(GetLogger(), threshold),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	}
}

// connectWithRetry opens the database, retrying with backoff. Every attempt
// is counted in metrics; only the last error is returned.
func connectWithRetry(backend, target string, attempts int, delay time.Duration, m *Metrics, open func() (*gorm.DB, error)) (*gorm.DB, error) {
	if attempts < 1 {
		attempts = 1
	}
	log := GetLogger().With(logger.String("backend", backend), logger.String("target", logger.RedactDSN(target)))

	var db *gorm.DB
	err := retry.Do(
		func() error {
			conn, err := open()
			if err == nil {
				err = ping(conn)
			}
			if err != nil {
				if m != nil {
					m.RecordConnectAttempt(backend, metrics.StatusError)
				}
				return err
			}
			if m != nil {
				m.RecordConnectAttempt(backend, metrics.StatusSuccess)
			}
			db = conn
			return nil
		},
		retry.Attempts(uint(attempts)),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("database connection attempt failed",
				logger.Int("attempt", int(n)+1),
				logger.Int("max_attempts", attempts),
				logger.Error(err))
		}),
	)
	if err != nil {
		return nil, dbError(err, "connect", "backend", backend, "attempts", attempts)
	}

	log.Info("connected to database")
	return db, nil
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		// Release the pool; a new one is created on the next attempt
		_ = sqlDB.Close()
		return err
	}
	return nil
}

// performAutoMigration creates the movies table when it does not exist and
// adds missing columns. Existing columns are never dropped or altered.
func performAutoMigration(db *gorm.DB, backend string, m *Metrics) (err error) {
	start := time.Now()
	defer func() { observe(m, metrics.OpMigrate, start, err) }()

	if err := db.AutoMigrate(&Movie{}); err != nil {
		return dbError(err, "migrate", "backend", backend, "table", Movie{}.TableName())
	}

	GetLogger().Debug("schema ready",
		logger.String("backend", backend),
		logger.String("table", Movie{}.TableName()),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// openAndMigrate is the shared body of the backend Open methods.
func (ds *DataStore) openAndMigrate(backend, target string, settings *conf.Settings, open func() (*gorm.DB, error), configure func(*gorm.DB) error) error {
	db, err := connectWithRetry(backend, target,
		settings.Database.ConnectRetries, settings.Database.RetryDelay, ds.Metrics, open)
	if err != nil {
		ds.setDB(nil)
		return err
	}

	if configure != nil {
		if err := configure(db); err != nil {
			closeQuietly(db)
			return dbError(err, "configure", "backend", backend)
		}
	}

	if err := performAutoMigration(db, backend, ds.Metrics); err != nil {
		closeQuietly(db)
		return err
	}

	ds.setDB(db)
	return nil
}

func closeQuietly(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// describe returns a log friendly backend description
func describe(backend, target string) string {
	return fmt.Sprintf("%s (%s)", backend, logger.RedactDSN(target))
}
