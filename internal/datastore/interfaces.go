// Package datastore persists movie records with gorm on MySQL or SQLite.
package datastore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/binged/internal/conf"
	"github.com/tphakala/binged/internal/logger"
	"github.com/tphakala/binged/internal/observability/metrics"
)

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error
	// Replace writes the whole row keyed by ID, inserting or overwriting it.
	// A zero ID is assigned from the store's IDGenerator.
	Replace(ctx context.Context, m *Movie) (*Movie, error)
	// List returns every record ordered by id descending.
	List(ctx context.Context) ([]Movie, error)
	// DeleteByID removes one record. A missing id yields a not-found error.
	DeleteByID(ctx context.Context, id int64) error
}

// DataStore implements the record operations on a gorm connection. The
// backend specific types embed it and provide Open and Close.
type DataStore struct {
	mu      sync.RWMutex
	DB      *gorm.DB
	IDs     IDGenerator
	Metrics *Metrics
	Clock   func() time.Time
	Loc     *time.Location
}

// Option configures a store built by New
type Option func(*DataStore)

// WithMetrics records operation metrics into m
func WithMetrics(m *Metrics) Option {
	return func(ds *DataStore) { ds.Metrics = m }
}

// WithIDGenerator overrides the generator chosen from settings
func WithIDGenerator(g IDGenerator) Option {
	return func(ds *DataStore) { ds.IDs = g }
}

// WithClock sets the clock used for default dates
func WithClock(now func() time.Time) Option {
	return func(ds *DataStore) { ds.Clock = now }
}

// New creates the store selected by settings. It does not connect; call Open.
// When the list cache is enabled the store is wrapped in a CachedStore.
func New(settings *conf.Settings, opts ...Option) (Interface, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	ids, err := NewIDGenerator(settings.Database.IDGenerator)
	if err != nil {
		return nil, err
	}

	base := DataStore{IDs: ids, Clock: time.Now, Loc: settings.Location()}
	for _, opt := range opts {
		opt(&base)
	}

	var store Interface
	switch settings.Database.Type {
	case "sqlite":
		store = &SQLiteStore{DataStore: base.clone(), Settings: settings}
	case "mysql", "":
		store = &MySQLStore{DataStore: base.clone(), Settings: settings}
	default:
		return nil, fmt.Errorf("unsupported database type %q", settings.Database.Type)
	}

	if settings.Database.Cache.Enabled {
		return NewCachedStore(store, settings.Database.Cache.TTL, base.Metrics), nil
	}
	return store, nil
}

// clone copies the configuration fields without the mutex
func (ds *DataStore) clone() DataStore {
	return DataStore{IDs: ds.IDs, Metrics: ds.Metrics, Clock: ds.Clock, Loc: ds.Loc}
}

// setDB installs or clears the connection
func (ds *DataStore) setDB(db *gorm.DB) {
	ds.mu.Lock()
	ds.DB = db
	ds.mu.Unlock()

	if ds.Metrics != nil {
		ds.Metrics.SetConnected(db != nil)
	}
}

// conn returns the live connection or ErrNotConnected
func (ds *DataStore) conn(operation string) (*gorm.DB, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.DB == nil {
		return nil, notConnectedError(operation)
	}
	return ds.DB, nil
}

func (ds *DataStore) today() Date {
	now := time.Now
	if ds.Clock != nil {
		now = ds.Clock
	}
	return Today(now(), ds.Loc)
}

// Replace stores the whole record. Missing id, status and dateAdded are filled
// in; every other column is written exactly as given.
func (ds *DataStore) Replace(ctx context.Context, m *Movie) (result *Movie, err error) {
	start := time.Now()
	defer func() { observe(ds.Metrics, metrics.OpReplace, start, err) }()

	if m == nil {
		return nil, dbError(fmt.Errorf("movie cannot be nil"), "replace")
	}

	db, err := ds.conn("replace")
	if err != nil {
		return nil, err
	}

	row := *m
	if row.ID == 0 {
		if ds.IDs == nil {
			return nil, dbError(fmt.Errorf("no id generator configured"), "replace")
		}
		row.ID = ds.IDs.NextID()
	}
	if row.Status == "" {
		row.Status = StatusWatched
	}
	if row.DateAdded.IsZero() {
		row.DateAdded = ds.today()
	}

	if err := db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return nil, dbError(err, "replace", "id", row.ID)
	}

	GetLogger().Debug("movie replaced", logger.Int64("id", row.ID), logger.String("title", row.Title))
	return &row, nil
}

// List returns all records, newest id first. The result is never nil.
func (ds *DataStore) List(ctx context.Context) (movies []Movie, err error) {
	start := time.Now()
	defer func() { observe(ds.Metrics, metrics.OpList, start, err) }()

	db, err := ds.conn("list")
	if err != nil {
		return nil, err
	}

	movies = make([]Movie, 0)
	if err := db.WithContext(ctx).Order("id DESC").Find(&movies).Error; err != nil {
		return nil, dbError(err, "list")
	}

	if ds.Metrics != nil {
		ds.Metrics.RecordQueryResultSize(metrics.OpList, len(movies))
		ds.recordPoolStats(db)
	}
	return movies, nil
}

// DeleteByID removes the record with id.
func (ds *DataStore) DeleteByID(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { observe(ds.Metrics, metrics.OpDeleteByID, start, err) }()

	db, err := ds.conn("delete_by_id")
	if err != nil {
		return err
	}

	result := db.WithContext(ctx).Delete(&Movie{}, id)
	if result.Error != nil {
		return dbError(result.Error, "delete_by_id", "id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError(id)
	}

	GetLogger().Debug("movie deleted", logger.Int64("id", id))
	return nil
}

// recordPoolStats copies database/sql pool stats into the gauges
func (ds *DataStore) recordPoolStats(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	stats := sqlDB.Stats()
	ds.Metrics.UpdateConnectionMetrics(stats.InUse, stats.Idle, stats.MaxOpenConnections)
}

// closeDB closes the underlying pool and clears the connection
func (ds *DataStore) closeDB(backend string) error {
	ds.mu.RLock()
	db := ds.DB
	ds.mu.RUnlock()

	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "close", "backend", backend)
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "backend", backend)
	}

	ds.setDB(nil)
	GetLogger().Info("database connection closed", logger.String("backend", backend))
	return nil
}
