package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormAdapter routes GORM output into a module logger. Statements are logged
// at TRACE, so they only show with module_levels.datastore: trace.
type GormAdapter struct {
	log           Logger
	slowThreshold time.Duration
}

// NewGormAdapter wraps log for use as gorm.Config.Logger. A zero slowThreshold
// disables slow statement warnings.
func NewGormAdapter(log Logger, slowThreshold time.Duration) *GormAdapter {
	if log == nil {
		log = NewNopLogger()
	}
	return &GormAdapter{log: log.Module("sql"), slowThreshold: slowThreshold}
}

// LogMode is ignored; levels come from the logging config.
func (a *GormAdapter) LogMode(_ gormlogger.LogLevel) gormlogger.Interface {
	return a
}

func (a *GormAdapter) Info(ctx context.Context, msg string, data ...any) {
	a.log.WithContext(ctx).Debug(fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Warn(ctx context.Context, msg string, data ...any) {
	a.log.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
}

func (a *GormAdapter) Error(ctx context.Context, msg string, data ...any) {
	a.log.WithContext(ctx).Error(RedactSensitiveData(fmt.Sprintf(msg, data...)))
}

// Trace logs one executed statement. Failed statements and slow ones go to WARN;
// gorm.ErrRecordNotFound is an expected outcome and stays at TRACE.
func (a *GormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	log := a.log.WithContext(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		log.Warn("statement failed",
			String("sql", sql),
			Int64("rows", rows),
			Duration("elapsed", elapsed),
			Error(err))
	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		sql, rows := fc()
		log.Warn("slow statement",
			String("sql", sql),
			Int64("rows", rows),
			Duration("elapsed", elapsed),
			Duration("threshold", a.slowThreshold))
	default:
		log.Trace("statement", Duration("elapsed", elapsed), Any("sql", lazySQL(fc)))
	}
}

// lazySQL defers building the statement text until a handler formats it.
type lazySQL func() (string, int64)

func (l lazySQL) LogValue() slog.Value {
	sql, rows := l()
	return slog.GroupValue(slog.String("text", sql), slog.Int64("rows", rows))
}
