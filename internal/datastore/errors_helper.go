package datastore

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"github.com/tphakala/binged/internal/errors"
)

// ErrNotConnected is returned by every data operation while the store has no
// open connection, for example after startup could not reach the database.
var ErrNotConnected = errors.NewStd("database not connected")

// dbError creates a properly categorized database error with context
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Context("error_type", categorizeError(err))

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notConnectedError wraps ErrNotConnected for the given operation
func notConnectedError(operation string) error {
	return errors.New(ErrNotConnected).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Priority(errors.PriorityHigh).
		Context("operation", operation).
		Build()
}

// notFoundError reports a delete of an id with no row
func notFoundError(id int64) error {
	return errors.Newf("movie %d not found", id).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Priority(errors.PriorityLow).
		Context("operation", "delete_by_id").
		Context("id", id).
		Build()
}

// categorizeError maps driver errors to a short label for metrics and logs
func categorizeError(err error) string {
	if err == nil {
		return ""
	}

	if stderrors.Is(err, ErrNotConnected) {
		return "not_connected"
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if stderrors.Is(err, context.Canceled) {
		return "canceled"
	}
	if stderrors.Is(err, mysql.ErrInvalidConn) {
		return "connection"
	}

	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062:
			return "duplicate"
		case 1045, 1044:
			return "access_denied"
		case 1049:
			return "unknown_database"
		case 1146:
			return "missing_table"
		case 1406, 1264:
			return "data_too_long"
		}
		return "mysql"
	}

	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return "locked"
		case sqlite3.ErrConstraint:
			return "constraint"
		case sqlite3.ErrCantOpen:
			return "connection"
		}
		return "sqlite"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "dial"), strings.Contains(msg, "bad connection"):
		return "connection"
	case strings.Contains(msg, "no such table"):
		return "missing_table"
	}
	return "other"
}
