package datastore

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Status tells whether a movie has been watched or is queued
type Status string

const (
	StatusWatched   Status = "watched"
	StatusWatchlist Status = "watchlist"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusWatched || s == StatusWatchlist
}

// Movie is one row of the movies table.
// ID is assigned by the client or by an IDGenerator, never by the database.
type Movie struct {
	ID          int64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title       string   `gorm:"size:255" json:"title"`
	Genre       string   `gorm:"size:100" json:"genre"`
	Rating      *float64 `gorm:"type:decimal(3,1)" json:"rating"` // nil when the client sent none
	Review      string   `gorm:"type:text" json:"review"`
	Year        *int     `json:"year"`
	WatchedDate *Date    `gorm:"column:watchedDate;type:date" json:"watchedDate"`
	Status      Status   `gorm:"size:20" json:"status"`
	DateAdded   Date     `gorm:"column:dateAdded;type:date" json:"dateAdded"`
}

// RatingOf returns a rating pointer for building records.
func RatingOf(v float64) *float64 {
	return &v
}

// HasRating reports whether m carries a rating.
func (m Movie) HasRating() bool {
	return m.Rating != nil
}

// RatingValue returns the rating, or 0 when there is none.
func (m Movie) RatingValue() float64 {
	if m.Rating == nil {
		return 0
	}
	return *m.Rating
}

// TableName pins the table name so gorm doesn't pluralize from the type.
func (Movie) TableName() string {
	return "movies"
}

// Date is a calendar date without time or zone. The zero Date is "no date".
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate returns the given calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// Today returns the current date in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now.In(loc))
}

// ParseDateStrict parses the YYYY-MM-DD form only.
func ParseDateStrict(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.year == 0 && d.month == 0 && d.day == 0
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(DateLayout)
}

// MarshalJSON renders "YYYY-MM-DD", or null for the zero Date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD", RFC3339 timestamps and null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, ok := ParseDate(s)
	if !ok {
		return fmt.Errorf("invalid date %q", s)
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner. MySQL with parseTime and SQLite DATE columns
// return time.Time; other setups return text.
func (d *Date) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", value)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) >= len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDateStrict(s)
	if err != nil {
		return fmt.Errorf("cannot scan %q into Date: %w", s, err)
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer. The zero Date is stored as NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// MovieInput is the lenient request shape for saving a movie. Every field is
// optional; numbers may arrive as JSON numbers or numeric strings and dates as
// any string, which Normalize interprets.
type MovieInput struct {
	ID          FlexInt64   `json:"id"`
	Title       string      `json:"title"`
	Genre       string      `json:"genre"`
	Rating      FlexFloat64 `json:"rating"`
	Review      string      `json:"review"`
	Year        FlexInt64   `json:"year"`
	WatchedDate *string     `json:"watchedDate"`
	Status      string      `json:"status"`
	DateAdded   *string     `json:"dateAdded"`
}

// FlexInt64 decodes a JSON number, numeric string, empty string or null.
type FlexInt64 struct {
	Value int64
	Set   bool
}

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	raw, ok, err := flexRaw(data)
	if err != nil || !ok {
		*f = FlexInt64{}
		return err
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*f = FlexInt64{Value: n, Set: true}
		return nil
	}
	// Accept integral floats such as 2010.0 or 1.7e12
	fl, err := strconv.ParseFloat(raw, 64)
	if err != nil || fl != float64(int64(fl)) {
		return fmt.Errorf("invalid integer %s", data)
	}
	*f = FlexInt64{Value: int64(fl), Set: true}
	return nil
}

func (f FlexInt64) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(f.Value, 10)), nil
}

// FlexFloat64 decodes a JSON number, numeric string, empty string or null.
type FlexFloat64 struct {
	Value float64
	Set   bool
}

func (f *FlexFloat64) UnmarshalJSON(data []byte) error {
	raw, ok, err := flexRaw(data)
	if err != nil || !ok {
		*f = FlexFloat64{}
		return err
	}
	fl, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*f = FlexFloat64{Value: fl, Set: true}
	return nil
}

func (f FlexFloat64) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f.Value, 'f', -1, 64)), nil
}

// flexRaw unwraps a JSON number or string. ok is false for null and "".
func flexRaw(data []byte) (raw string, ok bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", false, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		return s, s != "", nil
	}
	return string(data), true, nil
}
