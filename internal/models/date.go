package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Date is a calendar date with no time-of-day, stored in a DATE column and
// serialised as "YYYY-MM-DD". Bookings are made per date, so comparisons
// like "not in the past" happen at day granularity.
type Date struct {
	civil.Date
}

// ParseDate accepts "2006-01-02" or a full RFC 3339 timestamp. For a timestamp only the
// date part as written is kept; the time of day is discarded.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if d, err := civil.ParseDate(s); err == nil {
		return Date{d}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Date{civil.DateOf(t)}, nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date{civil.DateOf(t)}
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) Date {
	return DateOf(now.In(loc))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Date.Before(other.Date)
}

// UnmarshalText overrides civil.Date's strict parser so JSON bodies may carry timestamps.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("invalid date %v", d.Date)
	}
	return d.String(), nil
}

// Scan implements sql.Scanner. Postgres hands back a time.Time at midnight UTC,
// SQLite either a time.Time or the stored text.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Date = civil.DateOf(v.UTC())
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		d.Date = civil.Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into models.Date", src)
	}
}

func (d *Date) scanString(s string) error {
	// Drivers may append a time part ("2026-10-19 00:00:00+00:00").
	if len(s) >= 10 {
		s = s[:10]
	}
	parsed, err := civil.ParseDate(s)
	if err != nil {
		return err
	}
	d.Date = parsed
	return nil
}
