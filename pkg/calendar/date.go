package calendar

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Layout is the canonical on-disk date format.
const Layout = "2006-01-02"

var ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

var reLooseDate = regexp.MustCompile(`^\d{4}[-/.]\d{1,2}[-/.]\d{1,2}$`)

// Date is a calendar day kept in its textual form. A Date read from a legacy
// ledger may hold text that does not parse; Time reports that as an error.
type Date string

// Parse accepts YYYY-MM-DD, YYYY/MM/DD and YYYY.MM.DD and rejects days that
// do not exist (2025-02-30).
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if !reLooseDate.MatchString(s) {
		return "", ErrInvalidDate
	}
	s = strings.NewReplacer("/", "-", ".", "-").Replace(s)
	t, err := time.Parse("2006-1-2", s)
	if err != nil {
		return "", ErrInvalidDate
	}
	return FromTime(t), nil
}

// MustParse is Parse for constants in tests and fixtures.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime truncates t to its calendar day in UTC.
func FromTime(t time.Time) Date { return Date(t.UTC().Format(Layout)) }

// Midnight returns 00:00 UTC of t's day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string { return string(d) }

func (d Date) IsZero() bool { return d == "" }

// Time returns midnight UTC of d.
func (d Date) Time() (time.Time, error) {
	t, err := time.Parse(Layout, string(d))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

func (d Date) AddDays(n int) (Date, error) {
	t, err := d.Time()
	if err != nil {
		return "", err
	}
	return FromTime(t.AddDate(0, 0, n)), nil
}

// Compact renders d as YYYYMMDD.
func (d Date) Compact() string { return strings.ReplaceAll(string(d), "-", "") }

// DaysBetween counts whole calendar days from `from` to `to`; negative when to
// is earlier.
func DaysBetween(from, to time.Time) int {
	return int(Midnight(to).Sub(Midnight(from)).Hours() / 24)
}
