package calendar

import (
	"fmt"
	"time"

	"lumator/internal/errs"
)

// Layout is the calendar format used by the warehouse, the CLI and the report.
const Layout = "2006-01-02"

// ParseError reports a date string that does not match Layout.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %q is not a %s date", errs.ErrParse, e.Value, Layout)
}

func (e *ParseError) Unwrap() []error {
	return []error{errs.ErrParse, e.Err}
}

// Day normalizes t to midnight UTC of its calendar date (as seen in t's own location).
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in the local time zone.
func Today() time.Time {
	return Day(time.Now())
}

// ParseDate parses a YYYY-MM-DD string. A time suffix after the date
// ("2024-03-11 00:00:00", "2024-03-11T00:00:00Z") is ignored.
func ParseDate(s string) (time.Time, error) {
	v := s
	if len(v) > len(Layout) && (v[len(Layout)] == ' ' || v[len(Layout)] == 'T') {
		v = v[:len(Layout)]
	}
	t, err := time.Parse(Layout, v)
	if err != nil {
		return time.Time{}, &ParseError{Value: s, Err: err}
	}
	return t, nil
}

// Format renders t as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Weekday numbers t's weekday with Monday=0 through Sunday=6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// SampleDate picks the historical date whose shipping mix stands in for target:
// the same weekday as target inside the Monday-start week before today's week.
// The result is always 1 to 13 days before today.
func SampleDate(target, today time.Time) time.Time {
	offset := Weekday(target) - Weekday(today) - 7
	return Day(today).AddDate(0, 0, offset)
}

// DaysAfter returns the n calendar dates following start (start+1 .. start+n).
func DaysAfter(start time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	base := Day(start)
	days := make([]time.Time, n)
	for i := range days {
		days[i] = base.AddDate(0, 0, i+1)
	}
	return days
}

// ColumnLabel names the report column for a date, e.g. date_2024_03_11.
func ColumnLabel(t time.Time) string {
	return t.Format("date_2006_01_02")
}
