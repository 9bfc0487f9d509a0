package budget

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day abstraction (budgeting never needs sub-day precision)
// =============================================================================

const dateLayout = "2006-01-02"

// Date is a calendar day in UTC.
type Date struct {
	Time time.Time
}

// NewDate builds a date. Out-of-range days normalize the way time.Date does
// (Feb 31 becomes Mar 3).
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a wall-clock instant to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Message: fmt.Sprintf("invalid date %q", s)}
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }
func (d Date) String() string        { return d.Time.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(d Date) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time).Hours() / 24)
}

// MonthsBetween returns the calendar month difference ignoring days.
// Negative when to is before from.
func MonthsBetween(from, to Date) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// =============================================================================
// HOLIDAY SET
// =============================================================================

// HolidaySet is the set of public holidays known for one jurisdiction.
// The zero value is an empty set, meaning "no known holidays".
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from dates.
func NewHolidaySet(dates ...Date) HolidaySet {
	s := make(HolidaySet, len(dates))
	for _, d := range dates {
		s[d.String()] = struct{}{}
	}
	return s
}

// Contains reports whether d is a holiday.
func (s HolidaySet) Contains(d Date) bool {
	_, ok := s[d.String()]
	return ok
}

// Dates returns the holidays in ascending order.
func (s HolidaySet) Dates() []Date {
	out := make([]Date, 0, len(s))
	for k := range s {
		if d, err := ParseDate(k); err == nil {
			out = append(out, d)
		}
	}
	sortDates(out)
	return out
}

// IsWorkday reports whether d is neither a weekend nor a holiday.
func IsWorkday(d Date, holidays HolidaySet) bool {
	return !IsWeekend(d) && !holidays.Contains(d)
}

// PreviousWorkday steps backward from d until it lands on a workday.
// A date that already is a workday is returned unchanged.
func PreviousWorkday(d Date, holidays HolidaySet) Date {
	for !IsWorkday(d, holidays) {
		d = d.AddDays(-1)
	}
	return d
}

// =============================================================================
// NOMINAL DATES - Day-of-month anchors that may not exist in every month
// =============================================================================

// OverflowPolicy decides what happens when a day-of-month anchor does not
// exist in a month (day 31 in April, day 30 in February).
type OverflowPolicy string

const (
	// RollOverflowIntoNextMonth lets the date spill into the following month
	// (April 31 becomes May 1). This is the default.
	RollOverflowIntoNextMonth OverflowPolicy = "roll"

	// ClampToMonthEnd pins the date to the month's last day (April 31 becomes April 30).
	ClampToMonthEnd OverflowPolicy = "clamp"
)

// ParseOverflowPolicy accepts "roll" or "clamp"; the empty string maps to the default.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch OverflowPolicy(s) {
	case "", RollOverflowIntoNextMonth:
		return RollOverflowIntoNextMonth, nil
	case ClampToMonthEnd:
		return ClampToMonthEnd, nil
	}
	return "", &ValidationError{Field: "overflow_policy", Message: fmt.Sprintf("unknown overflow policy %q", s)}
}

// NominalDate resolves (year, month, day) under the policy. Month may be
// outside 1..12; it is normalized with year rollover.
func NominalDate(year int, month time.Month, day int, policy OverflowPolicy) Date {
	first := NewDate(year, month, 1)
	if policy == ClampToMonthEnd {
		if last := DaysIn(first.Year(), first.Month()); day > last {
			day = last
		}
	}
	return NewDate(first.Year(), first.Month(), day)
}
