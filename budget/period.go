package budget

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// PERIOD - Inclusive date range of one budget month
// =============================================================================

// Period is an inclusive [Start, End] range of calendar days.
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Length returns the number of days in the period.
func (p Period) Length() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns every day of the period in order.
func (p Period) Days() []Date {
	var days []Date
	for cur := p.Start; cur.BeforeOrEqual(p.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// FiscalMonth names a logical budget month. A fiscal month is labelled by
// the calendar month in which it ends.
type FiscalMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// NewFiscalMonth validates the month number.
func NewFiscalMonth(year, month int) (FiscalMonth, error) {
	if month < 1 || month > 12 {
		return FiscalMonth{}, &ValidationError{Field: "month", Message: fmt.Sprintf("month must be 1-12, got %d", month)}
	}
	if year < 1 {
		return FiscalMonth{}, &ValidationError{Field: "year", Message: fmt.Sprintf("invalid year %d", year)}
	}
	return FiscalMonth{Year: year, Month: time.Month(month)}, nil
}

func (m FiscalMonth) Next() FiscalMonth { return m.shift(1) }
func (m FiscalMonth) Prev() FiscalMonth { return m.shift(-1) }

func (m FiscalMonth) shift(n int) FiscalMonth {
	d := NewDate(m.Year, m.Month+time.Month(n), 1)
	return FiscalMonth{Year: d.Year(), Month: d.Month()}
}

func (m FiscalMonth) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// =============================================================================
// FISCAL SETTINGS
// =============================================================================

const (
	MinFiscalDayStart = 1
	MaxFiscalDayStart = 28
)

// FiscalSettings is the household's global calendar configuration. Set once
// at setup and immutable afterwards.
type FiscalSettings struct {
	FiscalDayStart int    `json:"fiscal_day_start"`
	Jurisdiction   string `json:"jurisdiction"`
}

// Validate enforces 1 <= FiscalDayStart <= 28 and a non-empty jurisdiction.
func (s FiscalSettings) Validate() error {
	if s.FiscalDayStart < MinFiscalDayStart || s.FiscalDayStart > MaxFiscalDayStart {
		return &ValidationError{
			Field:   "fiscal_day_start",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinFiscalDayStart, MaxFiscalDayStart, s.FiscalDayStart),
		}
	}
	if s.Jurisdiction == "" {
		return &ValidationError{Field: "jurisdiction", Message: "required"}
	}
	return nil
}

// =============================================================================
// PERIOD RESOLUTION - Pure functions
// =============================================================================

// FinancialMonthRange returns the date range of fiscal month (year, month).
// The period starts on the workday-adjusted fiscal day of the previous month
// and ends the day before the workday-adjusted fiscal day of this month, so
// consecutive months tile with no gap or overlap.
func FinancialMonthRange(m FiscalMonth, fiscalDayStart int, holidays HolidaySet) Period {
	start := PreviousWorkday(NewDate(m.Year, m.Month-1, fiscalDayStart), holidays)
	nextStart := PreviousWorkday(NewDate(m.Year, m.Month, fiscalDayStart), holidays)
	return Period{Start: start, End: nextStart.AddDays(-1)}
}

// CurrentFinancialMonth applies the nominal-day rule: from the fiscal day
// of the calendar month onward, today belongs to the next fiscal month,
// otherwise to the current one. It ignores workday adjustment, so a day just
// before the nominal fiscal day can already lie past the returned month's
// period end.
func CurrentFinancialMonth(today Date, fiscalDayStart int) FiscalMonth {
	m := FiscalMonth{Year: today.Year(), Month: today.Month()}
	if today.Day() >= fiscalDayStart {
		return m.Next()
	}
	return m
}

// =============================================================================
// FISCAL RESOLVER - Settings + holidays + clock
// =============================================================================

// Clock returns the current instant. Injected so closing and forecasting are
// reproducible in tests.
type Clock func() time.Time

// FiscalResolver resolves fiscal months against the stored settings and the
// jurisdiction's holiday calendar.
type FiscalResolver struct {
	settings SettingsStore
	calendar *HolidayCalendar
	now      Clock
}

// NewFiscalResolver wires a resolver. A nil clock means time.Now.
func NewFiscalResolver(settings SettingsStore, calendar *HolidayCalendar, now Clock) *FiscalResolver {
	if now == nil {
		now = time.Now
	}
	return &FiscalResolver{settings: settings, calendar: calendar, now: now}
}

// Today returns the resolver's notion of the current day.
func (r *FiscalResolver) Today() Date { return DateOf(r.now()) }

// Settings loads the fiscal settings or returns a ConfigurationError.
func (r *FiscalResolver) Settings(ctx context.Context) (FiscalSettings, error) {
	s, err := r.settings.GetSettings(ctx)
	if err != nil {
		if IsNotFound(err) {
			return FiscalSettings{}, &ConfigurationError{Setting: "fiscal_day_start", Err: ErrNotConfigured}
		}
		return FiscalSettings{}, err
	}
	if err := s.Validate(); err != nil {
		return FiscalSettings{}, &ConfigurationError{Setting: "fiscal_day_start", Err: err}
	}
	return s, nil
}

// Holidays returns the holiday set for the configured jurisdiction.
func (r *FiscalResolver) Holidays(ctx context.Context) (FiscalSettings, HolidaySet, error) {
	s, err := r.Settings(ctx)
	if err != nil {
		return FiscalSettings{}, nil, err
	}
	hs, err := r.calendar.Load(ctx, s.Jurisdiction)
	if err != nil {
		return FiscalSettings{}, nil, err
	}
	return s, hs, nil
}

// Range returns the period of fiscal month m.
func (r *FiscalResolver) Range(ctx context.Context, m FiscalMonth) (Period, error) {
	s, hs, err := r.Holidays(ctx)
	if err != nil {
		return Period{}, err
	}
	return FinancialMonthRange(m, s.FiscalDayStart, hs), nil
}

// Current returns the fiscal month containing today and its period.
func (r *FiscalResolver) Current(ctx context.Context) (FiscalMonth, Period, error) {
	s, hs, err := r.Holidays(ctx)
	if err != nil {
		return FiscalMonth{}, Period{}, err
	}
	m := CurrentFinancialMonth(r.Today(), s.FiscalDayStart)
	return m, FinancialMonthRange(m, s.FiscalDayStart, hs), nil
}

func sortDates(ds []Date) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
}
