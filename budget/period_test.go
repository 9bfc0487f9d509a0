package budget_test

import (
	"testing"
	"time"

	"github.com/warp/budget-engine/budget"
)

func date(y int, m time.Month, d int) budget.Date { return budget.NewDate(y, m, d) }

func month(y int, m time.Month) budget.FiscalMonth { return budget.FiscalMonth{Year: y, Month: m} }

// =============================================================================
// WORKDAY ADJUSTMENT
// =============================================================================

func TestPreviousWorkday(t *testing.T) {
	holidays := budget.NewHolidaySet(date(2024, time.December, 25), date(2024, time.December, 26))

	tests := []struct {
		name string
		in   budget.Date
		want budget.Date
	}{
		{"weekday unchanged", date(2024, time.July, 3), date(2024, time.July, 3)},
		{"saturday to friday", date(2024, time.July, 27), date(2024, time.July, 26)},
		{"sunday to friday", date(2024, time.July, 28), date(2024, time.July, 26)},
		{"holiday run to previous workday", date(2024, time.December, 26), date(2024, time.December, 24)},
		{"sunday across year boundary", date(2023, time.January, 1), date(2022, time.December, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := budget.PreviousWorkday(tt.in, holidays)
			if !got.Equal(tt.want) {
				t.Errorf("PreviousWorkday(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestPreviousWorkday_Idempotent(t *testing.T) {
	holidays := budget.NewHolidaySet(
		date(2024, time.January, 1),
		date(2024, time.May, 1),
		date(2024, time.December, 24),
		date(2024, time.December, 25),
	)

	for d := date(2024, time.January, 1); d.Before(date(2025, time.January, 1)); d = d.AddDays(1) {
		once := budget.PreviousWorkday(d, holidays)
		twice := budget.PreviousWorkday(once, holidays)
		if !once.Equal(twice) {
			t.Fatalf("not idempotent for %s: %s then %s", d, once, twice)
		}
		if !budget.IsWorkday(once, holidays) {
			t.Fatalf("%s adjusted to non-workday %s", d, once)
		}
		if once.After(d) {
			t.Fatalf("%s adjusted forward to %s", d, once)
		}
	}
}

// =============================================================================
// FINANCIAL MONTH RANGE
// =============================================================================

func TestFinancialMonthRange_FiscalDay28(t *testing.T) {
	// GIVEN: fiscal day 28, no holidays
	// June 28 2024 is a Friday; July 28 2024 is a Sunday.

	// WHEN: resolving July 2024
	p := budget.FinancialMonthRange(month(2024, time.July), 28, nil)

	// THEN: starts on June 28 and ends the day before the adjusted July 28 (Fri 26th)
	if !p.Start.Equal(date(2024, time.June, 28)) {
		t.Errorf("start = %s, want 2024-06-28", p.Start)
	}
	if !p.End.Equal(date(2024, time.July, 25)) {
		t.Errorf("end = %s, want 2024-07-25", p.End)
	}

	// AND: August picks up on the adjusted July start
	next := budget.FinancialMonthRange(month(2024, time.August), 28, nil)
	if !next.Start.Equal(date(2024, time.July, 26)) {
		t.Errorf("august start = %s, want 2024-07-26", next.Start)
	}
}

func TestFinancialMonthRange_BothBoundariesOnWeekdays(t *testing.T) {
	// May 28 2024 is a Tuesday, June 28 2024 a Friday.
	p := budget.FinancialMonthRange(month(2024, time.June), 28, nil)

	if !p.Start.Equal(date(2024, time.May, 28)) || !p.End.Equal(date(2024, time.June, 27)) {
		t.Errorf("got %s, want [2024-05-28, 2024-06-27]", p)
	}
}

func TestFinancialMonthRange_JanuaryRollsBackIntoDecember(t *testing.T) {
	// GIVEN: Christmas and the 24th are holidays, fiscal day 25
	holidays := budget.NewHolidaySet(date(2024, time.December, 24), date(2024, time.December, 25))

	// WHEN: resolving January 2025
	p := budget.FinancialMonthRange(month(2025, time.January), 25, holidays)

	// THEN: start steps back over both holidays to Monday the 23rd
	if !p.Start.Equal(date(2024, time.December, 23)) {
		t.Errorf("start = %s, want 2024-12-23", p.Start)
	}
}

func TestFinancialMonthRange_Tiles(t *testing.T) {
	holidays := budget.NewHolidaySet(
		date(2024, time.December, 25),
		date(2025, time.January, 1),
		date(2025, time.May, 1),
	)

	for _, fds := range []int{1, 10, 15, 25, 28} {
		m := month(2024, time.January)
		for i := 0; i < 24; i++ {
			cur := budget.FinancialMonthRange(m, fds, holidays)
			next := budget.FinancialMonthRange(m.Next(), fds, holidays)

			if !cur.End.AddDays(1).Equal(next.Start) {
				t.Fatalf("fds=%d: %s ends %s but %s starts %s", fds, m, cur.End, m.Next(), next.Start)
			}
			if cur.End.Before(cur.Start) {
				t.Fatalf("fds=%d: empty period %s for %s", fds, cur, m)
			}
			m = m.Next()
		}
	}
}

// =============================================================================
// CURRENT FINANCIAL MONTH
// =============================================================================

func TestCurrentFinancialMonth(t *testing.T) {
	tests := []struct {
		name  string
		today budget.Date
		fds   int
		want  budget.FiscalMonth
	}{
		{"before fiscal day stays", date(2024, time.July, 24), 25, month(2024, time.July)},
		{"on fiscal day moves to next", date(2024, time.July, 25), 25, month(2024, time.August)},
		{"december rolls into january", date(2024, time.December, 27), 25, month(2025, time.January)},
		{"fiscal day one is always next", date(2024, time.January, 1), 1, month(2024, time.February)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := budget.CurrentFinancialMonth(tt.today, tt.fds)
			if got != tt.want {
				t.Errorf("CurrentFinancialMonth(%s, %d) = %s, want %s", tt.today, tt.fds, got, tt.want)
			}
		})
	}
}

// =============================================================================
// NOMINAL DATES & SETTINGS
// =============================================================================

func TestNominalDate_OverflowPolicies(t *testing.T) {
	tests := []struct {
		name   string
		y      int
		m      time.Month
		day    int
		policy budget.OverflowPolicy
		want   budget.Date
	}{
		{"roll april 31", 2024, time.April, 31, budget.RollOverflowIntoNextMonth, date(2024, time.May, 1)},
		{"clamp april 31", 2024, time.April, 31, budget.ClampToMonthEnd, date(2024, time.April, 30)},
		{"clamp leap february", 2024, time.February, 30, budget.ClampToMonthEnd, date(2024, time.February, 29)},
		{"clamp february", 2023, time.February, 30, budget.ClampToMonthEnd, date(2023, time.February, 28)},
		{"month thirteen normalizes", 2024, 13, 5, budget.ClampToMonthEnd, date(2025, time.January, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := budget.NominalDate(tt.y, tt.m, tt.day, tt.policy)
			if !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseOverflowPolicy(t *testing.T) {
	if p, err := budget.ParseOverflowPolicy(""); err != nil || p != budget.RollOverflowIntoNextMonth {
		t.Errorf("empty policy = %q, %v", p, err)
	}
	if _, err := budget.ParseOverflowPolicy("wrap"); !budget.IsClientError(err) {
		t.Errorf("expected client error, got %v", err)
	}
}

func TestFiscalSettings_Validate(t *testing.T) {
	for _, fds := range []int{0, 29, 31, -1} {
		s := budget.FiscalSettings{FiscalDayStart: fds, Jurisdiction: "DE"}
		if err := s.Validate(); !budget.IsClientError(err) {
			t.Errorf("fiscal day %d: expected validation error, got %v", fds, err)
		}
	}
	for _, fds := range []int{1, 15, 28} {
		s := budget.FiscalSettings{FiscalDayStart: fds, Jurisdiction: "DE"}
		if err := s.Validate(); err != nil {
			t.Errorf("fiscal day %d: unexpected error %v", fds, err)
		}
	}
	if err := (budget.FiscalSettings{FiscalDayStart: 1}).Validate(); err == nil {
		t.Error("missing jurisdiction should fail")
	}
}

func TestMonthsBetween(t *testing.T) {
	if got := budget.MonthsBetween(date(2024, time.July, 15), date(2024, time.October, 1)); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
	if got := budget.MonthsBetween(date(2024, time.December, 31), date(2025, time.January, 1)); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
	if got := budget.MonthsBetween(date(2024, time.July, 1), date(2024, time.May, 1)); got != -2 {
		t.Errorf("got %d, want -2", got)
	}
}
