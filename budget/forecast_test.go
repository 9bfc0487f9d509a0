package budget_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/budget/store"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func income(id budget.CashflowID, name string, amount string, day int) budget.ScheduledCashflow {
	return budget.ScheduledCashflow{ID: id, Kind: budget.CashflowIncome, Name: name, Amount: dec(amount), DayOfMonth: day, Active: true}
}

func bill(id budget.CashflowID, name string, amount string, day int) budget.ScheduledCashflow {
	return budget.ScheduledCashflow{ID: id, Kind: budget.CashflowBill, Name: name, Amount: dec(amount), DayOfMonth: day, Active: true}
}

func dayOf(t *testing.T, f budget.Forecast, d budget.Date) budget.ForecastDay {
	t.Helper()
	for _, fd := range f.Days {
		if fd.Date.Equal(d) {
			return fd
		}
	}
	t.Fatalf("day %s not in forecast", d)
	return budget.ForecastDay{}
}

func TestProject_TwelveMonthsOfSalaryAndRent(t *testing.T) {
	// GIVEN: salary on the 25th and rent on the 1st, starting Monday 2024-07-01
	in := budget.ProjectionInput{
		Today:          date(2024, time.July, 1),
		FiscalDayStart: 25,
		Items: []budget.ScheduledCashflow{
			income(1, "salary", "3000", 25),
			bill(2, "rent", "1200", 1),
		},
	}

	// WHEN: projecting
	f := budget.Project(in)

	// THEN: the horizon is [2024-07-01, 2025-07-01)
	require.Len(t, f.Days, 365)
	assert.True(t, f.Days[0].Date.Equal(date(2024, time.July, 1)))
	assert.True(t, f.To.Equal(date(2025, time.July, 1)))

	// AND: rent lands on day one
	assert.True(t, f.Days[0].Net.Equal(dec("-1200")), "net = %s", f.Days[0].Net)
	assert.True(t, f.Days[0].RunningBalance.Equal(dec("-1200")))

	// AND: salary due Sunday 2024-08-25 is paid Friday the 23rd
	aug23 := dayOf(t, f, date(2024, time.August, 23))
	require.Len(t, aug23.Items, 1)
	assert.Equal(t, "salary", aug23.Items[0].Name)
	assert.Equal(t, month(2024, time.August), aug23.FiscalMonth)

	// AND: salary lands 12 times; rent is missed in the 5 months whose 1st
	// falls on a weekend (Sep, Dec, Feb, Mar, Jun)
	last := f.Days[len(f.Days)-1]
	assert.True(t, last.RunningBalance.Equal(dec("27600")), "final balance = %s", last.RunningBalance)
}

func TestProject_AdjustmentIntoPreviousMonthIsSkipped(t *testing.T) {
	// GIVEN: rent on the 1st; 2024-09-01 is a Sunday
	in := budget.ProjectionInput{
		Today:  date(2024, time.August, 1),
		Months: 2,
		Items:  []budget.ScheduledCashflow{bill(1, "rent", "1200", 1)},
	}

	f := budget.Project(in)

	// THEN: September's rent would adjust to Friday Aug 30 and is not projected
	assert.Empty(t, dayOf(t, f, date(2024, time.August, 30)).Items)
	assert.Empty(t, dayOf(t, f, date(2024, time.September, 1)).Items)
	assert.Len(t, dayOf(t, f, date(2024, time.August, 1)).Items, 1)
}

func TestProject_OverflowPolicy(t *testing.T) {
	items := []budget.ScheduledCashflow{bill(1, "insurance", "50", 31)}

	// GIVEN: April 2024, item on day 31
	base := budget.ProjectionInput{Today: date(2024, time.April, 1), Months: 1, Items: items}

	t.Run("roll skips the month", func(t *testing.T) {
		in := base
		in.Policy = budget.RollOverflowIntoNextMonth
		f := budget.Project(in)
		assert.True(t, f.Days[len(f.Days)-1].RunningBalance.IsZero())
	})

	t.Run("clamp lands on the last day", func(t *testing.T) {
		in := base
		in.Policy = budget.ClampToMonthEnd
		f := budget.Project(in)
		assert.Len(t, dayOf(t, f, date(2024, time.April, 30)).Items, 1)
		assert.True(t, f.Days[len(f.Days)-1].RunningBalance.Equal(dec("-50")))
	})
}

func TestProject_RespectsActiveWindowAndFlag(t *testing.T) {
	bonus := income(1, "bonus", "100", 15)
	bonus.ActiveTo = date(2024, time.September, 30)
	paused := income(2, "paused", "999", 10)
	paused.Active = false
	future := bill(3, "gym", "40", 5)
	future.ActiveFrom = date(2024, time.September, 1)

	f := budget.Project(budget.ProjectionInput{
		Today:  date(2024, time.July, 1),
		Months: 4,
		Items:  []budget.ScheduledCashflow{bonus, paused, future},
	})

	// bonus: Jul 15, Aug 15, Sep 13 (15th is a Sunday); gym: Sep 5, Oct 4 (5th is a Saturday)
	last := f.Days[len(f.Days)-1]
	assert.True(t, last.RunningBalance.Equal(dec("220")), "balance = %s", last.RunningBalance)
	assert.Len(t, dayOf(t, f, date(2024, time.September, 13)).Items, 1)
	assert.Len(t, dayOf(t, f, date(2024, time.October, 4)).Items, 1)
}

func TestProject_RunningBalanceRoundsToCents(t *testing.T) {
	f := budget.Project(budget.ProjectionInput{
		Today:  date(2024, time.July, 1),
		Months: 1,
		Items:  []budget.ScheduledCashflow{income(1, "interest", "0.005", 2)},
	})
	assert.True(t, dayOf(t, f, date(2024, time.July, 2)).RunningBalance.Equal(dec("0.01")))
}

func TestForecastEngine_RequiresSettings(t *testing.T) {
	mem := store.NewTxMemory()
	cal := budget.NewHolidayCalendar(mem, nil, nil)
	resolver := budget.NewFiscalResolver(mem, cal, nil)

	_, err := budget.NewForecastEngine(resolver, mem, budget.RollOverflowIntoNextMonth).Generate(context.Background())

	assert.True(t, budget.IsConfigurationError(err), "got %v", err)
}

func TestForecastEngine_UsesStoredHolidays(t *testing.T) {
	ctx := context.Background()
	mem := store.NewTxMemory()
	require.NoError(t, mem.SaveSettings(ctx, budget.FiscalSettings{FiscalDayStart: 25, Jurisdiction: "DE"}))
	require.NoError(t, mem.ReplaceHolidays(ctx, "DE", []budget.Date{date(2024, time.October, 3)}))
	_, err := mem.CreateCashflow(ctx, income(0, "salary", "2000", 3))
	require.NoError(t, err)

	clock := func() time.Time { return time.Date(2024, time.October, 1, 9, 0, 0, 0, time.UTC) }
	cal := budget.NewHolidayCalendar(mem, nil, clock)
	resolver := budget.NewFiscalResolver(mem, cal, clock)

	f, err := budget.NewForecastEngine(resolver, mem, budget.RollOverflowIntoNextMonth).Generate(ctx)
	require.NoError(t, err)

	// Oct 3 is a holiday (Thursday): salary moves to Wednesday the 2nd
	assert.Len(t, dayOf(t, *f, date(2024, time.October, 2)).Items, 1)
	assert.Empty(t, dayOf(t, *f, date(2024, time.October, 3)).Items)
}
