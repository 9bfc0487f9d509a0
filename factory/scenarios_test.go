package factory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/budget/store"
	"github.com/warp/budget-engine/factory"
)

func TestScenarios_ValidAroundTheYear(t *testing.T) {
	days := []budget.Date{
		budget.NewDate(2024, time.January, 2),
		budget.NewDate(2024, time.February, 29),
		budget.NewDate(2024, time.August, 3),
		budget.NewDate(2024, time.December, 31),
	}
	for _, s := range factory.Scenarios() {
		for _, today := range days {
			t.Run(s.ID+"/"+today.String(), func(t *testing.T) {
				h := s.Build(today)
				require.NoError(t, h.Validate())

				// spending lands inside the last ended period
				last := budget.CurrentFinancialMonth(today, h.Settings.FiscalDayStart).Prev()
				period := budget.FinancialMonthRange(last, h.Settings.FiscalDayStart, nil)
				for _, tx := range h.Transactions {
					assert.True(t, period.Contains(tx.Date), "%s outside %s", tx.Date, period)
				}
			})
		}
	}
}

func TestGetScenario_Unknown(t *testing.T) {
	_, err := factory.GetScenario("nope")
	assert.True(t, budget.IsNotFound(err))
}

func closeScenario(t *testing.T, id string) (*budget.CloseResult, *store.TxMemory, *factory.SeedResult) {
	t.Helper()
	ctx := context.Background()
	today := budget.NewDate(2024, time.August, 3)
	s, err := factory.GetScenario(id)
	require.NoError(t, err)

	mem := store.NewTxMemory()
	seeded, err := factory.NewHouseholdFactory().Seed(ctx, mem, s.Build(today))
	require.NoError(t, err)

	clock := func() time.Time { return today.Time.Add(8 * time.Hour) }
	resolver := budget.NewFiscalResolver(mem, budget.NewHolidayCalendar(mem, nil, clock), clock)
	engine := budget.NewClosingEngine(mem, resolver, nil, nil, budget.ClosingOptions{})

	m, err := engine.LastEndedMonth(ctx)
	require.NoError(t, err)
	res, err := engine.Run(ctx, m)
	require.NoError(t, err)
	return res, mem, seeded
}

func TestScenario_SalariedHousehold(t *testing.T) {
	res, _, seeded := closeScenario(t, "salaried-household")

	// groceries 500-420=80, utilities 30, dining exactly spent, car rolling
	assert.Equal(t, budget.OutcomeClosed, res.Outcome)
	assert.Equal(t, "110.00", res.Surplus.StringFixed(2))
	require.Len(t, res.Plan.Allocations, 2)
	assert.Equal(t, seeded.Goals[0], res.Plan.Allocations[0].GoalID)
	assert.Equal(t, "50.00", res.Plan.Allocations[0].Amount.StringFixed(2))
	assert.Equal(t, "60.00", res.Plan.Allocations[1].Amount.StringFixed(2))
	assert.Nil(t, res.Plan.Fallback)
}

func TestScenario_OverdueGoalFirst(t *testing.T) {
	res, _, seeded := closeScenario(t, "overdue-goal")

	require.NotEmpty(t, res.Plan.Allocations)
	first := res.Plan.Allocations[0]
	assert.Equal(t, seeded.Goals[1], first.GoalID)
	assert.Equal(t, 0, first.Rank)
	assert.Equal(t, "100.00", first.Amount.StringFixed(2))
}

func TestScenario_AllOverspent(t *testing.T) {
	res, _, _ := closeScenario(t, "all-overspent")

	assert.Equal(t, budget.OutcomeNothingToDistribute, res.Outcome)
	for _, h := range res.History {
		assert.True(t, h.FinalSurplus.IsNegative())
	}
}

func TestScenario_NoGoalsFallsBackToLowestAccount(t *testing.T) {
	res, mem, seeded := closeScenario(t, "no-goals")

	require.NotNil(t, res.Plan.Fallback)
	assert.Equal(t, seeded.Accounts[0], res.Plan.Fallback.AccountID)
	assert.Equal(t, "150.00", res.Plan.Fallback.Amount.StringFixed(2))

	accounts, err := mem.ListAccountsWithGoals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5150.00", accounts[0].Balance.StringFixed(2))
}
