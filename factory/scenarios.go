package factory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// Scenario is a built-in demo household. Build lays the household out
// around today: budgets and spending for the last ended fiscal month (ready
// to close) and budgets for the current one.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	build func(today budget.Date) *HouseholdJSON
}

// Build returns the scenario's household as of today.
func (s Scenario) Build(today budget.Date) *HouseholdJSON {
	return s.build(today)
}

var scenarios = []Scenario{
	{
		ID:          "salaried-household",
		Name:        "Salaried Household",
		Description: "Salary on the 25th, allowance and rolling budgets, split receipts, three savings goals",
		build:       salariedHousehold,
	},
	{
		ID:          "overdue-goal",
		Name:        "Overdue Goal",
		Description: "A goal past its target date is funded before high-priority goals",
		build:       overdueGoal,
	},
	{
		ID:          "all-overspent",
		Name:        "All Overspent",
		Description: "Every allowance is exceeded: history is negative and nothing is distributed",
		build:       allOverspent,
	},
	{
		ID:          "no-goals",
		Name:        "No Goals",
		Description: "Surplus with no eligible goals is deposited into the lowest-ID account",
		build:       noGoals,
	},
}

// Scenarios lists the built-in scenarios.
func Scenarios() []Scenario {
	out := make([]Scenario, len(scenarios))
	copy(out, scenarios)
	return out
}

// GetScenario looks a scenario up by ID.
func GetScenario(id string) (Scenario, error) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: scenario %q", budget.ErrNotFound, id)
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

// layout anchors a scenario on the last ended and current fiscal months.
type layout struct {
	today   budget.Date
	last    budget.FiscalMonth
	current budget.FiscalMonth
	period  budget.Period
}

func newLayout(today budget.Date, fiscalDayStart int) layout {
	last := budget.CurrentFinancialMonth(today, fiscalDayStart)
	if !today.After(budget.FinancialMonthRange(last, fiscalDayStart, nil).End) {
		last = last.Prev()
	}
	return layout{
		today:   today,
		last:    last,
		current: last.Next(),
		period:  budget.FinancialMonthRange(last, fiscalDayStart, nil),
	}
}

// day returns a date n days into the last ended period. Holidays can only
// move period boundaries earlier by a few days, so small n stay inside.
func (l layout) day(n int) budget.Date { return l.period.Start.AddDays(n) }

// budgets returns the same amount for the last ended and current months.
func (l layout) budgets(amount, typ string) []BudgetJSON {
	return []BudgetJSON{
		{Month: l.last.String(), Amount: money(amount), Type: typ},
		{Month: l.current.String(), Amount: money(amount), Type: typ},
	}
}

func debit(d budget.Date, amount, sub, desc string) TransactionJSON {
	return TransactionJSON{Date: d, Amount: money(amount), Direction: string(budget.Debit), Subcategory: sub, Description: desc}
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func salariedHousehold(today budget.Date) *HouseholdJSON {
	l := newLayout(today, 25)
	return &HouseholdJSON{
		Settings: budget.FiscalSettings{FiscalDayStart: 25, Jurisdiction: "DE"},
		Subcategories: []SubcategoryJSON{
			{Key: "groceries", Name: "Groceries", Category: "Living", Budgets: l.budgets("500", "allowance")},
			{Key: "dining", Name: "Dining out", Category: "Living", Budgets: l.budgets("150", "allowance")},
			{Key: "utilities", Name: "Utilities", Category: "Home", Budgets: l.budgets("200", "allowance")},
			{Key: "car", Name: "Car maintenance", Category: "Transport", Budgets: l.budgets("300", "rolling")},
		},
		Transactions: []TransactionJSON{
			debit(l.day(2), "182.40", "groceries", "Weekly shop"),
			debit(l.day(9), "197.60", "groceries", "Weekly shop"),
			debit(l.day(4), "120", "dining", "Birthday dinner"),
			debit(l.day(6), "170", "utilities", "Electricity"),
			debit(l.day(8), "80", "car", "Oil change"),
			{
				Date: l.day(12), Amount: money("70"), Direction: string(budget.Debit), Description: "Market",
				Splits: []SplitJSON{
					{Subcategory: "groceries", Amount: money("40")},
					{Subcategory: "dining", Amount: money("30")},
				},
			},
			{Date: l.day(5), Amount: money("25"), Direction: string(budget.Credit), Subcategory: "groceries", Description: "Refund"},
		},
		Cashflows: []CashflowJSON{
			{Kind: string(budget.CashflowIncome), Name: "Salary", Amount: money("3200"), DayOfMonth: 25},
			{Kind: string(budget.CashflowBill), Name: "Rent", Amount: money("1200"), DayOfMonth: 1},
			{Kind: string(budget.CashflowBill), Name: "Internet", Amount: money("45"), DayOfMonth: 31},
			{Kind: string(budget.CashflowBill), Name: "Gym", Amount: money("30"), DayOfMonth: 15, ActiveTo: l.today.AddMonths(6)},
		},
		Accounts: []AccountJSON{
			{
				Name: "Main savings", Balance: money("2500"),
				Goals: []GoalJSON{
					{Name: "Emergency fund", Target: money("3000"), Current: money("2400"), Priority: string(budget.PriorityHigh), TargetDate: l.today.AddMonths(12)},
					{Name: "Holiday", Target: money("1200"), Current: money("900"), Priority: string(budget.PriorityMedium), TargetDate: l.today.AddMonths(3)},
				},
			},
			{
				Name: "Car fund", Balance: money("400"),
				Goals: []GoalJSON{
					{Name: "New tyres", Target: money("600"), Current: money("400"), Priority: string(budget.PriorityLow)},
				},
			},
		},
	}
}

func overdueGoal(today budget.Date) *HouseholdJSON {
	l := newLayout(today, 1)
	return &HouseholdJSON{
		Settings: budget.FiscalSettings{FiscalDayStart: 1, Jurisdiction: "FR"},
		Subcategories: []SubcategoryJSON{
			{Key: "groceries", Name: "Groceries", Category: "Living", Budgets: l.budgets("400", "allowance")},
		},
		Transactions: []TransactionJSON{
			debit(l.day(3), "250", "groceries", "Supermarket"),
		},
		Cashflows: []CashflowJSON{
			{Kind: string(budget.CashflowIncome), Name: "Salary", Amount: money("2600"), DayOfMonth: 28},
			{Kind: string(budget.CashflowBill), Name: "Rent", Amount: money("900"), DayOfMonth: 5},
		},
		Accounts: []AccountJSON{
			{
				Name: "Savings", Balance: money("1000"),
				Goals: []GoalJSON{
					{Name: "Laptop", Target: money("1500"), Current: money("1000"), Priority: string(budget.PriorityHigh), TargetDate: l.today.AddMonths(2)},
					{Name: "Insurance excess", Target: money("300"), Current: money("200"), Priority: string(budget.PriorityLow), TargetDate: l.today.AddDays(-10)},
				},
			},
		},
	}
}

func allOverspent(today budget.Date) *HouseholdJSON {
	l := newLayout(today, 15)
	return &HouseholdJSON{
		Settings: budget.FiscalSettings{FiscalDayStart: 15, Jurisdiction: "GB"},
		Subcategories: []SubcategoryJSON{
			{Key: "groceries", Name: "Groceries", Budgets: l.budgets("300", "allowance")},
			{Key: "fun", Name: "Fun", Budgets: l.budgets("50", "allowance")},
		},
		Transactions: []TransactionJSON{
			debit(l.day(2), "340", "groceries", "Big shop"),
			debit(l.day(3), "75", "fun", "Concert"),
		},
		Accounts: []AccountJSON{
			{
				Name: "Rainy day", Balance: money("150"),
				Goals: []GoalJSON{{Name: "Buffer", Target: money("500"), Priority: string(budget.PriorityHigh)}},
			},
		},
	}
}

func noGoals(today budget.Date) *HouseholdJSON {
	l := newLayout(today, 10)
	return &HouseholdJSON{
		Settings: budget.FiscalSettings{FiscalDayStart: 10, Jurisdiction: "NL"},
		Subcategories: []SubcategoryJSON{
			{Key: "groceries", Name: "Groceries", Budgets: l.budgets("350", "allowance")},
		},
		Transactions: []TransactionJSON{
			debit(l.day(4), "200", "groceries", "Groceries"),
		},
		Accounts: []AccountJSON{
			{Name: "Joint savings", Balance: money("5000")},
			{Name: "Kids", Balance: money("800")},
		},
	}
}
