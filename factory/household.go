/*
Package factory provides JSON to Go household conversion.

PURPOSE:
  Converts a JSON household definition into budget records and writes them
  through a budget.TxStore. Used by demo scenarios, the "budgetctl seed"
  command and tests that need a realistic household.

JSON SCHEMA:
  {
    "settings": {"fiscal_day_start": 25, "jurisdiction": "DE"},
    "holidays": ["2024-10-03", "2024-12-25"],
    "subcategories": [
      {"key": "groceries", "name": "Groceries", "category": "Living",
       "budgets": [{"month": "2024-07", "amount": "500", "type": "allowance"}]}
    ],
    "transactions": [
      {"date": "2024-07-02", "amount": "300", "direction": "debit", "subcategory": "groceries"},
      {"date": "2024-07-12", "amount": "150", "direction": "debit",
       "splits": [{"subcategory": "groceries", "amount": "100"},
                  {"subcategory": "fun", "amount": "50"}]}
    ],
    "cashflows": [
      {"kind": "income", "name": "Salary", "amount": "3200", "day_of_month": 25}
    ],
    "accounts": [
      {"name": "Main savings", "balance": "1000",
       "goals": [{"name": "Bike", "target": "300", "target_date": "2024-09-15", "priority": "high"}]}
    ]
  }

  Subcategories are referenced by key. Amounts may be JSON strings or
  numbers. "active" defaults to true for cashflows and goals; "type"
  defaults to allowance and "direction" to debit.

ATOMICITY:
  Everything except holidays is written in one transaction. Holidays are
  replaced afterwards, per jurisdiction.

SEE ALSO:
  - factory/scenarios.go: built-in demo households
  - budget/store.go: Seeder interface
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// HouseholdJSON is the JSON representation of a household.
type HouseholdJSON struct {
	Settings      budget.FiscalSettings `json:"settings"`
	Holidays      []budget.Date         `json:"holidays,omitempty"`
	Subcategories []SubcategoryJSON     `json:"subcategories"`
	Transactions  []TransactionJSON     `json:"transactions,omitempty"`
	Cashflows     []CashflowJSON        `json:"cashflows,omitempty"`
	Accounts      []AccountJSON         `json:"accounts,omitempty"`
}

type SubcategoryJSON struct {
	Key      string       `json:"key"`
	Name     string       `json:"name"`
	Category string       `json:"category,omitempty"`
	Budgets  []BudgetJSON `json:"budgets,omitempty"`
}

type BudgetJSON struct {
	Month  string          `json:"month"` // YYYY-MM
	Amount decimal.Decimal `json:"amount"`
	Type   string          `json:"type,omitempty"`
}

type TransactionJSON struct {
	Date        budget.Date     `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   string          `json:"direction,omitempty"`
	Subcategory string          `json:"subcategory,omitempty"`
	Description string          `json:"description,omitempty"`
	Splits      []SplitJSON     `json:"splits,omitempty"`
}

type SplitJSON struct {
	Subcategory string          `json:"subcategory"`
	Amount      decimal.Decimal `json:"amount"`
}

type CashflowJSON struct {
	Kind       string          `json:"kind"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	DayOfMonth int             `json:"day_of_month"`
	ActiveFrom budget.Date     `json:"active_from,omitempty"`
	ActiveTo   budget.Date     `json:"active_to,omitempty"`
	Active     *bool           `json:"active,omitempty"`
}

type AccountJSON struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
	Goals   []GoalJSON      `json:"goals,omitempty"`
}

type GoalJSON struct {
	Name       string          `json:"name"`
	Target     decimal.Decimal `json:"target"`
	Current    decimal.Decimal `json:"current,omitempty"`
	TargetDate budget.Date     `json:"target_date,omitempty"`
	Priority   string          `json:"priority,omitempty"`
	Active     *bool           `json:"active,omitempty"`
}

// SeedResult reports the IDs assigned while seeding.
type SeedResult struct {
	Subcategories map[string]budget.SubcategoryID `json:"subcategories"`
	Accounts      []budget.AccountID              `json:"accounts"`
	Goals         []budget.GoalID                 `json:"goals"`
	Transactions  int                             `json:"transactions"`
	Cashflows     int                             `json:"cashflows"`
	Holidays      int                             `json:"holidays"`
}

// =============================================================================
// HOUSEHOLD FACTORY
// =============================================================================

// HouseholdFactory converts and seeds JSON households.
type HouseholdFactory struct{}

// NewHouseholdFactory creates a new household factory.
func NewHouseholdFactory() *HouseholdFactory {
	return &HouseholdFactory{}
}

// ParseHousehold parses and validates a JSON household.
func (f *HouseholdFactory) ParseHousehold(data []byte) (*HouseholdJSON, error) {
	var h HouseholdJSON
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, &budget.ValidationError{Field: "household", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

// Validate checks references, amounts and enums. It returns the first
// problem as a *budget.ValidationError.
func (h *HouseholdJSON) Validate() error {
	if err := h.Settings.Validate(); err != nil {
		return err
	}

	keys := make(map[string]bool, len(h.Subcategories))
	for i, sc := range h.Subcategories {
		field := fmt.Sprintf("subcategories[%d]", i)
		if sc.Key == "" || sc.Name == "" {
			return invalid(field, "key and name are required")
		}
		if keys[sc.Key] {
			return invalid(field, fmt.Sprintf("duplicate key %q", sc.Key))
		}
		keys[sc.Key] = true
		for j, b := range sc.Budgets {
			bf := fmt.Sprintf("%s.budgets[%d]", field, j)
			if _, err := ParseMonth(b.Month); err != nil {
				return invalid(bf, err.Error())
			}
			if b.Amount.IsNegative() {
				return invalid(bf, "amount must not be negative")
			}
			if b.Type != "" && !budget.BudgetType(b.Type).Valid() {
				return invalid(bf, fmt.Sprintf("unknown budget type %q", b.Type))
			}
		}
	}

	for i, t := range h.Transactions {
		field := fmt.Sprintf("transactions[%d]", i)
		if t.Date.IsZero() {
			return invalid(field, "date is required")
		}
		if !t.Amount.IsPositive() {
			return invalid(field, "amount must be greater than zero")
		}
		if d := budget.Direction(t.Direction); d != "" && d != budget.Debit && d != budget.Credit {
			return invalid(field, fmt.Sprintf("unknown direction %q", t.Direction))
		}
		if len(t.Splits) == 0 {
			if t.Subcategory != "" && !keys[t.Subcategory] {
				return invalid(field, fmt.Sprintf("unknown subcategory %q", t.Subcategory))
			}
			continue
		}
		sum := decimal.Zero
		for _, s := range t.Splits {
			if !keys[s.Subcategory] {
				return invalid(field, fmt.Sprintf("unknown split subcategory %q", s.Subcategory))
			}
			sum = sum.Add(s.Amount)
		}
		if !sum.Equal(t.Amount) {
			return invalid(field, fmt.Sprintf("splits sum to %s, want %s", sum, t.Amount))
		}
	}

	for i, c := range h.Cashflows {
		field := fmt.Sprintf("cashflows[%d]", i)
		if k := budget.CashflowKind(c.Kind); k != budget.CashflowBill && k != budget.CashflowIncome {
			return invalid(field, fmt.Sprintf("unknown kind %q", c.Kind))
		}
		if c.DayOfMonth < 1 || c.DayOfMonth > 31 {
			return invalid(field, "day_of_month must be between 1 and 31")
		}
		if !c.Amount.IsPositive() {
			return invalid(field, "amount must be greater than zero")
		}
		if !c.ActiveFrom.IsZero() && !c.ActiveTo.IsZero() && c.ActiveTo.Before(c.ActiveFrom) {
			return invalid(field, "active_to is before active_from")
		}
	}

	for i, a := range h.Accounts {
		field := fmt.Sprintf("accounts[%d]", i)
		if a.Name == "" {
			return invalid(field, "name is required")
		}
		for j, g := range a.Goals {
			gf := fmt.Sprintf("%s.goals[%d]", field, j)
			if g.Name == "" {
				return invalid(gf, "name is required")
			}
			if !g.Target.IsPositive() {
				return invalid(gf, "target must be greater than zero")
			}
			if g.Current.IsNegative() {
				return invalid(gf, "current must not be negative")
			}
			if g.Priority != "" && !budget.Priority(g.Priority).Valid() {
				return invalid(gf, fmt.Sprintf("unknown priority %q", g.Priority))
			}
		}
	}
	return nil
}

// Seed writes h to store. Settings are written first, so seeding an already
// configured store fails with budget.ErrSettingsImmutable and writes nothing.
func (f *HouseholdFactory) Seed(ctx context.Context, store budget.TxStore, h *HouseholdJSON) (*SeedResult, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	var res *SeedResult
	err := store.WithTx(ctx, func(tx budget.Tx) error {
		res = &SeedResult{Subcategories: make(map[string]budget.SubcategoryID)}
		return seedTx(ctx, tx, h, res)
	})
	if err != nil {
		return nil, err
	}

	if len(h.Holidays) > 0 {
		if err := store.ReplaceHolidays(ctx, h.Settings.Jurisdiction, h.Holidays); err != nil {
			return nil, fmt.Errorf("seed holidays: %w", err)
		}
		res.Holidays = len(budget.NewHolidaySet(h.Holidays...))
	}
	return res, nil
}

func seedTx(ctx context.Context, tx budget.Tx, h *HouseholdJSON, res *SeedResult) error {
	if err := tx.SaveSettings(ctx, h.Settings); err != nil {
		return err
	}

	for _, sc := range h.Subcategories {
		id, err := tx.CreateSubcategory(ctx, budget.Subcategory{Name: sc.Name, Category: sc.Category})
		if err != nil {
			return fmt.Errorf("subcategory %q: %w", sc.Key, err)
		}
		res.Subcategories[sc.Key] = id
		for _, b := range sc.Budgets {
			m, _ := ParseMonth(b.Month)
			typ := budget.BudgetType(b.Type)
			if typ == "" {
				typ = budget.BudgetAllowance
			}
			if err := tx.SetBudget(ctx, budget.SubcategoryBudget{
				SubcategoryID: id, Year: m.Year, Month: m.Month, Amount: b.Amount, Type: typ,
			}); err != nil {
				return fmt.Errorf("budget %q %s: %w", sc.Key, b.Month, err)
			}
		}
	}

	for i, t := range h.Transactions {
		dir := budget.Direction(t.Direction)
		if dir == "" {
			dir = budget.Debit
		}
		txn := budget.Transaction{
			Date:          t.Date,
			Amount:        t.Amount,
			Direction:     dir,
			SubcategoryID: res.Subcategories[t.Subcategory],
			Description:   t.Description,
		}
		for _, s := range t.Splits {
			txn.Splits = append(txn.Splits, budget.SplitLine{SubcategoryID: res.Subcategories[s.Subcategory], Amount: s.Amount})
		}
		if _, err := tx.RecordTransaction(ctx, txn); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		res.Transactions++
	}

	for _, c := range h.Cashflows {
		if _, err := tx.CreateCashflow(ctx, budget.ScheduledCashflow{
			Kind:       budget.CashflowKind(c.Kind),
			Name:       c.Name,
			Amount:     c.Amount,
			DayOfMonth: c.DayOfMonth,
			ActiveFrom: c.ActiveFrom,
			ActiveTo:   c.ActiveTo,
			Active:     boolOr(c.Active, true),
		}); err != nil {
			return fmt.Errorf("cashflow %q: %w", c.Name, err)
		}
		res.Cashflows++
	}

	for _, a := range h.Accounts {
		accID, err := tx.CreateAccount(ctx, budget.SavingsAccount{Name: a.Name, Balance: a.Balance})
		if err != nil {
			return fmt.Errorf("account %q: %w", a.Name, err)
		}
		res.Accounts = append(res.Accounts, accID)
		for _, g := range a.Goals {
			prio := budget.Priority(g.Priority)
			if prio == "" {
				prio = budget.PriorityMedium
			}
			goalID, err := tx.CreateGoal(ctx, budget.SavingsGoal{
				AccountID:     accID,
				Name:          g.Name,
				TargetAmount:  g.Target,
				CurrentAmount: g.Current,
				TargetDate:    g.TargetDate,
				Priority:      prio,
				Active:        boolOr(g.Active, true),
			})
			if err != nil {
				return fmt.Errorf("goal %q: %w", g.Name, err)
			}
			res.Goals = append(res.Goals, goalID)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// ParseMonth parses a "YYYY-MM" fiscal month label.
func ParseMonth(s string) (budget.FiscalMonth, error) {
	var y, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%4d-%2d", &y, &m); err != nil {
		return budget.FiscalMonth{}, fmt.Errorf("month %q must be YYYY-MM", s)
	}
	return budget.NewFiscalMonth(y, m)
}

func invalid(field, msg string) error {
	return &budget.ValidationError{Field: field, Message: msg}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
