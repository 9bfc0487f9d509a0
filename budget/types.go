/*
Package budget provides the fiscal-period and month-end closing engine for a
household budget.

PURPOSE:
  A household defines its own "budget month" (e.g. the 25th to the 24th,
  shifted back to the previous workday around weekends and public holidays).
  This package resolves those periods, projects a 12-month cashflow against
  them and, once a period ends, atomically records what was spent and moves
  the leftover allowance budget into savings goals.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: decimal.Decimal, rounded to cents at every boundary
  - SubcategoryBudget: planned amount per (subcategory, year, month)
  - ScheduledCashflow: recurring bill or planned income on a day of month
  - SavingsAccount / SavingsGoal: targets that absorb the monthly surplus
  - MonthlyHistoryRecord: write-once result of closing one subcategory

DESIGN PRINCIPLES:
  1. Precision: money never touches float64
  2. Write-once history: a (year, month, subcategory) row is never rewritten
  3. Plan then apply: allocations are computed as immutable records first

SEE ALSO:
  - period.go: fiscal month resolution
  - forecast.go: cashflow projection
  - closing.go: month-end close
*/
package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// MoneyPlaces is the number of decimal places money is rounded to.
const MoneyPlaces = 2

// RoundMoney rounds half away from zero to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	SubcategoryID int64
	AccountID     int64
	GoalID        int64
	CashflowID    int64
	TransactionID int64
)

// =============================================================================
// BUDGETS & SPENDING
// =============================================================================

// BudgetType decides whether a subcategory's surplus is distributable.
type BudgetType string

const (
	// BudgetAllowance surplus is swept into savings goals at close.
	BudgetAllowance BudgetType = "allowance"
	// BudgetRolling surplus stays with the subcategory and is never distributed.
	BudgetRolling BudgetType = "rolling"
)

func (t BudgetType) Valid() bool { return t == BudgetAllowance || t == BudgetRolling }

// Subcategory is a leaf spending bucket (e.g. "Groceries" under "Food").
type Subcategory struct {
	ID       SubcategoryID `json:"id"`
	Name     string        `json:"name"`
	Category string        `json:"category,omitempty"`
}

// SubcategoryBudget is the planned amount for one subcategory in one fiscal
// month. Unique per (SubcategoryID, Year, Month).
type SubcategoryBudget struct {
	SubcategoryID SubcategoryID   `json:"subcategory_id"`
	Year          int             `json:"year"`
	Month         time.Month      `json:"month"`
	Amount        decimal.Decimal `json:"amount"`
	Type          BudgetType      `json:"type"`
}

// Direction of a money movement.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Transaction is a bank movement. When Splits is non-empty the transaction's
// own subcategory is ignored and each split line counts separately.
type Transaction struct {
	ID            TransactionID   `json:"id"`
	Date          Date            `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Direction     Direction       `json:"direction"`
	SubcategoryID SubcategoryID   `json:"subcategory_id,omitempty"`
	Description   string          `json:"description,omitempty"`
	Splits        []SplitLine     `json:"splits,omitempty"`
}

// SplitLine assigns part of a split transaction to a subcategory.
type SplitLine struct {
	SubcategoryID SubcategoryID   `json:"subcategory_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// SpendingAggregate maps subcategories to actual spend within a period.
// Missing keys mean zero.
type SpendingAggregate map[SubcategoryID]decimal.Decimal

// For returns the spend for id, zero when absent.
func (a SpendingAggregate) For(id SubcategoryID) decimal.Decimal {
	if v, ok := a[id]; ok {
		return v
	}
	return decimal.Zero
}

// =============================================================================
// SCHEDULED CASHFLOWS - Recurring bills and planned income
// =============================================================================

// CashflowKind distinguishes recurring bills from planned income.
type CashflowKind string

const (
	CashflowBill   CashflowKind = "bill"
	CashflowIncome CashflowKind = "income"
)

// ScheduledCashflow recurs monthly on DayOfMonth (1..31) while Active and
// within [ActiveFrom, ActiveTo]. Zero bounds are open.
type ScheduledCashflow struct {
	ID         CashflowID      `json:"id"`
	Kind       CashflowKind    `json:"kind"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	DayOfMonth int             `json:"day_of_month"`
	ActiveFrom Date            `json:"active_from"`
	ActiveTo   Date            `json:"active_to"`
	Active     bool            `json:"active"`
}

// ActiveOn reports whether the item is enabled and d lies in its window.
func (c ScheduledCashflow) ActiveOn(d Date) bool {
	if !c.Active {
		return false
	}
	if !c.ActiveFrom.IsZero() && d.Before(c.ActiveFrom) {
		return false
	}
	if !c.ActiveTo.IsZero() && d.After(c.ActiveTo) {
		return false
	}
	return true
}

// Signed returns the amount as a cashflow delta: income positive, bills negative.
func (c ScheduledCashflow) Signed() decimal.Decimal {
	if c.Kind == CashflowBill {
		return c.Amount.Neg()
	}
	return c.Amount
}

// =============================================================================
// SAVINGS
// =============================================================================

// Priority ranks goals that have not yet passed their target date.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// rank maps priority to the allocation order; overdue goals use rank 0.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// SavingsGoal is a target within a savings account.
type SavingsGoal struct {
	ID            GoalID          `json:"id"`
	AccountID     AccountID       `json:"account_id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	TargetDate    Date            `json:"target_date"`
	Priority      Priority        `json:"priority"`
	Active        bool            `json:"active"`
}

// Needed returns how much is missing to reach the target (never negative).
func (g SavingsGoal) Needed() decimal.Decimal {
	n := g.TargetAmount.Sub(g.CurrentAmount)
	if n.IsNegative() {
		return decimal.Zero
	}
	return n
}

// SavingsAccount holds a balance and the goals funded from it.
type SavingsAccount struct {
	ID      AccountID       `json:"id"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
	Goals   []SavingsGoal   `json:"goals,omitempty"`
}

// =============================================================================
// HISTORY
// =============================================================================

// MonthlyHistoryRecord is the frozen result of one subcategory for one fiscal
// month. Written at most once per (Year, Month, SubcategoryID).
type MonthlyHistoryRecord struct {
	Year           int             `json:"year"`
	Month          time.Month      `json:"month"`
	SubcategoryID  SubcategoryID   `json:"subcategory_id"`
	BudgetedAmount decimal.Decimal `json:"budgeted_amount"`
	ActualSpend    decimal.Decimal `json:"actual_spend"`
	BudgetType     BudgetType      `json:"budget_type"`
	FinalSurplus   decimal.Decimal `json:"final_surplus"`
	ClosedAt       time.Time       `json:"closed_at"`
}
