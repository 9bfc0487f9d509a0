/*
store.go - Persistence interfaces consumed by the engine

PURPOSE:
  Defines the boundary between the budget logic and the database. The
  closing engine never touches a connection directly: it receives a Tx from
  TxStore.WithTx, and every read and write of one close goes through it.

KEY INTERFACES:
  SettingsStore:      fiscal settings (set once)
  HolidayStore:       holiday dates per jurisdiction (replaced wholesale)
  BudgetLedger:       subcategories and their monthly budgets
  SpendingAggregator: actual spend per subcategory within a period
  SavingsRegistry:    accounts, goals and balance deltas
  HistoryStore:       write-once monthly history
  Tx:                 everything the close needs inside one transaction
  TxStore:            Tx plus WithTx for atomic multi-table writes

IMPLEMENTATIONS:
  - budget/store/memory.go: in-memory, snapshot + rollback
  - store/sqlite: SQLite via mattn/go-sqlite3
  - store/postgres: PostgreSQL via lib/pq
*/
package budget

import (
	"context"

	"github.com/shopspring/decimal"
)

// SettingsStore persists the household's fiscal settings.
type SettingsStore interface {
	// GetSettings returns ErrNotFound when setup has not run.
	GetSettings(ctx context.Context) (FiscalSettings, error)

	// SaveSettings returns ErrSettingsImmutable when settings already exist.
	SaveSettings(ctx context.Context, s FiscalSettings) error
}

// HolidayStore persists holiday dates per jurisdiction.
type HolidayStore interface {
	// LoadHolidays returns an empty slice for an unknown jurisdiction.
	LoadHolidays(ctx context.Context, jurisdiction string) ([]Date, error)

	// ReplaceHolidays atomically swaps the jurisdiction's full set.
	ReplaceHolidays(ctx context.Context, jurisdiction string, dates []Date) error
}

// BudgetLedger reads subcategories and monthly budgets.
type BudgetLedger interface {
	Subcategories(ctx context.Context) ([]Subcategory, error)

	// BudgetsForMonth returns the budget rows of fiscal month m keyed by
	// subcategory. Subcategories without a row are absent.
	BudgetsForMonth(ctx context.Context, m FiscalMonth) (map[SubcategoryID]SubcategoryBudget, error)
}

// SpendingAggregator sums debit spend per subcategory within a period:
// non-split transactions by their own subcategory plus split lines.
type SpendingAggregator interface {
	SpendBySubcategory(ctx context.Context, p Period) (SpendingAggregate, error)
}

// SavingsRegistry reads and mutates savings accounts and goals.
type SavingsRegistry interface {
	// ListAccountsWithGoals returns accounts ordered by ID, each with its goals.
	ListAccountsWithGoals(ctx context.Context) ([]SavingsAccount, error)

	Goal(ctx context.Context, id GoalID) (SavingsGoal, error)

	// ApplyGoalDelta adds delta to the goal's current amount.
	ApplyGoalDelta(ctx context.Context, id GoalID, delta decimal.Decimal) error

	// ApplyAccountDelta adds delta to the account balance.
	ApplyAccountDelta(ctx context.Context, id AccountID, delta decimal.Decimal) error
}

// HistoryStore persists write-once monthly history.
type HistoryStore interface {
	// InsertHistoryIfAbsent writes rec unless a row for its
	// (year, month, subcategory) exists. Returns true if it wrote.
	InsertHistoryIfAbsent(ctx context.Context, rec MonthlyHistoryRecord) (bool, error)

	HistoryForMonth(ctx context.Context, m FiscalMonth) ([]MonthlyHistoryRecord, error)
}

// CashflowSource lists recurring bills and planned income.
type CashflowSource interface {
	ScheduledCashflows(ctx context.Context) ([]ScheduledCashflow, error)
}

// CloseRunRecorder keeps the audit trail of close attempts.
type CloseRunRecorder interface {
	SaveCloseRun(ctx context.Context, run CloseRun) error
	ListCloseRuns(ctx context.Context, limit int) ([]CloseRun, error)
}

// Seeder creates household data. Used by scenarios and the seed command.
// Returned IDs are the ones assigned by the store.
type Seeder interface {
	CreateSubcategory(ctx context.Context, sc Subcategory) (SubcategoryID, error)
	SetBudget(ctx context.Context, b SubcategoryBudget) error
	RecordTransaction(ctx context.Context, t Transaction) (TransactionID, error)
	CreateCashflow(ctx context.Context, c ScheduledCashflow) (CashflowID, error)
	CreateAccount(ctx context.Context, a SavingsAccount) (AccountID, error)
	CreateGoal(ctx context.Context, g SavingsGoal) (GoalID, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// Tx is the view of the store available inside one atomic unit of work.
type Tx interface {
	SettingsStore
	BudgetLedger
	SpendingAggregator
	SavingsRegistry
	HistoryStore
	Seeder

	// LockPeriod gives the caller exclusive write access to fiscal month m
	// until the transaction ends.
	LockPeriod(ctx context.Context, m FiscalMonth) error
}

// Store is the full persistence surface.
type Store interface {
	Tx
	HolidayStore
	CashflowSource
	CloseRunRecorder
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Tx) error) error
}
