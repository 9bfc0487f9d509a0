/*
Package sqlstore implements budget.TxStore on database/sql.

PURPOSE:
  Holds every query the engine needs, written once in SQLite-flavoured SQL
  with "?" placeholders. A Dialect adapts placeholders, transaction options
  and period locking for each backend:

    store/sqlite:   mattn/go-sqlite3, BEGIN IMMEDIATE, one writer
    store/postgres: lib/pq, SERIALIZABLE + pg_advisory_xact_lock

STORAGE FORMAT:
  Money is stored as integer cents. Dates are ISO "YYYY-MM-DD" text and
  timestamps RFC 3339 text, so range predicates compare lexicographically
  on both backends.

CONCURRENCY:
  WithTx is the only write path of the closing engine. With Serialize set
  (SQLite) the store additionally holds a process mutex for the duration of
  a transaction.

SEE ALSO:
  - budget/store.go: interface definitions
  - budget/store/memory.go: in-memory implementation for testing
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
)

// Dialect captures the per-backend differences.
type Dialect struct {
	Name string

	// Numbered rewrites "?" placeholders to "$1", "$2", ...
	Numbered bool

	// TxOptions for WithTx; nil means driver defaults.
	TxOptions *sql.TxOptions

	// LockPeriodSQL takes one integer key; empty means the transaction
	// itself already serializes writers.
	LockPeriodSQL string

	// Serialize holds a process mutex around WithTx.
	Serialize bool
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements budget.TxStore.
type Store struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
	ops
}

// New wraps an open, migrated database.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, ops: ops{q: db, dialect: dialect}}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// =============================================================================
// TRANSACTIONAL STORE (budget.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(budget.Tx) error) error {
	if s.dialect.Serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	sqlTx, err := s.db.BeginTx(ctx, s.dialect.TxOptions)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&ops{q: sqlTx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ops runs every query against either the pool or an open transaction.
type ops struct {
	q       queryer
	dialect Dialect
}

func (o *ops) rebind(query string) string {
	if !o.dialect.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (o *ops) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return o.q.ExecContext(ctx, o.rebind(query), args...)
}

func (o *ops) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return o.q.QueryContext(ctx, o.rebind(query), args...)
}

func (o *ops) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return o.q.QueryRowContext(ctx, o.rebind(query), args...)
}

func (o *ops) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := o.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// =============================================================================
// SETTINGS & PERIOD LOCK
// =============================================================================

func (o *ops) GetSettings(ctx context.Context) (budget.FiscalSettings, error) {
	var s budget.FiscalSettings
	err := o.queryRow(ctx, `SELECT fiscal_day_start, jurisdiction FROM settings WHERE id = 1`).
		Scan(&s.FiscalDayStart, &s.Jurisdiction)
	if errors.Is(err, sql.ErrNoRows) {
		return budget.FiscalSettings{}, budget.ErrNotFound
	}
	if err != nil {
		return budget.FiscalSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return s, nil
}

func (o *ops) SaveSettings(ctx context.Context, s budget.FiscalSettings) error {
	res, err := o.exec(ctx, `
		INSERT INTO settings (id, fiscal_day_start, jurisdiction, created_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		s.FiscalDayStart, s.Jurisdiction, timestamp(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return budget.ErrSettingsImmutable
	}
	return nil
}

func (o *ops) LockPeriod(ctx context.Context, m budget.FiscalMonth) error {
	if o.dialect.LockPeriodSQL == "" {
		return nil
	}
	_, err := o.exec(ctx, o.dialect.LockPeriodSQL, int64(m.Year*100+int(m.Month)))
	return err
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (o *ops) LoadHolidays(ctx context.Context, jurisdiction string) ([]budget.Date, error) {
	rows, err := o.query(ctx, `SELECT day FROM holidays WHERE jurisdiction = ? ORDER BY day`, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	defer rows.Close()

	dates := []budget.Date{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		d, err := budget.ParseDate(s)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// ReplaceHolidays swaps the jurisdiction's full set. On the pool handle it
// opens its own transaction.
func (o *ops) ReplaceHolidays(ctx context.Context, jurisdiction string, dates []budget.Date) error {
	db, ok := o.q.(*sql.DB)
	if !ok {
		return replaceHolidays(ctx, o, jurisdiction, dates)
	}
	tx, err := db.BeginTx(ctx, o.dialect.TxOptions)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := replaceHolidays(ctx, &ops{q: tx, dialect: o.dialect}, jurisdiction, dates); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceHolidays(ctx context.Context, o *ops, jurisdiction string, dates []budget.Date) error {
	if _, err := o.exec(ctx, `DELETE FROM holidays WHERE jurisdiction = ?`, jurisdiction); err != nil {
		return fmt.Errorf("failed to clear holidays: %w", err)
	}
	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		if seen[d.String()] {
			continue
		}
		seen[d.String()] = true
		if _, err := o.exec(ctx, `INSERT INTO holidays (jurisdiction, day) VALUES (?, ?)`, jurisdiction, d.String()); err != nil {
			return fmt.Errorf("failed to insert holiday %s: %w", d, err)
		}
	}
	return nil
}

// =============================================================================
// BUDGET LEDGER & SPENDING
// =============================================================================

func (o *ops) Subcategories(ctx context.Context) ([]budget.Subcategory, error) {
	rows, err := o.query(ctx, `SELECT id, name, category FROM subcategories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	defer rows.Close()

	var out []budget.Subcategory
	for rows.Next() {
		var sc budget.Subcategory
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.Category); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (o *ops) BudgetsForMonth(ctx context.Context, m budget.FiscalMonth) (map[budget.SubcategoryID]budget.SubcategoryBudget, error) {
	rows, err := o.query(ctx, `
		SELECT subcategory_id, amount_cents, budget_type
		FROM budgets WHERE year = ? AND month = ?`, m.Year, int(m.Month))
	if err != nil {
		return nil, fmt.Errorf("failed to load budgets: %w", err)
	}
	defer rows.Close()

	out := make(map[budget.SubcategoryID]budget.SubcategoryBudget)
	for rows.Next() {
		b := budget.SubcategoryBudget{Year: m.Year, Month: m.Month}
		var cents int64
		var typ string
		if err := rows.Scan(&b.SubcategoryID, &cents, &typ); err != nil {
			return nil, err
		}
		b.Amount = fromCents(cents)
		b.Type = budget.BudgetType(typ)
		out[b.SubcategoryID] = b
	}
	return out, rows.Err()
}

func (o *ops) SpendBySubcategory(ctx context.Context, p budget.Period) (budget.SpendingAggregate, error) {
	rows, err := o.query(ctx, `
		SELECT subcategory_id, SUM(amount_cents) FROM (
			SELECT t.subcategory_id AS subcategory_id, t.amount_cents AS amount_cents
			FROM transactions t
			WHERE t.direction = 'debit' AND t.is_split = 0 AND t.subcategory_id IS NOT NULL
			  AND t.tx_date >= ? AND t.tx_date <= ?
			UNION ALL
			SELECT s.subcategory_id, s.amount_cents
			FROM split_lines s JOIN transactions t ON t.id = s.transaction_id
			WHERE t.direction = 'debit' AND t.tx_date >= ? AND t.tx_date <= ?
		) spend
		GROUP BY subcategory_id`,
		p.Start.String(), p.End.String(), p.Start.String(), p.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate spending: %w", err)
	}
	defer rows.Close()

	agg := make(budget.SpendingAggregate)
	for rows.Next() {
		var id budget.SubcategoryID
		var cents int64
		if err := rows.Scan(&id, &cents); err != nil {
			return nil, err
		}
		agg[id] = fromCents(cents)
	}
	return agg, rows.Err()
}

// =============================================================================
// SAVINGS
// =============================================================================

func (o *ops) ListAccountsWithGoals(ctx context.Context) ([]budget.SavingsAccount, error) {
	rows, err := o.query(ctx, `SELECT id, name, balance_cents FROM savings_accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	var accounts []budget.SavingsAccount
	index := make(map[budget.AccountID]int)
	for rows.Next() {
		var a budget.SavingsAccount
		var cents int64
		if err := rows.Scan(&a.ID, &a.Name, &cents); err != nil {
			rows.Close()
			return nil, err
		}
		a.Balance = fromCents(cents)
		index[a.ID] = len(accounts)
		accounts = append(accounts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	goals, err := o.goals(ctx, `ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for _, g := range goals {
		if i, ok := index[g.AccountID]; ok {
			accounts[i].Goals = append(accounts[i].Goals, g)
		}
	}
	return accounts, nil
}

func (o *ops) Goal(ctx context.Context, id budget.GoalID) (budget.SavingsGoal, error) {
	goals, err := o.goals(ctx, `WHERE id = ?`, id)
	if err != nil {
		return budget.SavingsGoal{}, err
	}
	if len(goals) == 0 {
		return budget.SavingsGoal{}, budget.ErrNotFound
	}
	return goals[0], nil
}

func (o *ops) goals(ctx context.Context, where string, args ...any) ([]budget.SavingsGoal, error) {
	rows, err := o.query(ctx, `
		SELECT id, account_id, name, target_cents, current_cents, target_date, priority, active
		FROM savings_goals `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}
	defer rows.Close()

	var out []budget.SavingsGoal
	for rows.Next() {
		var g budget.SavingsGoal
		var target, current int64
		var targetDate sql.NullString
		var priority string
		if err := rows.Scan(&g.ID, &g.AccountID, &g.Name, &target, &current, &targetDate, &priority, &g.Active); err != nil {
			return nil, err
		}
		g.TargetAmount = fromCents(target)
		g.CurrentAmount = fromCents(current)
		g.Priority = budget.Priority(priority)
		if targetDate.Valid {
			if g.TargetDate, err = budget.ParseDate(targetDate.String); err != nil {
				return nil, err
			}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (o *ops) ApplyGoalDelta(ctx context.Context, id budget.GoalID, delta decimal.Decimal) error {
	return o.applyDelta(ctx, `UPDATE savings_goals SET current_cents = current_cents + ? WHERE id = ?`, toCents(delta), int64(id))
}

func (o *ops) ApplyAccountDelta(ctx context.Context, id budget.AccountID, delta decimal.Decimal) error {
	return o.applyDelta(ctx, `UPDATE savings_accounts SET balance_cents = balance_cents + ? WHERE id = ?`, toCents(delta), int64(id))
}

func (o *ops) applyDelta(ctx context.Context, query string, cents, id int64) error {
	res, err := o.exec(ctx, query, cents, id)
	if err != nil {
		return fmt.Errorf("failed to apply delta: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return budget.ErrNotFound
	}
	return nil
}

// =============================================================================
// HISTORY
// =============================================================================

func (o *ops) InsertHistoryIfAbsent(ctx context.Context, rec budget.MonthlyHistoryRecord) (bool, error) {
	res, err := o.exec(ctx, `
		INSERT INTO monthly_history
		(year, month, subcategory_id, budgeted_cents, actual_cents, budget_type, surplus_cents, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (year, month, subcategory_id) DO NOTHING`,
		rec.Year, int(rec.Month), int64(rec.SubcategoryID),
		toCents(rec.BudgetedAmount), toCents(rec.ActualSpend), string(rec.BudgetType),
		toCents(rec.FinalSurplus), timestamp(rec.ClosedAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (o *ops) HistoryForMonth(ctx context.Context, m budget.FiscalMonth) ([]budget.MonthlyHistoryRecord, error) {
	rows, err := o.query(ctx, `
		SELECT subcategory_id, budgeted_cents, actual_cents, budget_type, surplus_cents, closed_at
		FROM monthly_history WHERE year = ? AND month = ? ORDER BY subcategory_id`, m.Year, int(m.Month))
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var out []budget.MonthlyHistoryRecord
	for rows.Next() {
		rec := budget.MonthlyHistoryRecord{Year: m.Year, Month: m.Month}
		var budgeted, actual, surplus int64
		var typ, closedAt string
		if err := rows.Scan(&rec.SubcategoryID, &budgeted, &actual, &typ, &surplus, &closedAt); err != nil {
			return nil, err
		}
		rec.BudgetedAmount = fromCents(budgeted)
		rec.ActualSpend = fromCents(actual)
		rec.FinalSurplus = fromCents(surplus)
		rec.BudgetType = budget.BudgetType(typ)
		rec.ClosedAt, _ = time.Parse(time.RFC3339, closedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// =============================================================================
// CASHFLOWS & CLOSE RUNS
// =============================================================================

func (o *ops) ScheduledCashflows(ctx context.Context) ([]budget.ScheduledCashflow, error) {
	rows, err := o.query(ctx, `
		SELECT id, kind, name, amount_cents, day_of_month, active_from, active_to, active
		FROM scheduled_cashflows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cashflows: %w", err)
	}
	defer rows.Close()

	var out []budget.ScheduledCashflow
	for rows.Next() {
		var c budget.ScheduledCashflow
		var kind string
		var cents int64
		var from, to sql.NullString
		if err := rows.Scan(&c.ID, &kind, &c.Name, &cents, &c.DayOfMonth, &from, &to, &c.Active); err != nil {
			return nil, err
		}
		c.Kind = budget.CashflowKind(kind)
		c.Amount = fromCents(cents)
		if c.ActiveFrom, err = parseNullDate(from); err != nil {
			return nil, err
		}
		if c.ActiveTo, err = parseNullDate(to); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (o *ops) SaveCloseRun(ctx context.Context, r budget.CloseRun) error {
	_, err := o.exec(ctx, `
		INSERT INTO close_runs
		(id, year, month, outcome, newly_closed, surplus_cents, allocated_cents, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Year, int(r.Month), string(r.Outcome), r.NewlyClosed,
		toCents(r.Surplus), toCents(r.Allocated), r.Error,
		timestamp(r.StartedAt), timestamp(r.FinishedAt))
	if err != nil {
		return fmt.Errorf("failed to save close run: %w", err)
	}
	return nil
}

// ListCloseRuns returns the newest runs first.
func (o *ops) ListCloseRuns(ctx context.Context, limit int) ([]budget.CloseRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := o.query(ctx, `
		SELECT id, year, month, outcome, newly_closed, surplus_cents, allocated_cents, error, started_at, finished_at
		FROM close_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list close runs: %w", err)
	}
	defer rows.Close()

	var out []budget.CloseRun
	for rows.Next() {
		var r budget.CloseRun
		var month int
		var outcome, startedAt, finishedAt string
		var surplus, allocated int64
		if err := rows.Scan(&r.ID, &r.Year, &month, &outcome, &r.NewlyClosed, &surplus, &allocated,
			&r.Error, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		r.Month = time.Month(month)
		r.Outcome = budget.CloseOutcome(outcome)
		r.Surplus = fromCents(surplus)
		r.Allocated = fromCents(allocated)
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// SEEDER
// =============================================================================

func (o *ops) CreateSubcategory(ctx context.Context, sc budget.Subcategory) (budget.SubcategoryID, error) {
	id, err := o.insertID(ctx, `INSERT INTO subcategories (name, category) VALUES (?, ?)`, sc.Name, sc.Category)
	if err != nil {
		return 0, fmt.Errorf("failed to create subcategory: %w", err)
	}
	return budget.SubcategoryID(id), nil
}

func (o *ops) SetBudget(ctx context.Context, b budget.SubcategoryBudget) error {
	typ := b.Type
	if typ == "" {
		typ = budget.BudgetAllowance
	}
	_, err := o.exec(ctx, `
		INSERT INTO budgets (subcategory_id, year, month, amount_cents, budget_type)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (subcategory_id, year, month) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			budget_type = excluded.budget_type`,
		int64(b.SubcategoryID), b.Year, int(b.Month), toCents(b.Amount), string(typ))
	if err != nil {
		if isForeignKeyError(err) {
			return budget.ErrNotFound
		}
		return fmt.Errorf("failed to set budget: %w", err)
	}
	return nil
}

func (o *ops) RecordTransaction(ctx context.Context, t budget.Transaction) (budget.TransactionID, error) {
	var sub any
	if t.SubcategoryID != 0 && len(t.Splits) == 0 {
		sub = int64(t.SubcategoryID)
	}
	isSplit := 0
	if len(t.Splits) > 0 {
		isSplit = 1
	}
	id, err := o.insertID(ctx, `
		INSERT INTO transactions (tx_date, amount_cents, direction, subcategory_id, description, is_split)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.Date.String(), toCents(t.Amount), string(t.Direction), sub, t.Description, isSplit)
	if err != nil {
		return 0, fmt.Errorf("failed to record transaction: %w", err)
	}
	for _, s := range t.Splits {
		if _, err := o.exec(ctx, `
			INSERT INTO split_lines (transaction_id, subcategory_id, amount_cents) VALUES (?, ?, ?)`,
			id, int64(s.SubcategoryID), toCents(s.Amount)); err != nil {
			return 0, fmt.Errorf("failed to record split line: %w", err)
		}
	}
	return budget.TransactionID(id), nil
}

func (o *ops) CreateCashflow(ctx context.Context, c budget.ScheduledCashflow) (budget.CashflowID, error) {
	id, err := o.insertID(ctx, `
		INSERT INTO scheduled_cashflows (kind, name, amount_cents, day_of_month, active_from, active_to, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(c.Kind), c.Name, toCents(c.Amount), c.DayOfMonth,
		nullDate(c.ActiveFrom), nullDate(c.ActiveTo), c.Active)
	if err != nil {
		return 0, fmt.Errorf("failed to create cashflow: %w", err)
	}
	return budget.CashflowID(id), nil
}

func (o *ops) CreateAccount(ctx context.Context, a budget.SavingsAccount) (budget.AccountID, error) {
	id, err := o.insertID(ctx, `INSERT INTO savings_accounts (name, balance_cents) VALUES (?, ?)`, a.Name, toCents(a.Balance))
	if err != nil {
		return 0, fmt.Errorf("failed to create account: %w", err)
	}
	return budget.AccountID(id), nil
}

func (o *ops) CreateGoal(ctx context.Context, g budget.SavingsGoal) (budget.GoalID, error) {
	id, err := o.insertID(ctx, `
		INSERT INTO savings_goals (account_id, name, target_cents, current_cents, target_date, priority, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(g.AccountID), g.Name, toCents(g.TargetAmount), toCents(g.CurrentAmount),
		nullDate(g.TargetDate), string(g.Priority), g.Active)
	if err != nil {
		if isForeignKeyError(err) {
			return 0, budget.ErrNotFound
		}
		return 0, fmt.Errorf("failed to create goal: %w", err)
	}
	return budget.GoalID(id), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func toCents(d decimal.Decimal) int64 {
	return d.Shift(budget.MoneyPlaces).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -budget.MoneyPlaces)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullDate(d budget.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (budget.Date, error) {
	if !s.Valid || s.String == "" {
		return budget.Date{}, nil
	}
	return budget.ParseDate(s.String)
}

func isForeignKeyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "violates foreign key constraint")
}

var (
	_ budget.TxStore = (*Store)(nil)
	_ budget.Tx      = (*ops)(nil)
)
