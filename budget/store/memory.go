// Package store provides an in-memory budget.TxStore for tests and demos.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type historyKey struct {
	Year          int
	Month         int
	SubcategoryID budget.SubcategoryID
}

type budgetKey struct {
	SubcategoryID budget.SubcategoryID
	Year          int
	Month         int
}

// data holds the full state. Its methods assume the caller holds the lock.
type data struct {
	settings      *budget.FiscalSettings
	holidays      map[string][]budget.Date
	subcategories map[budget.SubcategoryID]budget.Subcategory
	budgets       map[budgetKey]budget.SubcategoryBudget
	transactions  []budget.Transaction
	cashflows     []budget.ScheduledCashflow
	accounts      map[budget.AccountID]budget.SavingsAccount
	goals         map[budget.GoalID]budget.SavingsGoal
	history       map[historyKey]budget.MonthlyHistoryRecord
	runs          []budget.CloseRun
	nextID        int64
}

func newData() *data {
	return &data{
		holidays:      make(map[string][]budget.Date),
		subcategories: make(map[budget.SubcategoryID]budget.Subcategory),
		budgets:       make(map[budgetKey]budget.SubcategoryBudget),
		accounts:      make(map[budget.AccountID]budget.SavingsAccount),
		goals:         make(map[budget.GoalID]budget.SavingsGoal),
		history:       make(map[historyKey]budget.MonthlyHistoryRecord),
	}
}

func (d *data) clone() *data {
	c := newData()
	if d.settings != nil {
		s := *d.settings
		c.settings = &s
	}
	for k, v := range d.holidays {
		c.holidays[k] = append([]budget.Date{}, v...)
	}
	for k, v := range d.subcategories {
		c.subcategories[k] = v
	}
	for k, v := range d.budgets {
		c.budgets[k] = v
	}
	c.transactions = append(c.transactions, d.transactions...)
	c.cashflows = append(c.cashflows, d.cashflows...)
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.goals {
		c.goals[k] = v
	}
	for k, v := range d.history {
		c.history[k] = v
	}
	c.runs = append(c.runs, d.runs...)
	c.nextID = d.nextID
	return c
}

func (d *data) id() int64 {
	d.nextID++
	return d.nextID
}

// Memory is a budget.Store backed by maps.
type Memory struct {
	mu sync.RWMutex
	d  *data

	// failures lets tests make a named operation fail.
	failures map[string]error
}

func NewMemory() *Memory {
	return &Memory{d: newData(), failures: make(map[string]error)}
}

// FailOn makes every later call of op return err. A nil err clears it.
// op is the method name, e.g. "ApplyGoalDelta".
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *Memory) read(fn func(d *data) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(m.d)
}

func (m *Memory) write(fn func(d *data) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.d)
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(budget.Tx) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.d.clone()
	view := &txView{d: tm.d, failures: tm.failures}

	if err := fn(view); err != nil {
		tm.d = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		tm.d = snapshot
		return err
	}
	return nil
}

// txView runs operations against the locked state.
type txView struct {
	d        *data
	failures map[string]error
}

func (v *txView) fail(op string) error { return v.failures[op] }

// =============================================================================
// OPERATIONS (shared by Memory and txView)
// =============================================================================

func getSettings(d *data) (budget.FiscalSettings, error) {
	if d.settings == nil {
		return budget.FiscalSettings{}, budget.ErrNotFound
	}
	return *d.settings, nil
}

func saveSettings(d *data, s budget.FiscalSettings) error {
	if d.settings != nil {
		return budget.ErrSettingsImmutable
	}
	d.settings = &s
	return nil
}

func subcategories(d *data) []budget.Subcategory {
	out := make([]budget.Subcategory, 0, len(d.subcategories))
	for _, sc := range d.subcategories {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func budgetsForMonth(d *data, fm budget.FiscalMonth) map[budget.SubcategoryID]budget.SubcategoryBudget {
	out := make(map[budget.SubcategoryID]budget.SubcategoryBudget)
	for k, b := range d.budgets {
		if k.Year == fm.Year && k.Month == int(fm.Month) {
			out[k.SubcategoryID] = b
		}
	}
	return out
}

func spendBySubcategory(d *data, p budget.Period) budget.SpendingAggregate {
	agg := make(budget.SpendingAggregate)
	for _, t := range d.transactions {
		if t.Direction != budget.Debit || !p.Contains(t.Date) {
			continue
		}
		if len(t.Splits) > 0 {
			for _, s := range t.Splits {
				agg[s.SubcategoryID] = agg.For(s.SubcategoryID).Add(s.Amount)
			}
			continue
		}
		if t.SubcategoryID != 0 {
			agg[t.SubcategoryID] = agg.For(t.SubcategoryID).Add(t.Amount)
		}
	}
	return agg
}

func listAccounts(d *data) []budget.SavingsAccount {
	out := make([]budget.SavingsAccount, 0, len(d.accounts))
	for _, a := range d.accounts {
		a.Goals = nil
		for _, g := range d.goals {
			if g.AccountID == a.ID {
				a.Goals = append(a.Goals, g)
			}
		}
		sort.Slice(a.Goals, func(i, j int) bool { return a.Goals[i].ID < a.Goals[j].ID })
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func goal(d *data, id budget.GoalID) (budget.SavingsGoal, error) {
	g, ok := d.goals[id]
	if !ok {
		return budget.SavingsGoal{}, budget.ErrNotFound
	}
	return g, nil
}

func applyGoalDelta(d *data, id budget.GoalID, delta decimal.Decimal) error {
	g, ok := d.goals[id]
	if !ok {
		return budget.ErrNotFound
	}
	g.CurrentAmount = g.CurrentAmount.Add(delta)
	d.goals[id] = g
	return nil
}

func applyAccountDelta(d *data, id budget.AccountID, delta decimal.Decimal) error {
	a, ok := d.accounts[id]
	if !ok {
		return budget.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	d.accounts[id] = a
	return nil
}

func insertHistory(d *data, rec budget.MonthlyHistoryRecord) bool {
	k := historyKey{Year: rec.Year, Month: int(rec.Month), SubcategoryID: rec.SubcategoryID}
	if _, exists := d.history[k]; exists {
		return false
	}
	d.history[k] = rec
	return true
}

func historyForMonth(d *data, fm budget.FiscalMonth) []budget.MonthlyHistoryRecord {
	var out []budget.MonthlyHistoryRecord
	for k, rec := range d.history {
		if k.Year == fm.Year && k.Month == int(fm.Month) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubcategoryID < out[j].SubcategoryID })
	return out
}

func createSubcategory(d *data, sc budget.Subcategory) budget.SubcategoryID {
	if sc.ID == 0 {
		sc.ID = budget.SubcategoryID(d.id())
	}
	d.subcategories[sc.ID] = sc
	return sc.ID
}

func setBudget(d *data, b budget.SubcategoryBudget) error {
	if _, ok := d.subcategories[b.SubcategoryID]; !ok {
		return budget.ErrNotFound
	}
	d.budgets[budgetKey{SubcategoryID: b.SubcategoryID, Year: b.Year, Month: int(b.Month)}] = b
	return nil
}

func recordTransaction(d *data, t budget.Transaction) budget.TransactionID {
	if t.ID == 0 {
		t.ID = budget.TransactionID(d.id())
	}
	d.transactions = append(d.transactions, t)
	return t.ID
}

func createCashflow(d *data, c budget.ScheduledCashflow) budget.CashflowID {
	if c.ID == 0 {
		c.ID = budget.CashflowID(d.id())
	}
	d.cashflows = append(d.cashflows, c)
	return c.ID
}

func createAccount(d *data, a budget.SavingsAccount) budget.AccountID {
	if a.ID == 0 {
		a.ID = budget.AccountID(d.id())
	}
	a.Goals = nil
	d.accounts[a.ID] = a
	return a.ID
}

func createGoal(d *data, g budget.SavingsGoal) (budget.GoalID, error) {
	if _, ok := d.accounts[g.AccountID]; !ok {
		return 0, budget.ErrNotFound
	}
	if g.ID == 0 {
		g.ID = budget.GoalID(d.id())
	}
	d.goals[g.ID] = g
	return g.ID, nil
}

// =============================================================================
// Memory (locking wrappers)
// =============================================================================

func (m *Memory) GetSettings(_ context.Context) (s budget.FiscalSettings, err error) {
	err = m.read(func(d *data) error { s, err = getSettings(d); return err })
	return s, err
}

func (m *Memory) SaveSettings(_ context.Context, s budget.FiscalSettings) error {
	return m.write(func(d *data) error { return saveSettings(d, s) })
}

func (m *Memory) LoadHolidays(_ context.Context, jurisdiction string) (out []budget.Date, err error) {
	err = m.read(func(d *data) error {
		out = append([]budget.Date{}, d.holidays[jurisdiction]...)
		return nil
	})
	return out, err
}

func (m *Memory) ReplaceHolidays(_ context.Context, jurisdiction string, dates []budget.Date) error {
	return m.write(func(d *data) error {
		if err := m.failures["ReplaceHolidays"]; err != nil {
			return err
		}
		d.holidays[jurisdiction] = append([]budget.Date{}, dates...)
		return nil
	})
}

func (m *Memory) Subcategories(_ context.Context) (out []budget.Subcategory, err error) {
	err = m.read(func(d *data) error { out = subcategories(d); return nil })
	return out, err
}

func (m *Memory) BudgetsForMonth(_ context.Context, fm budget.FiscalMonth) (out map[budget.SubcategoryID]budget.SubcategoryBudget, err error) {
	err = m.read(func(d *data) error { out = budgetsForMonth(d, fm); return nil })
	return out, err
}

func (m *Memory) SpendBySubcategory(_ context.Context, p budget.Period) (out budget.SpendingAggregate, err error) {
	err = m.read(func(d *data) error { out = spendBySubcategory(d, p); return nil })
	return out, err
}

func (m *Memory) ListAccountsWithGoals(_ context.Context) (out []budget.SavingsAccount, err error) {
	err = m.read(func(d *data) error { out = listAccounts(d); return nil })
	return out, err
}

func (m *Memory) Goal(_ context.Context, id budget.GoalID) (g budget.SavingsGoal, err error) {
	err = m.read(func(d *data) error { g, err = goal(d, id); return err })
	return g, err
}

func (m *Memory) ApplyGoalDelta(_ context.Context, id budget.GoalID, delta decimal.Decimal) error {
	return m.write(func(d *data) error { return applyGoalDelta(d, id, delta) })
}

func (m *Memory) ApplyAccountDelta(_ context.Context, id budget.AccountID, delta decimal.Decimal) error {
	return m.write(func(d *data) error { return applyAccountDelta(d, id, delta) })
}

func (m *Memory) InsertHistoryIfAbsent(_ context.Context, rec budget.MonthlyHistoryRecord) (ok bool, err error) {
	err = m.write(func(d *data) error { ok = insertHistory(d, rec); return nil })
	return ok, err
}

func (m *Memory) HistoryForMonth(_ context.Context, fm budget.FiscalMonth) (out []budget.MonthlyHistoryRecord, err error) {
	err = m.read(func(d *data) error { out = historyForMonth(d, fm); return nil })
	return out, err
}

func (m *Memory) ScheduledCashflows(_ context.Context) (out []budget.ScheduledCashflow, err error) {
	err = m.read(func(d *data) error {
		out = append([]budget.ScheduledCashflow{}, d.cashflows...)
		return nil
	})
	return out, err
}

func (m *Memory) SaveCloseRun(_ context.Context, run budget.CloseRun) error {
	return m.write(func(d *data) error { d.runs = append(d.runs, run); return nil })
}

// ListCloseRuns returns the newest runs first.
func (m *Memory) ListCloseRuns(_ context.Context, limit int) (out []budget.CloseRun, err error) {
	err = m.read(func(d *data) error {
		for i := len(d.runs) - 1; i >= 0; i-- {
			if limit > 0 && len(out) >= limit {
				break
			}
			out = append(out, d.runs[i])
		}
		return nil
	})
	return out, err
}

func (m *Memory) LockPeriod(_ context.Context, _ budget.FiscalMonth) error { return nil }

func (m *Memory) CreateSubcategory(_ context.Context, sc budget.Subcategory) (id budget.SubcategoryID, err error) {
	err = m.write(func(d *data) error { id = createSubcategory(d, sc); return nil })
	return id, err
}

func (m *Memory) SetBudget(_ context.Context, b budget.SubcategoryBudget) error {
	return m.write(func(d *data) error { return setBudget(d, b) })
}

func (m *Memory) RecordTransaction(_ context.Context, t budget.Transaction) (id budget.TransactionID, err error) {
	err = m.write(func(d *data) error { id = recordTransaction(d, t); return nil })
	return id, err
}

func (m *Memory) CreateCashflow(_ context.Context, c budget.ScheduledCashflow) (id budget.CashflowID, err error) {
	err = m.write(func(d *data) error { id = createCashflow(d, c); return nil })
	return id, err
}

func (m *Memory) CreateAccount(_ context.Context, a budget.SavingsAccount) (id budget.AccountID, err error) {
	err = m.write(func(d *data) error { id = createAccount(d, a); return nil })
	return id, err
}

func (m *Memory) CreateGoal(_ context.Context, g budget.SavingsGoal) (id budget.GoalID, err error) {
	err = m.write(func(d *data) error { id, err = createGoal(d, g); return err })
	return id, err
}

// =============================================================================
// txView (lock already held by WithTx)
// =============================================================================

func (v *txView) GetSettings(_ context.Context) (budget.FiscalSettings, error) {
	return getSettings(v.d)
}

func (v *txView) SaveSettings(_ context.Context, s budget.FiscalSettings) error {
	return saveSettings(v.d, s)
}

func (v *txView) Subcategories(_ context.Context) ([]budget.Subcategory, error) {
	if err := v.fail("Subcategories"); err != nil {
		return nil, err
	}
	return subcategories(v.d), nil
}

func (v *txView) BudgetsForMonth(_ context.Context, fm budget.FiscalMonth) (map[budget.SubcategoryID]budget.SubcategoryBudget, error) {
	return budgetsForMonth(v.d, fm), nil
}

func (v *txView) SpendBySubcategory(_ context.Context, p budget.Period) (budget.SpendingAggregate, error) {
	if err := v.fail("SpendBySubcategory"); err != nil {
		return nil, err
	}
	return spendBySubcategory(v.d, p), nil
}

func (v *txView) ListAccountsWithGoals(_ context.Context) ([]budget.SavingsAccount, error) {
	return listAccounts(v.d), nil
}

func (v *txView) Goal(_ context.Context, id budget.GoalID) (budget.SavingsGoal, error) {
	return goal(v.d, id)
}

func (v *txView) ApplyGoalDelta(_ context.Context, id budget.GoalID, delta decimal.Decimal) error {
	if err := v.fail("ApplyGoalDelta"); err != nil {
		return err
	}
	return applyGoalDelta(v.d, id, delta)
}

func (v *txView) ApplyAccountDelta(_ context.Context, id budget.AccountID, delta decimal.Decimal) error {
	if err := v.fail("ApplyAccountDelta"); err != nil {
		return err
	}
	return applyAccountDelta(v.d, id, delta)
}

func (v *txView) InsertHistoryIfAbsent(_ context.Context, rec budget.MonthlyHistoryRecord) (bool, error) {
	if err := v.fail("InsertHistoryIfAbsent"); err != nil {
		return false, err
	}
	return insertHistory(v.d, rec), nil
}

func (v *txView) HistoryForMonth(_ context.Context, fm budget.FiscalMonth) ([]budget.MonthlyHistoryRecord, error) {
	return historyForMonth(v.d, fm), nil
}

func (v *txView) LockPeriod(_ context.Context, _ budget.FiscalMonth) error { return v.fail("LockPeriod") }

func (v *txView) CreateSubcategory(_ context.Context, sc budget.Subcategory) (budget.SubcategoryID, error) {
	return createSubcategory(v.d, sc), nil
}

func (v *txView) SetBudget(_ context.Context, b budget.SubcategoryBudget) error {
	return setBudget(v.d, b)
}

func (v *txView) RecordTransaction(_ context.Context, t budget.Transaction) (budget.TransactionID, error) {
	return recordTransaction(v.d, t), nil
}

func (v *txView) CreateCashflow(_ context.Context, c budget.ScheduledCashflow) (budget.CashflowID, error) {
	return createCashflow(v.d, c), nil
}

func (v *txView) CreateAccount(_ context.Context, a budget.SavingsAccount) (budget.AccountID, error) {
	return createAccount(v.d, a), nil
}

func (v *txView) CreateGoal(_ context.Context, g budget.SavingsGoal) (budget.GoalID, error) {
	return createGoal(v.d, g)
}

var (
	_ budget.TxStore = (*TxMemory)(nil)
	_ budget.Tx      = (*txView)(nil)
)
