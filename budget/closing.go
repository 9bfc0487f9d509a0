/*
closing.go - Month-end close (EOM) of a fiscal month

PURPOSE:
  Freezes what each subcategory spent during a fiscal month into write-once
  history, then distributes the positive allowance surplus into savings
  goals (allocation.go) and deposits any remainder into a fallback account.

ATOMICITY:
  Steps 2-8 run inside one TxStore.WithTx call. Any failure rolls back
  every history row, goal delta and account delta of the run. The step
  list in CloseResult is reporting only; there is one physical transaction.

STEPS:
  1. resolve_period      fiscal range of (year, month), then the period lock
  2. aggregate_spending  budgets + actual spend per subcategory
  3. record_history      insert-if-absent per subcategory
  4. compute_surplus     Σ positive allowance surplus (rolling excluded)
  5. rank_goals          eligible goals in allocation order
  6. allocate_goals      greedy plan applied as deltas
  7. deposit_remainder   leftover to the lowest-ID account
  8. finalize            summary

RE-RUNS:
  When every subcategory already has history the run is a no-op. When at
  least one subcategory is newly closed the whole surplus is redistributed
  again, including subcategories closed by an earlier run, unless
  ClosingOptions.DistributeNewlyClosedOnly is set.

Settings are immutable and holidays change only by wholesale refresh, so
the period is resolved before the transaction opens.
*/
package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultOverdueGraceDays is how long a period may stay open after its end
// before the close counts as overdue.
const DefaultOverdueGraceDays = 5

// StepName labels one reported closing step.
type StepName string

const (
	StepResolvePeriod     StepName = "resolve_period"
	StepAggregateSpending StepName = "aggregate_spending"
	StepRecordHistory     StepName = "record_history"
	StepComputeSurplus    StepName = "compute_surplus"
	StepRankGoals         StepName = "rank_goals"
	StepAllocateGoals     StepName = "allocate_goals"
	StepDepositRemainder  StepName = "deposit_remainder"
	StepFinalize          StepName = "finalize"
)

// ClosingSteps lists the steps in execution order. resolve_period succeeds
// only once the period is both resolved and locked for this transaction.
var ClosingSteps = []StepName{
	StepResolvePeriod,
	StepAggregateSpending,
	StepRecordHistory,
	StepComputeSurplus,
	StepRankGoals,
	StepAllocateGoals,
	StepDepositRemainder,
	StepFinalize,
}

// StepResult reports one step.
type StepResult struct {
	Name    StepName `json:"name"`
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// CloseOutcome summarizes what a run did.
type CloseOutcome string

const (
	OutcomeClosed              CloseOutcome = "closed"
	OutcomeNothingToDistribute CloseOutcome = "nothing_to_distribute"
	OutcomeAlreadyClosed       CloseOutcome = "already_closed"
	OutcomeFailed              CloseOutcome = "failed"
)

// CloseResult is returned by every Run, successful or not.
type CloseResult struct {
	RunID       string                 `json:"run_id"`
	Month       FiscalMonth            `json:"month"`
	Period      Period                 `json:"period"`
	Success     bool                   `json:"success"`
	Outcome     CloseOutcome           `json:"outcome"`
	Steps       []StepResult           `json:"steps"`
	History     []MonthlyHistoryRecord `json:"history,omitempty"`
	NewlyClosed []SubcategoryID        `json:"newly_closed,omitempty"`
	Surplus     decimal.Decimal        `json:"surplus"`
	Plan        *AllocationPlan        `json:"plan,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

func (r *CloseResult) ok(name StepName, data any) {
	r.Steps = append(r.Steps, StepResult{Name: name, Success: true, Data: data})
}

func (r *CloseResult) failed(name StepName, err error) {
	r.Steps = append(r.Steps, StepResult{Name: name, Success: false, Error: err.Error()})
}

// CloseRun is the audit record of one Run call.
type CloseRun struct {
	ID          string          `json:"id"`
	Year        int             `json:"year"`
	Month       time.Month      `json:"month"`
	Outcome     CloseOutcome    `json:"outcome"`
	NewlyClosed int             `json:"newly_closed"`
	Surplus     decimal.Decimal `json:"surplus"`
	Allocated   decimal.Decimal `json:"allocated"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Error       string          `json:"error,omitempty"`
}

// PeriodClosedEvent is published after a close commits.
type PeriodClosedEvent struct {
	RunID     string          `json:"run_id"`
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Start     string          `json:"start"`
	End       string          `json:"end"`
	Outcome   CloseOutcome    `json:"outcome"`
	Surplus   decimal.Decimal `json:"surplus"`
	Allocated decimal.Decimal `json:"allocated"`
	Fallback  decimal.Decimal `json:"fallback"`
	ClosedAt  time.Time       `json:"closed_at"`
}

// EventPublisher receives committed closes. Failures are logged, never
// propagated: the close is already durable.
type EventPublisher interface {
	PublishPeriodClosed(ctx context.Context, ev PeriodClosedEvent) error
}

// ClosingOptions tunes the engine. The zero value is usable.
type ClosingOptions struct {
	// Timeout bounds one Run. Zero means no bound beyond ctx.
	Timeout time.Duration

	// OverdueGraceDays defaults to DefaultOverdueGraceDays when zero.
	OverdueGraceDays int

	// DistributeNewlyClosedOnly limits the surplus of a re-run to
	// subcategories closed by that run.
	DistributeNewlyClosedOnly bool
}

// ClosingEngine runs and reports month-end closes.
type ClosingEngine struct {
	store     TxStore
	resolver  *FiscalResolver
	publisher EventPublisher
	logger    *slog.Logger
	opts      ClosingOptions
}

// NewClosingEngine wires an engine. publisher and logger may be nil.
func NewClosingEngine(store TxStore, resolver *FiscalResolver, publisher EventPublisher, logger *slog.Logger, opts ClosingOptions) *ClosingEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.OverdueGraceDays <= 0 {
		opts.OverdueGraceDays = DefaultOverdueGraceDays
	}
	return &ClosingEngine{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
	}
}

// Options returns the effective options.
func (e *ClosingEngine) Options() ClosingOptions { return e.opts }

// =============================================================================
// RUN
// =============================================================================

// stepError tags an error with the step that produced it.
type stepError struct {
	step StepName
	err  error
}

func (e *stepError) Error() string { return fmt.Sprintf("%s: %v", e.step, e.err) }
func (e *stepError) Unwrap() error { return e.err }

// Run closes fiscal month m. The returned result is complete on both
// success and failure; on failure nothing was written.
func (e *ClosingEngine) Run(ctx context.Context, m FiscalMonth) (*CloseResult, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	result := &CloseResult{RunID: uuid.NewString(), Month: m, Surplus: decimal.Zero}
	startedAt := time.Now().UTC()
	log := e.logger.With("run_id", result.RunID, "year", m.Year, "month", int(m.Month))

	err := e.run(ctx, m, result)
	if err != nil {
		result.Success = false
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		err = classifyCloseError(err)
		log.Error("close failed", "error", err)
	} else {
		result.Success = true
		log.Info("close finished",
			"outcome", result.Outcome,
			"newly_closed", len(result.NewlyClosed),
			"surplus", result.Surplus.StringFixed(MoneyPlaces))
	}

	e.recordRun(ctx, result, startedAt, log)
	if err == nil && result.Outcome != OutcomeAlreadyClosed {
		e.publish(ctx, result, log)
	}
	return result, err
}

func (e *ClosingEngine) run(ctx context.Context, m FiscalMonth, result *CloseResult) error {
	period, err := e.resolver.Range(ctx, m)
	if err != nil {
		result.failed(StepResolvePeriod, err)
		return &stepError{step: StepResolvePeriod, err: err}
	}
	result.Period = period
	today := e.resolver.Today()

	// Steps are recorded into a scratch result so a rollback leaves the
	// caller with the failing step but no half-applied data.
	var committed CloseResult
	err = e.store.WithTx(ctx, func(tx Tx) error {
		committed = CloseResult{Surplus: decimal.Zero}
		return e.closeInTx(ctx, tx, m, period, today, &committed)
	})
	result.Steps = append(result.Steps, committed.Steps...)
	if err != nil {
		return err
	}
	result.Outcome = committed.Outcome
	result.History = committed.History
	result.NewlyClosed = committed.NewlyClosed
	result.Surplus = committed.Surplus
	result.Plan = committed.Plan
	return nil
}

func (e *ClosingEngine) closeInTx(ctx context.Context, tx Tx, m FiscalMonth, period Period, today Date, r *CloseResult) error {
	fail := func(step StepName, err error) error {
		r.failed(step, err)
		return &stepError{step: step, err: err}
	}

	if err := tx.LockPeriod(ctx, m); err != nil {
		return fail(StepResolvePeriod, fmt.Errorf("lock period %s: %w", m, err))
	}
	r.ok(StepResolvePeriod, period)

	// Step 2: budgets and actual spend.
	subs, err := tx.Subcategories(ctx)
	if err != nil {
		return fail(StepAggregateSpending, err)
	}
	budgets, err := tx.BudgetsForMonth(ctx, m)
	if err != nil {
		return fail(StepAggregateSpending, err)
	}
	spend, err := tx.SpendBySubcategory(ctx, period)
	if err != nil {
		return fail(StepAggregateSpending, err)
	}
	r.ok(StepAggregateSpending, map[string]any{"subcategories": len(subs), "budgets": len(budgets)})

	// Step 3: write-once history.
	closedAt := time.Now().UTC()
	newly := make(map[SubcategoryID]bool)
	for _, sc := range subs {
		b, ok := budgets[sc.ID]
		if !ok {
			b = SubcategoryBudget{SubcategoryID: sc.ID, Year: m.Year, Month: m.Month, Amount: decimal.Zero, Type: BudgetAllowance}
		}
		actual := RoundMoney(spend.For(sc.ID))
		rec := MonthlyHistoryRecord{
			Year:           m.Year,
			Month:          m.Month,
			SubcategoryID:  sc.ID,
			BudgetedAmount: RoundMoney(b.Amount),
			ActualSpend:    actual,
			BudgetType:     b.Type,
			FinalSurplus:   RoundMoney(b.Amount.Sub(actual)),
			ClosedAt:       closedAt,
		}
		inserted, err := tx.InsertHistoryIfAbsent(ctx, rec)
		if err != nil {
			return fail(StepRecordHistory, fmt.Errorf("subcategory %d: %w", sc.ID, err))
		}
		if inserted {
			newly[sc.ID] = true
			r.NewlyClosed = append(r.NewlyClosed, sc.ID)
		}
		r.History = append(r.History, rec)
	}
	r.ok(StepRecordHistory, map[string]any{"records": len(r.History), "newly_closed": len(r.NewlyClosed)})

	if len(r.NewlyClosed) == 0 {
		r.Outcome = OutcomeAlreadyClosed
		r.ok(StepFinalize, "period already closed")
		return nil
	}

	// Step 4: distributable surplus.
	total := decimal.Zero
	for _, rec := range r.History {
		if rec.BudgetType != BudgetAllowance || !rec.FinalSurplus.IsPositive() {
			continue
		}
		if e.opts.DistributeNewlyClosedOnly && !newly[rec.SubcategoryID] {
			continue
		}
		total = total.Add(rec.FinalSurplus)
	}
	r.Surplus = total
	r.ok(StepComputeSurplus, map[string]any{"surplus": total.StringFixed(MoneyPlaces)})

	if !total.IsPositive() {
		r.Outcome = OutcomeNothingToDistribute
		r.ok(StepFinalize, "nothing to distribute")
		return nil
	}

	// Step 5: rank.
	accounts, err := tx.ListAccountsWithGoals(ctx)
	if err != nil {
		return fail(StepRankGoals, err)
	}
	r.ok(StepRankGoals, RankGoals(accounts, today))

	// Step 6: plan, then apply.
	plan := PlanAllocations(total, accounts, today)
	r.Plan = &plan
	for _, a := range plan.Allocations {
		if err := tx.ApplyGoalDelta(ctx, a.GoalID, a.Amount); err != nil {
			return fail(StepAllocateGoals, fmt.Errorf("goal %d: %w", a.GoalID, err))
		}
		if err := tx.ApplyAccountDelta(ctx, a.AccountID, a.Amount); err != nil {
			return fail(StepAllocateGoals, fmt.Errorf("account %d: %w", a.AccountID, err))
		}
	}
	r.ok(StepAllocateGoals, plan.Allocations)

	// Step 7: remainder.
	if plan.Fallback != nil {
		if err := tx.ApplyAccountDelta(ctx, plan.Fallback.AccountID, plan.Fallback.Amount); err != nil {
			return fail(StepDepositRemainder, fmt.Errorf("account %d: %w", plan.Fallback.AccountID, err))
		}
		r.ok(StepDepositRemainder, plan.Fallback)
	} else {
		r.ok(StepDepositRemainder, map[string]any{"undistributed": plan.Undistributed.StringFixed(MoneyPlaces)})
	}

	r.Outcome = OutcomeClosed
	r.ok(StepFinalize, map[string]any{
		"allocated": plan.Allocated().StringFixed(MoneyPlaces),
		"goals":     len(plan.Allocations),
	})
	return nil
}

// classifyCloseError keeps configuration and validation problems as they
// are and turns everything else into a TransactionFailure.
func classifyCloseError(err error) error {
	if IsConfigurationError(err) || errors.Is(err, ErrInvalidInput) {
		var se *stepError
		if errors.As(err, &se) {
			return se.err
		}
		return err
	}
	tf := &TransactionFailure{Op: "close", Err: err}
	var se *stepError
	if errors.As(err, &se) {
		tf.Step = string(se.step)
		tf.Err = se.err
	}
	return tf
}

func (e *ClosingEngine) recordRun(ctx context.Context, r *CloseResult, startedAt time.Time, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	run := CloseRun{
		ID:          r.RunID,
		Year:        r.Month.Year,
		Month:       r.Month.Month,
		Outcome:     r.Outcome,
		NewlyClosed: len(r.NewlyClosed),
		Surplus:     r.Surplus,
		Allocated:   decimal.Zero,
		StartedAt:   startedAt,
		FinishedAt:  time.Now().UTC(),
		Error:       r.Error,
	}
	if r.Plan != nil {
		run.Allocated = r.Plan.Allocated()
	}
	if err := e.store.SaveCloseRun(ctx, run); err != nil {
		log.Warn("failed to record close run", "error", err)
	}
}

func (e *ClosingEngine) publish(ctx context.Context, r *CloseResult, log *slog.Logger) {
	if e.publisher == nil {
		return
	}
	ev := PeriodClosedEvent{
		RunID:     r.RunID,
		Year:      r.Month.Year,
		Month:     int(r.Month.Month),
		Start:     r.Period.Start.String(),
		End:       r.Period.End.String(),
		Outcome:   r.Outcome,
		Surplus:   r.Surplus,
		Allocated: decimal.Zero,
		Fallback:  decimal.Zero,
		ClosedAt:  time.Now().UTC(),
	}
	if r.Plan != nil {
		ev.Allocated = r.Plan.Allocated()
		if r.Plan.Fallback != nil {
			ev.Fallback = r.Plan.Fallback.Amount
		}
	}
	if err := e.publisher.PublishPeriodClosed(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn("failed to publish period closed event", "error", err)
	}
}

// =============================================================================
// STATUS
// =============================================================================

// CloseStatus reports whether fiscal month m still needs closing.
type CloseStatus struct {
	Month               FiscalMonth     `json:"month"`
	Period              Period          `json:"period"`
	IsNeeded            bool            `json:"is_needed"`
	IsOverdue           bool            `json:"is_overdue"`
	IsClosed            bool            `json:"is_closed"`
	DaysPastEnd         int             `json:"days_past_end"`
	ClosedSubcategories []SubcategoryID `json:"closed_subcategories"`
	OpenSubcategories   []SubcategoryID `json:"open_subcategories"`
}

// Status is read-only. A close is needed once today is past the period end
// while at least one subcategory lacks history; it is overdue once more
// than the grace days have passed.
func (e *ClosingEngine) Status(ctx context.Context, m FiscalMonth) (*CloseStatus, error) {
	period, err := e.resolver.Range(ctx, m)
	if err != nil {
		return nil, err
	}
	subs, err := e.store.Subcategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	history, err := e.store.HistoryForMonth(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", m, err)
	}

	closed := make(map[SubcategoryID]bool, len(history))
	for _, h := range history {
		closed[h.SubcategoryID] = true
	}
	st := &CloseStatus{
		Month:               m,
		Period:              period,
		ClosedSubcategories: []SubcategoryID{},
		OpenSubcategories:   []SubcategoryID{},
	}
	for _, sc := range subs {
		if closed[sc.ID] {
			st.ClosedSubcategories = append(st.ClosedSubcategories, sc.ID)
		} else {
			st.OpenSubcategories = append(st.OpenSubcategories, sc.ID)
		}
	}

	today := e.resolver.Today()
	if today.After(period.End) {
		st.DaysPastEnd = DaysBetween(period.End, today)
	}
	st.IsClosed = len(subs) > 0 && len(st.OpenSubcategories) == 0
	st.IsNeeded = today.After(period.End) && len(st.OpenSubcategories) > 0
	st.IsOverdue = st.IsNeeded && st.DaysPastEnd > e.opts.OverdueGraceDays
	return st, nil
}

// LastEndedMonth returns the most recent fiscal month whose period has ended.
// The nominal current month may already be over when its end was pulled back
// onto an earlier workday.
func (e *ClosingEngine) LastEndedMonth(ctx context.Context) (FiscalMonth, error) {
	current, period, err := e.resolver.Current(ctx)
	if err != nil {
		return FiscalMonth{}, err
	}
	if e.resolver.Today().After(period.End) {
		return current, nil
	}
	return current.Prev(), nil
}
