/*
handlers_test.go - Tests for the HTTP API

Tests for:
- One-time setup and the not-configured precondition
- Period resolution endpoints
- Scenario loading followed by a full close through the API
- Withdrawals and error-to-status mapping
- Holiday refresh from a static source
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/budget/store"
	"github.com/warp/budget-engine/holidays"
)

var testNow = time.Date(2024, 8, 3, 9, 0, 0, 0, time.UTC)

type testAPI struct {
	handler *Handler
	router  http.Handler
	mem     *store.TxMemory
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mem := store.NewTxMemory()
	clock := func() time.Time { return testNow }
	source := holidays.StaticSource{
		"DE": {
			budget.NewDate(2024, time.October, 3),
			budget.NewDate(2024, time.December, 25),
			budget.NewDate(2025, time.January, 1),
			budget.NewDate(2027, time.January, 1),
		},
	}
	cal := budget.NewHolidayCalendar(mem, source, clock)
	resolver := budget.NewFiscalResolver(mem, cal, clock)
	closing := budget.NewClosingEngine(mem, resolver, nil, nil, budget.ClosingOptions{})
	forecast := budget.NewForecastEngine(resolver, mem, budget.RollOverflowIntoNextMonth)

	h := NewHandler(mem, resolver, cal, closing, forecast, nil)
	return &testAPI{handler: h, router: NewRouter(h, nil), mem: mem}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testAPI) loadScenario(t *testing.T, id string) LoadScenarioResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[LoadScenarioResponse](t, rec)
}

// =============================================================================
// SETTINGS & PERIODS
// =============================================================================

func TestSettings_SetupOnce(t *testing.T) {
	a := newTestAPI(t)

	// GIVEN: a fresh household
	rec := a.do(t, http.MethodGet, "/api/settings", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, CodeNotConfigured, decode[ErrorResponse](t, rec).Code)

	// WHEN: setting up twice
	first := a.do(t, http.MethodPost, "/api/settings", SettingsRequest{FiscalDayStart: 25, Jurisdiction: " de "})
	second := a.do(t, http.MethodPost, "/api/settings", SettingsRequest{FiscalDayStart: 1, Jurisdiction: "FR"})

	// THEN: the first wins and the second conflicts
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, CodeSettingsImmutable, decode[ErrorResponse](t, second).Code)

	got := decode[budget.FiscalSettings](t, a.do(t, http.MethodGet, "/api/settings", nil))
	assert.Equal(t, 25, got.FiscalDayStart)
	assert.Equal(t, "DE", got.Jurisdiction)
}

func TestSettings_InvalidFiscalDay(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/settings", SettingsRequest{FiscalDayStart: 29, Jurisdiction: "DE"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, CodeInvalidInput, resp.Code)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok, "details: %#v", resp.Details)
	assert.Equal(t, "fiscal_day_start", details["field"])
}

func TestPeriods(t *testing.T) {
	a := newTestAPI(t)
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/settings", SettingsRequest{FiscalDayStart: 25, Jurisdiction: "DE"}).Code)

	// GIVEN: today is 2024-08-03 and August 25 is a Sunday
	current := decode[PeriodDTO](t, a.do(t, http.MethodGet, "/api/periods/current", nil))
	assert.Equal(t, "2024-08", current.Label)
	assert.Equal(t, "2024-07-25", current.Start.String())
	assert.Equal(t, "2024-08-22", current.End.String())
	assert.True(t, current.IsCurrent)

	july := decode[PeriodDTO](t, a.do(t, http.MethodGet, "/api/periods/2024/7", nil))
	assert.Equal(t, "2024-06-25", july.Start.String())
	assert.Equal(t, "2024-07-24", july.End.String())
	assert.Equal(t, 30, july.LengthDays)
	assert.False(t, july.IsCurrent)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/periods/2024/13", nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/periods/x/7", nil).Code)
}

func TestPeriods_NotConfigured(t *testing.T) {
	a := newTestAPI(t)

	for _, path := range []string{"/api/periods/current", "/api/forecast", "/api/closing/2024/7/status"} {
		rec := a.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusPreconditionFailed, rec.Code, path)
	}
}

// =============================================================================
// CLOSING
// =============================================================================

func TestClose_ThroughAPI(t *testing.T) {
	a := newTestAPI(t)
	loaded := a.loadScenario(t, "salaried-household")
	assert.Equal(t, 4, loaded.Subcategories)
	assert.Equal(t, 3, loaded.Goals)

	// GIVEN: July ended on the 24th, ten days ago
	st := decode[budget.CloseStatus](t, a.do(t, http.MethodGet, "/api/closing/2024/7/status", nil))
	assert.True(t, st.IsNeeded)
	assert.True(t, st.IsOverdue)
	assert.Equal(t, 10, st.DaysPastEnd)
	assert.Len(t, st.OpenSubcategories, 4)

	// WHEN: closing July twice
	first := a.do(t, http.MethodPost, "/api/closing/2024/7/run", nil)
	second := a.do(t, http.MethodPost, "/api/closing/2024/7/run", nil)

	// THEN: the first distributes, the second is a no-op
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	res := decode[budget.CloseResult](t, first)
	assert.Equal(t, budget.OutcomeClosed, res.Outcome)
	assert.Equal(t, "110.00", res.Surplus.StringFixed(2))
	require.NotNil(t, res.Plan)
	assert.Len(t, res.Plan.Allocations, 2)

	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, budget.OutcomeAlreadyClosed, decode[budget.CloseResult](t, second).Outcome)

	st = decode[budget.CloseStatus](t, a.do(t, http.MethodGet, "/api/closing/2024/7/status", nil))
	assert.False(t, st.IsNeeded)
	assert.True(t, st.IsClosed)

	history := decode[HistoryResponse](t, a.do(t, http.MethodGet, "/api/history/2024/7", nil))
	assert.Len(t, history.Records, 4)
	assert.Equal(t, "110.00", history.Surplus.StringFixed(2))

	runs := decode[[]budget.CloseRun](t, a.do(t, http.MethodGet, "/api/closing/runs", nil))
	assert.Len(t, runs, 2)
	limited := decode[[]budget.CloseRun](t, a.do(t, http.MethodGet, "/api/closing/runs?limit=1", nil))
	assert.Len(t, limited, 1)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/closing/runs?limit=0", nil).Code)
}

func TestClose_RollbackReturnsSteps(t *testing.T) {
	a := newTestAPI(t)
	a.loadScenario(t, "salaried-household")

	// GIVEN: the goal write fails mid-close
	a.mem.FailOn("ApplyGoalDelta", errors.New("disk full"))

	// WHEN
	rec := a.do(t, http.MethodPost, "/api/closing/2024/7/run", nil)

	// THEN: 500 with the failed result, and nothing was frozen
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, CodeTransactionFailed, resp.Code)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(budget.OutcomeFailed), details["outcome"])

	history := decode[HistoryResponse](t, a.do(t, http.MethodGet, "/api/history/2024/7", nil))
	assert.Empty(t, history.Records)

	// AND: the close succeeds once the store recovers
	a.mem.FailOn("ApplyGoalDelta", nil)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/api/closing/2024/7/run", nil).Code)
}

func TestClose_GoalVanishedMidRunIsTransactionFailure(t *testing.T) {
	a := newTestAPI(t)
	a.loadScenario(t, "salaried-household")

	// GIVEN: a goal disappears between ranking and the goal write
	a.mem.FailOn("ApplyGoalDelta", budget.ErrNotFound)
	defer a.mem.FailOn("ApplyGoalDelta", nil)

	// WHEN
	rec := a.do(t, http.MethodPost, "/api/closing/2024/7/run", nil)

	// THEN: the close rolled back, it is not a missing resource
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeTransactionFailed, decode[ErrorResponse](t, rec).Code)

	history := decode[HistoryResponse](t, a.do(t, http.MethodGet, "/api/history/2024/7", nil))
	assert.Empty(t, history.Records)
}

// =============================================================================
// SAVINGS
// =============================================================================

func TestSavingsAndWithdraw(t *testing.T) {
	a := newTestAPI(t)
	a.loadScenario(t, "salaried-household")

	savings := decode[SavingsResponse](t, a.do(t, http.MethodGet, "/api/savings", nil))
	require.Len(t, savings.Accounts, 2)
	require.NotEmpty(t, savings.Ranking)
	assert.Equal(t, "Emergency fund", savings.Ranking[0].GoalName)

	goal := savings.Accounts[0].Goals[0]
	path := fmt.Sprintf("/api/goals/%d/withdraw", goal.ID)

	tests := []struct {
		name   string
		path   string
		amount string
		status int
		code   string
	}{
		{"ok", path, "100", http.StatusOK, ""},
		{"too much", path, "99999", http.StatusConflict, CodeInsufficientFunds},
		{"zero", path, "0", http.StatusBadRequest, CodeInvalidInput},
		{"unknown goal", "/api/goals/999/withdraw", "1", http.StatusNotFound, CodeNotFound},
		{"bad id", "/api/goals/abc/withdraw", "1", http.StatusBadRequest, CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, tt.path, map[string]string{"amount": tt.amount})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Code)
			}
		})
	}

	after := decode[SavingsResponse](t, a.do(t, http.MethodGet, "/api/savings", nil))
	assert.Equal(t, "2400.00", after.Accounts[0].Balance.StringFixed(2))
	assert.Equal(t, "2300.00", after.Accounts[0].Goals[0].CurrentAmount.StringFixed(2))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays_Refresh(t *testing.T) {
	a := newTestAPI(t)

	// GIVEN: no jurisdiction configured yet
	assert.Equal(t, http.StatusPreconditionFailed, a.do(t, http.MethodPost, "/api/holidays/refresh", nil).Code)
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/settings", SettingsRequest{FiscalDayStart: 25, Jurisdiction: "DE"}).Code)

	// WHEN: refreshing; 2027 is outside the three-year window
	rec := a.do(t, http.MethodPost, "/api/holidays/refresh", nil)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, decode[RefreshHolidaysResponse](t, rec).Stored)

	listed := decode[HolidaysDTO](t, a.do(t, http.MethodGet, "/api/holidays", nil))
	assert.Equal(t, "DE", listed.Jurisdiction)
	assert.Len(t, listed.Dates, 3)

	other := decode[HolidaysDTO](t, a.do(t, http.MethodGet, "/api/holidays?jurisdiction=fr", nil))
	assert.Equal(t, "FR", other.Jurisdiction)
	assert.Empty(t, other.Dates)
}

// =============================================================================
// SCENARIOS & FORECAST
// =============================================================================

func TestScenarios(t *testing.T) {
	a := newTestAPI(t)

	list := decode[[]ScenarioDTO](t, a.do(t, http.MethodGet, "/api/scenarios", nil))
	assert.Len(t, list, 4)

	rec := a.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	a.loadScenario(t, "no-goals")
	current := decode[ScenarioDTO](t, a.do(t, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "no-goals", current.ID)

	// settings are write-once, so a second scenario is refused
	rec = a.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "overdue-goal"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestForecast(t *testing.T) {
	a := newTestAPI(t)
	a.loadScenario(t, "salaried-household")

	rec := a.do(t, http.MethodGet, "/api/forecast", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	f := decode[budget.Forecast](t, rec)
	assert.Equal(t, "2024-08-03", f.From.String())
	assert.NotEmpty(t, f.Days)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&budget.ConfigurationError{Setting: "fiscal_day_start", Err: budget.ErrNotConfigured}, http.StatusPreconditionFailed},
		{&budget.ConfigurationError{Setting: "fiscal_day_start", Err: &budget.ValidationError{Field: "fiscal_day_start"}}, http.StatusPreconditionFailed},
		{budget.ErrSettingsImmutable, http.StatusConflict},
		{&budget.InsufficientFundsError{GoalID: 1}, http.StatusConflict},
		{&budget.ValidationError{Field: "month"}, http.StatusBadRequest},
		{fmt.Errorf("goal 3: %w", budget.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: DE 2024", budget.ErrHolidaySource), http.StatusBadGateway},
		{&budget.TransactionFailure{Op: "close", Err: errors.New("locked")}, http.StatusInternalServerError},
		{&budget.TransactionFailure{Op: "close", Step: "allocate_goals", Err: budget.ErrNotFound}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := statusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}
