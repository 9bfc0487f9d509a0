/*
handlers.go - HTTP API handlers for the budget engine

PURPOSE:
  Exposes fiscal periods, the month-end close, the cashflow forecast and
  savings goals via REST. Handlers parse the request, delegate to the
  budget package and serialize the result.

ENDPOINTS:
  Settings:
    GET    /api/settings                       Current fiscal settings
    POST   /api/settings                       One-time setup

  Periods:
    GET    /api/periods/current                Fiscal month containing today
    GET    /api/periods/{year}/{month}         Range of any fiscal month

  Forecast:
    GET    /api/forecast                       12-month cashflow projection

  Holidays:
    GET    /api/holidays                       Stored holidays (?jurisdiction=)
    POST   /api/holidays/refresh               Re-fetch from the provider

  Closing:
    GET    /api/closing/{year}/{month}/status  Is a close needed / overdue
    POST   /api/closing/{year}/{month}/run     Run the close
    GET    /api/closing/runs                   Audit trail (?limit=)

  History & savings:
    GET    /api/history/{year}/{month}         Frozen monthly history
    GET    /api/savings                        Accounts, goals, funding order
    POST   /api/goals/{id}/withdraw            Take money out of a goal

  Scenarios:
    GET    /api/scenarios                      List demo households
    GET    /api/scenarios/current              Loaded scenario, if any
    POST   /api/scenarios/load                 Seed a demo household

ERROR HANDLING:
  Errors are returned as ErrorResponse with a status derived from the
  budget error category:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Settings already configured, insufficient funds
  - 412: Fiscal settings not configured yet
  - 502: Holiday provider unavailable
  - 500: Rolled-back transactions and internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario handlers
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/factory"
	"github.com/warp/budget-engine/logging"
)

// DefaultRunsLimit bounds GET /api/closing/runs when no limit is given.
const DefaultRunsLimit = 20

// Handler holds the API dependencies.
type Handler struct {
	Store       budget.TxStore
	Resolver    *budget.FiscalResolver
	Calendar    *budget.HolidayCalendar
	Closing     *budget.ClosingEngine
	Forecast    *budget.ForecastEngine
	Withdrawals *budget.WithdrawalService
	Setup       *budget.SetupService
	Factory     *factory.HouseholdFactory

	logger *logging.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires a handler. The withdrawal and setup services are built
// from store and calendar.
func NewHandler(
	store budget.TxStore,
	resolver *budget.FiscalResolver,
	calendar *budget.HolidayCalendar,
	closing *budget.ClosingEngine,
	forecast *budget.ForecastEngine,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		Store:       store,
		Resolver:    resolver,
		Calendar:    calendar,
		Closing:     closing,
		Forecast:    forecast,
		Withdrawals: budget.NewWithdrawalService(store),
		Setup:       budget.NewSetupService(store, calendar),
		Factory:     factory.NewHouseholdFactory(),
		logger:      logger.WithComponent(logging.ComponentHTTP),
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSettings returns the fiscal settings or 412 before setup.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Resolver.Settings(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// SaveSettings performs the one-time setup.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	settings := budget.FiscalSettings{
		FiscalDayStart: req.FiscalDayStart,
		Jurisdiction:   strings.ToUpper(strings.TrimSpace(req.Jurisdiction)),
	}
	if err := h.Setup.Setup(r.Context(), settings); err != nil {
		writeDomainError(w, "Failed to save settings", err)
		return
	}

	logging.FromContext(r.Context()).Info("fiscal settings configured",
		logging.FieldOperation, logging.OpSetup,
		logging.FieldJurisdiction, settings.Jurisdiction,
		"fiscal_day_start", settings.FiscalDayStart)
	writeJSON(w, http.StatusCreated, settings)
}

// =============================================================================
// PERIODS
// =============================================================================

// GetCurrentPeriod returns the fiscal month containing today.
func (h *Handler) GetCurrentPeriod(w http.ResponseWriter, r *http.Request) {
	m, p, err := h.Resolver.Current(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to resolve current period", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPeriodDTO(m, p, true))
}

// GetPeriod returns the range of the fiscal month in the URL.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	m, err := monthParam(r)
	if err != nil {
		writeDomainError(w, "Invalid fiscal month", err)
		return
	}
	p, err := h.Resolver.Range(r.Context(), m)
	if err != nil {
		writeDomainError(w, "Failed to resolve period", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPeriodDTO(m, p, p.Contains(h.Resolver.Today())))
}

func (h *Handler) toPeriodDTO(m budget.FiscalMonth, p budget.Period, current bool) PeriodDTO {
	return PeriodDTO{
		Year:       m.Year,
		Month:      int(m.Month),
		Label:      m.String(),
		Start:      p.Start,
		End:        p.End,
		LengthDays: p.Length(),
		IsCurrent:  current,
		Today:      h.Resolver.Today(),
	}
}

// =============================================================================
// FORECAST
// =============================================================================

// GetForecast returns the daily cashflow projection from today.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	f, err := h.Forecast.Generate(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to generate forecast", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// ListHolidays returns the stored holidays of ?jurisdiction= or, by
// default, of the configured jurisdiction.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jurisdiction, err := h.jurisdictionParam(r)
	if err != nil {
		writeDomainError(w, "Failed to resolve jurisdiction", err)
		return
	}

	hs, err := h.Calendar.Load(ctx, jurisdiction)
	if err != nil {
		writeDomainError(w, "Failed to load holidays", err)
		return
	}
	writeJSON(w, http.StatusOK, HolidaysDTO{Jurisdiction: jurisdiction, Dates: hs.Dates()})
}

// RefreshHolidays re-fetches the jurisdiction's holidays from the provider.
func (h *Handler) RefreshHolidays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jurisdiction, err := h.jurisdictionParam(r)
	if err != nil {
		writeDomainError(w, "Failed to resolve jurisdiction", err)
		return
	}

	n, err := h.Calendar.Refresh(ctx, jurisdiction)
	if err != nil {
		writeDomainError(w, "Failed to refresh holidays", err)
		return
	}

	logging.FromContext(ctx).Info("holidays refreshed",
		logging.FieldOperation, logging.OpRefresh,
		logging.FieldJurisdiction, jurisdiction,
		"stored", n)
	writeJSON(w, http.StatusOK, RefreshHolidaysResponse{Jurisdiction: jurisdiction, Stored: n})
}

func (h *Handler) jurisdictionParam(r *http.Request) (string, error) {
	if j := strings.TrimSpace(r.URL.Query().Get("jurisdiction")); j != "" {
		return strings.ToUpper(j), nil
	}
	s, err := h.Resolver.Settings(r.Context())
	if err != nil {
		return "", err
	}
	return s.Jurisdiction, nil
}

// =============================================================================
// CLOSING
// =============================================================================

// GetCloseStatus reports whether the fiscal month still needs closing.
func (h *Handler) GetCloseStatus(w http.ResponseWriter, r *http.Request) {
	m, err := monthParam(r)
	if err != nil {
		writeDomainError(w, "Invalid fiscal month", err)
		return
	}
	st, err := h.Closing.Status(r.Context(), m)
	if err != nil {
		writeDomainError(w, "Failed to compute close status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// RunClose closes the fiscal month. A failed run still returns the full
// step list in Details.
func (h *Handler) RunClose(w http.ResponseWriter, r *http.Request) {
	m, err := monthParam(r)
	if err != nil {
		writeDomainError(w, "Invalid fiscal month", err)
		return
	}

	res, err := h.Closing.Run(r.Context(), m)
	if err != nil {
		status, code := statusFor(err)
		writeJSON(w, status, ErrorResponse{Error: "Close failed: " + err.Error(), Code: code, Details: res})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListCloseRuns returns the most recent close attempts.
func (h *Handler) ListCloseRuns(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRunsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeDomainError(w, "Invalid limit", &budget.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := h.Store.ListCloseRuns(r.Context(), limit)
	if err != nil {
		writeDomainError(w, "Failed to list close runs", err)
		return
	}
	if runs == nil {
		runs = []budget.CloseRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// =============================================================================
// HISTORY & SAVINGS
// =============================================================================

// GetHistory returns the frozen history of a fiscal month and its total
// distributable surplus.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	m, err := monthParam(r)
	if err != nil {
		writeDomainError(w, "Invalid fiscal month", err)
		return
	}
	records, err := h.Store.HistoryForMonth(r.Context(), m)
	if err != nil {
		writeDomainError(w, "Failed to load history", err)
		return
	}

	surplus := decimal.Zero
	for _, rec := range records {
		if rec.BudgetType == budget.BudgetAllowance && rec.FinalSurplus.IsPositive() {
			surplus = surplus.Add(rec.FinalSurplus)
		}
	}
	if records == nil {
		records = []budget.MonthlyHistoryRecord{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		Year:    m.Year,
		Month:   int(m.Month),
		Records: records,
		Surplus: surplus,
	})
}

// ListSavings returns accounts, goals and the current funding order.
func (h *Handler) ListSavings(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccountsWithGoals(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list savings", err)
		return
	}
	if accounts == nil {
		accounts = []budget.SavingsAccount{}
	}
	ranking := budget.RankGoals(accounts, h.Resolver.Today())
	if ranking == nil {
		ranking = []budget.GoalAllocation{}
	}
	writeJSON(w, http.StatusOK, SavingsResponse{Accounts: accounts, Ranking: ranking})
}

// WithdrawFromGoal decrements a goal and its account.
func (h *Handler) WithdrawFromGoal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDomainError(w, "Invalid goal ID", &budget.ValidationError{Field: "goal_id", Message: "must be an integer"})
		return
	}
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	wd, err := h.Withdrawals.Withdraw(r.Context(), budget.GoalID(id), req.Amount)
	if err != nil {
		writeDomainError(w, "Withdrawal failed", err)
		return
	}

	logging.FromContext(r.Context()).Info("goal withdrawal",
		logging.FieldOperation, logging.OpWithdraw,
		"goal_id", int64(wd.GoalID),
		"amount", wd.Amount.StringFixed(budget.MoneyPlaces))
	writeJSON(w, http.StatusOK, wd)
}

// =============================================================================
// HELPERS
// =============================================================================

func monthParam(r *http.Request) (budget.FiscalMonth, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return budget.FiscalMonth{}, &budget.ValidationError{Field: "year", Message: "must be an integer"}
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		return budget.FiscalMonth{}, &budget.ValidationError{Field: "month", Message: "must be an integer"}
	}
	return budget.NewFiscalMonth(year, month)
}

// statusFor maps a budget error category to an HTTP status and code.
// Configuration is checked first: an invalid stored setting wraps a
// validation error but is not the caller's fault. A rolled-back close may
// wrap ErrNotFound when a goal vanished mid-run; that is still a 500.
func statusFor(err error) (int, string) {
	switch {
	case budget.IsConfigurationError(err):
		return http.StatusPreconditionFailed, CodeNotConfigured
	case errors.Is(err, budget.ErrSettingsImmutable):
		return http.StatusConflict, CodeSettingsImmutable
	case errors.Is(err, budget.ErrInsufficientFunds):
		return http.StatusConflict, CodeInsufficientFunds
	case errors.Is(err, budget.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, budget.ErrTransactionFailed):
		return http.StatusInternalServerError, CodeTransactionFailed
	case budget.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, budget.ErrHolidaySource):
		return http.StatusBadGateway, CodeHolidaySource
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := statusFor(err)
	resp := ErrorResponse{Error: message, Code: code, Details: err.Error()}
	var ve *budget.ValidationError
	if errors.As(err, &ve) && !budget.IsConfigurationError(err) {
		resp.Details = map[string]string{"field": ve.Field, "message": ve.Message}
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
