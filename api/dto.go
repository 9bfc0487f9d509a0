/*
dto.go - Data Transfer Objects for the HTTP API

PURPOSE:
  Request and response shapes that differ from the budget package types.
  Domain types that already carry JSON tags (CloseResult, CloseStatus,
  Forecast, MonthlyHistoryRecord, CloseRun) are written as-is.

NAMING CONVENTION:
  - *DTO:      Response objects
  - *Request:  Request bodies
  - *Response: Composite responses

MONEY:
  Amounts are shopspring/decimal values and serialize as JSON strings
  ("12.50") so no precision is lost in the browser.

SEE ALSO:
  - handlers.go: Uses these DTOs
  - budget/types.go: Domain types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// SETTINGS & PERIODS
// =============================================================================

// SettingsRequest is the one-time fiscal setup body.
type SettingsRequest struct {
	FiscalDayStart int    `json:"fiscal_day_start"`
	Jurisdiction   string `json:"jurisdiction"`
}

// PeriodDTO describes one fiscal month and its resolved date range.
type PeriodDTO struct {
	Year       int         `json:"year"`
	Month      int         `json:"month"`
	Label      string      `json:"label"`
	Start      budget.Date `json:"start"`
	End        budget.Date `json:"end"`
	LengthDays int         `json:"length_days"`
	IsCurrent  bool        `json:"is_current"`
	Today      budget.Date `json:"today"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidaysDTO lists the stored holidays of one jurisdiction.
type HolidaysDTO struct {
	Jurisdiction string        `json:"jurisdiction"`
	Dates        []budget.Date `json:"dates"`
}

// RefreshHolidaysResponse reports a refresh from the upstream provider.
type RefreshHolidaysResponse struct {
	Jurisdiction string `json:"jurisdiction"`
	Stored       int    `json:"stored"`
}

// =============================================================================
// SAVINGS
// =============================================================================

// SavingsResponse lists accounts with their goals and the order in which a
// surplus closed today would fund them.
type SavingsResponse struct {
	Accounts []budget.SavingsAccount `json:"accounts"`
	Ranking  []budget.GoalAllocation `json:"ranking"`
}

// WithdrawRequest takes money out of a goal.
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// =============================================================================
// HISTORY
// =============================================================================

// HistoryResponse is the frozen history of one fiscal month.
type HistoryResponse struct {
	Year    int                           `json:"year"`
	Month   int                           `json:"month"`
	Records []budget.MonthlyHistoryRecord `json:"records"`
	Surplus decimal.Decimal               `json:"surplus"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a built-in scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse summarizes what a scenario seeded.
type LoadScenarioResponse struct {
	Scenario      ScenarioDTO `json:"scenario"`
	Subcategories int         `json:"subcategories"`
	Transactions  int         `json:"transactions"`
	Cashflows     int         `json:"cashflows"`
	Accounts      int         `json:"accounts"`
	Goals         int         `json:"goals"`
	Holidays      int         `json:"holidays"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidInput      = "invalid_input"
	CodeNotFound          = "not_found"
	CodeNotConfigured     = "not_configured"
	CodeSettingsImmutable = "settings_immutable"
	CodeInsufficientFunds = "insufficient_funds"
	CodeHolidaySource     = "holiday_source_unavailable"
	CodeTransactionFailed = "transaction_failed"
	CodeInternal          = "internal"
)
