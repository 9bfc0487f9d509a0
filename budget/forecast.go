/*
forecast.go - 12-month cashflow projection

PURPOSE:
  Projects recurring bills and planned income day by day from today until
  today + 12 months (exclusive), with a running balance starting at zero.

DATE RULE:
  For each day D and each active item:
    nominal  = the item's day-of-month in D's month (overflow policy applies)
    skip if nominal spilled into another month
    adjusted = PreviousWorkday(nominal)
    the item lands on D when adjusted == D

  An item whose workday adjustment crosses back into the previous month
  (day 1 falling on a Sunday) is therefore not projected for that month.
  The close never depends on this, only the forecast view does.

CONCURRENCY:
  Read-only. Safe to call from any number of goroutines.
*/
package budget

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultForecastMonths is the projection horizon.
const DefaultForecastMonths = 12

// ForecastItem is one cashflow landing on a day.
type ForecastItem struct {
	CashflowID CashflowID      `json:"cashflow_id"`
	Kind       CashflowKind    `json:"kind"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

// ForecastDay aggregates the items of one calendar day.
type ForecastDay struct {
	Date           Date            `json:"date"`
	FiscalMonth    FiscalMonth     `json:"fiscal_month"`
	Items          []ForecastItem  `json:"items,omitempty"`
	Inflow         decimal.Decimal `json:"inflow"`
	Outflow        decimal.Decimal `json:"outflow"`
	Net            decimal.Decimal `json:"net"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// Forecast is the full projection.
type Forecast struct {
	From Date          `json:"from"`
	To   Date          `json:"to"` // exclusive
	Days []ForecastDay `json:"days"`
}

// ProjectionInput holds everything the pure projection needs.
type ProjectionInput struct {
	Today          Date
	Months         int
	FiscalDayStart int
	Holidays       HolidaySet
	Policy         OverflowPolicy
	Items          []ScheduledCashflow
}

// Project computes the forecast without touching any store.
func Project(in ProjectionInput) Forecast {
	months := in.Months
	if months <= 0 {
		months = DefaultForecastMonths
	}
	end := in.Today.AddMonths(months)

	// Resolve each item's landing day once per calendar month in range.
	landing := make(map[string][]ForecastItem)
	first := NewDate(in.Today.Year(), in.Today.Month(), 1)
	for m := first; m.Before(end); m = m.AddMonths(1) {
		for _, item := range in.Items {
			if item.DayOfMonth < 1 || item.DayOfMonth > 31 {
				continue
			}
			nominal := NominalDate(m.Year(), m.Month(), item.DayOfMonth, in.Policy)
			if nominal.Month() != m.Month() {
				continue
			}
			day := PreviousWorkday(nominal, in.Holidays)
			if day.Month() != m.Month() || day.Before(in.Today) || !day.Before(end) {
				continue
			}
			if !item.ActiveOn(day) {
				continue
			}
			landing[day.String()] = append(landing[day.String()], ForecastItem{
				CashflowID: item.ID,
				Kind:       item.Kind,
				Name:       item.Name,
				Amount:     item.Signed(),
			})
		}
	}

	f := Forecast{From: in.Today, To: end}
	balance := decimal.Zero
	for d := in.Today; d.Before(end); d = d.AddDays(1) {
		fd := ForecastDay{
			Date:    d,
			Items:   landing[d.String()],
			Inflow:  decimal.Zero,
			Outflow: decimal.Zero,
		}
		if in.FiscalDayStart > 0 {
			fd.FiscalMonth = CurrentFinancialMonth(d, in.FiscalDayStart)
		}
		for _, it := range fd.Items {
			if it.Amount.IsNegative() {
				fd.Outflow = fd.Outflow.Add(it.Amount.Neg())
			} else {
				fd.Inflow = fd.Inflow.Add(it.Amount)
			}
		}
		fd.Net = fd.Inflow.Sub(fd.Outflow)
		balance = RoundMoney(balance.Add(fd.Net))
		fd.RunningBalance = balance
		f.Days = append(f.Days, fd)
	}
	return f
}

// ForecastEngine projects the stored cashflows against the configured
// jurisdiction's holidays.
type ForecastEngine struct {
	resolver  *FiscalResolver
	cashflows CashflowSource
	policy    OverflowPolicy
	months    int
}

// NewForecastEngine wires an engine with the default 12-month horizon.
func NewForecastEngine(resolver *FiscalResolver, cashflows CashflowSource, policy OverflowPolicy) *ForecastEngine {
	return &ForecastEngine{resolver: resolver, cashflows: cashflows, policy: policy, months: DefaultForecastMonths}
}

// Generate projects from the resolver's today.
func (e *ForecastEngine) Generate(ctx context.Context) (*Forecast, error) {
	settings, holidays, err := e.resolver.Holidays(ctx)
	if err != nil {
		return nil, err
	}
	items, err := e.cashflows.ScheduledCashflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scheduled cashflows: %w", err)
	}
	f := Project(ProjectionInput{
		Today:          e.resolver.Today(),
		Months:         e.months,
		FiscalDayStart: settings.FiscalDayStart,
		Holidays:       holidays,
		Policy:         e.policy,
		Items:          items,
	})
	return &f, nil
}
