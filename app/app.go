/*
Package app wires the budget engine from a validated configuration.

PURPOSE:
  Both binaries (the HTTP server and budgetctl) need the same object
  graph: a store, the holiday calendar, the fiscal resolver, the closing
  and forecast engines and, optionally, the AMQP publisher. New builds it
  once; Close releases the store and the broker connection.

STARTUP SEQUENCE:
  1. Open the store (sqlite or postgres) and run migrations
  2. Connect the AMQP publisher when AMQP_URL is set
  3. Build calendar, resolver and engines
  4. EnsureSettings applies the household file to an unconfigured store

SEE ALSO:
  - config/config.go: Environment and household file
  - cmd/server/main.go, cmd/budgetctl: Callers
*/
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/config"
	"github.com/warp/budget-engine/events"
	"github.com/warp/budget-engine/holidays"
	"github.com/warp/budget-engine/logging"
	"github.com/warp/budget-engine/store/postgres"
	"github.com/warp/budget-engine/store/sqlite"
)

// storeCloser is what both SQL stores provide.
type storeCloser interface {
	budget.TxStore
	Close() error
	Ping(ctx context.Context) error
}

// App holds the wired engine.
type App struct {
	Config *config.Config
	Logger *logging.Logger

	Store    storeCloser
	Calendar *budget.HolidayCalendar
	Resolver *budget.FiscalResolver
	Closing  *budget.ClosingEngine
	Forecast *budget.ForecastEngine
	Setup    *budget.SetupService

	publisher *events.Publisher
}

// New opens the store and wires the engines. now may be nil.
func New(cfg *config.Config, logger *logging.Logger, now budget.Clock) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &App{Config: cfg, Logger: logger}

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.Store = st
	logger.WithComponent(logging.ComponentStorage).Info("store ready", "driver", cfg.DBDriver)

	var publisher budget.EventPublisher
	if cfg.AMQPURL != "" {
		p, err := events.NewPublisher(events.Config{
			URL:        cfg.AMQPURL,
			Exchange:   cfg.AMQPExchange,
			RoutingKey: cfg.AMQPRoutingKey,
		}, logger.Logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connect amqp: %w", err)
		}
		a.publisher = p
		publisher = p
		logger.WithComponent(logging.ComponentAMQP).Info("publishing period closed events", "exchange", cfg.AMQPExchange)
	}

	var source budget.HolidaySource
	if cfg.HolidayAPIURL != "" {
		source = holidays.NewNagerSource(cfg.HolidayAPIURL, nil)
	}

	a.Calendar = budget.NewHolidayCalendar(st, source, now)
	a.Resolver = budget.NewFiscalResolver(st, a.Calendar, now)
	a.Closing = budget.NewClosingEngine(st, a.Resolver, publisher,
		logger.WithComponent(logging.ComponentClosing).Logger, cfg.ClosingOptions())
	a.Forecast = budget.NewForecastEngine(a.Resolver, st, cfg.Policy())
	a.Setup = budget.NewSetupService(st, a.Calendar)
	return a, nil
}

func openStore(cfg *config.Config) (storeCloser, error) {
	switch cfg.DBDriver {
	case "", "sqlite":
		s, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLiteDBPath, err)
		}
		return s, nil
	case "postgres":
		s, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
	}
}

// EnsureSettings stores the household file's fiscal settings when the store
// has none. Returns true if it configured the store. Existing settings win;
// a differing household file is logged, not applied.
func (a *App) EnsureSettings(ctx context.Context) (bool, error) {
	if a.Config.Household == nil {
		return false, nil
	}
	want := a.Config.Household.Settings()

	err := a.Setup.Setup(ctx, want)
	switch {
	case err == nil:
		a.Logger.Info("fiscal settings configured from household file",
			logging.FieldOperation, logging.OpSetup,
			logging.FieldJurisdiction, want.Jurisdiction,
			"fiscal_day_start", want.FiscalDayStart)
		return true, nil
	case errors.Is(err, budget.ErrSettingsImmutable):
		have, gerr := a.Store.GetSettings(ctx)
		if gerr == nil && have != want {
			a.Logger.Warn("household file differs from stored settings; stored settings are kept",
				"stored_fiscal_day_start", have.FiscalDayStart,
				"stored_jurisdiction", have.Jurisdiction)
		}
		return false, nil
	default:
		return false, err
	}
}

// Close releases the broker connection and the store.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
