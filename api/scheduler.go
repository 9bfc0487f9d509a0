/*
scheduler.go - Automated month-end close scheduler

PURPOSE:
  Periodically checks whether the last ended fiscal month still needs
  closing and, if so, runs the close. Catch-up after downtime is automatic:
  the first check runs immediately on Start.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Asks the closing engine for the status of the last ended fiscal month
  - Skips months that are already fully closed
  - Unconfigured households are skipped quietly
  - Every run is recorded in the close-run audit trail by the engine

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAutoCloseScheduler(engine, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunClose endpoint (manual close)
  - budget/closing.go: ClosingEngine
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/logging"
)

// AutoCloseScheduler closes ended fiscal months in the background.
type AutoCloseScheduler struct {
	Engine        *budget.ClosingEngine
	CheckInterval time.Duration
	Enabled       bool

	logger *logging.Logger
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAutoCloseScheduler creates a new scheduler.
func NewAutoCloseScheduler(engine *budget.ClosingEngine, logger *logging.Logger) *AutoCloseScheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AutoCloseScheduler{
		Engine:        engine,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		logger:        logger.WithComponent(logging.ComponentScheduler),
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (s *AutoCloseScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger.Info("disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	s.logger.Info("started", "check_interval", s.CheckInterval.String())
}

// Stop stops the scheduler and waits for an in-flight check.
func (s *AutoCloseScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.logger.Info("stopped")
	}
}

func (s *AutoCloseScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.RunNow(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunNow checks the last ended fiscal month and closes it if needed. It
// returns the close result, or nil when nothing was run.
func (s *AutoCloseScheduler) RunNow(ctx context.Context) *budget.CloseResult {
	m, err := s.Engine.LastEndedMonth(ctx)
	if err != nil {
		if budget.IsConfigurationError(err) {
			s.logger.Debug("household not configured, skipping")
		} else {
			s.logger.Error("failed to resolve last ended month", logging.FieldError, err)
		}
		return nil
	}

	log := s.logger.With(logging.FieldYear, m.Year, logging.FieldMonth, int(m.Month))
	st, err := s.Engine.Status(ctx, m)
	if err != nil {
		log.Error("failed to compute close status", logging.FieldError, err)
		return nil
	}
	if !st.IsNeeded {
		log.Debug("no close needed", "is_closed", st.IsClosed)
		return nil
	}
	if st.IsOverdue {
		log.Warn("close is overdue", "days_past_end", st.DaysPastEnd)
	}

	res, err := s.Engine.Run(ctx, m)
	if err != nil {
		log.Error("scheduled close failed",
			logging.FieldError, err,
			"retryable", budget.IsRetryable(err))
		return res
	}
	log.Info("scheduled close completed",
		logging.FieldRunID, res.RunID,
		logging.FieldOutcome, string(res.Outcome),
		"surplus", res.Surplus.StringFixed(budget.MoneyPlaces))
	return res
}

// NextRunTime returns when the next scheduled check will occur.
func (s *AutoCloseScheduler) NextRunTime() time.Time {
	return time.Now().Add(s.CheckInterval)
}
