package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
)

func TestAutoCloseScheduler_RunNow(t *testing.T) {
	ctx := context.Background()
	a := newTestAPI(t)
	s := NewAutoCloseScheduler(a.handler.Closing, nil)

	// GIVEN: an unconfigured household, nothing runs
	assert.Nil(t, s.RunNow(ctx))

	// WHEN: July has ended and is still open
	a.loadScenario(t, "salaried-household")
	res := s.RunNow(ctx)

	// THEN: it is closed once and later checks are no-ops
	require.NotNil(t, res)
	assert.Equal(t, budget.OutcomeClosed, res.Outcome)
	assert.Equal(t, time.July, res.Month.Month)
	assert.Nil(t, s.RunNow(ctx))

	runs, err := a.mem.ListCloseRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestAutoCloseScheduler_StartStop(t *testing.T) {
	a := newTestAPI(t)
	a.loadScenario(t, "no-goals")
	s := NewAutoCloseScheduler(a.handler.Closing, nil)
	s.CheckInterval = time.Hour

	// Start runs one check immediately; Stop waits for it.
	s.Start()
	s.Stop()

	runs, err := a.mem.ListCloseRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	// a second Stop is harmless
	s.Stop()
}

func TestAutoCloseScheduler_Disabled(t *testing.T) {
	a := newTestAPI(t)
	a.loadScenario(t, "no-goals")
	s := NewAutoCloseScheduler(a.handler.Closing, nil)
	s.Enabled = false

	s.Start()
	s.Stop()

	runs, err := a.mem.ListCloseRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
