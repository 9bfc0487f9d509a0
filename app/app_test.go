package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/app"
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/config"
)

func testConfig() *config.Config {
	return &config.Config{
		DBDriver:          "sqlite",
		SQLiteDBPath:      ":memory:",
		OverflowPolicy:    "roll",
		OverdueGraceDays:  5,
		CloseTimeout:      10 * time.Second,
		AutoCloseInterval: time.Hour,
	}
}

func TestNew_EnsureSettingsFromHousehold(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Household = &config.Household{Fiscal: config.FiscalConfig{DayStart: 25, Jurisdiction: "de"}}

	a, err := app.New(cfg, nil, func() time.Time { return time.Date(2024, 8, 3, 9, 0, 0, 0, time.UTC) })
	require.NoError(t, err)
	defer a.Close()

	// WHEN: applying the household file twice
	first, err := a.EnsureSettings(ctx)
	require.NoError(t, err)
	second, err := a.EnsureSettings(ctx)
	require.NoError(t, err)

	// THEN: only the first call configures
	assert.True(t, first)
	assert.False(t, second)

	m, p, err := a.Resolver.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, budget.FiscalMonth{Year: 2024, Month: time.August}, m)
	assert.Equal(t, "2024-07-25", p.Start.String())
}

func TestNew_NoHousehold(t *testing.T) {
	a, err := app.New(testConfig(), nil, nil)
	require.NoError(t, err)
	defer a.Close()

	configured, err := a.EnsureSettings(context.Background())
	require.NoError(t, err)
	assert.False(t, configured)

	_, err = a.Resolver.Settings(context.Background())
	assert.True(t, budget.IsConfigurationError(err))
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.DBDriver = "oracle"

	_, err := app.New(cfg, nil, nil)
	assert.ErrorContains(t, err, "oracle")
}
