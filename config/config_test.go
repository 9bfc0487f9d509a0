package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "HOUSEHOLD_FILE", "AMQP_URL", "AUTO_CLOSE", "OVERFLOW_POLICY"} {
		t.Setenv(k, "")
	}
	t.Setenv("SQLITE_DB_PATH", ":memory:")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.False(t, cfg.AutoClose)
	assert.Equal(t, time.Hour, cfg.AutoCloseInterval)
	assert.Equal(t, budget.RollOverflowIntoNextMonth, cfg.Policy())
	assert.Equal(t, budget.DefaultOverdueGraceDays, cfg.ClosingOptions().OverdueGraceDays)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SQLITE_DB_PATH", ":memory:")
	t.Setenv("AUTO_CLOSE", "true")
	t.Setenv("AUTO_CLOSE_INTERVAL", "15m")
	t.Setenv("CLOSE_TIMEOUT", "10s")
	t.Setenv("OVERFLOW_POLICY", "CLAMP")
	t.Setenv("HOUSEHOLD_FILE", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.AutoClose)
	assert.Equal(t, 15*time.Minute, cfg.AutoCloseInterval)
	assert.Equal(t, 10*time.Second, cfg.ClosingOptions().Timeout)
	assert.Equal(t, budget.ClampToMonthEnd, cfg.Policy())
}

func TestLoad_HouseholdFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "household.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[fiscal]
day_start = 25
jurisdiction = "de"

[closing]
distribute_newly_closed_only = true
overdue_grace_days = 7
`), 0o600))
	t.Setenv("HOUSEHOLD_FILE", path)
	t.Setenv("SQLITE_DB_PATH", ":memory:")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.NotNil(t, cfg.Household)
	assert.Equal(t, budget.FiscalSettings{FiscalDayStart: 25, Jurisdiction: "DE"}, cfg.Household.Settings())
	opts := cfg.ClosingOptions()
	assert.True(t, opts.DistributeNewlyClosedOnly)
	assert.Equal(t, 7, opts.OverdueGraceDays)
}

func TestLoad_MissingHouseholdFile(t *testing.T) {
	t.Setenv("HOUSEHOLD_FILE", filepath.Join(t.TempDir(), "nope.toml"))

	_, err := config.Load()

	assert.Error(t, err)
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := &config.Config{
		Port:              "99999",
		DBDriver:          "postgres",
		AMQPURL:           "http://broker",
		AMQPExchange:      "x",
		AutoCloseInterval: time.Second,
		OverflowPolicy:    "wrap",
		LogLevel:          "loud",
		Household:         &config.Household{Fiscal: config.FiscalConfig{DayStart: 31, Jurisdiction: "DE"}},
	}

	err := cfg.Validate()

	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"invalid port", "DATABASE_URL", "AMQP URL scheme", "auto-close interval", "overflow policy", "log level", "household file"} {
		assert.Contains(t, msg, want)
	}
}
