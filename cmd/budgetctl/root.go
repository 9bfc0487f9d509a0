package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/budget-engine/app"
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/config"
	"github.com/warp/budget-engine/factory"
	"github.com/warp/budget-engine/logging"
)

var (
	flagJSON  bool
	flagToday string
	flagDB    string
)

var rootCmd = &cobra.Command{
	Use:           "budgetctl",
	Short:         "Household budget fiscal periods and month-end closing",
	Long:          "Resolve fiscal months, forecast cashflows and close ended months into savings goals.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "budgetctl: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&flagToday, "today", "", "Pretend today is YYYY-MM-DD")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite path (overrides SQLITE_DB_PATH)")
}

// openApp is the shared startup path used by all commands.
func openApp() (*app.App, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.DBDriver = "sqlite"
		cfg.SQLiteDBPath = flagDB
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Component: logging.ComponentCLI,
		Output:    os.Stderr,
	})
	if err != nil {
		return nil, err
	}

	clock, err := todayClock()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logger, clock)
}

func todayClock() (budget.Clock, error) {
	if flagToday == "" {
		return nil, nil
	}
	d, err := budget.ParseDate(flagToday)
	if err != nil {
		return nil, fmt.Errorf("--today: %w", err)
	}
	at := d.Time.Add(12 * time.Hour)
	return func() time.Time { return at }, nil
}

// monthArg parses an optional YYYY-MM argument.
func monthArg(args []string) (budget.FiscalMonth, bool, error) {
	if len(args) == 0 {
		return budget.FiscalMonth{}, false, nil
	}
	m, err := factory.ParseMonth(args[0])
	if err != nil {
		return budget.FiscalMonth{}, false, err
	}
	return m, true, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(budget.MoneyPlaces)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func idList[T ~int64](ids []T) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(int64(id))
	}
	return strings.Join(parts, ",")
}
