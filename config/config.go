/*
Package config loads service configuration from the environment and an
optional TOML household file.

ENVIRONMENT:
  PORT                 HTTP port (default 8080)
  DB_DRIVER            sqlite | postgres (default sqlite)
  SQLITE_DB_PATH       sqlite file, ":memory:" allowed (default ./data/budget.db)
  DATABASE_URL         postgres DSN, required for postgres
  HOUSEHOLD_FILE       TOML household file, optional
  HOLIDAY_API_URL      Nager.Date compatible base URL (default https://date.nager.at)
  AMQP_URL             enables PeriodClosed publishing when set
  AMQP_EXCHANGE        default budget.events
  AMQP_ROUTING_KEY     default period.closed
  AUTO_CLOSE           enable the auto-close scheduler (default false)
  AUTO_CLOSE_INTERVAL  scheduler tick (default 1h)
  CLOSE_TIMEOUT        bound on one close (default 30s)
  OVERDUE_GRACE_DAYS   default 5
  OVERFLOW_POLICY      roll | clamp (default roll)
  LOG_LEVEL            debug | info | warn | error (default info)
  LOG_FORMAT           text | json (default text)

Binaries call godotenv.Load first, so a local .env file works too.

HOUSEHOLD FILE:
  [fiscal]
  day_start = 25
  jurisdiction = "DE"

  [closing]
  distribute_newly_closed_only = false
  overdue_grace_days = 7

  Household values are the initial fiscal settings offered to setup;
  closing values override the matching environment keys.
*/
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/logging"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DBDriver     string
	SQLiteDBPath string
	DatabaseURL  string

	// Household
	HouseholdFile string
	Household     *Household

	// Holidays
	HolidayAPIURL string

	// AMQP
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Closing
	AutoClose                 bool
	AutoCloseInterval         time.Duration
	CloseTimeout              time.Duration
	OverdueGraceDays          int
	DistributeNewlyClosedOnly bool
	OverflowPolicy            string

	// Logging
	LogLevel  string
	LogFormat string
}

// Household is the TOML household file.
type Household struct {
	Fiscal  FiscalConfig  `toml:"fiscal"`
	Closing ClosingConfig `toml:"closing"`
}

type FiscalConfig struct {
	DayStart     int    `toml:"day_start"`
	Jurisdiction string `toml:"jurisdiction"`
}

type ClosingConfig struct {
	DistributeNewlyClosedOnly bool `toml:"distribute_newly_closed_only"`
	OverdueGraceDays          int  `toml:"overdue_grace_days"`
}

// Settings returns the household's fiscal settings.
func (h *Household) Settings() budget.FiscalSettings {
	return budget.FiscalSettings{
		FiscalDayStart: h.Fiscal.DayStart,
		Jurisdiction:   strings.ToUpper(h.Fiscal.Jurisdiction),
	}
}

// Load reads the environment and, when HOUSEHOLD_FILE is set, the household
// file. It does not validate; call Validate.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DBDriver:     strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budget.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		HouseholdFile: getEnv("HOUSEHOLD_FILE", ""),
		HolidayAPIURL: getEnv("HOLIDAY_API_URL", "https://date.nager.at"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "budget.events"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "period.closed"),

		AutoClose:         getEnvBool("AUTO_CLOSE", false),
		AutoCloseInterval: getEnvDuration("AUTO_CLOSE_INTERVAL", time.Hour),
		CloseTimeout:      getEnvDuration("CLOSE_TIMEOUT", 30*time.Second),
		OverdueGraceDays:  getEnvInt("OVERDUE_GRACE_DAYS", budget.DefaultOverdueGraceDays),
		OverflowPolicy:    strings.ToLower(getEnv("OVERFLOW_POLICY", string(budget.RollOverflowIntoNextMonth))),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	if cfg.HouseholdFile != "" {
		h, err := LoadHousehold(cfg.HouseholdFile)
		if err != nil {
			return nil, err
		}
		cfg.Household = h
		cfg.DistributeNewlyClosedOnly = h.Closing.DistributeNewlyClosedOnly
		if h.Closing.OverdueGraceDays > 0 {
			cfg.OverdueGraceDays = h.Closing.OverdueGraceDays
		}
	}
	return cfg, nil
}

// LoadHousehold parses a TOML household file.
func LoadHousehold(path string) (*Household, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading household file: %w", err)
	}
	var h Household
	if err := toml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing household file: %w", err)
	}
	return &h, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBDriver {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite driver")
		} else if c.SQLiteDBPath != ":memory:" {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid database driver '%s': must be sqlite or postgres", c.DBDriver))
	}

	if c.HolidayAPIURL != "" {
		if u, err := url.Parse(c.HolidayAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("invalid holiday API URL '%s': must be http or https", c.HolidayAPIURL))
		}
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AutoCloseInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid auto-close interval %v: must be at least 1 minute", c.AutoCloseInterval))
	}
	if c.CloseTimeout < 0 {
		errs = append(errs, fmt.Sprintf("invalid close timeout %v: must not be negative", c.CloseTimeout))
	}
	if c.OverdueGraceDays < 0 {
		errs = append(errs, fmt.Sprintf("invalid overdue grace days %d: must not be negative", c.OverdueGraceDays))
	}
	if _, err := budget.ParseOverflowPolicy(c.OverflowPolicy); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Household != nil {
		if err := c.Household.Settings().Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("household file: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Policy returns the parsed overflow policy; call after Validate.
func (c *Config) Policy() budget.OverflowPolicy {
	p, _ := budget.ParseOverflowPolicy(c.OverflowPolicy)
	return p
}

// ClosingOptions returns the closing engine options.
func (c *Config) ClosingOptions() budget.ClosingOptions {
	return budget.ClosingOptions{
		Timeout:                   c.CloseTimeout,
		OverdueGraceDays:          c.OverdueGraceDays,
		DistributeNewlyClosedOnly: c.DistributeNewlyClosedOnly,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
