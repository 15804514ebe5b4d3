package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"loan-ledger/internal/domain/loan"
	"loan-ledger/internal/infrastructure/db"
)

type Config struct {
	AppPort string

	DBDriver   string
	SQLitePath string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	LogLevel        string
	OTELEndpoint    string
	OTELServiceName string

	RoundUnit                  int64
	DefaultTermDays            int
	DefaultInterestRatePercent decimal.Decimal
	DefaultLateFeeRatePercent  decimal.Decimal
	LateFeeMonthDays           int
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvDecimal(k string, d decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(k); v != "" {
		if n, err := decimal.NewFromString(v); err == nil {
			return n
		}
	}
	return d
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set win over .env.
func Load() *Config {
	_ = godotenv.Load()

	p := loan.DefaultPolicy()
	return &Config{
		AppPort: getenv("APP_PORT", "8080"),

		DBDriver:   getenv("DB_DRIVER", db.DriverMySQL),
		SQLitePath: getenv("SQLITE_PATH", "ledger.db"),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "ledger"),
		MySQLUser: getenv("MYSQL_USER", "ledger"),
		MySQLPass: getenv("MYSQL_PASS", "ledger"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:      getenvInt("REDIS_DB", 0),
		IdempTTLSecs: getenvInt("IDEMPOTENCY_TTL_SECONDS", 300),

		LogLevel:        getenv("LOG_LEVEL", "info"),
		OTELEndpoint:    getenv("OTEL_ENDPOINT", ""),
		OTELServiceName: getenv("OTEL_SERVICE_NAME", "loan-ledger"),

		RoundUnit:                  int64(getenvInt("ROUND_UNIT", int(p.RoundUnit))),
		DefaultTermDays:            getenvInt("DEFAULT_TERM_DAYS", p.DefaultTermDays),
		DefaultInterestRatePercent: getenvDecimal("DEFAULT_INTEREST_RATE_PERCENT", p.DefaultInterestRatePercent),
		DefaultLateFeeRatePercent:  getenvDecimal("DEFAULT_LATE_FEE_RATE_PERCENT", p.DefaultLateFeeRatePercent),
		LateFeeMonthDays:           getenvInt("LATE_FEE_MONTH_DAYS", p.MonthDays),
	}
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if _, err := net.LookupPort("tcp", c.AppPort); err != nil {
		return fmt.Errorf("invalid APP_PORT %q: %w", c.AppPort, err)
	}
	switch c.DBDriver {
	case db.DriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case db.DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("invalid DB_DRIVER %q (want mysql or sqlite)", c.DBDriver)
	}
	if c.IdempTTLSecs <= 0 {
		return fmt.Errorf("invalid IDEMPOTENCY_TTL_SECONDS %d", c.IdempTTLSecs)
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("ledger policy: %w", err)
	}
	return nil
}

func (c *Config) Policy() loan.Policy {
	return loan.Policy{
		RoundUnit:                  c.RoundUnit,
		DefaultTermDays:            c.DefaultTermDays,
		DefaultInterestRatePercent: c.DefaultInterestRatePercent,
		DefaultLateFeeRatePercent:  c.DefaultLateFeeRatePercent,
		MonthDays:                  c.LateFeeMonthDays,
	}
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == db.DriverSQLite {
		return c.SQLitePath
	}
	return c.MySQLDSN()
}
