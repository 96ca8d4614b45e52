package config

import (
	"os"
	"strings"
	"time"
)

const (
	DefaultPageSize     = 25
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 50 * time.Millisecond

	StoreDriverMySQL  = "mysql"
	StoreDriverSqlite = "sqlite"

	DefaultSqlitePath = "tradelog.db"
)

// LedgerSettings tunes pagination and conflict retries of the ledger.
type LedgerSettings struct {
	PageSize     int
	MaxAttempts  int
	RetryBackoff time.Duration
}

// LoadLedgerSettings reads:
// - LEDGER_PAGE_SIZE (default 25)
// - LEDGER_MAX_ATTEMPTS (default 3)
// - LEDGER_RETRY_BACKOFF_MS (default 50)
func LoadLedgerSettings() LedgerSettings {
	s := LedgerSettings{
		PageSize:     intFromEnv("LEDGER_PAGE_SIZE", DefaultPageSize),
		MaxAttempts:  intFromEnv("LEDGER_MAX_ATTEMPTS", DefaultMaxAttempts),
		RetryBackoff: time.Duration(intFromEnv("LEDGER_RETRY_BACKOFF_MS", int(DefaultRetryBackoff/time.Millisecond))) * time.Millisecond,
	}
	return s.Normalize()
}

// Normalize replaces out-of-range values with defaults.
func (s LedgerSettings) Normalize() LedgerSettings {
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = DefaultMaxAttempts
	}
	if s.RetryBackoff < 0 {
		s.RetryBackoff = DefaultRetryBackoff
	}
	return s
}

// StoreDriver selects the ledger store backend: "mysql" (default) or "sqlite".
//
// Set via env:
// - STORE_DRIVER=sqlite
// - SQLITE_PATH (default tradelog.db)
func StoreDriver() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	if v == StoreDriverSqlite {
		return StoreDriverSqlite
	}
	return StoreDriverMySQL
}

func SqlitePath() string {
	if v := strings.TrimSpace(os.Getenv("SQLITE_PATH")); v != "" {
		return v
	}
	return DefaultSqlitePath
}

func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

// SkipMigrations disables AutoMigrate on startup (run as a separate job instead).
func SkipMigrations() bool {
	return boolFromEnv("SKIP_MIGRATIONS", false)
}
