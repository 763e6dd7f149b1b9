// Package config loads the audit job settings from defaults, an optional
// config file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rogerio-castellano/inventory-audit/internal/db"
)

// Missing tracker token policies.
const (
	MissingTokenSkip  = "skip"
	MissingTokenAbort = "abort"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// ErrMissingToken is returned by RequireTracker when the tracker token is
// absent and the policy says to abort.
var ErrMissingToken = errors.New("tracker API token is not set")

type Config struct {
	Catalog     CatalogConfig
	HTTPTimeout time.Duration
	Store       db.Config
	Seed        SeedConfig
	Scan        ScanConfig
	Tracker     TrackerConfig
	Ledger      LedgerConfig
	Log         LogConfig
}

type CatalogConfig struct {
	URL       string
	UserAgent string
	Headers   map[string]string
	RPS       float64 // 0 disables client-side rate limiting
}

type SeedConfig struct {
	Corrupt       bool
	SentinelID    int
	InjectedPrice float64
}

type ScanConfig struct {
	Limit     int // 0 scans every stored record
	Tolerance float64
}

type TrackerConfig struct {
	URL          string
	Email        string
	ProjectKey   string
	Token        string
	MissingToken string
}

type LedgerConfig struct {
	RedisAddr string // empty disables the ledger
	TTL       time.Duration
}

type LogConfig struct {
	Level  string
	Format string // console|json
}

var envBindings = map[string][]string{
	"catalog.url":           {"CATALOG_URL", "INVENTORY_API_URL"},
	"catalog.user_agent":    {"CATALOG_USER_AGENT"},
	"catalog.rps":           {"CATALOG_RPS"},
	"http.timeout":          {"HTTP_TIMEOUT"},
	"store.driver":          {"STORE_DRIVER"},
	"store.dsn":             {"STORE_DSN", "DATABASE_URL"},
	"seed.corrupt":          {"SEED_CORRUPT"},
	"seed.sentinel_id":      {"SEED_SENTINEL_ID"},
	"seed.injected_price":   {"SEED_INJECTED_PRICE"},
	"scan.limit":            {"SCAN_LIMIT"},
	"scan.tolerance":        {"SCAN_TOLERANCE"},
	"tracker.url":           {"JIRA_URL", "TRACKER_URL"},
	"tracker.email":         {"JIRA_EMAIL", "TRACKER_EMAIL"},
	"tracker.project_key":   {"PROJECT_KEY", "TRACKER_PROJECT_KEY"},
	"tracker.token":         {"JIRA_TOKEN", "TRACKER_TOKEN"},
	"tracker.missing_token": {"TRACKER_MISSING_TOKEN"},
	"ledger.redis_addr":     {"REDIS_ADDR"},
	"ledger.ttl":            {"LEDGER_TTL"},
	"log.level":             {"LOG_LEVEL"},
	"log.format":            {"LOG_FORMAT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.url", "https://dummyjson.com/products")
	v.SetDefault("catalog.user_agent", defaultUserAgent)
	v.SetDefault("catalog.rps", 0)
	v.SetDefault("http.timeout", 15*time.Second)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "supply_chain_inventory.db")
	v.SetDefault("seed.corrupt", true)
	v.SetDefault("seed.sentinel_id", 1)
	v.SetDefault("seed.injected_price", 999.99)
	v.SetDefault("scan.limit", 5)
	v.SetDefault("scan.tolerance", 0)
	v.SetDefault("tracker.missing_token", MissingTokenSkip)
	v.SetDefault("ledger.ttl", 7*24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load builds a Config. When file is non-empty it is read first; the
// environment always wins over file values.
func Load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, err
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := Config{
		Catalog: CatalogConfig{
			URL:       strings.TrimRight(v.GetString("catalog.url"), "/"),
			UserAgent: v.GetString("catalog.user_agent"),
			Headers:   v.GetStringMapString("catalog.headers"),
			RPS:       v.GetFloat64("catalog.rps"),
		},
		HTTPTimeout: v.GetDuration("http.timeout"),
		Store: db.Config{
			Driver: v.GetString("store.driver"),
			DSN:    v.GetString("store.dsn"),
		},
		Seed: SeedConfig{
			Corrupt:       v.GetBool("seed.corrupt"),
			SentinelID:    v.GetInt("seed.sentinel_id"),
			InjectedPrice: v.GetFloat64("seed.injected_price"),
		},
		Scan: ScanConfig{
			Limit:     v.GetInt("scan.limit"),
			Tolerance: v.GetFloat64("scan.tolerance"),
		},
		Tracker: TrackerConfig{
			URL:          strings.TrimRight(v.GetString("tracker.url"), "/"),
			Email:        v.GetString("tracker.email"),
			ProjectKey:   v.GetString("tracker.project_key"),
			Token:        v.GetString("tracker.token"),
			MissingToken: strings.ToLower(v.GetString("tracker.missing_token")),
		},
		Ledger: LedgerConfig{
			RedisAddr: v.GetString("ledger.redis_addr"),
			TTL:       v.GetDuration("ledger.ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	return cfg, nil
}

// Validate checks the settings before any stage runs.
func (c Config) Validate() error {
	if c.Catalog.URL == "" {
		return errors.New("catalog URL is empty")
	}
	if _, err := db.DialectFor(c.Store.Driver); err != nil {
		return err
	}
	if c.Scan.Limit < 0 {
		return fmt.Errorf("scan limit must not be negative, got %d", c.Scan.Limit)
	}
	if c.Scan.Tolerance < 0 {
		return fmt.Errorf("scan tolerance must not be negative, got %v", c.Scan.Tolerance)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	switch c.Tracker.MissingToken {
	case MissingTokenSkip, MissingTokenAbort:
	default:
		return fmt.Errorf("unknown missing-token policy %q (want %s or %s)", c.Tracker.MissingToken, MissingTokenSkip, MissingTokenAbort)
	}
	return nil
}

// RequireTracker applies the missing-token policy. Only commands that file
// tickets call it; under abort they fail here before any stage runs.
func (c Config) RequireTracker() error {
	if c.Tracker.MissingToken == MissingTokenAbort && c.Tracker.Token == "" {
		return ErrMissingToken
	}
	return nil
}
