package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Config selects the database driver and the data source it connects to.
// For sqlite the DSN is a file path.
type Config struct {
	Driver string
	DSN    string
}

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	Driver    string
	PriceType string
	dollar    bool
}

var dialects = map[string]Dialect{
	"sqlite": {Driver: "sqlite", PriceType: "REAL"},
	"pgx":    {Driver: "pgx", PriceType: "DOUBLE PRECISION", dollar: true},
	"mysql":  {Driver: "mysql", PriceType: "DOUBLE"},
}

// ErrUnknownDriver is returned for a driver name with no registered dialect.
var ErrUnknownDriver = errors.New("unknown store driver")

// DialectFor returns the dialect for the given driver name.
func DialectFor(driver string) (Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	return d, nil
}

// Placeholder returns the bind placeholder for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.dollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Connect opens the database and verifies it answers a ping.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store DSN is empty")
	}
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Exists reports whether the store is present. Only file-backed stores can
// be missing; opening a sqlite file that does not exist would create it.
// In-memory sqlite databases are always reported present.
func Exists(cfg Config) (bool, error) {
	if cfg.Driver != "sqlite" {
		return true, nil
	}
	path, inMemory := sqlitePath(cfg.DSN)
	if inMemory {
		return true, nil
	}
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// sqlitePath extracts the file path from a sqlite DSN, which is either a
// plain path or a "file:" URI with optional query parameters.
func sqlitePath(dsn string) (path string, inMemory bool) {
	path = dsn
	query := ""
	if strings.HasPrefix(path, "file:") {
		path = strings.TrimPrefix(path, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path, query = path[:i], path[i+1:]
		}
		path = strings.TrimPrefix(path, "//")
	}
	if path == "" || path == ":memory:" {
		return path, true
	}
	if values, err := url.ParseQuery(query); err == nil && values.Get("mode") == "memory" {
		return path, true
	}
	return path, false
}
