package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/ventana-core/internal/infrastructure/config"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600

	// pingTimeout bounds the connection check in Open.
	pingTimeout = 5 * time.Second

	// fallbackBusyTimeout applies when the configuration leaves it at zero.
	fallbackBusyTimeout = 5 * time.Second
)

// ErrNotMigrated is returned by HealthCheck when the file is reachable but
// no migration has been applied to it.
var ErrNotMigrated = errors.New("database: schema not migrated")

// DB is the service's SQLite handle. It embeds *sql.DB so repositories can
// use it directly.
type DB struct {
	*sql.DB
}

// Config contains database connection options.
type Config struct {
	// Path is the SQLite file. Its directory is created if missing.
	Path string

	// WALMode enables write-ahead logging so HTTP readers do not block the
	// ingress writer.
	WALMode bool

	// BusyTimeout is the maximum wait for a database lock. Zero uses 5s.
	BusyTimeout time.Duration
}

// ConfigFrom converts the database section of config.yaml, where the busy
// timeout is given in seconds.
func ConfigFrom(cfg config.DatabaseConfig) Config {
	return Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: time.Duration(cfg.BusyTimeout) * time.Second,
	}
}

// dsn builds the go-sqlite3 connection string.
// See: https://github.com/mattn/go-sqlite3#connection-string
func (c Config) dsn() string {
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = fallbackBusyTimeout
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", c.Path, busy.Milliseconds())
	if c.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return dsn
}

// Open creates the database file if needed and verifies the connection.
//
// It performs the following setup:
//  1. Creates the parent directory (0750)
//  2. Opens the file with foreign keys on, the busy timeout and optional WAL
//  3. Caps the pool at one connection
//  4. Pings, bounded by ctx and a 5s ceiling
//  5. Restricts the file to the service user (0600)
//
// The single connection serialises the ingress's read-then-upsert
// transactions against the HTTP handlers that write the same tables.
//
// Parameters:
//   - ctx: Bounds the initial ping
//   - cfg: Connection options; see ConfigFrom
//
// Returns:
//   - *DB: Open database; call Migrate before use
//   - error: If the path is empty or the file cannot be opened
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("opening database: path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection %s: %w", cfg.Path, err)
	}

	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // Not fatal on filesystems without modes

	return &DB{DB: sqlDB}, nil
}

// Close closes the database. Safe to call on a DB that was never opened.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// HealthCheck verifies the database answers and carries a schema.
//
// Returns:
//   - error: nil when at least one migration is recorded, ErrNotMigrated on
//     an empty file, or the underlying error if the query fails
func (db *DB) HealthCheck(ctx context.Context) error {
	var applied int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`,
	).Scan(&applied)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if applied == 0 {
		return ErrNotMigrated
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if applied == 0 {
		return ErrNotMigrated
	}
	return nil
}
