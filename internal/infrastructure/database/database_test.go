package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/ventana-core/internal/infrastructure/config"
)

// openTestDB opens a file-backed database in a temp dir.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func TestOpen(t *testing.T) {
	t.Run("creates nested directory and file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

		db, err := Open(context.Background(), Config{Path: dbPath, BusyTimeout: time.Second})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
	})

	t.Run("empty path", func(t *testing.T) {
		if _, err := Open(context.Background(), Config{}); err == nil {
			t.Fatal("Open() with empty path should fail")
		}
	})

	t.Run("single connection pool", func(t *testing.T) {
		db := openTestDB(t)
		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("MaxOpenConnections = %d, want 1", got)
		}
	})
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); !errors.Is(err, ErrNotMigrated) {
		t.Errorf("HealthCheck() before Migrate error = %v, want ErrNotMigrated", err)
	}

	if err := db.Migrate(ctx, testMigrations()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	db.Close() //nolint:errcheck // Closing to force failure
	if err := db.HealthCheck(ctx); err == nil || errors.Is(err, ErrNotMigrated) {
		t.Errorf("HealthCheck() on closed database error = %v, want query failure", err)
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.DatabaseConfig{Path: "/var/lib/ventana/ventana.db", WALMode: true, BusyTimeout: 3})

	if cfg.BusyTimeout != 3*time.Second {
		t.Errorf("BusyTimeout = %v, want 3s", cfg.BusyTimeout)
	}
	want := "file:/var/lib/ventana/ventana.db?_busy_timeout=3000&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL"
	if got := cfg.dsn(); got != want {
		t.Errorf("dsn() = %q, want %q", got, want)
	}

	if got := (Config{Path: "x.db"}).dsn(); got != "file:x.db?_busy_timeout=5000&_foreign_keys=on" {
		t.Errorf("dsn() with defaults = %q", got)
	}
}
