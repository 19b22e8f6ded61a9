package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// HistoryEntry records one actionable transition. Entries are immutable.
type HistoryEntry struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device"`
	Action    Action    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryRepository stores the append-only device history.
type HistoryRepository interface {
	// Append assigns ID and CreatedAt when unset and inserts the entry.
	Append(ctx context.Context, entry *HistoryEntry) error

	// List returns up to limit entries for deviceID, newest first.
	// limit <= 0 means the default of 50; values above 200 are clamped.
	List(ctx context.Context, deviceID string, limit int) ([]HistoryEntry, error)

	// Prune deletes entries older than olderThan and returns the count.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteHistoryRepository implements HistoryRepository on device_history.
type SQLiteHistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteHistoryRepository creates a history repository on an open database.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db, now: time.Now}
}

// Append inserts entry.
func (r *SQLiteHistoryRepository) Append(ctx context.Context, entry *HistoryEntry) error {
	if entry == nil || entry.DeviceID == "" || entry.Action == ActionNone {
		return ErrInvalidHistoryEntry
	}
	if entry.ID == "" {
		entry.ID = "hist-" + uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO device_history (id, device_id, action, details, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.ID, entry.DeviceID, string(entry.Action), entry.Details, formatTimestamp(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// List returns history newest first. Entries sharing a timestamp come back
// in reverse insertion order.
func (r *SQLiteHistoryRepository) List(ctx context.Context, deviceID string, limit int) ([]HistoryEntry, error) {
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, action, details, created_at
		 FROM device_history
		 WHERE device_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var entry HistoryEntry
		var action, createdAt string
		if err := rows.Scan(&entry.ID, &entry.DeviceID, &action, &entry.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		entry.Action = Action(action)
		if entry.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries created before now-olderThan.
func (r *SQLiteHistoryRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := formatTimestamp(r.now().Add(-olderThan))
	result, err := r.db.ExecContext(ctx, "DELETE FROM device_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting history: %w", err)
	}
	return result.RowsAffected()
}
