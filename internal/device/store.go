package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store persists the live device record.
type Store interface {
	// Get returns the current record. Returns ErrDeviceNotFound if absent.
	Get(ctx context.Context, deviceID string) (*State, error)

	// List returns every record, most recently updated first.
	List(ctx context.Context) ([]State, error)

	// Reconcile atomically reads the record, creates it with defaults if
	// missing, writes exactly the delta's field and returns both images.
	// prev is nil when the record did not exist.
	Reconcile(ctx context.Context, deviceID string, delta Delta) (prev, next *State, err error)

	// Register creates a default record owned by ownerID.
	// Returns ErrDeviceExists if the ID is taken.
	Register(ctx context.Context, deviceID, ownerID string) (*State, error)

	// AssignOwner links an existing record to ownerID.
	AssignOwner(ctx context.Context, deviceID, ownerID string) error
}

// columns maps fields to their devices table column.
var columns = map[Field]string{
	FieldWindow:      "window_state",
	FieldMode:        "mode",
	FieldLock:        "lock_state",
	FieldAlarm:       "alarm",
	FieldTemperature: "temperature",
	FieldRain:        "rain",
	FieldDayNight:    "day_night",
}

const selectState = `
	SELECT device_id, owner_id, window_state, mode, rain, lock_state, day_night,
		alarm, temperature, created_at, updated_at
	FROM devices`

const insertState = `
	INSERT INTO devices (device_id, owner_id, window_state, mode, rain, lock_state,
		day_night, alarm, temperature, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteStore implements Store on the devices table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a store on an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*State, error) {
	var s State
	var owner sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&s.DeviceID, &owner, &s.Window, &s.Mode, &s.Rain, &s.Lock,
		&s.DayNight, &s.Alarm, &s.Temperature, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}
	s.OwnerID = owner.String

	if s.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Get returns the current record for deviceID.
func (s *SQLiteStore) Get(ctx context.Context, deviceID string) (*State, error) {
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}
	return scanState(s.db.QueryRowContext(ctx, selectState+" WHERE device_id = ?", deviceID))
}

// List returns every record ordered by updated_at descending.
func (s *SQLiteStore) List(ctx context.Context) ([]State, error) {
	rows, err := s.db.QueryContext(ctx, selectState+" ORDER BY updated_at DESC, device_id")
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	states := make([]State, 0)
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return states, nil
}

// Reconcile runs read, upsert and re-read in one transaction.
//
// The upsert only names the delta's column in its conflict clause, so a
// concurrent out-of-band change to another column survives.
func (s *SQLiteStore) Reconcile(ctx context.Context, deviceID string, delta Delta) (prev, next *State, err error) {
	if deviceID == "" {
		return nil, nil, ErrInvalidDeviceID
	}
	column, ok := columns[delta.Field()]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidField, delta.Field())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("starting reconcile transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	prev, err = scanState(tx.QueryRowContext(ctx, selectState+" WHERE device_id = ?", deviceID))
	switch {
	case errors.Is(err, ErrDeviceNotFound):
		prev = nil
	case err != nil:
		return nil, nil, fmt.Errorf("reading device: %w", err)
	}

	now := formatTimestamp(s.now())
	base := DefaultState(deviceID)
	if prev != nil {
		base = *prev
	}
	inserted := delta.Apply(base)

	set := "updated_at = excluded.updated_at"
	if !delta.IsEmpty() {
		set = fmt.Sprintf("%s = excluded.%s, %s", column, column, set)
	}

	_, err = tx.ExecContext(ctx, insertState+" ON CONFLICT(device_id) DO UPDATE SET "+set,
		deviceID, nullable(inserted.OwnerID), inserted.Window, inserted.Mode, inserted.Rain,
		inserted.Lock, inserted.DayNight, inserted.Alarm, inserted.Temperature, now, now,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("upserting device: %w", err)
	}

	next, err = scanState(tx.QueryRowContext(ctx, selectState+" WHERE device_id = ?", deviceID))
	if err != nil {
		return nil, nil, fmt.Errorf("reading reconciled device: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing reconcile: %w", err)
	}
	return prev, next, nil
}

// Register creates a default record for deviceID.
func (s *SQLiteStore) Register(ctx context.Context, deviceID, ownerID string) (*State, error) {
	if deviceID == "" {
		return nil, ErrInvalidDeviceID
	}

	st := DefaultState(deviceID)
	st.OwnerID = ownerID
	now := formatTimestamp(s.now())

	result, err := s.db.ExecContext(ctx, insertState+" ON CONFLICT(device_id) DO NOTHING",
		st.DeviceID, nullable(st.OwnerID), st.Window, st.Mode, st.Rain,
		st.Lock, st.DayNight, st.Alarm, st.Temperature, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting device: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrDeviceExists
	}

	return s.Get(ctx, deviceID)
}

// AssignOwner sets the owner of an existing record.
func (s *SQLiteStore) AssignOwner(ctx context.Context, deviceID, ownerID string) error {
	if deviceID == "" {
		return ErrInvalidDeviceID
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE devices SET owner_id = ?, updated_at = ? WHERE device_id = ?",
		nullable(ownerID), formatTimestamp(s.now()), deviceID,
	)
	if err != nil {
		return fmt.Errorf("updating device owner: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}
