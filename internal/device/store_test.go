package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store := NewSQLiteStore(setupTestDB(t).DB)
	store.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return store
}

func TestSQLiteStore_Reconcile_CreatesWithDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	prev, next, err := store.Reconcile(ctx, "ventana1", NewDelta(FieldWindow, []byte("abierto")))
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if prev != nil {
		t.Errorf("prev = %+v, want nil for new device", prev)
	}

	want := DefaultState("ventana1")
	want.Window = "abierto"
	if next.Window != want.Window || next.Mode != want.Mode || next.Lock != want.Lock ||
		next.Alarm != want.Alarm || next.Rain != want.Rain || next.DayNight != want.DayNight ||
		next.Temperature != want.Temperature {
		t.Errorf("next = %+v, want defaults with window=abierto", next)
	}
	if next.CreatedAt.IsZero() || next.UpdatedAt.IsZero() {
		t.Error("timestamps not set on created record")
	}
}

func TestSQLiteStore_Reconcile_WritesOnlyDeltaField(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.Reconcile(ctx, "ventana1", NewDelta(FieldMode, []byte("Automatico"))); err != nil {
		t.Fatalf("Reconcile(mode) error = %v", err)
	}

	prev, next, err := store.Reconcile(ctx, "ventana1", NewDelta(FieldTemperature, []byte("27.5")))
	if err != nil {
		t.Fatalf("Reconcile(temperature) error = %v", err)
	}

	if prev.Temperature != 0 || next.Temperature != 27.5 {
		t.Errorf("temperature prev=%v next=%v, want 0 and 27.5", prev.Temperature, next.Temperature)
	}
	if next.Mode != "Automatico" {
		t.Errorf("mode = %q, want preserved %q", next.Mode, "Automatico")
	}
	if !next.UpdatedAt.After(prev.UpdatedAt) {
		t.Errorf("updatedAt not advanced: prev=%v next=%v", prev.UpdatedAt, next.UpdatedAt)
	}
	if !next.CreatedAt.Equal(prev.CreatedAt) {
		t.Errorf("createdAt changed: prev=%v next=%v", prev.CreatedAt, next.CreatedAt)
	}
}

func TestSQLiteStore_Reconcile_PreservesOutOfBandWrites(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLiteStore(db.DB)
	ctx := context.Background()

	if _, _, err := store.Reconcile(ctx, "ventana1", NewDelta(FieldWindow, []byte("abierto"))); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "UPDATE devices SET alarm = 'ACTIVADA' WHERE device_id = 'ventana1'"); err != nil {
		t.Fatalf("out-of-band update: %v", err)
	}

	_, next, err := store.Reconcile(ctx, "ventana1", NewDelta(FieldRain, []byte("SI")))
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if next.Alarm != "ACTIVADA" || next.Rain != "SI" || next.Window != "abierto" {
		t.Errorf("next = %+v, want alarm=ACTIVADA rain=SI window=abierto", next)
	}
}

func TestSQLiteStore_Reconcile_BadTemperatureTouchesOnlyTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.Reconcile(ctx, "ventana1", NewDelta(FieldTemperature, []byte("21"))); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	prev, next, err := store.Reconcile(ctx, "ventana1", NewDelta(FieldTemperature, []byte("sensor-error")))
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if next.Temperature != 21 {
		t.Errorf("temperature = %v, want unchanged 21", next.Temperature)
	}
	if !next.UpdatedAt.After(prev.UpdatedAt) {
		t.Error("updatedAt should advance even when the payload is discarded")
	}
}

func TestSQLiteStore_Reconcile_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, _, err := store.Reconcile(ctx, "", NewDelta(FieldWindow, []byte("x"))); !errors.Is(err, ErrInvalidDeviceID) {
		t.Errorf("Reconcile(empty id) error = %v, want ErrInvalidDeviceID", err)
	}
	if _, _, err := store.Reconcile(ctx, "ventana1", NewDelta(FieldUnrecognized, []byte("x"))); !errors.Is(err, ErrInvalidField) {
		t.Errorf("Reconcile(unrecognized) error = %v, want ErrInvalidField", err)
	}
}

func TestSQLiteStore_GetAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrDeviceNotFound", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if _, _, err := store.Reconcile(ctx, id, NewDelta(FieldWindow, []byte("abierto"))); err != nil {
			t.Fatalf("Reconcile(%s) error = %v", id, err)
		}
	}
	// Touch "a" last so it sorts first.
	if _, _, err := store.Reconcile(ctx, "a", NewDelta(FieldRain, []byte("SI"))); err != nil {
		t.Fatalf("Reconcile(a) error = %v", err)
	}

	states, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var got []string
	for _, s := range states {
		got = append(got, s.DeviceID)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "c" || got[2] != "b" {
		t.Errorf("List() order = %v, want [a c b]", got)
	}
}

func TestSQLiteStore_RegisterAndAssignOwner(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLiteStore(db.DB)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx,
		"INSERT INTO users (id, username, created_at, updated_at) VALUES ('usr-1', 'ana', 'x', 'x'), ('usr-2', 'luis', 'x', 'x')",
	); err != nil {
		t.Fatalf("seeding users: %v", err)
	}

	st, err := store.Register(ctx, "ventana1", "usr-1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if st.OwnerID != "usr-1" || st.Window != DefaultWindow {
		t.Errorf("Register() = %+v, want owner usr-1 with defaults", st)
	}

	if _, err := store.Register(ctx, "ventana1", "usr-2"); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("second Register() error = %v, want ErrDeviceExists", err)
	}

	if err := store.AssignOwner(ctx, "ventana1", "usr-2"); err != nil {
		t.Fatalf("AssignOwner() error = %v", err)
	}
	got, err := store.Get(ctx, "ventana1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.OwnerID != "usr-2" {
		t.Errorf("OwnerID = %q, want usr-2", got.OwnerID)
	}

	if err := store.AssignOwner(ctx, "missing", "usr-2"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("AssignOwner(missing) error = %v, want ErrDeviceNotFound", err)
	}

	// Reconcile keeps the owner.
	_, next, err := store.Reconcile(ctx, "ventana1", NewDelta(FieldAlarm, []byte("ACTIVADA")))
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if next.OwnerID != "usr-2" {
		t.Errorf("OwnerID after Reconcile = %q, want usr-2", next.OwnerID)
	}
}

func TestSQLiteStore_Reconcile_UpsertFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT device_id").WithArgs("ventana1").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}))
	mock.ExpectExec("INSERT INTO devices").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	store := NewSQLiteStore(db)
	prev, next, err := store.Reconcile(context.Background(), "ventana1", NewDelta(FieldWindow, []byte("abierto")))
	if err == nil {
		t.Fatal("Reconcile() should fail when the upsert fails")
	}
	if prev != nil || next != nil {
		t.Errorf("Reconcile() returned images on failure: prev=%v next=%v", prev, next)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLiteStore_Reconcile_BeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	store := NewSQLiteStore(db)
	if _, _, err := store.Reconcile(context.Background(), "ventana1", NewDelta(FieldLock, []byte("activo"))); err == nil {
		t.Fatal("Reconcile() should fail when the transaction cannot start")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
