package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func newTestHistory(t *testing.T) (*SQLiteHistoryRepository, *SQLiteStore) {
	t.Helper()

	db := setupTestDB(t)
	store := NewSQLiteStore(db.DB)
	if _, _, err := store.Reconcile(context.Background(), "ventana1", NewDelta(FieldWindow, []byte("cerrado"))); err != nil {
		t.Fatalf("seeding device: %v", err)
	}
	return NewSQLiteHistoryRepository(db.DB), store
}

func TestSQLiteHistoryRepository_Append(t *testing.T) {
	repo, _ := newTestHistory(t)
	ctx := context.Background()

	entry := &HistoryEntry{DeviceID: "ventana1", Action: ActionOpen, Details: "apertura por calor"}
	if err := repo.Append(ctx, entry); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !strings.HasPrefix(entry.ID, "hist-") {
		t.Errorf("ID = %q, want hist- prefix", entry.ID)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt not assigned")
	}

	entries, err := repo.List(ctx, "ventana1", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.ID != entry.ID || got.Action != ActionOpen || got.Details != "apertura por calor" {
		t.Errorf("List()[0] = %+v, want %+v", got, entry)
	}
	if !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, entry.CreatedAt)
	}
}

func TestSQLiteHistoryRepository_AppendValidation(t *testing.T) {
	repo, _ := newTestHistory(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		entry *HistoryEntry
	}{
		{"nil entry", nil},
		{"missing device", &HistoryEntry{Action: ActionClose}},
		{"missing action", &HistoryEntry{DeviceID: "ventana1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Append(ctx, tt.entry); !errors.Is(err, ErrInvalidHistoryEntry) {
				t.Errorf("Append() error = %v, want ErrInvalidHistoryEntry", err)
			}
		})
	}
}

func TestSQLiteHistoryRepository_ListOrderAndLimit(t *testing.T) {
	repo, _ := newTestHistory(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := &HistoryEntry{
			DeviceID:  "ventana1",
			Action:    ActionClose,
			Details:   fmt.Sprintf("entry-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Append(ctx, entry); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
	// Same timestamp as entry-4, inserted later.
	if err := repo.Append(ctx, &HistoryEntry{
		DeviceID: "ventana1", Action: ActionOpen, Details: "tie", CreatedAt: base.Add(4 * time.Second),
	}); err != nil {
		t.Fatalf("Append(tie) error = %v", err)
	}

	entries, err := repo.List(ctx, "ventana1", 3)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"tie", "entry-4", "entry-3"}
	if len(entries) != len(want) {
		t.Fatalf("List() returned %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].Details != w {
			t.Errorf("entries[%d].Details = %q, want %q", i, entries[i].Details, w)
		}
	}

	all, err := repo.List(ctx, "ventana1", 10_000)
	if err != nil {
		t.Fatalf("List(clamped) error = %v", err)
	}
	if len(all) != 6 {
		t.Errorf("List(clamped) returned %d entries, want 6", len(all))
	}

	other, err := repo.List(ctx, "ventana2", 0)
	if err != nil {
		t.Fatalf("List(other) error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("List(other) returned %d entries, want 0", len(other))
	}
}

func TestSQLiteHistoryRepository_Prune(t *testing.T) {
	repo, _ := newTestHistory(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	for _, age := range []time.Duration{40 * 24 * time.Hour, 20 * 24 * time.Hour, time.Hour} {
		if err := repo.Append(ctx, &HistoryEntry{
			DeviceID: "ventana1", Action: ActionClose, CreatedAt: now.Add(-age),
		}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	deleted, err := repo.Prune(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("Prune() deleted %d, want 1", deleted)
	}

	remaining, err := repo.List(ctx, "ventana1", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("remaining = %d, want 2", len(remaining))
	}

	if _, err := repo.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) should fail")
	}
}
