package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"schemawatch/src/features/migrating"
)

func newTestHistory(t *testing.T) *SqliteHistory {
	t.Helper()
	h, err := NewSqliteHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory history: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func newRun() *migrating.MigrationRun {
	return &migrating.MigrationRun{
		ID:        uuid.New().String(),
		Message:   "test autogenerate",
		Status:    migrating.RunStatusRunning,
		CreatedAt: time.Now(),
	}
}

func TestSqliteHistory_AddAndGet(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	run := newRun()
	if err := h.Add(ctx, run); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := h.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Status != migrating.RunStatusRunning {
		t.Errorf("expected status running, got %s", got.Status)
	}
	if got.Message != run.Message {
		t.Errorf("expected message %q, got %q", run.Message, got.Message)
	}
}

func TestSqliteHistory_FinishIsTerminal(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	run := newRun()
	if err := h.Add(ctx, run); err != nil {
		t.Fatal(err)
	}

	run.Status = migrating.RunStatusApplied
	run.Revision = "deadbeef1234"
	run.FinishedAt = time.Now()
	if err := h.Finish(ctx, run); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := h.Get(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != migrating.RunStatusApplied {
		t.Errorf("expected status applied, got %s", got.Status)
	}
	if got.Revision != "deadbeef1234" {
		t.Errorf("expected revision recorded, got %q", got.Revision)
	}
	if got.FinishedAt.IsZero() {
		t.Error("expected finish timestamp recorded")
	}

	// A terminal run must never be finalized again
	run.Status = migrating.RunStatusFailed
	if err := h.Finish(ctx, run); err == nil {
		t.Fatal("expected an error finalizing an already terminal run")
	}
}

func TestSqliteHistory_ListOrdersNewestFirst(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	older := newRun()
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := newRun()

	if err := h.Add(ctx, older); err != nil {
		t.Fatal(err)
	}
	if err := h.Add(ctx, newer); err != nil {
		t.Fatal(err)
	}

	runs, err := h.List(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != newer.ID {
		t.Errorf("expected newest run first, got %s", runs[0].ID)
	}
}

func TestSqliteHistory_GetMissingRun(t *testing.T) {
	h := newTestHistory(t)
	if _, err := h.Get(context.Background(), "nope"); err == nil {
		t.Fatal("expected an error for a missing run")
	}
}
