package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"overlay/internal/history"
	"overlay/internal/testsupport"
)

func TestRecordAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	attempts := []history.Attempt{
		{Renderer: "renderer.:0", StartedAt: base, FinishedAt: base.Add(2 * time.Second), PID: 100, Outcome: history.OutcomeTerminated, ErrorTimes: 1},
		{Renderer: "renderer.:1", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute), Outcome: history.OutcomeSpawnFailed, Detail: "no such file"},
		{AttemptID: "fixed-id", Renderer: "renderer.:0", StartedAt: base.Add(2 * time.Minute), FinishedAt: base.Add(2*time.Minute + 300*time.Millisecond), PID: 101, Outcome: history.OutcomeReady},
	}
	for _, a := range attempts {
		if err := store.RecordLaunch(ctx, a); err != nil {
			t.Fatalf("RecordLaunch: %v", err)
		}
	}

	all, err := store.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(all))
	}
	if all[0].AttemptID != "fixed-id" || all[0].Outcome != history.OutcomeReady {
		t.Fatalf("expected newest first, got %+v", all[0])
	}
	if got := all[0].Duration(); got != 300*time.Millisecond {
		t.Fatalf("duration = %s", got)
	}
	if all[2].AttemptID == "" {
		t.Fatal("expected generated attempt id")
	}

	display0, err := store.List(ctx, "renderer.:0", 1)
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(display0) != 1 || display0[0].PID != 101 {
		t.Fatalf("unexpected filtered result: %+v", display0)
	}

	removed, err := store.Prune(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := history.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
