package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store manages the launch journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	timeLayout              = time.RFC3339Nano
)

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Session, launcher worker and CLI may all write; one connection keeps
	// SQLite locking simple.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordLaunch appends an attempt. A missing AttemptID is generated.
func (s *Store) RecordLaunch(ctx context.Context, attempt Attempt) error {
	if attempt.AttemptID == "" {
		attempt.AttemptID = uuid.NewString()
	}
	if attempt.FinishedAt.IsZero() {
		attempt.FinishedAt = time.Now()
	}
	return retryOnBusy(ensureContext(ctx), func() error {
		_, err := s.db.ExecContext(ensureContext(ctx),
			`INSERT INTO launches (attempt_id, renderer, started_at, finished_at, pid, outcome, error_times, detail)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			attempt.AttemptID,
			attempt.Renderer,
			attempt.StartedAt.UTC().Format(timeLayout),
			attempt.FinishedAt.UTC().Format(timeLayout),
			attempt.PID,
			string(attempt.Outcome),
			attempt.ErrorTimes,
			attempt.Detail,
		)
		return err
	})
}

// List returns the most recent attempts, newest first. An empty renderer
// lists every renderer.
func (s *Store) List(ctx context.Context, renderer string, limit int) ([]Attempt, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, attempt_id, renderer, started_at, finished_at, pid, outcome, error_times, detail
		FROM launches`
	args := []any{}
	if renderer != "" {
		query += " WHERE renderer = ?"
		args = append(args, renderer)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query launches: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			a                 Attempt
			started, finished string
			outcome           string
		)
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.Renderer, &started, &finished, &a.PID, &outcome, &a.ErrorTimes, &a.Detail); err != nil {
			return nil, fmt.Errorf("scan launch: %w", err)
		}
		a.Outcome = Outcome(outcome)
		a.StartedAt, _ = time.Parse(timeLayout, started)
		a.FinishedAt, _ = time.Parse(timeLayout, finished)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate launches: %w", err)
	}
	return attempts, nil
}

// Prune deletes attempts older than the cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM launches WHERE started_at < ?", olderThan.UTC().Format(timeLayout))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
