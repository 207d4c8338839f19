// Package journal persists the undo transaction log backed by SQLite.
//
// Every completed move of a run is appended durably before the next item is
// processed, so a crash mid-run still leaves a usable undo log. Undo replays
// the log newest first and removes each entry as it is restored.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sfc/internal/fileutil"
	"sfc/internal/logging"
)

const schemaVersion = 1

const schemaSQL = `
CREATE TABLE schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE moves (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id      TEXT NOT NULL,
    source      TEXT NOT NULL,
    destination TEXT NOT NULL,
    moved_at    TEXT NOT NULL
);

CREATE INDEX idx_moves_run_id ON moves(run_id);
`

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Entry is one recorded move. Source is the original location, Destination
// where the item ended up.
type Entry struct {
	ID          int64
	RunID       string
	Source      string
	Destination string
	MovedAt     time.Time
}

// UndoStatus is the per-entry outcome of an undo pass.
type UndoStatus int

const (
	// UndoRestored means the item is back at (or next to) its original path.
	UndoRestored UndoStatus = iota
	// UndoSourceMissing means the moved item no longer exists at its
	// recorded destination; there is nothing to restore.
	UndoSourceMissing
	// UndoFailed means the restore attempt hit an I/O fault. The entry is
	// kept in the log so a later undo can retry it.
	UndoFailed
)

// String returns the report label for the status.
func (s UndoStatus) String() string {
	switch s {
	case UndoRestored:
		return "RESTORED"
	case UndoSourceMissing:
		return "SOURCE_MISSING"
	default:
		return "FAILED"
	}
}

// UndoOutcome pairs a journal entry with what happened when it was replayed.
// RestoredPath is set for UndoRestored and may differ from Entry.Source when
// the original path was occupied.
type UndoOutcome struct {
	Entry        Entry
	Status       UndoStatus
	RestoredPath string
}

// UndoReport summarizes one undo pass.
type UndoReport struct {
	Outcomes []UndoOutcome
	Restored int
	Missing  int
	Failed   int
}

// Store manages undo log persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open initializes or connects to the undo database. An unreadable or
// corrupted database is discarded and recreated empty: the undo log only
// describes the most recent run, so losing it is preferable to blocking
// every future run.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	logger = logging.WithComponent(logger, "journal")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	store, err := open(dbPath, logger)
	if err == nil {
		return store, nil
	}

	logger.Warn("undo database unusable, recreating",
		logging.String("path", dbPath),
		logging.Error(err))
	removeDatabase(dbPath)
	return open(dbPath, logger)
}

func open(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

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

	store := &Store{db: db, path: dbPath, logger: logger}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// removeDatabase deletes the database file along with its WAL sidecars.
func removeDatabase(dbPath string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(dbPath + suffix)
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Destroy closes the store and deletes the database file and its WAL
// sidecars. Called after a fully successful undo so no stale journal
// lingers on disk.
func (s *Store) Destroy() error {
	if err := s.Close(); err != nil {
		return err
	}
	removeDatabase(s.path)
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
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

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Clear drops every recorded move. Each execution run clears the journal up
// front so the undo log always describes exactly one run.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.execWithRetry(ctx, "DELETE FROM moves"); err != nil {
		return fmt.Errorf("clear undo log: %w", err)
	}
	return nil
}

// Append durably records one completed move.
func (s *Store) Append(ctx context.Context, runID, source, destination string) error {
	err := s.execWithRetry(ctx,
		"INSERT INTO moves (run_id, source, destination, moved_at) VALUES (?, ?, ?, ?)",
		runID, source, destination, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append undo entry: %w", err)
	}
	return nil
}

// HasLog reports whether any moves are recorded.
func (s *Store) HasLog(ctx context.Context) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM moves").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count undo entries: %w", err)
	}
	return count > 0, nil
}

// Entries returns every recorded move, newest first.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, source, destination, moved_at FROM moves ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("list undo entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			entry   Entry
			movedAt string
		)
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.Source, &entry.Destination, &movedAt); err != nil {
			return nil, fmt.Errorf("scan undo entry: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, movedAt); parseErr == nil {
			entry.MovedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate undo entries: %w", err)
	}
	return entries, nil
}

// Undo replays the log newest first, moving each item back toward its
// original location. Occupied original paths get a numeric suffix rather
// than being overwritten. Restored and missing entries are removed from the
// log; failed entries stay so a later undo can retry them.
func (s *Store) Undo(ctx context.Context) (*UndoReport, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}

	report := &UndoReport{Outcomes: make([]UndoOutcome, 0, len(entries))}
	for _, entry := range entries {
		outcome := s.restore(entry)
		report.Outcomes = append(report.Outcomes, outcome)
		switch outcome.Status {
		case UndoRestored:
			report.Restored++
		case UndoSourceMissing:
			report.Missing++
		case UndoFailed:
			report.Failed++
			continue
		}
		if err := s.execWithRetry(ctx, "DELETE FROM moves WHERE id = ?", entry.ID); err != nil {
			return report, fmt.Errorf("remove undone entry: %w", err)
		}
	}

	s.logger.Info("undo finished",
		logging.Int("restored", report.Restored),
		logging.Int("missing", report.Missing),
		logging.Int("failed", report.Failed))
	return report, nil
}

func (s *Store) restore(entry Entry) UndoOutcome {
	if _, err := os.Lstat(entry.Destination); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("moved item no longer exists",
				logging.String("destination", entry.Destination))
			return UndoOutcome{Entry: entry, Status: UndoSourceMissing}
		}
		s.logger.Error("cannot stat moved item",
			logging.String("destination", entry.Destination),
			logging.Error(err))
		return UndoOutcome{Entry: entry, Status: UndoFailed}
	}

	if err := os.MkdirAll(filepath.Dir(entry.Source), 0o755); err != nil {
		s.logger.Error("cannot recreate original directory",
			logging.String("source", entry.Source),
			logging.Error(err))
		return UndoOutcome{Entry: entry, Status: UndoFailed}
	}

	target := entry.Source
	if _, err := os.Lstat(target); err == nil {
		target = fileutil.UniquePath(target)
	}
	if err := fileutil.Relocate(entry.Destination, target); err != nil {
		s.logger.Error("restore failed",
			logging.String("destination", entry.Destination),
			logging.String("source", target),
			logging.Error(err))
		return UndoOutcome{Entry: entry, Status: UndoFailed}
	}

	s.logger.Debug("restored",
		logging.String("destination", entry.Destination),
		logging.String("source", target))
	return UndoOutcome{Entry: entry, Status: UndoRestored, RestoredPath: target}
}
