package journal_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"sfc/internal/journal"
	"sfc/internal/logging"
)

func openStore(t *testing.T, dbPath string) *journal.Store {
	t.Helper()
	store, err := journal.Open(dbPath, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAppendAndEntriesNewestFirst(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "undo.db"))
	ctx := context.Background()
	runID := uuid.NewString()

	for _, name := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, runID, "/src/"+name, "/dest/"+name); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Source != "/src/c" || entries[2].Source != "/src/a" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if entries[0].RunID != runID {
		t.Fatalf("run id not persisted: %q", entries[0].RunID)
	}

	has, err := store.HasLog(ctx)
	if err != nil || !has {
		t.Fatalf("HasLog = %v, %v", has, err)
	}
}

func TestClear(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "undo.db"))
	ctx := context.Background()

	if err := store.Append(ctx, uuid.NewString(), "/src/a", "/dest/a"); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	has, err := store.HasLog(ctx)
	if err != nil || has {
		t.Fatalf("expected empty log after Clear, got %v, %v", has, err)
	}
}

func TestUndoRestoresFiles(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, filepath.Join(dir, "state", "undo.db"))
	ctx := context.Background()
	runID := uuid.NewString()

	src := filepath.Join(dir, "inbox", "a.txt")
	dest := filepath.Join(dir, "sorted", "Documents", "txt", "a.txt")
	writeFile(t, dest, "content")
	if err := store.Append(ctx, runID, src, dest); err != nil {
		t.Fatal(err)
	}

	report, err := store.Undo(ctx)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if report.Restored != 1 || report.Missing != 0 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got, err := os.ReadFile(src); err != nil || string(got) != "content" {
		t.Fatalf("file not restored: %q err=%v", got, err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("destination should be gone, err=%v", err)
	}

	has, err := store.HasLog(ctx)
	if err != nil || has {
		t.Fatalf("expected empty log after undo, got %v, %v", has, err)
	}
}

func TestUndoOccupiedOriginalPathGetsSuffix(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, filepath.Join(dir, "undo.db"))
	ctx := context.Background()

	src := filepath.Join(dir, "inbox", "a.txt")
	dest := filepath.Join(dir, "sorted", "a.txt")
	writeFile(t, dest, "moved")
	writeFile(t, src, "newcomer")
	if err := store.Append(ctx, uuid.NewString(), src, dest); err != nil {
		t.Fatal(err)
	}

	report, err := store.Undo(ctx)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if report.Restored != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	restored := report.Outcomes[0].RestoredPath
	if restored != filepath.Join(dir, "inbox", "a_1.txt") {
		t.Fatalf("expected suffixed restore path, got %q", restored)
	}
	if got, _ := os.ReadFile(src); string(got) != "newcomer" {
		t.Fatalf("occupying file clobbered: %q", got)
	}
	if got, _ := os.ReadFile(restored); string(got) != "moved" {
		t.Fatalf("restored content wrong: %q", got)
	}
}

func TestUndoMissingDestination(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, filepath.Join(dir, "undo.db"))
	ctx := context.Background()

	if err := store.Append(ctx, uuid.NewString(),
		filepath.Join(dir, "inbox", "gone.txt"),
		filepath.Join(dir, "sorted", "gone.txt")); err != nil {
		t.Fatal(err)
	}

	report, err := store.Undo(ctx)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if report.Missing != 1 || report.Restored != 0 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Status != journal.UndoSourceMissing {
		t.Fatalf("unexpected outcomes: %+v", report.Outcomes)
	}

	// A missing destination is not retryable; the entry is dropped.
	has, err := store.HasLog(ctx)
	if err != nil || has {
		t.Fatalf("expected empty log, got %v, %v", has, err)
	}
}

func TestDestroyRemovesDatabaseFiles(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "undo.db")
	store, err := journal.Open(dbPath, logging.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Append(context.Background(), uuid.NewString(), "/src/a", "/dest/a"); err != nil {
		t.Fatal(err)
	}

	if err := store.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if _, err := os.Stat(dbPath + suffix); !os.IsNotExist(err) {
			t.Fatalf("expected %s%s gone, err=%v", dbPath, suffix, err)
		}
	}
}

func TestOpenRecoversFromCorruptDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "undo.db")
	writeFile(t, dbPath, "this is not a sqlite database")

	store := openStore(t, dbPath)
	ctx := context.Background()
	if err := store.Append(ctx, uuid.NewString(), "/src/a", "/dest/a"); err != nil {
		t.Fatalf("Append after recovery: %v", err)
	}
	has, err := store.HasLog(ctx)
	if err != nil || !has {
		t.Fatalf("HasLog after recovery = %v, %v", has, err)
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, filepath.Join(dir, "deep", "nested", "undo.db"))
	if has, err := store.HasLog(context.Background()); err != nil || has {
		t.Fatalf("fresh store should be empty: %v, %v", has, err)
	}
}
