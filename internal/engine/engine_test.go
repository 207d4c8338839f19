package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"sfc/internal/engine"
	"sfc/internal/logging"
	"sfc/internal/mover"
	"sfc/internal/planner"
	"sfc/internal/rules"
	"sfc/internal/testsupport"
)

func newEngine(t *testing.T) (*engine.Engine, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	eng, err := engine.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng, cfg.LockPath()
}

// seedSource builds the canonical mixed source tree: a simple document, an
// image, a file no rule knows, and a git repository.
func seedSource(t *testing.T, root string) {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(root, "report.pdf"), "pdf")
	testsupport.WriteFile(t, filepath.Join(root, "photo.jpg"), "jpg")
	testsupport.WriteFile(t, filepath.Join(root, "notes.xyz"), "xyz")
	testsupport.WriteFile(t, filepath.Join(root, "myrepo", ".git", "HEAD"), "ref: main")
	testsupport.WriteFile(t, filepath.Join(root, "myrepo", "main.go"), "package main")
}

func TestEndToEndClassifyExecuteUndo(t *testing.T) {
	eng, _ := newEngine(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "inbox")
	dest := filepath.Join(dir, "sorted")
	seedSource(t, source)

	items, err := eng.Scan(source)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d: %+v", len(items), items)
	}

	plan := eng.GeneratePlan(items, dest)
	unresolved := eng.Unresolved()
	if len(unresolved) != 1 || filepath.Base(unresolved[0].Path) != "notes.xyz" {
		t.Fatalf("expected notes.xyz unresolved, got %+v", unresolved)
	}

	summary, err := eng.ExecutePlan(context.Background(), plan, mover.StrategyAppendNumber, nil)
	if err != nil {
		t.Fatalf("ExecutePlan: %v", err)
	}
	if summary.Moved != 4 || summary.Failed != 0 || summary.Cancelled {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	expected := []string{
		filepath.Join(dest, "Documents", "pdf", "report.pdf"),
		filepath.Join(dest, "Images", "jpg", "photo.jpg"),
		filepath.Join(dest, planner.BucketUnresolved, "xyz", "notes.xyz"),
		filepath.Join(dest, planner.BucketProjects, "myrepo", "main.go"),
	}
	for _, path := range expected {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s after execution: %v", path, err)
		}
	}

	has, err := eng.HasUndo(context.Background())
	if err != nil || !has {
		t.Fatalf("HasUndo = %v, %v", has, err)
	}

	report, err := eng.Undo(context.Background())
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if report.Restored != 4 || report.Failed != 0 {
		t.Fatalf("unexpected undo report: %+v", report)
	}
	for _, name := range []string{"report.pdf", "photo.jpg", "notes.xyz", filepath.Join("myrepo", "main.go")} {
		if _, err := os.Stat(filepath.Join(source, name)); err != nil {
			t.Fatalf("expected %s restored: %v", name, err)
		}
	}

	has, err = eng.HasUndo(context.Background())
	if err != nil || has {
		t.Fatalf("expected empty undo log after undo, got %v, %v", has, err)
	}
}

func TestLearnRuleResolvesFutureScans(t *testing.T) {
	eng, _ := newEngine(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "inbox")
	testsupport.WriteFile(t, filepath.Join(source, "notes.xyz"), "xyz")

	items, err := eng.Scan(source)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	eng.GeneratePlan(items, filepath.Join(dir, "sorted"))
	if len(eng.Unresolved()) != 1 {
		t.Fatal("setup failed: expected one unresolved item")
	}

	if err := eng.LearnRule(rules.NewRule{
		Category:    "Documents",
		Key:         ".xyz",
		Description: "Notes format",
	}); err != nil {
		t.Fatalf("LearnRule: %v", err)
	}

	plan := eng.GeneratePlan(items, filepath.Join(dir, "sorted"))
	want := filepath.Join(dir, "sorted", "Documents", "xyz")
	if plan[0].DestinationDir != want {
		t.Fatalf("learned rule not applied: %q", plan[0].DestinationDir)
	}
	if len(eng.Unresolved()) != 0 {
		t.Fatalf("expected no unresolved items, got %+v", eng.Unresolved())
	}
}

func TestHasUndoDoesNotCreateDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	eng, err := engine.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	has, err := eng.HasUndo(context.Background())
	if err != nil {
		t.Fatalf("HasUndo: %v", err)
	}
	if has {
		t.Fatal("expected no undo log on a fresh engine")
	}
	// Asking the question must not leave an empty database behind.
	if _, err := os.Stat(cfg.JournalPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no database file, stat returned %v", err)
	}
}

func TestUndoWithoutJournal(t *testing.T) {
	eng, _ := newEngine(t)
	if _, err := eng.Undo(context.Background()); !errors.Is(err, engine.ErrNoJournal) {
		t.Fatalf("expected ErrNoJournal, got %v", err)
	}
}

func TestOperationLockRejectsConcurrentRuns(t *testing.T) {
	eng, lockPath := newEngine(t)

	other := flock.New(lockPath)
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("external lock: %v ok=%v", err, ok)
	}
	defer func() { _ = other.Unlock() }()

	if _, err := eng.ExecutePlan(context.Background(), nil, mover.StrategyAppendNumber, nil); !errors.Is(err, engine.ErrBusy) {
		t.Fatalf("expected ErrBusy from ExecutePlan, got %v", err)
	}
	if _, err := eng.Undo(context.Background()); !errors.Is(err, engine.ErrBusy) {
		t.Fatalf("expected ErrBusy from Undo, got %v", err)
	}
}

func TestNewRejectsMissingKnowledgeBase(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithKnowledgeBase(filepath.Join(t.TempDir(), "absent.json")))
	if _, err := engine.New(cfg, logging.NewNop()); !errors.Is(err, engine.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestScanRejectsFileRoot(t *testing.T) {
	eng, _ := newEngine(t)
	path := filepath.Join(t.TempDir(), "plain.txt")
	testsupport.WriteFile(t, path, "x")
	if _, err := eng.Scan(path); !errors.Is(err, engine.ErrNotDirectory) {
		t.Fatalf("expected ErrNotDirectory, got %v", err)
	}
}

func TestImportRulesReloadsStore(t *testing.T) {
	eng, _ := newEngine(t)
	csvPath := filepath.Join(t.TempDir(), "rules.csv")
	testsupport.WriteFile(t, csvPath, "category,key,description\nAudio,.flac,Lossless audio\n")

	report, err := eng.ImportRules(csvPath)
	if err != nil {
		t.Fatalf("ImportRules: %v", err)
	}
	if report.Imported != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if candidates := eng.Rules().LookupByExtension(".flac"); len(candidates) != 1 {
		t.Fatalf("imported rule not visible after reload: %+v", candidates)
	}
}
