package scanner_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sfc/internal/logging"
	"sfc/internal/scanner"
)

func mustWrite(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanEmitsFilesRecursively(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "report.pdf"))
	mustWrite(t, filepath.Join(root, "nested", "photo.jpg"))

	s := scanner.New(logging.NewNop(), nil)
	items, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	for _, item := range items {
		if item.IsProject() {
			t.Fatalf("unexpected project item: %+v", item)
		}
	}
}

func TestScanPrunesProjectDirectories(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "myrepo")
	mustWrite(t, filepath.Join(repo, ".git", "HEAD"))
	mustWrite(t, filepath.Join(repo, "main.go"))
	mustWrite(t, filepath.Join(root, "loose.txt"))

	s := scanner.New(logging.NewNop(), nil)
	items, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	var projectItems, fileItems int
	for _, item := range items {
		if item.IsProject() {
			projectItems++
			if item.Path != repo {
				t.Fatalf("unexpected project path: %q", item.Path)
			}
			if item.ProjectLabel != "Git repository" {
				t.Fatalf("unexpected project label: %q", item.ProjectLabel)
			}
		} else {
			fileItems++
		}
	}
	// Exactly one item for the repo; its contents must not be emitted.
	if projectItems != 1 || fileItems != 1 {
		t.Fatalf("expected 1 project + 1 file, got %d + %d", projectItems, fileItems)
	}
}

func TestScanSkipsIgnoredNames(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "Thumbs.db"))
	mustWrite(t, filepath.Join(root, ".DS_Store"))
	mustWrite(t, filepath.Join(root, "custom.tmp"))
	mustWrite(t, filepath.Join(root, "keep.txt"))

	s := scanner.New(logging.NewNop(), []string{"CUSTOM.TMP"})
	items, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(items) != 1 || filepath.Base(items[0].Path) != "keep.txt" {
		t.Fatalf("expected only keep.txt, got %+v", items)
	}
}

func TestScanRejectsNonDirectoryRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "plain.txt")
	mustWrite(t, file)

	s := scanner.New(logging.NewNop(), nil)
	if _, err := s.Scan(file); !errors.Is(err, scanner.ErrNotDirectory) {
		t.Fatalf("expected ErrNotDirectory, got %v", err)
	}
	if _, err := s.Scan(filepath.Join(root, "missing")); !errors.Is(err, scanner.ErrNotDirectory) {
		t.Fatalf("expected ErrNotDirectory for missing root, got %v", err)
	}
}

func TestScanEmptyTree(t *testing.T) {
	s := scanner.New(logging.NewNop(), nil)
	items, err := s.Scan(t.TempDir())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
}
