package projects_test

import (
	"os"
	"path/filepath"
	"testing"

	"sfc/internal/projects"
)

func TestIsProjectRootGitMarker(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	label, ok := projects.IsProjectRoot(dir)
	if !ok {
		t.Fatal("expected project detection")
	}
	if label != "Git repository" {
		t.Fatalf("unexpected label: %q", label)
	}
}

func TestIsProjectRootManifestFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[package]"), 0o644); err != nil {
		t.Fatal(err)
	}

	label, ok := projects.IsProjectRoot(dir)
	if !ok || label != "Rust crate" {
		t.Fatalf("expected Rust crate, got %q ok=%v", label, ok)
	}
}

func TestIsProjectRootVersionControlWinsOverManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	label, ok := projects.IsProjectRoot(dir)
	if !ok || label != "Git repository" {
		t.Fatalf("expected version control marker to win, got %q", label)
	}
}

func TestIsProjectRootPlainDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "photo.jpg"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if label, ok := projects.IsProjectRoot(dir); ok {
		t.Fatalf("expected no detection, got %q", label)
	}
}

func TestIsProjectRootUnreadableDirectory(t *testing.T) {
	if label, ok := projects.IsProjectRoot(filepath.Join(t.TempDir(), "missing")); ok {
		t.Fatalf("expected soft failure, got %q", label)
	}
}

func TestIsProjectRootDoesNotRecurse(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "sub")
	if err := os.MkdirAll(filepath.Join(nested, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	// The marker sits one level down; dir itself is not a project root.
	if label, ok := projects.IsProjectRoot(dir); ok {
		t.Fatalf("expected no detection for parent, got %q", label)
	}
}
