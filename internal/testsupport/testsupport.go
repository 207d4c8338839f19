// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"sfc/internal/config"
)

// Option adjusts a test configuration before it is returned.
type Option func(*config.Config)

// WithKnowledgeBase points the configuration at an existing document instead
// of the default one seeded by NewConfig.
func WithKnowledgeBase(path string) Option {
	return func(cfg *config.Config) {
		cfg.Paths.KnowledgeBase = path
	}
}

// WithWorkers pins the executor worker count.
func WithWorkers(n int) Option {
	return func(cfg *config.Config) {
		cfg.Executor.Workers = n
	}
}

// defaultDocument is a small but representative knowledge base: a simple
// extension rule, a name rule, and an ambiguous extension backed by content
// analysis.
const defaultDocument = `{
  "_metadata": {"version": "2.0"},
  "Documents": {
    ".pdf": "Portable documents",
    ".txt": "Plain text",
    "license": "License files"
  },
  "Images": {
    ".jpg": "JPEG images",
    ".bak": {
      "description": "Image editor backups",
      "analysis_rules": [{"type": "content_contains", "contains_str": "IMGFMT"}]
    }
  },
  "Archives": {
    ".bak": {
      "description": "Archive tool backups",
      "analysis_rules": [{"type": "content_contains", "contains_str": "ARCFMT"}]
    }
  }
}`

// NewConfig builds a configuration rooted in per-test temp directories, with
// a default knowledge base document written to disk.
func NewConfig(t *testing.T, opts ...Option) *config.Config {
	t.Helper()

	base := t.TempDir()
	defaults := config.Default()
	cfg := &defaults
	cfg.Paths.KnowledgeBase = filepath.Join(base, "rules.json")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Executor.Workers = 2
	cfg.Executor.PollIntervalMS = 10

	WriteFile(t, cfg.Paths.KnowledgeBase, defaultDocument)

	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfg
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
