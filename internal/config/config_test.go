package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sfc/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "sfc")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.KnowledgeBase != filepath.Join(tempHome, ".config", "sfc", "file_types.json") {
		t.Fatalf("unexpected knowledge base path: %q", cfg.Paths.KnowledgeBase)
	}
	if cfg.Executor.Workers != 0 {
		t.Fatalf("expected auto worker sizing by default, got %d", cfg.Executor.Workers)
	}
	if cfg.Executor.QueueDepth != 64 {
		t.Fatalf("unexpected queue depth: %d", cfg.Executor.QueueDepth)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadParsesFileAndNormalizesIgnoreNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sfc.toml")
	body := `
[paths]
knowledge_base = "` + filepath.Join(dir, "kb.json") + `"
state_dir = "` + filepath.Join(dir, "state") + `"

[executor]
workers = 4
queue_depth = 8
poll_interval_ms = 50

[scanner]
ignore_names = [" Thumbs.db ", "", "DESKTOP.INI"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Executor.Workers != 4 {
		t.Fatalf("unexpected workers: %d", cfg.Executor.Workers)
	}
	want := []string{"thumbs.db", "desktop.ini"}
	if len(cfg.Scanner.IgnoreNames) != len(want) {
		t.Fatalf("unexpected ignore names: %v", cfg.Scanner.IgnoreNames)
	}
	for i, name := range want {
		if cfg.Scanner.IgnoreNames[i] != name {
			t.Fatalf("ignore name %d: got %q want %q", i, cfg.Scanner.IgnoreNames[i], name)
		}
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"bad level", "[logging]\nlevel = \"verbose\"\n", "logging.level"},
		{"bad queue", "[executor]\nqueue_depth = 0\n", "queue_depth"},
		{"bad workers", "[executor]\nworkers = -1\n", "workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "_")+".toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Executor.QueueDepth <= 0 {
		t.Fatalf("sample config produced invalid queue depth: %d", cfg.Executor.QueueDepth)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(dir, "state")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, d := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", d, err)
		}
	}
	if cfg.JournalPath() != filepath.Join(cfg.Paths.StateDir, "undo.db") {
		t.Fatalf("unexpected journal path: %s", cfg.JournalPath())
	}
}
