package sniff_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sfc/internal/logging"
	"sfc/internal/rules"
	"sfc/internal/sniff"
)

func candidates() []rules.Rule {
	return []rules.Rule{
		{
			Category: "Images",
			Analysis: []rules.AnalysisRule{
				{Type: rules.AnalysisTypeContentContains, Contains: []byte("ALPHA")},
			},
		},
		{
			Category: "Archives",
			Analysis: []rules.AnalysisRule{
				{Type: rules.AnalysisTypeContentContains, Contains: []byte("BETA")},
			},
		},
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.bak")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveFirstMatchWins(t *testing.T) {
	s := sniff.New(logging.NewNop())
	path := writeTemp(t, "header ALPHA and also BETA")

	category, ok := s.Resolve(path, candidates())
	if !ok || category != "Images" {
		t.Fatalf("expected Images, got %q ok=%v", category, ok)
	}
}

func TestResolveSecondCandidate(t *testing.T) {
	s := sniff.New(logging.NewNop())
	path := writeTemp(t, "only BETA here")

	category, ok := s.Resolve(path, candidates())
	if !ok || category != "Archives" {
		t.Fatalf("expected Archives, got %q ok=%v", category, ok)
	}
}

func TestResolveNoMatch(t *testing.T) {
	s := sniff.New(logging.NewNop())
	path := writeTemp(t, "nothing of interest")

	if category, ok := s.Resolve(path, candidates()); ok {
		t.Fatalf("expected no match, got %q", category)
	}
}

func TestResolveKeywordBeyondPrefixIgnored(t *testing.T) {
	s := sniff.New(logging.NewNop())
	path := writeTemp(t, strings.Repeat("x", 300)+"ALPHA")

	if category, ok := s.Resolve(path, candidates()); ok {
		t.Fatalf("expected keyword past 256 bytes to be invisible, got %q", category)
	}
}

func TestResolveUnreadableFileFailsSoft(t *testing.T) {
	s := sniff.New(logging.NewNop())
	path := filepath.Join(t.TempDir(), "missing.bak")

	if category, ok := s.Resolve(path, candidates()); ok {
		t.Fatalf("expected soft failure for unreadable file, got %q", category)
	}
}

func TestResolveIgnoresUnknownAnalysisTypes(t *testing.T) {
	s := sniff.New(logging.NewNop())
	path := writeTemp(t, "ALPHA")

	unknown := []rules.Rule{{
		Category: "Weird",
		Analysis: []rules.AnalysisRule{{Type: "magic_bytes", Contains: []byte("ALPHA")}},
	}}
	if category, ok := s.Resolve(path, unknown); ok {
		t.Fatalf("expected unknown analysis type to never match, got %q", category)
	}
}
