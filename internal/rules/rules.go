package rules

import (
	"log/slog"
	"sort"
	"strings"
)

// AnalysisTypeContentContains matches when a rule's keyword occurs in a file's
// byte prefix. Unknown analysis types are preserved but never match.
const AnalysisTypeContentContains = "content_contains"

// AnalysisRule is one content-analysis predicate attached to a smart rule.
type AnalysisRule struct {
	Type     string
	Contains []byte
}

// Rule is a single classification rule. A rule parsed from a bare string in
// the knowledge base carries only a description and no analysis rules.
type Rule struct {
	Category    string
	Description string
	Analysis    []AnalysisRule
}

// Smart reports whether the rule carries content-analysis predicates.
func (r Rule) Smart() bool { return len(r.Analysis) > 0 }

// Store holds the parsed knowledge base: exact-name rules and per-extension
// candidate lists. Immutable once built; reload between runs to pick up
// knowledge base mutations.
type Store struct {
	version string
	names   map[string]Rule
	exts    map[string][]Rule
	logger  *slog.Logger
}

// Version returns the document version the store was built from.
func (s *Store) Version() string { return s.version }

// LookupByName returns the rule for an exact (case-insensitive) file name.
func (s *Store) LookupByName(name string) (Rule, bool) {
	rule, ok := s.names[strings.ToLower(strings.TrimSpace(name))]
	return rule, ok
}

// LookupByExtension returns the ordered candidate rules for an extension.
// The extension is normalized to a lowercased, dot-prefixed key. More than one
// candidate signals ambiguity requiring content analysis.
func (s *Store) LookupByExtension(ext string) []Rule {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return nil
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return s.exts[ext]
}

// Len returns the total number of loaded rules.
func (s *Store) Len() int {
	total := len(s.names)
	for _, candidates := range s.exts {
		total += len(candidates)
	}
	return total
}

// Categories returns the distinct category names in sorted order.
func (s *Store) Categories() []string {
	seen := map[string]struct{}{}
	for _, rule := range s.names {
		seen[rule.Category] = struct{}{}
	}
	for _, candidates := range s.exts {
		for _, rule := range candidates {
			seen[rule.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for category := range seen {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

// Keys returns the sorted rule keys (extensions and exact names) that map
// into the given category.
func (s *Store) Keys(category string) []string {
	var out []string
	for name, rule := range s.names {
		if rule.Category == category {
			out = append(out, name)
		}
	}
	for ext, candidates := range s.exts {
		for _, rule := range candidates {
			if rule.Category == category {
				out = append(out, ext)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Extensions returns the known extension keys in sorted order.
func (s *Store) Extensions() []string {
	out := make([]string, 0, len(s.exts))
	for ext := range s.exts {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Names returns the known exact-name keys in sorted order.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
