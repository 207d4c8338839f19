// Package scanner walks a source tree into a flat list of classifiable items,
// pruning into detected project directories and filtering platform noise.
package scanner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sfc/internal/logging"
	"sfc/internal/projects"
)

// ErrNotDirectory marks a scan root that is not a readable directory.
var ErrNotDirectory = errors.New("source is not a directory")

// Kind discriminates scanned items.
type Kind int

const (
	// KindFile is a regular file.
	KindFile Kind = iota
	// KindProjectDirectory is a directory recognized as a software project
	// root, treated as one atomic item.
	KindProjectDirectory
)

// Item is one scanned entry. Ephemeral: produced by Scan, consumed by the
// planner within a single invocation.
type Item struct {
	Path string
	Kind Kind
	// ProjectLabel names the marker that identified a project directory.
	ProjectLabel string
}

// IsProject reports whether the item is a project directory.
func (i Item) IsProject() bool { return i.Kind == KindProjectDirectory }

// defaultIgnoreNames are platform thumbnail/metadata files skipped during
// scanning. Compared lowercased.
var defaultIgnoreNames = map[string]struct{}{
	"thumbs.db":   {},
	"ehthumbs.db": {},
	"desktop.ini": {},
	".ds_store":   {},
	".localized":  {},
}

// Scanner walks source trees.
type Scanner struct {
	logger *slog.Logger
	ignore map[string]struct{}
}

// New constructs a scanner. extraIgnore supplements the built-in ignore list
// (names compared case-insensitively).
func New(logger *slog.Logger, extraIgnore []string) *Scanner {
	ignore := make(map[string]struct{}, len(defaultIgnoreNames)+len(extraIgnore))
	for name := range defaultIgnoreNames {
		ignore[name] = struct{}{}
	}
	for _, name := range extraIgnore {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			ignore[name] = struct{}{}
		}
	}
	return &Scanner{logger: logging.WithComponent(logger, "scanner"), ignore: ignore}
}

// Scan performs a depth-first walk of sourceRoot. Directories recognized as
// project roots are emitted as single items and not descended into. Errors
// reading a subtree are logged and that subtree skipped; only an unusable root
// fails the scan.
func (s *Scanner) Scan(sourceRoot string) ([]Item, error) {
	info, err := os.Stat(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotDirectory, sourceRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, sourceRoot)
	}

	var items []Item
	s.walk(sourceRoot, &items)
	s.logger.Info("scan complete",
		logging.String("source", sourceRoot),
		logging.Int("items", len(items)))
	return items, nil
}

func (s *Scanner) walk(dir string, items *[]Item) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("skipping unreadable directory",
			logging.String("path", dir),
			logging.Error(err))
		return
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if label, ok := projects.IsProjectRoot(path); ok {
				*items = append(*items, Item{Path: path, Kind: KindProjectDirectory, ProjectLabel: label})
				continue
			}
			s.walk(path, items)
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		if _, skip := s.ignore[strings.ToLower(entry.Name())]; skip {
			continue
		}
		*items = append(*items, Item{Path: path, Kind: KindFile})
	}
}
