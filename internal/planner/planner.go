// Package planner turns scanned items into a move plan without touching any
// files, tracking the items it could not confidently resolve.
package planner

import (
	"log/slog"
	"path/filepath"
	"strings"

	"sfc/internal/logging"
	"sfc/internal/rules"
	"sfc/internal/scanner"
	"sfc/internal/sniff"
)

// Destination buckets. BucketUnresolved receives files no rule claims at all;
// BucketUncategorized receives files whose extension ambiguity was analyzed
// but produced no content match. Both kinds of file join the unresolved set
// so a learning workflow can pick them up, but they land in distinct buckets.
const (
	BucketProjects      = "Software_Projects"
	BucketUnresolved    = "Others"
	BucketUncategorized = "Uncategorized"
	BucketAsIs          = "Move_As_Is"

	// NoExtensionDir is the extension subfolder for files without one.
	NoExtensionDir = "no_extension"
)

// Entry is one planned move: a source path and the directory it should land in.
type Entry struct {
	Source         string
	DestinationDir string
}

// Mode selects how GenerateAdvancedPlan composes the pipeline.
type Mode int

const (
	// ModeDefault classifies every item through the standard pipeline.
	ModeDefault Mode = iota
	// ModeMoveAsIs sends selected items verbatim to the as-is bucket and
	// classifies the rest.
	ModeMoveAsIs
	// ModeClassifySelected classifies only the selected items (all items
	// when the selection is empty).
	ModeClassifySelected
)

// Planner runs the classification pipeline over scanned items.
type Planner struct {
	store   *rules.Store
	sniffer *sniff.Sniffer
	logger  *slog.Logger

	unresolved []scanner.Item
}

// New constructs a planner over a loaded rule store.
func New(store *rules.Store, sniffer *sniff.Sniffer, logger *slog.Logger) *Planner {
	return &Planner{
		store:   store,
		sniffer: sniffer,
		logger:  logging.WithComponent(logger, "planner"),
	}
}

// Unresolved returns the items the most recent plan generation could not
// confidently resolve. Callers use it to drive a rule-learning step.
func (p *Planner) Unresolved() []scanner.Item {
	out := make([]scanner.Item, len(p.unresolved))
	copy(out, p.unresolved)
	return out
}

// GeneratePlan clears the unresolved set and classifies every item, producing
// an ordered move plan rooted at destinationRoot.
func (p *Planner) GeneratePlan(items []scanner.Item, destinationRoot string) []Entry {
	p.unresolved = nil
	return p.classify(items, destinationRoot)
}

// GenerateAdvancedPlan composes the standard pipeline per the selected mode.
// It clears the unresolved set once up front; the classification logic itself
// lives only in the standard pipeline.
func (p *Planner) GenerateAdvancedPlan(allItems, selectedItems []scanner.Item, destinationRoot string, mode Mode) []Entry {
	p.unresolved = nil

	switch mode {
	case ModeMoveAsIs:
		selected := make(map[string]struct{}, len(selectedItems))
		plan := make([]Entry, 0, len(allItems))
		for _, item := range selectedItems {
			selected[item.Path] = struct{}{}
			plan = append(plan, p.asIsEntry(item, destinationRoot))
		}
		var rest []scanner.Item
		for _, item := range allItems {
			if _, ok := selected[item.Path]; !ok {
				rest = append(rest, item)
			}
		}
		return append(plan, p.classify(rest, destinationRoot)...)
	case ModeClassifySelected:
		if len(selectedItems) == 0 {
			return p.classify(allItems, destinationRoot)
		}
		return p.classify(selectedItems, destinationRoot)
	default:
		return p.classify(allItems, destinationRoot)
	}
}

// asIsEntry routes an item to the as-is bucket verbatim. Project directories
// still land in a projects subfolder so repositories stay recognizable.
func (p *Planner) asIsEntry(item scanner.Item, destinationRoot string) Entry {
	dest := filepath.Join(destinationRoot, BucketAsIs)
	if item.IsProject() {
		dest = filepath.Join(dest, BucketProjects)
	}
	return Entry{Source: item.Path, DestinationDir: dest}
}

func (p *Planner) classify(items []scanner.Item, destinationRoot string) []Entry {
	plan := make([]Entry, 0, len(items))
	for _, item := range items {
		category := p.resolveCategory(item)
		plan = append(plan, Entry{
			Source:         item.Path,
			DestinationDir: p.destinationDir(item, category, destinationRoot),
		})
	}
	p.logger.Info("plan generated",
		logging.Int("entries", len(plan)),
		logging.Int("unresolved", len(p.unresolved)))
	return plan
}

// resolveCategory runs the ordered decision pipeline, stopping at the first
// layer that yields a category.
func (p *Planner) resolveCategory(item scanner.Item) string {
	if item.IsProject() {
		return BucketProjects
	}

	name := filepath.Base(item.Path)
	if rule, ok := p.store.LookupByName(name); ok {
		return rule.Category
	}

	candidates := p.store.LookupByExtension(filepath.Ext(name))
	switch len(candidates) {
	case 0:
		p.markUnresolved(item)
		return BucketUnresolved
	case 1:
		return candidates[0].Category
	default:
		if category, ok := p.sniffer.Resolve(item.Path, candidates); ok {
			return category
		}
		p.markUnresolved(item)
		return BucketUncategorized
	}
}

func (p *Planner) markUnresolved(item scanner.Item) {
	p.unresolved = append(p.unresolved, item)
	p.logger.Debug("item unresolved", logging.String("path", item.Path))
}

// destinationDir builds destinationRoot/category/extension for files and
// destinationRoot/category for project directories.
func (p *Planner) destinationDir(item scanner.Item, category, destinationRoot string) string {
	if item.IsProject() {
		return filepath.Join(destinationRoot, category)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(item.Path), "."))
	if ext == "" {
		ext = NoExtensionDir
	}
	return filepath.Join(destinationRoot, category, ext)
}
