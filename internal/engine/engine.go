// Package engine wires the classification components into a single facade
// and enforces single-operation execution.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"sfc/internal/config"
	"sfc/internal/executor"
	"sfc/internal/journal"
	"sfc/internal/logging"
	"sfc/internal/mover"
	"sfc/internal/planner"
	"sfc/internal/rules"
	"sfc/internal/runcontrol"
	"sfc/internal/scanner"
	"sfc/internal/sniff"
)

var (
	// ErrConfig marks failures caused by the configuration or the knowledge
	// base document rather than the environment.
	ErrConfig = errors.New("configuration error")
	// ErrBusy means another execution or undo holds the operation lock.
	ErrBusy = errors.New("another operation is in progress")
	// ErrNoJournal means there is no undo log to replay.
	ErrNoJournal = errors.New("no undo log")

	// ErrNotDirectory is re-exported so callers need not import the scanner.
	ErrNotDirectory = scanner.ErrNotDirectory
)

// Engine is the classification facade the CLI talks to. All methods are safe
// for concurrent use; mutating operations (execute, undo) additionally take a
// cross-process file lock.
type Engine struct {
	cfg     *config.Config
	logger  *slog.Logger
	scanner *scanner.Scanner
	mover   *mover.Mover
	control *runcontrol.Control
	lock    *flock.Flock

	mu      sync.RWMutex
	store   *rules.Store
	planner *planner.Planner
}

// New loads the knowledge base and wires the pipeline. A missing or invalid
// knowledge base document is a configuration error.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("engine requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	e := &Engine{
		cfg:     cfg,
		logger:  logging.WithComponent(logger, "engine"),
		scanner: scanner.New(logger, cfg.Scanner.IgnoreNames),
		mover:   mover.New(logger),
		control: runcontrol.New(),
		lock:    flock.New(cfg.LockPath()),
	}
	if err := e.ReloadRules(); err != nil {
		return nil, err
	}
	return e, nil
}

// ReloadRules re-reads the knowledge base document and swaps in a fresh rule
// store and planner. Used after a learning step saves new rules.
func (e *Engine) ReloadRules() error {
	store, err := rules.Load(e.cfg.Paths.KnowledgeBase, e.logger)
	if err != nil {
		return fmt.Errorf("%w: load knowledge base: %v", ErrConfig, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = store
	e.planner = planner.New(store, sniff.New(e.logger), e.logger)
	return nil
}

// Rules returns the currently loaded rule store.
func (e *Engine) Rules() *rules.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store
}

// Scan walks the source tree and returns the classifiable items.
func (e *Engine) Scan(sourceRoot string) ([]scanner.Item, error) {
	return e.scanner.Scan(sourceRoot)
}

// GeneratePlan classifies every item into a move plan rooted at destinationRoot.
func (e *Engine) GeneratePlan(items []scanner.Item, destinationRoot string) []planner.Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.planner.GeneratePlan(items, destinationRoot)
}

// GenerateAdvancedPlan composes the pipeline per the selected mode.
func (e *Engine) GenerateAdvancedPlan(allItems, selectedItems []scanner.Item, destinationRoot string, mode planner.Mode) []planner.Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.planner.GenerateAdvancedPlan(allItems, selectedItems, destinationRoot, mode)
}

// Unresolved returns the items the most recent plan could not resolve.
func (e *Engine) Unresolved() []scanner.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.planner.Unresolved()
}

// ExecutePlan runs the plan under the operation lock. Only one execution or
// undo may run at a time per state directory.
func (e *Engine) ExecutePlan(ctx context.Context, plan []planner.Entry, strategy mover.Strategy, progress executor.ProgressFunc) (*executor.Summary, error) {
	if err := e.acquireLock(); err != nil {
		return nil, err
	}
	defer e.releaseLock()

	store, err := journal.Open(e.cfg.JournalPath(), e.logger)
	if err != nil {
		return nil, fmt.Errorf("open undo log: %w", err)
	}
	defer func() { _ = store.Close() }()

	exec := executor.New(e.cfg, e.mover, store, e.control, e.logger)
	return exec.Execute(ctx, plan, strategy, progress)
}

// Pause suspends plan execution between items.
func (e *Engine) Pause() { e.control.Pause() }

// Resume continues a paused execution.
func (e *Engine) Resume() { e.control.Resume() }

// Cancel stops the current execution after in-flight items finish.
func (e *Engine) Cancel() { e.control.Cancel() }

// Undo replays the undo log newest first under the operation lock.
func (e *Engine) Undo(ctx context.Context) (*journal.UndoReport, error) {
	if err := e.acquireLock(); err != nil {
		return nil, err
	}
	defer e.releaseLock()

	store, err := journal.Open(e.cfg.JournalPath(), e.logger)
	if err != nil {
		return nil, fmt.Errorf("open undo log: %w", err)
	}
	defer func() { _ = store.Close() }()

	has, err := store.HasLog(ctx)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrNoJournal
	}

	report, err := store.Undo(ctx)
	if err == nil && report.Failed == 0 {
		if destroyErr := store.Destroy(); destroyErr != nil {
			e.logger.Warn("failed to remove undo database", logging.Error(destroyErr))
		}
	}
	return report, err
}

// HasUndo reports whether an undo log from a previous run exists. A missing
// database file answers the question without creating one.
func (e *Engine) HasUndo(ctx context.Context) (bool, error) {
	if _, err := os.Stat(e.cfg.JournalPath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat undo log: %w", err)
	}
	store, err := journal.Open(e.cfg.JournalPath(), e.logger)
	if err != nil {
		return false, fmt.Errorf("open undo log: %w", err)
	}
	defer func() { _ = store.Close() }()
	return store.HasLog(ctx)
}

// LearnRule appends a rule to the knowledge base document and reloads it.
func (e *Engine) LearnRule(rule rules.NewRule) error {
	if err := rules.SaveRule(e.cfg.Paths.KnowledgeBase, rule, e.logger); err != nil {
		return fmt.Errorf("%w: save rule: %v", ErrConfig, err)
	}
	return e.ReloadRules()
}

// ImportRules bulk-imports rules from a CSV file and reloads the store.
func (e *Engine) ImportRules(csvPath string) (rules.ImportReport, error) {
	report, err := rules.ImportCSV(e.cfg.Paths.KnowledgeBase, csvPath, e.logger)
	if err != nil {
		return report, fmt.Errorf("%w: import rules: %v", ErrConfig, err)
	}
	return report, e.ReloadRules()
}

func (e *Engine) acquireLock() error {
	ok, err := e.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire operation lock: %w", err)
	}
	if !ok {
		return ErrBusy
	}
	return nil
}

func (e *Engine) releaseLock() {
	if err := e.lock.Unlock(); err != nil {
		e.logger.Warn("failed to release operation lock", logging.Error(err))
	}
}
