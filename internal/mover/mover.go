// Package mover performs single safe, collision-resistant relocations.
package mover

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sfc/internal/fileutil"
	"sfc/internal/logging"
)

// Strategy governs what happens when a move's destination name already exists.
type Strategy int

const (
	// StrategyAppendNumber suffixes _1, _2, ... before the extension until
	// a free name is found.
	StrategyAppendNumber Strategy = iota
	// StrategySkip leaves both files untouched.
	StrategySkip
	// StrategyReplace overwrites the existing destination entry.
	StrategyReplace
)

// ParseStrategy maps the user-facing strategy names to a Strategy.
func ParseStrategy(value string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "append", "append_number":
		return StrategyAppendNumber, nil
	case "skip":
		return StrategySkip, nil
	case "replace":
		return StrategyReplace, nil
	default:
		return StrategyAppendNumber, fmt.Errorf("unknown duplicate strategy %q", value)
	}
}

// String returns the user-facing strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategySkip:
		return "skip"
	case StrategyReplace:
		return "replace"
	default:
		return "append"
	}
}

// Status is the outcome of one move.
type Status int

const (
	StatusMoved Status = iota
	StatusSkipped
	StatusError
)

// String returns the progress-callback label for the status.
func (s Status) String() string {
	switch s {
	case StatusMoved:
		return "MOVED"
	case StatusSkipped:
		return "SKIPPED"
	default:
		return "ERROR"
	}
}

// Result reports one move's outcome. FinalPath is set for Moved (the new
// location) and Skipped (the pre-existing destination entry); empty on error.
type Result struct {
	Status    Status
	FinalPath string
}

// Mover relocates files and project directories.
type Mover struct {
	logger *slog.Logger
}

// New constructs a mover.
func New(logger *slog.Logger) *Mover {
	return &Mover{logger: logging.WithComponent(logger, "mover")}
}

// Move relocates source into destinationDir, creating the directory (and
// parents) as needed and resolving name collisions per the strategy. I/O
// faults are contained: they produce StatusError with logged detail, never an
// error value, so plan execution continues with the remaining items.
func (m *Mover) Move(source, destinationDir string, strategy Strategy) Result {
	if _, err := os.Lstat(source); err != nil {
		m.logger.Error("source missing or unreadable",
			logging.String("source", source),
			logging.Error(err))
		return Result{Status: StatusError}
	}

	if err := os.MkdirAll(destinationDir, 0o755); err != nil {
		m.logger.Error("cannot create destination directory",
			logging.String("destination", destinationDir),
			logging.Error(err))
		return Result{Status: StatusError}
	}

	target := filepath.Join(destinationDir, filepath.Base(source))
	if _, err := os.Lstat(target); err == nil {
		switch strategy {
		case StrategySkip:
			m.logger.Info("skipping existing destination",
				logging.String("source", source),
				logging.String("destination", target))
			return Result{Status: StatusSkipped, FinalPath: target}
		case StrategyReplace:
			if err := os.RemoveAll(target); err != nil {
				m.logger.Error("cannot replace existing destination",
					logging.String("destination", target),
					logging.Error(err))
				return Result{Status: StatusError}
			}
		case StrategyAppendNumber:
			target = fileutil.UniquePath(target)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		m.logger.Error("cannot stat destination",
			logging.String("destination", target),
			logging.Error(err))
		return Result{Status: StatusError}
	}

	if err := fileutil.Relocate(source, target); err != nil {
		m.logger.Error("move failed",
			logging.String("source", source),
			logging.String("destination", target),
			logging.Error(err))
		return Result{Status: StatusError}
	}

	m.logger.Debug("moved",
		logging.String("source", source),
		logging.String("destination", target))
	return Result{Status: StatusMoved, FinalPath: target}
}
