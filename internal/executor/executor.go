// Package executor drives concurrent plan execution with pause, resume, and
// cancel support.
//
// One producer feeds a bounded queue; a pool of workers consumes it. Work is
// tagged so workers can tell real items from shutdown sentinels: the producer
// sends exactly one sentinel per worker after the last item (or after a
// cancellation drain), and a worker exits only when it receives its sentinel.
package executor

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sfc/internal/config"
	"sfc/internal/journal"
	"sfc/internal/logging"
	"sfc/internal/mover"
	"sfc/internal/planner"
	"sfc/internal/runcontrol"
)

const maxWorkers = 32

// Progress is one per-item progress notification. Percent is -1 when no
// meaningful percentage exists, with Name set to "..." likewise.
type Progress struct {
	Percent int
	Name    string
	Status  string
}

// ProgressFunc receives progress notifications. Calls are serialized.
type ProgressFunc func(Progress)

// Summary reports the outcome of one execution run.
type Summary struct {
	Moved     int
	Skipped   int
	Failed    int
	Cancelled bool
}

type workKind int

const (
	kindWork workKind = iota
	kindStop
)

type workItem struct {
	kind  workKind
	entry planner.Entry
}

// Executor runs move plans through a worker pool.
type Executor struct {
	mover        *mover.Mover
	journal      *journal.Store
	control      *runcontrol.Control
	logger       *slog.Logger
	workers      int
	queueDepth   int
	pollInterval time.Duration

	progressMu sync.Mutex
}

// New constructs an executor. Workers defaults to twice GOMAXPROCS, capped at
// 32, when the configured count is zero.
func New(cfg *config.Config, mv *mover.Mover, store *journal.Store, control *runcontrol.Control, logger *slog.Logger) *Executor {
	workers := cfg.Executor.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0) * 2
		if workers > maxWorkers {
			workers = maxWorkers
		}
	}
	queueDepth := cfg.Executor.QueueDepth
	if queueDepth <= 0 {
		queueDepth = 64
	}
	poll := time.Duration(cfg.Executor.PollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &Executor{
		mover:        mv,
		journal:      store,
		control:      control,
		logger:       logging.WithComponent(logger, "executor"),
		workers:      workers,
		queueDepth:   queueDepth,
		pollInterval: poll,
	}
}

// Execute runs the plan to completion, cancellation, or context expiry. The
// journal is cleared up front so the undo log always describes this run, and
// every completed move is appended before its progress notification fires.
func (e *Executor) Execute(ctx context.Context, plan []planner.Entry, strategy mover.Strategy, progress ProgressFunc) (*Summary, error) {
	e.control.Reset()

	// An empty plan is a no-op run; the previous run's undo log stays intact.
	if len(plan) == 0 {
		return &Summary{}, nil
	}

	runID := uuid.NewString()
	if err := e.journal.Clear(ctx); err != nil {
		return nil, err
	}

	e.logger.Info("execution started",
		logging.String("run_id", runID),
		logging.Int("items", len(plan)),
		logging.Int("workers", e.workers),
		logging.String("strategy", strategy.String()))

	var (
		moved     atomic.Int64
		skipped   atomic.Int64
		failed    atomic.Int64
		completed atomic.Int64
	)
	total := int64(len(plan))
	queue := make(chan workItem, e.queueDepth)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				if item.kind == kindStop {
					return
				}
				if e.control.WaitIfPaused() {
					// Cancelled; drop the item and wait for the sentinel.
					continue
				}
				result := e.mover.Move(item.entry.Source, item.entry.DestinationDir, strategy)
				switch result.Status {
				case mover.StatusMoved:
					moved.Add(1)
					if err := e.journal.Append(ctx, runID, item.entry.Source, result.FinalPath); err != nil {
						e.logger.Error("undo log append failed",
							logging.String("source", item.entry.Source),
							logging.Error(err))
					}
				case mover.StatusSkipped:
					skipped.Add(1)
				case mover.StatusError:
					failed.Add(1)
				}
				e.notify(progress, Progress{
					Percent: int(completed.Add(1) * 100 / total),
					Name:    filepath.Base(item.entry.Source),
					Status:  result.Status.String(),
				})
			}
		}()
	}

	cancelled := e.produce(ctx, queue, plan)

	// One sentinel per worker; workers exit only on their sentinel.
	for i := 0; i < e.workers; i++ {
		queue <- workItem{kind: kindStop}
	}
	close(queue)
	wg.Wait()

	summary := &Summary{
		Moved:     int(moved.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
		Cancelled: cancelled || e.control.IsCancelled(),
	}
	if summary.Cancelled {
		e.notify(progress, Progress{Percent: -1, Name: "...", Status: "CANCELLED"})
	}
	e.logger.Info("execution finished",
		logging.String("run_id", runID),
		logging.Int("moved", summary.Moved),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Bool("cancelled", summary.Cancelled))
	return summary, nil
}

// produce feeds the queue, polling between send attempts so a cancellation is
// noticed even while the queue is full. On cancel it drains pending work so
// the sentinels reach the workers promptly. Returns whether the run was cut
// short.
func (e *Executor) produce(ctx context.Context, queue chan workItem, plan []planner.Entry) bool {
	for _, entry := range plan {
		item := workItem{kind: kindWork, entry: entry}
	send:
		for {
			if e.control.IsCancelled() {
				e.drain(queue)
				return true
			}
			select {
			case queue <- item:
				break send
			case <-ctx.Done():
				e.control.Cancel()
				e.drain(queue)
				return true
			case <-time.After(e.pollInterval):
			}
		}
	}
	if e.control.IsCancelled() {
		e.drain(queue)
		return true
	}
	return false
}

func (e *Executor) drain(queue chan workItem) {
	for {
		select {
		case <-queue:
		default:
			return
		}
	}
}

func (e *Executor) notify(progress ProgressFunc, p Progress) {
	if progress == nil {
		return
	}
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	progress(p)
}
