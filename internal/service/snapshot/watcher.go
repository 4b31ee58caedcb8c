// Package snapshot maintains the task-collection stream the reminder
// scheduler consumes: full replacement snapshots, re-emitted on every
// store change and on a periodic safety refresh.
package snapshot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskreminder/internal/model"
)

const DefaultRefreshInterval = 30 * time.Second

type TaskSource interface {
	ListAll(ctx context.Context) ([]model.Task, error)
}

// Watcher serializes snapshot production onto a single goroutine: pushed
// collections from the change-event handler and periodic re-reads never
// interleave. Consumers receive each snapshot as an immutable replacement.
type Watcher struct {
	source   TaskSource
	logger   *zap.Logger
	interval time.Duration

	push chan []model.Task
	out  chan []model.Task
}

func NewWatcher(source TaskSource, logger *zap.Logger) *Watcher {
	return &Watcher{
		source:   source,
		logger:   logger,
		interval: DefaultRefreshInterval,
		push:     make(chan []model.Task, 1),
		out:      make(chan []model.Task),
	}
}

// SetRefreshInterval overrides the periodic refresh cadence.
func (w *Watcher) SetRefreshInterval(d time.Duration) {
	w.interval = d
}

// Snapshots is the stream of full task collections.
func (w *Watcher) Snapshots() <-chan []model.Task {
	return w.out
}

// Push hands a freshly read collection to the watcher, superseding any
// pending one. Safe to call from consumer goroutines.
func (w *Watcher) Push(tasks []model.Task) {
	for {
		select {
		case w.push <- tasks:
			return
		default:
			// drop the stale pending snapshot, latest wins
			select {
			case <-w.push:
			default:
			}
		}
	}
}

// Run emits snapshots until ctx is cancelled. An initial read runs
// immediately so consumers never start empty-handed.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Snapshot watcher stopped")
			return
		case tasks := <-w.push:
			w.emit(ctx, tasks)
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *Watcher) refresh(ctx context.Context) {
	tasks, err := w.source.ListAll(ctx)
	if err != nil {
		// next change event or refresh tick will retry
		w.logger.Error("Failed to refresh task snapshot", zap.Error(err))
		return
	}
	w.emit(ctx, tasks)
}

func (w *Watcher) emit(ctx context.Context, tasks []model.Task) {
	select {
	case w.out <- tasks:
		w.logger.Debug("Task snapshot emitted", zap.Int("count", len(tasks)))
	case <-ctx.Done():
	}
}
