// Package reminder implements the notification-timing state machine. Each
// task moves one way through Idle -> Warned10m -> Notified, gated by the
// persisted idempotency flags; the only reset path is task edit or
// recreation, which arrives here as a fresh snapshot with cleared flags.
package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskreminder/internal/model"
	"taskreminder/internal/notify"
	"taskreminder/internal/service/due"
	"taskreminder/pkg/metrics"
)

const (
	// DefaultTickInterval is the reference cadence. The warning window is
	// two minutes wide precisely to tolerate this polling granularity.
	DefaultTickInterval = 10 * time.Second

	// Warning fires when the task is due in (9, 11] minutes.
	warnWindowLow  = 9 * time.Minute
	warnWindowHigh = 11 * time.Minute

	// Due-now fires within 60 seconds of the due instant, either side.
	dueWindow = time.Minute
)

type Kind string

const (
	KindWarning Kind = "warning"
	KindDueNow  Kind = "due_now"
)

// FlagStore persists the idempotency flags. Writes are fire-and-forget
// from the scheduler's perspective.
type FlagStore interface {
	SetNotified10m(ctx context.Context, taskID string) error
	SetNotifiedNow(ctx context.Context, taskID string) error
}

// AlertDeduper is the optional cross-instance at-most-once guard.
type AlertDeduper interface {
	AcquireOnce(ctx context.Context, scope, id string) bool
}

// sessionKey identifies one alert class for one task instance. The due
// instant is part of the key so an edit that moves the due time starts a
// fresh state machine instead of inheriting a stale in-memory flag.
type sessionKey struct {
	taskID  string
	instant int64
	kind    Kind
}

// Scheduler walks the current task snapshot on every tick and raises at
// most one warning and one due-now alert per task. It is single-threaded:
// ticks and snapshot replacements are serialized in Run's loop, so the
// state maps need no locking.
type Scheduler struct {
	dispatcher notify.Dispatcher
	flags      FlagStore
	deduper    AlertDeduper
	logger     *zap.Logger
	interval   time.Duration

	tasks []model.Task

	// session records flags observed or set during this process lifetime.
	// It outlives snapshot replacement so a failed flag persist cannot
	// cause a duplicate alert within the same session.
	session map[sessionKey]bool
}

func NewScheduler(dispatcher notify.Dispatcher, flags FlagStore, deduper AlertDeduper, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		dispatcher: dispatcher,
		flags:      flags,
		deduper:    deduper,
		logger:     logger,
		interval:   DefaultTickInterval,
		session:    make(map[sessionKey]bool),
	}
}

// SetInterval overrides the tick cadence.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.interval = d
}

// SetSnapshot replaces the task collection the scheduler evaluates.
func (s *Scheduler) SetSnapshot(tasks []model.Task) {
	s.tasks = tasks
}

// Run drives the scheduler until ctx is cancelled. Snapshot replacements
// and ticks are handled on the same goroutine; an initial evaluation runs
// immediately so a freshly started process does not wait a full interval.
func (s *Scheduler) Run(ctx context.Context, snapshots <-chan []model.Task) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Evaluate(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reminder scheduler stopped")
			return
		case tasks, ok := <-snapshots:
			if !ok {
				s.logger.Info("Task snapshot stream closed, scheduler stopping")
				return
			}
			s.tasks = tasks
			s.logger.Debug("Task snapshot replaced", zap.Int("count", len(tasks)))
		case <-ticker.C:
			s.Evaluate(ctx, time.Now())
		}
	}
}

// Evaluate walks every task against now. Exported so the tick decision can
// be exercised with a fixed clock.
func (s *Scheduler) Evaluate(ctx context.Context, now time.Time) {
	start := time.Now()
	evaluated := 0

	for _, task := range s.tasks {
		if !task.NotificationEnabled || task.Status == model.StatusCompleted {
			continue
		}
		evaluated++

		instant, err := due.Instant(task.DueDate, task.DueTime)
		if err != nil {
			// one bad record must not halt the rest of the collection
			s.logger.Debug("Skipping task with malformed due time",
				zap.String("task_id", task.ID),
				zap.String("due_time", task.DueTime),
			)
			continue
		}

		diff := instant.Sub(now)

		// Both checks are independent: a task can receive both alerts
		// across its lifetime, each at most once.
		if diff > warnWindowLow && diff <= warnWindowHigh && !s.alreadyWarned(task, instant) {
			s.fire(ctx, task, instant, KindWarning)
		}

		if diff.Abs() < dueWindow && !s.alreadyNotified(task, instant) {
			s.fire(ctx, task, instant, KindDueNow)
		}
	}

	metrics.SchedulerTickDuration.Observe(time.Since(start).Seconds())
	metrics.SchedulerTasksEvaluated.Set(float64(evaluated))
}

func (s *Scheduler) alreadyWarned(task model.Task, instant time.Time) bool {
	return task.Notified10m || s.session[sessionKey{task.ID, instant.Unix(), KindWarning}]
}

func (s *Scheduler) alreadyNotified(task model.Task, instant time.Time) bool {
	return task.NotifiedNow || s.session[sessionKey{task.ID, instant.Unix(), KindDueNow}]
}

func (s *Scheduler) fire(ctx context.Context, task model.Task, instant time.Time, kind Kind) {
	key := sessionKey{task.ID, instant.Unix(), kind}

	// Cross-instance guard: a dedup hit means a peer already delivered
	// this alert, so record it as consumed without re-publishing.
	if s.deduper != nil {
		dedupID := fmt.Sprintf("%s:%d", task.ID, instant.Unix())
		if !s.deduper.AcquireOnce(ctx, "reminder:"+string(kind), dedupID) {
			metrics.AlertsSuppressed.WithLabelValues(string(kind), "deduped").Inc()
			s.session[key] = true
			s.persistFlag(task.ID, kind)
			return
		}
	}

	var n notify.Notification
	switch kind {
	case KindWarning:
		n = notify.Warning(task)
	case KindDueNow:
		n = notify.DueNow(task)
	}

	if err := s.dispatcher.Notify(ctx, n); err != nil {
		// Undelivered, not redundant: leave the flag unset so a later
		// tick inside the window can try again.
		reason := "publish_error"
		if err == notify.ErrPermissionDenied {
			reason = "permission_denied"
			s.logger.Info("Alert suppressed, notification permission not granted",
				zap.String("task_id", task.ID),
				zap.String("kind", string(kind)),
			)
		} else {
			s.logger.Error("Alert delivery failed",
				zap.String("task_id", task.ID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
		metrics.AlertsSuppressed.WithLabelValues(string(kind), reason).Inc()
		return
	}

	metrics.AlertsFired.WithLabelValues(string(kind)).Inc()
	s.session[key] = true
	s.persistFlag(task.ID, kind)
}

// persistFlag writes the idempotency flag without blocking the tick. A
// failed write is logged and absorbed: the session map already prevents a
// duplicate within this process, and at most one duplicate after a restart
// is accepted behavior.
func (s *Scheduler) persistFlag(taskID string, kind Kind) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var err error
		switch kind {
		case KindWarning:
			err = s.flags.SetNotified10m(ctx, taskID)
		case KindDueNow:
			err = s.flags.SetNotifiedNow(ctx, taskID)
		}
		if err != nil {
			s.logger.Error("Failed to persist notification flag",
				zap.String("task_id", taskID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
	}()
}
