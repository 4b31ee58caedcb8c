package reminder

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"taskreminder/internal/model"
	"taskreminder/internal/notify"
)

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (d *fakeDispatcher) Notify(ctx context.Context, n notify.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, n)
	return nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func (d *fakeDispatcher) last() notify.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent[len(d.sent)-1]
}

type fakeFlagStore struct {
	mu       sync.Mutex
	warned   map[string]bool
	notified map[string]bool
}

func newFakeFlagStore() *fakeFlagStore {
	return &fakeFlagStore{warned: make(map[string]bool), notified: make(map[string]bool)}
}

func (f *fakeFlagStore) SetNotified10m(ctx context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warned[taskID] = true
	return nil
}

func (f *fakeFlagStore) SetNotifiedNow(ctx context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified[taskID] = true
	return nil
}

func (f *fakeFlagStore) warnedFor(taskID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.warned[taskID]
}

// waitFor polls until cond holds or the deadline passes. Flag persistence is
// asynchronous, so assertions on the store need a grace period.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func newTestScheduler(d notify.Dispatcher, f FlagStore) *Scheduler {
	return NewScheduler(d, f, nil, zap.NewNop())
}

func reminderTask(id string, due time.Time) model.Task {
	return model.Task{
		ID:                  id,
		Title:               "Review budget",
		Description:         "Check the numbers",
		DueDate:             time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, due.Location()),
		DueTime:             due.Format("15:04"),
		Status:              model.StatusPending,
		NotificationEnabled: true,
	}
}

func TestWarningFiresOnceInsideWindow(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	dispatcher := &fakeDispatcher{}
	flags := newFakeFlagStore()
	s := newTestScheduler(dispatcher, flags)
	s.SetSnapshot([]model.Task{reminderTask("t1", due)})

	// 10m30s out: inside (9, 11]
	s.Evaluate(context.Background(), due.Add(-10*time.Minute-30*time.Second))
	if dispatcher.count() != 1 {
		t.Fatalf("expected 1 alert, got %d", dispatcher.count())
	}
	n := dispatcher.last()
	if n.Title != "Upcoming Task: Review budget" {
		t.Errorf("unexpected title %q", n.Title)
	}
	if n.Body != "Due in 10 minutes: Check the numbers" {
		t.Errorf("unexpected body %q", n.Body)
	}
	if n.Tag != "task-t1" {
		t.Errorf("unexpected tag %q", n.Tag)
	}

	// 30 seconds later, still inside the window: no repeat
	s.Evaluate(context.Background(), due.Add(-10*time.Minute))
	if dispatcher.count() != 1 {
		t.Fatalf("warning fired twice, got %d alerts", dispatcher.count())
	}

	waitFor(t, func() bool { return flags.warnedFor("t1") })
}

func TestWarningWindowBoundaries(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"12 minutes out", due.Add(-12 * time.Minute), 0},
		{"exactly 11 minutes", due.Add(-11 * time.Minute), 1},
		{"10 minutes", due.Add(-10 * time.Minute), 1},
		{"exactly 9 minutes", due.Add(-9 * time.Minute), 0},
		{"8 minutes out", due.Add(-8 * time.Minute), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &fakeDispatcher{}
			s := newTestScheduler(dispatcher, newFakeFlagStore())
			s.SetSnapshot([]model.Task{reminderTask("t1", due)})

			s.Evaluate(context.Background(), tt.now)
			if dispatcher.count() != tt.want {
				t.Errorf("got %d alerts, want %d", dispatcher.count(), tt.want)
			}
		})
	}
}

func TestDueNowWindow(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"61 seconds early", due.Add(-61 * time.Second), 0},
		{"59 seconds early", due.Add(-59 * time.Second), 1},
		{"exactly due", due, 1},
		{"59 seconds late", due.Add(59 * time.Second), 1},
		{"60 seconds late", due.Add(60 * time.Second), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &fakeDispatcher{}
			s := newTestScheduler(dispatcher, newFakeFlagStore())
			s.SetSnapshot([]model.Task{reminderTask("t1", due)})

			s.Evaluate(context.Background(), tt.now)
			if dispatcher.count() != tt.want {
				t.Errorf("got %d alerts, want %d", dispatcher.count(), tt.want)
			}
			if tt.want == 1 {
				if got := dispatcher.last().Title; got != "Task Due Now: Review budget" {
					t.Errorf("unexpected title %q", got)
				}
			}
		})
	}
}

func TestDueNowFiresOnceAcrossTicks(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	dispatcher := &fakeDispatcher{}
	s := newTestScheduler(dispatcher, newFakeFlagStore())
	s.SetSnapshot([]model.Task{reminderTask("t1", due)})

	for offset := -50 * time.Second; offset < 50*time.Second; offset += 10 * time.Second {
		s.Evaluate(context.Background(), due.Add(offset))
	}
	if dispatcher.count() != 1 {
		t.Errorf("expected exactly one due-now alert across ticks, got %d", dispatcher.count())
	}
}

func TestBothAlertsOverTaskLifetime(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	dispatcher := &fakeDispatcher{}
	s := newTestScheduler(dispatcher, newFakeFlagStore())
	s.SetSnapshot([]model.Task{reminderTask("t1", due)})

	s.Evaluate(context.Background(), due.Add(-10*time.Minute))
	s.Evaluate(context.Background(), due)

	if dispatcher.count() != 2 {
		t.Fatalf("expected warning then due-now, got %d alerts", dispatcher.count())
	}
}

func TestSkipsDisabledAndCompleted(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)

	disabled := reminderTask("disabled", due)
	disabled.NotificationEnabled = false
	completed := reminderTask("completed", due)
	completed.Status = model.StatusCompleted

	dispatcher := &fakeDispatcher{}
	s := newTestScheduler(dispatcher, newFakeFlagStore())
	s.SetSnapshot([]model.Task{disabled, completed})

	s.Evaluate(context.Background(), due)
	if dispatcher.count() != 0 {
		t.Errorf("expected no alerts, got %d", dispatcher.count())
	}
}

func TestPersistedFlagsSuppressAlerts(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)

	task := reminderTask("t1", due)
	task.Notified10m = true
	task.NotifiedNow = true

	dispatcher := &fakeDispatcher{}
	s := newTestScheduler(dispatcher, newFakeFlagStore())
	s.SetSnapshot([]model.Task{task})

	s.Evaluate(context.Background(), due.Add(-10*time.Minute))
	s.Evaluate(context.Background(), due)
	if dispatcher.count() != 0 {
		t.Errorf("persisted flags ignored, got %d alerts", dispatcher.count())
	}
}

func TestPermissionDeniedLeavesFlagUnset(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	dispatcher := &fakeDispatcher{err: notify.ErrPermissionDenied}
	flags := newFakeFlagStore()
	s := newTestScheduler(dispatcher, flags)
	s.SetSnapshot([]model.Task{reminderTask("t1", due)})

	s.Evaluate(context.Background(), due.Add(-10*time.Minute-30*time.Second))
	if dispatcher.count() != 0 {
		t.Fatalf("suppressed alert was delivered")
	}
	if flags.warnedFor("t1") {
		t.Fatal("flag set for an undelivered alert")
	}

	// permission granted before the next tick, still inside the window
	dispatcher.mu.Lock()
	dispatcher.err = nil
	dispatcher.mu.Unlock()

	s.Evaluate(context.Background(), due.Add(-10*time.Minute))
	if dispatcher.count() != 1 {
		t.Fatalf("expected retry to deliver, got %d alerts", dispatcher.count())
	}
	waitFor(t, func() bool { return flags.warnedFor("t1") })
}

func TestPublishErrorRetriesNextTick(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	dispatcher := &fakeDispatcher{err: errors.New("broker down")}
	s := newTestScheduler(dispatcher, newFakeFlagStore())
	s.SetSnapshot([]model.Task{reminderTask("t1", due)})

	s.Evaluate(context.Background(), due.Add(-30*time.Second))
	if dispatcher.count() != 0 {
		t.Fatal("failed publish counted as delivered")
	}

	dispatcher.mu.Lock()
	dispatcher.err = nil
	dispatcher.mu.Unlock()

	s.Evaluate(context.Background(), due.Add(-20*time.Second))
	if dispatcher.count() != 1 {
		t.Fatalf("expected delivery on retry, got %d", dispatcher.count())
	}
}

func TestEditMovingDueTimeResetsState(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	dispatcher := &fakeDispatcher{}
	s := newTestScheduler(dispatcher, newFakeFlagStore())
	s.SetSnapshot([]model.Task{reminderTask("t1", due)})

	s.Evaluate(context.Background(), due.Add(-10*time.Minute))
	if dispatcher.count() != 1 {
		t.Fatalf("expected initial warning, got %d", dispatcher.count())
	}

	// edit pushes the task an hour later and clears the persisted flags;
	// the fresh due instant starts a new state machine
	moved := reminderTask("t1", due.Add(time.Hour))
	s.SetSnapshot([]model.Task{moved})

	s.Evaluate(context.Background(), due.Add(time.Hour).Add(-10*time.Minute))
	if dispatcher.count() != 2 {
		t.Fatalf("expected a second warning after the edit, got %d alerts", dispatcher.count())
	}
}

func TestSessionSurvivesSnapshotReplacement(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	dispatcher := &fakeDispatcher{}
	s := newTestScheduler(dispatcher, newFakeFlagStore())
	s.SetSnapshot([]model.Task{reminderTask("t1", due)})

	s.Evaluate(context.Background(), due.Add(-10*time.Minute))

	// a snapshot refresh that raced the flag write still carries
	// notified_10m=false; the session map must prevent a duplicate
	s.SetSnapshot([]model.Task{reminderTask("t1", due)})
	s.Evaluate(context.Background(), due.Add(-9*time.Minute-30*time.Second))

	if dispatcher.count() != 1 {
		t.Errorf("stale snapshot caused a duplicate alert, got %d", dispatcher.count())
	}
}

func TestMalformedDueTimeSkipped(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)

	broken := reminderTask("broken", due)
	broken.DueTime = "9am"
	valid := reminderTask("valid", due)

	dispatcher := &fakeDispatcher{}
	s := newTestScheduler(dispatcher, newFakeFlagStore())
	s.SetSnapshot([]model.Task{broken, valid})

	s.Evaluate(context.Background(), due)
	if dispatcher.count() != 1 {
		t.Fatalf("expected only the valid task to alert, got %d", dispatcher.count())
	}
	if dispatcher.last().TaskID != "valid" {
		t.Errorf("alert fired for %q", dispatcher.last().TaskID)
	}
}

type fakeDeduper struct {
	acquired map[string]bool
}

func (d *fakeDeduper) AcquireOnce(ctx context.Context, scope, id string) bool {
	key := scope + ":" + id
	if d.acquired[key] {
		return false
	}
	d.acquired[key] = true
	return true
}

func TestDedupHitRecordsWithoutPublishing(t *testing.T) {
	due := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	dispatcher := &fakeDispatcher{}
	flags := newFakeFlagStore()
	deduper := &fakeDeduper{acquired: make(map[string]bool)}

	// a peer already holds the dedup key
	deduper.AcquireOnce(context.Background(), "reminder:due_now", "t1:"+strconv.FormatInt(due.Unix(), 10))

	s := NewScheduler(dispatcher, flags, deduper, zap.NewNop())
	s.SetSnapshot([]model.Task{reminderTask("t1", due)})

	s.Evaluate(context.Background(), due)
	if dispatcher.count() != 0 {
		t.Fatal("deduped alert was published anyway")
	}

	// delivered by the peer counts as consumed: flag persists, no re-fire
	waitFor(t, func() bool {
		flags.mu.Lock()
		defer flags.mu.Unlock()
		return flags.notified["t1"]
	})
	s.Evaluate(context.Background(), due.Add(30*time.Second))
	if dispatcher.count() != 0 {
		t.Error("dedup hit did not stick across ticks")
	}
}
