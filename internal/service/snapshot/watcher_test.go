package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"taskreminder/internal/model"
)

type fakeSource struct {
	mu    sync.Mutex
	tasks []model.Task
	err   error
	calls int
}

func (s *fakeSource) ListAll(ctx context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.tasks, nil
}

func receive(t *testing.T, ch <-chan []model.Task) []model.Task {
	t.Helper()
	select {
	case tasks := <-ch:
		return tasks
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot emitted")
		return nil
	}
}

func TestRunEmitsInitialSnapshot(t *testing.T) {
	source := &fakeSource{tasks: []model.Task{{ID: "a"}, {ID: "b"}}}
	w := NewWatcher(source, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	got := receive(t, w.Snapshots())
	if len(got) != 2 {
		t.Errorf("initial snapshot has %d tasks, want 2", len(got))
	}
}

func TestPushedSnapshotFlowsThrough(t *testing.T) {
	source := &fakeSource{}
	w := NewWatcher(source, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	receive(t, w.Snapshots()) // initial empty read

	w.Push([]model.Task{{ID: "new"}})
	got := receive(t, w.Snapshots())
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("got %v", got)
	}
}

func TestPushLatestWins(t *testing.T) {
	// nobody is draining push yet, so successive pushes supersede
	w := NewWatcher(&fakeSource{}, zap.NewNop())

	w.Push([]model.Task{{ID: "stale"}})
	w.Push([]model.Task{{ID: "fresh"}})

	select {
	case got := <-w.push:
		if len(got) != 1 || got[0].ID != "fresh" {
			t.Errorf("pending snapshot = %v, want the fresh one", got)
		}
	default:
		t.Fatal("no pending snapshot")
	}
}

func TestRefreshErrorDoesNotEmit(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	w := NewWatcher(source, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	select {
	case got := <-w.Snapshots():
		t.Fatalf("snapshot emitted from a failed read: %v", got)
	case <-time.After(100 * time.Millisecond):
	}

	// the source recovers; a pushed collection still gets through
	w.Push([]model.Task{{ID: "a"}})
	got := receive(t, w.Snapshots())
	if len(got) != 1 {
		t.Errorf("got %v", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w := NewWatcher(&fakeSource{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	receive(t, w.Snapshots())
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
