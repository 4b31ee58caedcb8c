package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"taskreminder/internal/model"
)

type fakeStore struct {
	upserted []model.Task
	failOn   map[string]error
}

func (s *fakeStore) Upsert(ctx context.Context, t *model.Task) error {
	if err := s.failOn[t.Title]; err != nil {
		return err
	}
	s.upserted = append(s.upserted, *t)
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestImportAppliesDefaults(t *testing.T) {
	store := &fakeStore{}
	im := New(store, zap.NewNop())
	now := day(2026, time.March, 15)

	res := im.Import(context.Background(), []model.Task{
		{Title: "Water plants", DueDate: day(2026, time.March, 20)},
	}, now)

	if res.Success != 1 || res.Failed != 0 {
		t.Fatalf("result = %+v", res)
	}
	got := store.upserted[0]
	if got.DueTime != "09:00" {
		t.Errorf("DueTime = %q, want 09:00", got.DueTime)
	}
	if got.Priority != model.PriorityMedium {
		t.Errorf("Priority = %q, want medium", got.Priority)
	}
	if got.Status != model.StatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
}

func TestImportClassifiesOverdue(t *testing.T) {
	store := &fakeStore{}
	im := New(store, zap.NewNop())
	now := day(2026, time.March, 15)

	im.Import(context.Background(), []model.Task{
		{Title: "Old errand", DueDate: day(2026, time.March, 1)},
		{Title: "Done long ago", DueDate: day(2026, time.March, 1), Status: model.StatusCompleted},
	}, now)

	if len(store.upserted) != 2 {
		t.Fatalf("upserted %d tasks, want 2", len(store.upserted))
	}
	if store.upserted[0].Status != model.StatusOverdue {
		t.Errorf("past-due task imported as %q, want overdue", store.upserted[0].Status)
	}
	if store.upserted[1].Status != model.StatusCompleted {
		t.Errorf("completed task reclassified to %q", store.upserted[1].Status)
	}
}

func TestImportPartialFailure(t *testing.T) {
	store := &fakeStore{failOn: map[string]error{
		"Broken row": errors.New("duplicate key value violates unique constraint"),
	}}
	im := New(store, zap.NewNop())
	now := day(2026, time.March, 15)

	records := []model.Task{
		{Title: "First", DueDate: day(2026, time.March, 16)},
		{Title: "", DueDate: day(2026, time.March, 16)},
		{Title: "No date"},
		{Title: "Bad priority", DueDate: day(2026, time.March, 16), Priority: "urgent"},
		{Title: "Bad status", DueDate: day(2026, time.March, 16), Status: "paused"},
		{Title: "Broken row", DueDate: day(2026, time.March, 16)},
		{Title: "Last", DueDate: day(2026, time.March, 17)},
	}

	res := im.Import(context.Background(), records, now)

	if res.Total != 7 {
		t.Errorf("Total = %d, want 7", res.Total)
	}
	if res.Success != 2 {
		t.Errorf("Success = %d, want 2", res.Success)
	}
	if res.Failed != 5 {
		t.Errorf("Failed = %d, want 5", res.Failed)
	}
	if len(res.Errors) != 5 {
		t.Errorf("Errors has %d entries, want 5", len(res.Errors))
	}

	// the batch continued past every failure
	if len(store.upserted) != 2 || store.upserted[1].Title != "Last" {
		t.Errorf("surviving records = %v", store.upserted)
	}
}

func TestImportDoesNotMutateCallerRecords(t *testing.T) {
	store := &fakeStore{}
	im := New(store, zap.NewNop())
	records := []model.Task{{Title: "original", DueDate: day(2026, time.March, 1)}}

	im.Import(context.Background(), records, day(2026, time.March, 15))

	if records[0].Status != "" || records[0].DueTime != "" {
		t.Errorf("caller slice mutated: %+v", records[0])
	}
}
