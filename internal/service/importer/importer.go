// Package importer ingests task records in bulk with per-record failure
// isolation: one bad record is counted and skipped, never aborting the
// rest of the batch.
package importer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskreminder/internal/model"
	"taskreminder/internal/service/due"
	"taskreminder/pkg/metrics"
)

type TaskStore interface {
	Upsert(ctx context.Context, t *model.Task) error
}

type Result struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

type Importer struct {
	store  TaskStore
	logger *zap.Logger
}

func New(store TaskStore, logger *zap.Logger) *Importer {
	return &Importer{store: store, logger: logger}
}

// Import upserts every record, applying the same save-time overdue
// classification as a manual save. now anchors that classification.
func (im *Importer) Import(ctx context.Context, records []model.Task, now time.Time) Result {
	res := Result{Total: len(records)}

	im.logger.Info("Starting bulk import", zap.Int("count", len(records)))

	for i := range records {
		task := records[i]
		if err := im.importOne(ctx, &task, now); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", displayName(task), err))
			metrics.ImportedTasks.WithLabelValues("failed").Inc()
			im.logger.Warn("Failed to import task",
				zap.String("task_id", task.ID),
				zap.String("title", task.Title),
				zap.Error(err),
			)
			continue
		}
		res.Success++
		metrics.ImportedTasks.WithLabelValues("success").Inc()
	}

	im.logger.Info("Bulk import finished",
		zap.Int("total", res.Total),
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
	)
	return res
}

func (im *Importer) importOne(ctx context.Context, t *model.Task, now time.Time) error {
	if t.Title == "" {
		return fmt.Errorf("missing title")
	}
	if t.DueDate.IsZero() {
		return fmt.Errorf("missing due date")
	}

	if t.DueTime == "" {
		t.DueTime = "09:00"
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}

	if !model.IsValidPriority(t.Priority) {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if !model.IsValidStatus(t.Status) {
		return fmt.Errorf("invalid status %q", t.Status)
	}

	t.Status = due.ClassifyOverdue(t.DueDate, t.Status, now)

	return im.store.Upsert(ctx, t)
}

func displayName(t model.Task) string {
	if t.Title != "" {
		return t.Title
	}
	return t.ID
}
