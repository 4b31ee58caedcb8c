package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "taskreminder/contracts/mq"
	"taskreminder/internal/repository"
	"taskreminder/internal/service/snapshot"
	"taskreminder/pkg/mq"
	"taskreminder/pkg/util"
)

const maxRetries = 5

// TaskChangedHandler reacts to task.changed events by re-reading the task
// collection and pushing the replacement snapshot to the watcher. The event
// carries no task data; the store is the source of truth.
type TaskChangedHandler struct {
	taskRepo     *repository.TaskRepository
	watcher      *snapshot.Watcher
	retryCounter *util.RetryCounter
	publisher    *mq.Publisher
	logger       *zap.Logger
}

func NewTaskChangedHandler(
	taskRepo *repository.TaskRepository,
	watcher *snapshot.Watcher,
	retryCounter *util.RetryCounter,
	publisher *mq.Publisher,
	logger *zap.Logger,
) *TaskChangedHandler {
	return &TaskChangedHandler{
		taskRepo:     taskRepo,
		watcher:      watcher,
		retryCounter: retryCounter,
		publisher:    publisher,
		logger:       logger,
	}
}

// HandleTaskChanged is idempotent: re-reading the collection twice for one
// event is harmless, so retries are safe. Returns an error only for
// retryable failures that have not exceeded the retry budget.
func (h *TaskChangedHandler) HandleTaskChanged(ctx context.Context, raw json.RawMessage) error {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic in HandleTaskChanged", zap.Any("panic", r))
		}
	}()

	var p mqcontracts.TaskChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal task changed payload (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		h.sendToDLQ(raw, err)
		return nil
	}

	h.logger.Debug("Processing task change event",
		zap.String("task_id", p.TaskID),
		zap.String("op", p.Op),
	)

	tasks, err := h.taskRepo.ListAll(ctx)
	if err != nil {
		isRetryable, errType := util.IsRetryableError(err)
		h.logger.Error("Failed to reload tasks after change event",
			zap.String("task_id", p.TaskID),
			zap.String("error_type", errType),
			zap.Bool("retryable", isRetryable),
			zap.Error(err),
		)

		if !isRetryable {
			h.sendToDLQ(raw, err)
			return nil
		}

		retryKey := util.FormatRetryKey("task_changed", p.TaskID+":"+p.Op)
		count, cntErr := h.retryCounter.IncrementAndGet(ctx, retryKey)
		if cntErr != nil {
			h.logger.Warn("Retry counter unavailable, requeueing anyway", zap.Error(cntErr))
			return err
		}
		if !util.ShouldRetry(count, maxRetries, isRetryable) {
			h.logger.Error("Retry budget exhausted, sending to DLQ",
				zap.String("task_id", p.TaskID),
				zap.Int64("retries", count),
			)
			h.sendToDLQ(raw, err)
			return nil
		}
		return fmt.Errorf("reload tasks: %w", err)
	}

	h.watcher.Push(tasks)
	return nil
}

func (h *TaskChangedHandler) sendToDLQ(raw json.RawMessage, cause error) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishToDLQ(mqcontracts.RoutingKeyTaskChanged, raw, cause.Error()); err != nil {
		h.logger.Error("Failed to publish to DLQ", zap.Error(err))
	}
}
