package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskreminder/internal/model"
	"taskreminder/pkg/metrics"
)

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

const taskColumns = `
        id, title, description, due_date, due_time, priority, status,
        notification_enabled, notified_10m, notified_now, created_at
`

// ListAll returns the full task collection ordered by due instant ascending.
func (r *TaskRepository) ListAll(ctx context.Context) ([]model.Task, error) {
	start := time.Now()
	query := `
        SELECT ` + taskColumns + `
        FROM tasks
        ORDER BY due_date ASC, due_time ASC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Description,
			&t.DueDate,
			&t.DueTime,
			&t.Priority,
			&t.Status,
			&t.NotificationEnabled,
			&t.Notified10m,
			&t.NotifiedNow,
			&t.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan task row", zap.Error(err))
			return nil, err
		}
		tasks = append(tasks, t)
	}

	metrics.RecordDBQuery("list", "tasks", time.Since(start))
	r.logger.Debug("Tasks listed", zap.Int("count", len(tasks)))
	return tasks, rows.Err()
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*model.Task, error) {
	query := `
        SELECT ` + taskColumns + `
        FROM tasks
        WHERE id = $1
    `
	var t model.Task
	err := r.db.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.DueTime,
		&t.Priority,
		&t.Status,
		&t.NotificationEnabled,
		&t.Notified10m,
		&t.NotifiedNow,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Insert stores a new task, generating an id when the caller left it empty.
func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) (string, error) {
	start := time.Now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	r.logger.Debug("Inserting task",
		zap.String("task_id", t.ID),
		zap.String("title", t.Title),
		zap.String("status", string(t.Status)),
	)

	query := `
        INSERT INTO tasks (
            id, title, description, due_date, due_time, priority, status,
            notification_enabled, notified_10m, notified_now, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        RETURNING id
    `
	var id string
	err := r.db.QueryRow(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.DueDate,
		t.DueTime,
		t.Priority,
		t.Status,
		t.NotificationEnabled,
		t.Notified10m,
		t.NotifiedNow,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert task",
			zap.String("task_id", t.ID),
			zap.Error(err),
		)
		return "", err
	}

	metrics.RecordDBQuery("insert", "tasks", time.Since(start))
	r.logger.Info("Task inserted successfully", zap.String("task_id", id))
	return id, nil
}

// Update rewrites every mutable field of a task. Partial updates are merged
// onto the stored record by the caller before reaching here.
func (r *TaskRepository) Update(ctx context.Context, t *model.Task) error {
	start := time.Now()
	query := `
        UPDATE tasks
        SET title = $2,
            description = $3,
            due_date = $4,
            due_time = $5,
            priority = $6,
            status = $7,
            notification_enabled = $8,
            notified_10m = $9,
            notified_now = $10
        WHERE id = $1
    `
	result, err := r.db.Exec(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.DueDate,
		t.DueTime,
		t.Priority,
		t.Status,
		t.NotificationEnabled,
		t.Notified10m,
		t.NotifiedNow,
	)
	if err != nil {
		r.logger.Error("Failed to update task",
			zap.String("task_id", t.ID),
			zap.Error(err),
		)
		return err
	}

	metrics.RecordDBQuery("update", "tasks", time.Since(start))
	r.logger.Info("Task updated",
		zap.String("task_id", t.ID),
		zap.Int64("rows_affected", result.RowsAffected()),
	)
	return nil
}

// UpdateStatus flips only the status column (the completed/pending toggle).
func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	query := `
        UPDATE tasks
        SET status = $2
        WHERE id = $1
    `
	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		r.logger.Error("Failed to update task status",
			zap.String("task_id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return err
	}

	r.logger.Info("Task status updated",
		zap.String("task_id", id),
		zap.String("status", string(status)),
		zap.Int64("rows_affected", result.RowsAffected()),
	)
	return nil
}

// SetNotified10m marks the 10-minute warning as delivered for a task.
func (r *TaskRepository) SetNotified10m(ctx context.Context, id string) error {
	return r.setFlag(ctx, id, "notified_10m")
}

// SetNotifiedNow marks the due-now alert as delivered for a task.
func (r *TaskRepository) SetNotifiedNow(ctx context.Context, id string) error {
	return r.setFlag(ctx, id, "notified_now")
}

func (r *TaskRepository) setFlag(ctx context.Context, id, column string) error {
	// column is one of the two flag constants above, never user input
	query := `UPDATE tasks SET ` + column + ` = TRUE WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to set notification flag",
			zap.String("task_id", id),
			zap.String("flag", column),
			zap.Error(err),
		)
		return err
	}

	r.logger.Debug("Notification flag persisted",
		zap.String("task_id", id),
		zap.String("flag", column),
	)
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	result, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete task",
			zap.String("task_id", id),
			zap.Error(err),
		)
		return err
	}

	metrics.RecordDBQuery("delete", "tasks", time.Since(start))
	r.logger.Info("Task deleted",
		zap.String("task_id", id),
		zap.Int64("rows_affected", result.RowsAffected()),
	)
	return nil
}

// DeleteMany removes a batch of tasks in a single transaction so the bulk
// clear is atomic as a unit from the caller's perspective.
func (r *TaskRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback(ctx)

	for _, id := range ids {
		if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
			r.logger.Error("Failed to delete task in batch",
				zap.String("task_id", id),
				zap.Error(err),
			)
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error("Failed to commit batch delete", zap.Error(err))
		return err
	}

	metrics.RecordDBQuery("delete_many", "tasks", time.Since(start))
	r.logger.Info("Tasks deleted in batch", zap.Int("count", len(ids)))
	return nil
}

// Upsert inserts or replaces a task by id. Used by bulk import, where
// records carry their own ids and re-imports must be idempotent.
func (r *TaskRepository) Upsert(ctx context.Context, t *model.Task) error {
	start := time.Now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	query := `
        INSERT INTO tasks (
            id, title, description, due_date, due_time, priority, status,
            notification_enabled, notified_10m, notified_now, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title,
            description = EXCLUDED.description,
            due_date = EXCLUDED.due_date,
            due_time = EXCLUDED.due_time,
            priority = EXCLUDED.priority,
            status = EXCLUDED.status,
            notification_enabled = EXCLUDED.notification_enabled,
            notified_10m = EXCLUDED.notified_10m,
            notified_now = EXCLUDED.notified_now
    `
	_, err := r.db.Exec(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.DueDate,
		t.DueTime,
		t.Priority,
		t.Status,
		t.NotificationEnabled,
		t.Notified10m,
		t.NotifiedNow,
	)
	if err != nil {
		r.logger.Error("Failed to upsert task",
			zap.String("task_id", t.ID),
			zap.Error(err),
		)
		return err
	}

	metrics.RecordDBQuery("upsert", "tasks", time.Since(start))
	return nil
}
