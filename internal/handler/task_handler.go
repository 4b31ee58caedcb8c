package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mqcontracts "taskreminder/contracts/mq"
	"taskreminder/internal/model"
	"taskreminder/internal/repository"
	"taskreminder/internal/service/calendar"
	"taskreminder/internal/service/due"
	"taskreminder/internal/service/importer"
	"taskreminder/internal/service/view"
	"taskreminder/pkg/mq"
)

const dateLayout = "2006-01-02"

type TaskHandler struct {
	repo      *repository.TaskRepository
	importer  *importer.Importer
	publisher *mq.Publisher
	logger    *zap.Logger
}

func NewTaskHandler(repo *repository.TaskRepository, im *importer.Importer, publisher *mq.Publisher, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		repo:      repo,
		importer:  im,
		publisher: publisher,
		logger:    logger,
	}
}

// taskRequest is the write payload. Pointer fields distinguish "absent"
// from zero values so updates stay partial.
type taskRequest struct {
	ID                  string  `json:"id"`
	Title               *string `json:"title"`
	Description         *string `json:"description"`
	DueDate             *string `json:"due_date"` // YYYY-MM-DD
	DueTime             *string `json:"due_time"` // HH:MM
	Priority            *string `json:"priority"`
	Status              *string `json:"status"`
	NotificationEnabled *bool   `json:"notification_enabled"`
	Notified10m         *bool   `json:"notified_10m"`
	NotifiedNow         *bool   `json:"notified_now"`
}

// ListTasks returns the bucket-filtered, sorted task list.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	filter := view.ParseFilter(c.Query("filter"))

	tasks, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("ListTasks: failed to fetch tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tasks"})
		return
	}

	filtered := view.Apply(tasks, filter, time.Now())
	c.JSON(http.StatusOK, gin.H{
		"filter": filter,
		"tasks":  filtered,
	})
}

// TasksForDay returns the tasks due on a selected calendar date.
func (h *TaskHandler) TasksForDay(c *gin.Context) {
	dateStr := c.Param("date")
	selected, err := time.ParseInLocation(dateLayout, dateStr, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	tasks, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("TasksForDay: failed to fetch tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":  dateStr,
		"tasks": view.ForDate(tasks, selected),
	})
}

// Counts returns the dashboard per-status summary.
func (h *TaskHandler) Counts(c *gin.Context) {
	tasks, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Counts: failed to fetch tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"counts": view.Counts(tasks)})
}

// Calendar returns the 42-cell grid for year and month index (0-11).
func (h *TaskHandler) Calendar(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	monthIndex, err := strconv.Atoi(c.Param("month"))
	if err != nil || monthIndex < 0 || monthIndex > 11 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month index, expected 0-11"})
		return
	}

	tasks, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Calendar: failed to fetch tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tasks"})
		return
	}

	now := time.Now()
	days := calendar.Build(year, monthIndex, tasks, now)
	c.JSON(http.StatusOK, gin.H{
		"label": time.Date(year, time.Month(monthIndex+1), 1, 0, 0, 0, 0, time.Local).Format("January 2006"),
		"days":  days,
	})
}

// CreateTask stores a new task, applying the save-time overdue
// classification before persisting.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	task := model.Task{
		Title:               "",
		DueTime:             "09:00",
		Priority:            model.PriorityMedium,
		Status:              model.StatusPending,
		NotificationEnabled: true,
	}
	if err := applyRequest(&task, req); err != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}
	if task.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	if task.DueDate.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "due_date is required"})
		return
	}

	task.Status = due.ClassifyOverdue(task.DueDate, task.Status, time.Now())

	id, err := h.repo.Insert(c.Request.Context(), &task)
	if err != nil {
		h.logger.Error("CreateTask: failed to insert task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	h.publishChanged(id, "create")
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// UpdateTask merges the provided fields onto the stored task and re-runs
// the save-time overdue classification.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id := c.Param("id")

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	task, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	if msg := applyRequest(task, req); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	task.Status = due.ClassifyOverdue(task.DueDate, task.Status, time.Now())

	if err := h.repo.Update(c.Request.Context(), task); err != nil {
		h.logger.Error("UpdateTask: failed to update task",
			zap.String("task_id", id),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task"})
		return
	}

	h.publishChanged(id, "update")
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// ToggleTask flips a task between completed and pending.
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	id := c.Param("id")

	task, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	newStatus := model.StatusCompleted
	if task.Status == model.StatusCompleted {
		newStatus = model.StatusPending
	}

	if err := h.repo.UpdateStatus(c.Request.Context(), id, newStatus); err != nil {
		h.logger.Error("ToggleTask: failed to update status",
			zap.String("task_id", id),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle task"})
		return
	}

	h.publishChanged(id, "update")
	c.JSON(http.StatusOK, gin.H{"id": id, "status": newStatus})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id := c.Param("id")

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("DeleteTask: failed to delete task",
			zap.String("task_id", id),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
		return
	}

	h.publishChanged(id, "delete")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ClearTasks deletes the entire collection as one atomic batch.
func (h *TaskHandler) ClearTasks(c *gin.Context) {
	tasks, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("ClearTasks: failed to fetch tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tasks"})
		return
	}

	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}

	if err := h.repo.DeleteMany(c.Request.Context(), ids); err != nil {
		h.logger.Error("ClearTasks: failed to delete tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear tasks"})
		return
	}

	h.publishChanged("", "bulk")
	c.JSON(http.StatusOK, gin.H{"deleted": len(ids)})
}

// ImportTasks ingests a JSON array of task records with partial-failure
// semantics: bad records are counted, the rest proceed.
func (h *TaskHandler) ImportTasks(c *gin.Context) {
	var reqs []taskRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body, expected a task array"})
		return
	}

	records := make([]model.Task, 0, len(reqs))
	for _, req := range reqs {
		var t model.Task
		t.ID = req.ID
		// conversion errors surface per record inside the importer
		applyRequestLoose(&t, req)
		records = append(records, t)
	}

	res := h.importer.Import(c.Request.Context(), records, time.Now())

	h.publishChanged("", "bulk")
	c.JSON(http.StatusOK, res)
}

func (h *TaskHandler) publishChanged(taskID, op string) {
	payload := mqcontracts.TaskChangedPayload{TaskID: taskID, Op: op}
	if err := h.publisher.Publish(mqcontracts.RoutingKeyTaskChanged, payload); err != nil {
		// advisory event: the periodic snapshot refresh covers the loss
		h.logger.Error("Failed to publish task.changed event",
			zap.String("task_id", taskID),
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

// applyRequest merges req onto task, validating enums and date syntax.
// Returns a client-facing message, or "" when everything applied.
func applyRequest(task *model.Task, req taskRequest) string {
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueDate != nil {
		d, err := time.ParseInLocation(dateLayout, *req.DueDate, time.Local)
		if err != nil {
			return "invalid due_date, expected YYYY-MM-DD"
		}
		task.DueDate = d
	}
	if req.DueTime != nil {
		task.DueTime = *req.DueTime
	}
	if req.Priority != nil {
		p := model.Priority(*req.Priority)
		if !model.IsValidPriority(p) {
			return "invalid priority"
		}
		task.Priority = p
	}
	if req.Status != nil {
		s := model.Status(*req.Status)
		if !model.IsValidStatus(s) {
			return "invalid status"
		}
		task.Status = s
	}
	if req.NotificationEnabled != nil {
		task.NotificationEnabled = *req.NotificationEnabled
	}
	if req.Notified10m != nil {
		task.Notified10m = *req.Notified10m
	}
	if req.NotifiedNow != nil {
		task.NotifiedNow = *req.NotifiedNow
	}
	return ""
}

// applyRequestLoose applies without rejecting: the importer validates each
// record on its own so one malformed entry cannot abort the batch.
func applyRequestLoose(task *model.Task, req taskRequest) {
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueDate != nil {
		if d, err := time.ParseInLocation(dateLayout, *req.DueDate, time.Local); err == nil {
			task.DueDate = d
		}
	}
	if req.DueTime != nil {
		task.DueTime = *req.DueTime
	}
	if req.Priority != nil {
		task.Priority = model.Priority(*req.Priority)
	}
	if req.Status != nil {
		task.Status = model.Status(*req.Status)
	}
	if req.NotificationEnabled != nil {
		task.NotificationEnabled = *req.NotificationEnabled
	}
	if req.Notified10m != nil {
		task.Notified10m = *req.Notified10m
	}
	if req.NotifiedNow != nil {
		task.NotifiedNow = *req.NotifiedNow
	}
}
