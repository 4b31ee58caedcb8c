package model

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusOverdue    Status = "overdue"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is the canonical reminder entity. DueDate carries the calendar date
// only; DueTime is a 24-hour "HH:MM" string, combined on demand into the
// due instant. Notified10m and NotifiedNow are the persisted idempotency
// flags: once true, the corresponding alert never fires again for this
// task instance.
type Task struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	DueDate             time.Time `json:"due_date"`
	DueTime             string    `json:"due_time"`
	Priority            Priority  `json:"priority"`
	Status              Status    `json:"status"`
	NotificationEnabled bool      `json:"notification_enabled"`
	Notified10m         bool      `json:"notified_10m"`
	NotifiedNow         bool      `json:"notified_now"`
	CreatedAt           time.Time `json:"created_at"`
}

func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
