package mq

import "time"

// ReminderPushPayload is handed to the push relay that owns the platform
// notification capability. Tag is always "task-{id}" so the platform can
// coalesce repeated alerts for the same task.
type ReminderPushPayload struct {
	TaskID             string    `json:"task_id"`
	Title              string    `json:"title"`
	Body               string    `json:"body"`
	Tag                string    `json:"tag"`
	RequireInteraction bool      `json:"require_interaction"`
	CreatedAt          time.Time `json:"created_at"`
}
