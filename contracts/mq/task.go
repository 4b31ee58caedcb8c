package mq

// Routing keys on the reminders exchange.
const (
	RoutingKeyTaskChanged  = "task.changed"
	RoutingKeyReminderPush = "reminder.push"
)

// TaskChangedPayload announces that the task collection was mutated and
// subscribers should re-read it. Op is create / update / delete / bulk.
type TaskChangedPayload struct {
	TaskID string `json:"task_id,omitempty"`
	Op     string `json:"op"`
}
