// Package notify decides nothing about timing; it is the delivery edge the
// reminder scheduler hands alerts to. The platform push capability lives
// behind the reminders exchange, so delivery here means a successful
// publish of a reminder.push event.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	mqcontracts "taskreminder/contracts/mq"
	"taskreminder/internal/model"
	"taskreminder/pkg/circuitbreaker"
)

// ErrPermissionDenied reports that notification permission has not been
// granted. The alert is undelivered, not redundant: idempotency flags must
// not be set and a later attempt is expected once permission arrives.
var ErrPermissionDenied = errors.New("notification permission not granted")

type Notification struct {
	TaskID             string
	Title              string
	Body               string
	Tag                string
	RequireInteraction bool
}

type Dispatcher interface {
	Notify(ctx context.Context, n Notification) error
}

// Warning builds the 10-minute alert for a task.
func Warning(t model.Task) Notification {
	return Notification{
		TaskID:             t.ID,
		Title:              fmt.Sprintf("Upcoming Task: %s", t.Title),
		Body:               fmt.Sprintf("Due in 10 minutes: %s", t.Description),
		Tag:                fmt.Sprintf("task-%s", t.ID),
		RequireInteraction: true,
	}
}

// DueNow builds the due-now alert for a task.
func DueNow(t model.Task) Notification {
	return Notification{
		TaskID:             t.ID,
		Title:              fmt.Sprintf("Task Due Now: %s", t.Title),
		Body:               t.Description,
		Tag:                fmt.Sprintf("task-%s", t.ID),
		RequireInteraction: true,
	}
}

type publisher interface {
	Publish(routingKey string, payload any) error
}

// PushDispatcher publishes alerts to the push relay, gated by the runtime
// permission state and protected by a circuit breaker so a down broker is
// not hammered on every tick.
type PushDispatcher struct {
	publisher publisher
	gate      *Gate
	breaker   *circuitbreaker.CircuitBreaker
	logger    *zap.Logger
}

func NewPushDispatcher(pub publisher, gate *Gate, logger *zap.Logger) *PushDispatcher {
	return &PushDispatcher{
		publisher: pub,
		gate:      gate,
		breaker:   circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger:    logger,
	}
}

func (d *PushDispatcher) Notify(ctx context.Context, n Notification) error {
	if !d.gate.Granted() {
		return ErrPermissionDenied
	}

	payload := mqcontracts.ReminderPushPayload{
		TaskID:             n.TaskID,
		Title:              n.Title,
		Body:               n.Body,
		Tag:                n.Tag,
		RequireInteraction: n.RequireInteraction,
		CreatedAt:          time.Now(),
	}

	err := d.breaker.Execute(func() error {
		return d.publisher.Publish(mqcontracts.RoutingKeyReminderPush, payload)
	})
	if err != nil {
		d.logger.Error("Failed to publish reminder alert",
			zap.String("task_id", n.TaskID),
			zap.String("tag", n.Tag),
			zap.Error(err),
		)
		return err
	}

	d.logger.Info("Reminder alert published",
		zap.String("task_id", n.TaskID),
		zap.String("tag", n.Tag),
	)
	return nil
}
