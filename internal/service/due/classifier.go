// Package due holds the pure temporal classification functions shared by the
// reminder scheduler, the calendar grid and the task views. Every function
// takes its time reference explicitly; nothing here reads the wall clock.
package due

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskreminder/internal/model"
)

// Instant combines a task's calendar date with its "HH:MM" due time into
// the due instant. Seconds and sub-second components are zeroed. A
// malformed time string yields an error; callers treat such tasks as
// "unknown, not due" rather than failing the whole pass.
func Instant(dueDate time.Time, dueTime string) (time.Time, error) {
	hour, minute, err := parseClock(dueTime)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(
		dueDate.Year(), dueDate.Month(), dueDate.Day(),
		hour, minute, 0, 0,
		dueDate.Location(),
	), nil
}

func parseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid due time %q", s)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid due time %q", s)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid due time %q", s)
	}

	return hour, minute, nil
}

// SameDay reports whether a and b fall on the same calendar date,
// ignoring time of day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DayStart returns local midnight of t's calendar date.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfWeek returns the last instant of the week containing today. Weeks
// end on Saturday; when today is Saturday the window collapses to today.
func EndOfWeek(today time.Time) time.Time {
	d := DayStart(today).AddDate(0, 0, 6-int(today.Weekday()))
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 999000000, d.Location())
}

// EndOfMonth returns the last instant of today's month.
func EndOfMonth(today time.Time) time.Time {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	last := first.AddDate(0, 1, -1)
	return time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 999000000, last.Location())
}

// ClassifyOverdue recomputes a task's status at save time. A completed task
// is never reclassified; anything else whose due date lies on a calendar day
// before today becomes overdue. This is the only place overdue is inferred.
func ClassifyOverdue(dueDate time.Time, status model.Status, now time.Time) model.Status {
	if status == model.StatusCompleted {
		return status
	}
	if DayStart(dueDate).Before(DayStart(now)) {
		return model.StatusOverdue
	}
	return status
}
