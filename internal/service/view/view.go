// Package view turns the raw task collection into the lists the user acts
// on: bucket-filtered and sorted tasks, selected-day tasks and per-status
// counts. Everything is computed from an immutable snapshot against an
// explicit time reference and never mutates its input.
package view

import (
	"sort"
	"time"

	"taskreminder/internal/model"
	"taskreminder/internal/service/due"
)

type Filter string

const (
	FilterAll   Filter = "all"
	FilterToday Filter = "today"
	FilterWeek  Filter = "week"
	FilterMonth Filter = "month"
)

// ParseFilter maps a request parameter onto a bucket filter.
// Anything unrecognized falls back to FilterAll.
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterToday, FilterWeek, FilterMonth:
		return Filter(s)
	default:
		return FilterAll
	}
}

// Apply returns the tasks matching filter, sorted with overdue tasks first
// and ascending by due instant within the same overdue-ness. Bucket windows
// are anchored at local midnight of now's calendar date.
func Apply(tasks []model.Task, filter Filter, now time.Time) []model.Task {
	today := due.DayStart(now)

	var out []model.Task
	switch filter {
	case FilterToday:
		for _, t := range tasks {
			if due.SameDay(t.DueDate, today) {
				out = append(out, t)
			}
		}
	case FilterWeek:
		endOfWeek := due.EndOfWeek(now)
		for _, t := range tasks {
			if inWindow(t.DueDate, today, endOfWeek) {
				out = append(out, t)
			}
		}
	case FilterMonth:
		endOfMonth := due.EndOfMonth(now)
		for _, t := range tasks {
			if inWindow(t.DueDate, today, endOfMonth) {
				out = append(out, t)
			}
		}
	default:
		out = make([]model.Task, len(tasks))
		copy(out, tasks)
	}

	sortTasks(out)
	return out
}

func inWindow(date, from, to time.Time) bool {
	d := due.DayStart(date)
	return !d.Before(from) && !d.After(to)
}

// ForDate returns the tasks due on the selected calendar date, ascending
// by due instant.
func ForDate(tasks []model.Task, selected time.Time) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if due.SameDay(t.DueDate, selected) {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return dueInstant(out[i]).Before(dueInstant(out[j]))
	})
	return out
}

// CountByStatus returns the number of tasks exactly matching status.
func CountByStatus(tasks []model.Task, status model.Status) int {
	n := 0
	for _, t := range tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

// Counts returns the dashboard summary of tasks per status.
func Counts(tasks []model.Task) map[model.Status]int {
	counts := make(map[model.Status]int, 4)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

// sortTasks orders overdue tasks before everything else regardless of date,
// then ascending by due instant.
func sortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if (a.Status == model.StatusOverdue) != (b.Status == model.StatusOverdue) {
			return a.Status == model.StatusOverdue
		}
		return dueInstant(a).Before(dueInstant(b))
	})
}

// dueInstant is the sort key. A malformed due time degrades to the date's
// midnight instead of poisoning the sort.
func dueInstant(t model.Task) time.Time {
	instant, err := due.Instant(t.DueDate, t.DueTime)
	if err != nil {
		return due.DayStart(t.DueDate)
	}
	return instant
}
