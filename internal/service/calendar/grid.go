// Package calendar builds the fixed 42-cell month grid the UI renders.
package calendar

import (
	"time"

	"taskreminder/internal/model"
	"taskreminder/internal/service/due"
)

// GridSize is the fixed number of cells in a month view: six full weeks,
// so the grid never reflows between months.
const GridSize = 42

// Build produces the visible-month grid for year and monthIndex (0-11).
// Leading cells borrow the tail of the previous month, trailing cells the
// head of the next; both are marked as outside the current month. IsToday
// and HasTask are evaluated against now and tasks by date-only equality.
func Build(year, monthIndex int, tasks []model.Task, now time.Time) []model.CalendarDay {
	month := time.Month(monthIndex + 1)
	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	lastDay := firstDay.AddDate(0, 1, -1)
	firstWeekday := int(firstDay.Weekday()) // 0 = Sunday

	days := make([]model.CalendarDay, 0, GridSize)

	// Tail of the previous month, ascending, immediately preceding day 1.
	// When day 1 falls on Sunday this contributes nothing.
	for i := firstWeekday; i > 0; i-- {
		date := firstDay.AddDate(0, 0, -i)
		days = append(days, newDay(date, false, tasks, now))
	}

	for i := 1; i <= lastDay.Day(); i++ {
		date := time.Date(year, month, i, 0, 0, 0, 0, now.Location())
		days = append(days, newDay(date, true, tasks, now))
	}

	// Pad with the head of the next month up to the full six weeks.
	next := lastDay.AddDate(0, 0, 1)
	for i := 0; len(days) < GridSize; i++ {
		date := next.AddDate(0, 0, i)
		days = append(days, newDay(date, false, tasks, now))
	}

	return days
}

func newDay(date time.Time, current bool, tasks []model.Task, now time.Time) model.CalendarDay {
	return model.CalendarDay{
		Date:           date,
		IsCurrentMonth: current,
		IsToday:        due.SameDay(date, now),
		HasTask:        hasTaskOn(date, tasks),
	}
}

func hasTaskOn(date time.Time, tasks []model.Task) bool {
	for _, t := range tasks {
		if due.SameDay(t.DueDate, date) {
			return true
		}
	}
	return false
}
