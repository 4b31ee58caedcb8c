package model

import "time"

// CalendarDay is one cell of the 42-cell month grid. It is ephemeral:
// rebuilt on every render, never persisted.
type CalendarDay struct {
	Date           time.Time `json:"date"`
	IsCurrentMonth bool      `json:"is_current_month"`
	IsToday        bool      `json:"is_today"`
	HasTask        bool      `json:"has_task"`
}
