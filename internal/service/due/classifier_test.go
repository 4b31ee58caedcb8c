package due

import (
	"testing"
	"time"

	"taskreminder/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestInstant(t *testing.T) {
	day := date(2026, time.March, 15)

	tests := []struct {
		name    string
		dueTime string
		want    time.Time
		wantErr bool
	}{
		{"morning", "09:00", time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC), false},
		{"end of day", "23:59", time.Date(2026, time.March, 15, 23, 59, 0, 0, time.UTC), false},
		{"midnight", "00:00", day, false},
		{"missing colon", "0900", time.Time{}, true},
		{"hour out of range", "24:00", time.Time{}, true},
		{"minute out of range", "12:60", time.Time{}, true},
		{"not a number", "ab:cd", time.Time{}, true},
		{"empty", "", time.Time{}, true},
		{"too many parts", "09:00:00", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Instant(day, tt.dueTime)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Instant(%q) expected error, got %v", tt.dueTime, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Instant(%q) failed: %v", tt.dueTime, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Instant(%q) = %v, want %v", tt.dueTime, got, tt.want)
			}
		})
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, time.March, 15, 0, 1, 0, 0, time.UTC)
	b := time.Date(2026, time.March, 15, 23, 59, 0, 0, time.UTC)
	if !SameDay(a, b) {
		t.Error("expected same calendar date regardless of time of day")
	}
	if SameDay(a, b.AddDate(0, 0, 1)) {
		t.Error("adjacent dates must not compare equal")
	}
	// same day-of-month in a different month or year
	if SameDay(a, time.Date(2026, time.April, 15, 0, 1, 0, 0, time.UTC)) {
		t.Error("month must participate in the comparison")
	}
	if SameDay(a, time.Date(2027, time.March, 15, 0, 1, 0, 0, time.UTC)) {
		t.Error("year must participate in the comparison")
	}
}

func TestEndOfWeek(t *testing.T) {
	tests := []struct {
		name  string
		today time.Time
		want  time.Time
	}{
		{
			// Sunday gets the whole week ahead of it
			"sunday", date(2026, time.March, 15),
			date(2026, time.March, 21),
		},
		{
			"wednesday", date(2026, time.March, 18),
			date(2026, time.March, 21),
		},
		{
			// Saturday collapses to today
			"saturday", date(2026, time.March, 21),
			date(2026, time.March, 21),
		},
		{
			// week window crossing a month boundary
			"month boundary", date(2026, time.March, 30),
			date(2026, time.April, 4),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EndOfWeek(tt.today)
			if !SameDay(got, tt.want) {
				t.Errorf("EndOfWeek(%v) = %v, want day %v", tt.today, got, tt.want)
			}
			if got.Hour() != 23 || got.Minute() != 59 || got.Second() != 59 {
				t.Errorf("EndOfWeek must land on the last instant of the day, got %v", got)
			}
		})
	}
}

func TestEndOfMonth(t *testing.T) {
	tests := []struct {
		today time.Time
		want  time.Time
	}{
		{date(2026, time.March, 10), date(2026, time.March, 31)},
		{date(2026, time.April, 1), date(2026, time.April, 30)},
		{date(2026, time.February, 5), date(2026, time.February, 28)},
		{date(2028, time.February, 5), date(2028, time.February, 29)},
		{date(2026, time.December, 31), date(2026, time.December, 31)},
	}

	for _, tt := range tests {
		got := EndOfMonth(tt.today)
		if !SameDay(got, tt.want) {
			t.Errorf("EndOfMonth(%v) = %v, want day %v", tt.today, got, tt.want)
		}
	}
}

func TestClassifyOverdue(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dueDate time.Time
		status  model.Status
		want    model.Status
	}{
		{"yesterday pending", date(2026, time.March, 14), model.StatusPending, model.StatusOverdue},
		{"yesterday in progress", date(2026, time.March, 14), model.StatusInProgress, model.StatusOverdue},
		{"completed never reclassified", date(2026, time.January, 1), model.StatusCompleted, model.StatusCompleted},
		{"due today stays pending", date(2026, time.March, 15), model.StatusPending, model.StatusPending},
		{"due tomorrow stays pending", date(2026, time.March, 16), model.StatusPending, model.StatusPending},
		{"already overdue stays overdue", date(2026, time.March, 1), model.StatusOverdue, model.StatusOverdue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyOverdue(tt.dueDate, tt.status, now)
			if got != tt.want {
				t.Errorf("ClassifyOverdue(%v, %s) = %s, want %s", tt.dueDate, tt.status, got, tt.want)
			}
		})
	}
}

func TestClassifyOverdueDateOnlyComparison(t *testing.T) {
	// due earlier today but the clock has passed it: still not overdue,
	// only the calendar date counts
	now := time.Date(2026, time.March, 15, 23, 0, 0, 0, time.UTC)
	due := time.Date(2026, time.March, 15, 8, 0, 0, 0, time.UTC)

	if got := ClassifyOverdue(due, model.StatusPending, now); got != model.StatusPending {
		t.Errorf("same-day task must not become overdue, got %s", got)
	}
}
