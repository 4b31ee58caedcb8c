package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error
	if err := json.Unmarshal([]byte("{not json"), &struct{}{}); err != nil {
		syntaxErr = err
	}

	tests := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{"nil", nil, false, ""},
		{"json syntax", syntaxErr, false, "json_decode_error"},
		{"missing task", pgx.ErrNoRows, false, "task_not_found"},
		{"wrapped missing task", fmt.Errorf("load task: %w", pgx.ErrNoRows), false, "task_not_found"},
		{"duplicate key", errors.New(`duplicate key value violates unique constraint "tasks_pkey"`), false, "duplicate_key"},
		{"db connection", errors.New("failed to connect to database: connection refused"), true, "db_connection_error"},
		{"db timeout", errors.New("query timeout exceeded"), true, "db_connection_error"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"unknown", errors.New("something odd"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			if retryable != tt.retryable || errType != tt.errType {
				t.Errorf("IsRetryableError(%v) = (%v, %q), want (%v, %q)",
					tt.err, retryable, errType, tt.retryable, tt.errType)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name      string
		count     int64
		max       int64
		retryable bool
		want      bool
	}{
		{"within budget", 3, 5, true, true},
		{"at budget", 5, 5, true, true},
		{"over budget", 6, 5, true, false},
		{"non-retryable", 1, 5, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRetry(tt.count, tt.max, tt.retryable); got != tt.want {
				t.Errorf("ShouldRetry(%d, %d, %v) = %v, want %v", tt.count, tt.max, tt.retryable, got, tt.want)
			}
		})
	}
}
