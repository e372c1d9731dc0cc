package model

import "time"

// Task status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Task kind constants.
const (
	KindChat      = "chat"
	KindBenchmark = "benchmark"
)

// validTransitions maps each status to the set of statuses it may transition to.
// A task may fail straight from pending if setup fails before the work starts.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning: true,
		StatusError:   true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusError:     true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Terminal reports whether the given status is a terminal state.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusError
}

// Task represents one submitted unit of background work. Status follows
// pending → running → {completed, error}; exactly one of Result/Error is
// populated once the task is terminal.
type Task struct {
	ID        string    `json:"task_id"`
	Kind      string    `json:"kind"`
	Runner    string    `json:"runner"`
	Status    string    `json:"status"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
