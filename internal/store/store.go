// Package store provides the write-mostly task archive. The engine's
// in-memory registry is authoritative for in-flight state; the store keeps a
// durable history of tasks and their log events for listing and post-hoc
// inspection.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/deskgenie/genied/internal/model"
)

// ErrNotFound is returned when a task is not found in the archive.
var ErrNotFound = errors.New("task not found")

// StoredLogEvent is a log event as persisted, with its per-task sequence.
type StoredLogEvent struct {
	TaskID    string    `json:"task_id"`
	Seq       int       `json:"seq"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskStats holds aggregate task statistics.
type TaskStats struct {
	Total         int            `json:"total"`
	CountByStatus map[string]int `json:"count_by_status"`
	CountByKind   map[string]int `json:"count_by_kind"`
}

// Store defines the persistence operations for the task archive.
type Store interface {
	CreateTask(ctx context.Context, t *model.Task) error
	UpdateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, limit, offset int) ([]*model.Task, int, error)
	GetTaskStats(ctx context.Context) (*TaskStats, error)
	InsertLogEvent(ctx context.Context, taskID string, seq int, ev model.LogEvent) error
	GetLogEvents(ctx context.Context, taskID string) ([]StoredLogEvent, error)
	Close() error
}
