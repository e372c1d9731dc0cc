package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/deskgenie/genied/internal/model"

	_ "modernc.org/sqlite"
)

const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
    id         TEXT PRIMARY KEY,
    kind       TEXT NOT NULL,
    runner     TEXT NOT NULL,
    status     TEXT NOT NULL,
    result     TEXT NOT NULL DEFAULT '',
    error      TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`

const createLogEventsTable = `
CREATE TABLE IF NOT EXISTS log_events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id    TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    level      TEXT NOT NULL,
    message    TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    UNIQUE(task_id, seq)
)`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createTasksTable, createLogEventsTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create table: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTask inserts a new task record.
func (s *SQLiteStore) CreateTask(ctx context.Context, t *model.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, kind, runner, status, result, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Kind, t.Runner, t.Status, t.Result, t.Error, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// UpdateTask overwrites the mutable fields of an existing task record.
func (s *SQLiteStore) UpdateTask(ctx context.Context, t *model.Task) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, result = ?, error = ?, updated_at = ? WHERE id = ?`,
		t.Status, t.Result, t.Error, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	t := &model.Task{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, runner, status, result, error, created_at, updated_at
		FROM tasks WHERE id = ?`, id,
	).Scan(&t.ID, &t.Kind, &t.Runner, &t.Status, &t.Result, &t.Error, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns a paginated list of tasks ordered by created_at DESC,
// along with the total count of all tasks.
func (s *SQLiteStore) ListTasks(ctx context.Context, limit, offset int) ([]*model.Task, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, kind, runner, status, result, error, created_at, updated_at
		FROM tasks ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t := &model.Task{}
		if err := rows.Scan(&t.ID, &t.Kind, &t.Runner, &t.Status, &t.Result, &t.Error, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTaskStats computes aggregate counts by status and kind.
func (s *SQLiteStore) GetTaskStats(ctx context.Context) (*TaskStats, error) {
	stats := &TaskStats{
		CountByStatus: make(map[string]int),
		CountByKind:   make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, kind, COUNT(*) FROM tasks GROUP BY status, kind`)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, kind string
		var count int
		if err := rows.Scan(&status, &kind, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += count
		stats.CountByStatus[status] += count
		stats.CountByKind[kind] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// InsertLogEvent persists one log event for a task.
func (s *SQLiteStore) InsertLogEvent(ctx context.Context, taskID string, seq int, ev model.LogEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO log_events (task_id, seq, level, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		taskID, seq, ev.Level, ev.Message, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert log event: %w", err)
	}
	return nil
}

// GetLogEvents returns all persisted log events for a task in sequence order.
func (s *SQLiteStore) GetLogEvents(ctx context.Context, taskID string) ([]StoredLogEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, seq, level, message, created_at
		FROM log_events WHERE task_id = ? ORDER BY seq ASC`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("get log events: %w", err)
	}
	defer rows.Close()

	var events []StoredLogEvent
	for rows.Next() {
		var ev StoredLogEvent
		if err := rows.Scan(&ev.TaskID, &ev.Seq, &ev.Level, &ev.Message, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan log event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log events: %w", err)
	}
	return events, nil
}
