package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/deskgenie/genied/internal/model"
)

// ErrNotFound is returned when a task ID is not present in the registry.
var ErrNotFound = errors.New("task not found")

// Registry is the in-memory map of task IDs to task state and log channels.
// Submit inserts entries; Get and Subscribe are concurrent-safe reads; the
// eviction sweep is the only remover. Each entry carries its own lock, so
// unrelated tasks never contend beyond the registry's insert/lookup path.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*taskEntry
}

// taskEntry pairs one task's mutable record with its log channel. The record
// is only read or written under mu; callers receive snapshot copies.
type taskEntry struct {
	mu      sync.Mutex
	task    model.Task
	channel *LogChannel
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[string]*taskEntry),
	}
}

// insert adds a new entry for the given task with a fresh open log channel.
func (r *Registry) insert(t model.Task) *taskEntry {
	e := &taskEntry{
		task:    t,
		channel: NewLogChannel(),
	}
	r.mu.Lock()
	r.tasks[t.ID] = e
	r.mu.Unlock()
	return e
}

func (r *Registry) lookup(id string) (*taskEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tasks[id]
	return e, ok
}

// Get returns a snapshot copy of the task record, or ErrNotFound.
func (r *Registry) Get(id string) (model.Task, error) {
	e, ok := r.lookup(id)
	if !ok {
		return model.Task{}, ErrNotFound
	}
	return e.snapshot(), nil
}

// Subscribe returns a log event stream for the task, replaying buffered
// history first, plus an unsubscribe function. If the task's channel is
// already closed the stream yields the buffered events and then ends.
func (r *Registry) Subscribe(id string) (<-chan model.LogEvent, func(), error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, nil, ErrNotFound
	}
	ch, unsub := e.channel.Subscribe()
	return ch, unsub, nil
}

// Events returns a copy of the task's buffered log events and whether its
// channel has closed, or ErrNotFound.
func (r *Registry) Events(id string) ([]model.LogEvent, bool, error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, false, ErrNotFound
	}
	events, closed := e.channel.Snapshot()
	return events, closed, nil
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Sweep removes terminal tasks whose last update is older than the cutoff and
// returns how many were evicted. In-flight tasks are never evicted.
func (r *Registry) Sweep(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.tasks {
		e.mu.Lock()
		stale := model.Terminal(e.task.Status) && e.task.UpdatedAt.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(r.tasks, id)
			evicted++
		}
	}
	return evicted
}

// snapshot returns a copy of the task record.
func (e *taskEntry) snapshot() model.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task
}

// appendEvent appends a log event to the task's channel and bumps UpdatedAt.
// Events arriving after the task is terminal are discarded; the channel is
// closed at that point and would discard them anyway, but checking the record
// keeps UpdatedAt stable once terminal.
func (e *taskEntry) appendEvent(ev model.LogEvent) bool {
	e.mu.Lock()
	if model.Terminal(e.task.Status) {
		e.mu.Unlock()
		return false
	}
	e.task.UpdatedAt = time.Now().UTC()
	e.mu.Unlock()

	e.channel.Append(ev)
	return true
}

// transition attempts a status change, setting result or error payloads for
// terminal states. Returns the updated snapshot and whether the transition
// was applied. For terminal transitions the record write commits before the
// log channel closes, so a reader that observes channel closure can always
// fetch a terminal record.
func (e *taskEntry) transition(to, result, errMsg string) (model.Task, bool) {
	e.mu.Lock()
	if !model.ValidTransition(e.task.Status, to) {
		snap := e.task
		e.mu.Unlock()
		return snap, false
	}
	e.task.Status = to
	e.task.UpdatedAt = time.Now().UTC()
	switch to {
	case model.StatusCompleted:
		e.task.Result = result
	case model.StatusError:
		e.task.Error = errMsg
	}
	snap := e.task
	e.mu.Unlock()

	if model.Terminal(to) {
		e.channel.Close()
	}
	return snap, true
}
