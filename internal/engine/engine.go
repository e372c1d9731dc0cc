package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deskgenie/genied/internal/model"
	"github.com/deskgenie/genied/internal/store"
)

// Reporter is the capability handed to a unit of work. The work emits zero or
// more log events and must eventually call exactly one of Succeed or Fail.
// The engine enforces the terminal guarantee: calls after the first terminal
// one are discarded, as are Emit calls once the task is terminal.
type Reporter interface {
	Emit(level, message string)
	Succeed(result string)
	Fail(errMsg string)
}

// Work is an opaque unit of background work. It reports progress and its
// final outcome through the Reporter. A Work that panics, or returns without
// calling Succeed or Fail, is recorded as a generic failure.
type Work func(ctx context.Context, rep Reporter)

// Engine runs submitted work on background goroutines, bridging log
// emissions into the task's log channel and the terminal outcome into the
// task record. Task state lives in the in-memory registry; the store is a
// best-effort write-only archive and is never read back for correctness.
type Engine struct {
	registry *Registry
	store    store.Store
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewEngine creates a new execution engine. The store may be nil to disable
// archiving.
func NewEngine(reg *Registry, s store.Store, logger *slog.Logger) *Engine {
	return &Engine{
		registry: reg,
		store:    s,
		logger:   logger,
	}
}

// Registry returns the engine's task registry for read-side adapters.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Submit creates a pending task with an open log channel, hands the work to a
// background goroutine, and returns the task snapshot immediately. It never
// blocks on the work itself.
func (e *Engine) Submit(ctx context.Context, kind, runnerName string, work Work) model.Task {
	now := time.Now().UTC()
	t := model.Task{
		ID:        model.NewID(),
		Kind:      kind,
		Runner:    runnerName,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entry := e.registry.insert(t)
	tasksSubmitted.WithLabelValues(kind).Inc()
	tasksActive.Inc()

	if e.store != nil {
		if err := e.store.CreateTask(ctx, &t); err != nil {
			e.logger.Error("failed to archive task", "task_id", t.ID, "error", err)
		}
	}

	e.wg.Go(func() {
		e.execute(entry, work)
	})

	return t
}

// Wait blocks until all in-flight task goroutines complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// StartEviction launches a background sweep that evicts terminal tasks older
// than retention from the registry. Returns a stop function. A retention of
// zero disables eviction and the stop function is a no-op.
func (e *Engine) StartEviction(retention, interval time.Duration) func() {
	if retention <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := e.registry.Sweep(time.Now().UTC().Add(-retention)); n > 0 {
					e.logger.Info("evicted terminal tasks", "count", n)
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// execute runs one task's lifecycle: pending→running, invoke the work, and
// force an error outcome if the work panics or never reports one.
func (e *Engine) execute(entry *taskEntry, work Work) {
	rep := e.newReporter(entry)

	if snap, ok := entry.transition(model.StatusRunning, "", ""); !ok {
		e.logger.Error("failed to transition to running", "task_id", snap.ID, "status", snap.Status)
		rep.Fail("failed to start task")
		return
	}
	e.archiveTask(entry)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task panicked", "task_id", entry.snapshot().ID, "panic", fmt.Sprint(r))
			rep.Fail(fmt.Sprintf("task failed: %v", r))
			return
		}
		// Discarded if the work already reported an outcome.
		rep.Fail("task finished without reporting a result")
	}()

	work(context.Background(), rep)
}

// archiveTask mirrors the current task record into the store, best effort.
func (e *Engine) archiveTask(entry *taskEntry) {
	if e.store == nil {
		return
	}
	snap := entry.snapshot()
	if err := e.store.UpdateTask(context.Background(), &snap); err != nil {
		e.logger.Error("failed to archive task update", "task_id", snap.ID, "error", err)
	}
}

// taskReporter bridges one task's work into its entry. It is handed to the
// work as a Reporter and is safe for concurrent use.
type taskReporter struct {
	engine *Engine
	entry  *taskEntry
	taskID string
	seq    atomic.Int32
}

func (e *Engine) newReporter(entry *taskEntry) *taskReporter {
	return &taskReporter{engine: e, entry: entry, taskID: entry.snapshot().ID}
}

// Emit appends a log event to the task's channel and mirrors it into the
// archive. Events emitted after the task is terminal are discarded entirely.
func (r *taskReporter) Emit(level, message string) {
	ev := model.NewLogEvent(level, message)
	if !r.entry.appendEvent(ev) {
		return
	}
	seq := int(r.seq.Add(1) - 1)

	if r.engine.store != nil {
		if err := r.engine.store.InsertLogEvent(context.Background(), r.taskID, seq, ev); err != nil {
			r.engine.logger.Error("failed to archive log event", "task_id", r.taskID, "seq", seq, "error", err)
		}
	}
}

// Succeed records the completed outcome. Only the first terminal call per
// task takes effect.
func (r *taskReporter) Succeed(result string) {
	r.finish(model.StatusCompleted, result, "")
}

// Fail records the error outcome. Only the first terminal call per task
// takes effect.
func (r *taskReporter) Fail(errMsg string) {
	if errMsg == "" {
		errMsg = "task failed"
	}
	r.finish(model.StatusError, "", errMsg)
}

func (r *taskReporter) finish(status, result, errMsg string) {
	snap, ok := r.entry.transition(status, result, errMsg)
	if !ok {
		return
	}
	tasksFinished.WithLabelValues(snap.Kind, status).Inc()
	tasksActive.Dec()
	r.engine.archiveTask(r.entry)
}
