package engine_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/deskgenie/genied/internal/engine"
	"github.com/deskgenie/genied/internal/model"
	"github.com/deskgenie/genied/internal/store"
)

func newTestEngine(t *testing.T) (*engine.Engine, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return engine.NewEngine(engine.NewRegistry(), s, logger), s
}

// waitForStatus polls the registry until the task reaches the expected status.
func waitForStatus(t *testing.T, e *engine.Engine, id, expected string, timeout time.Duration) model.Task {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		task, err := e.Registry().Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if task.Status == expected {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s did not reach status %q within %v", id, expected, timeout)
	return model.Task{}
}

func TestSubmitHappyPath(t *testing.T) {
	eng, _ := newTestEngine(t)

	// Scenario: work emits two events then completes with "42".
	task := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
		rep.Emit(model.LevelInfo, "starting")
		rep.Emit(model.LevelSuccess, "done")
		rep.Succeed("42")
	})

	if task.Status != model.StatusPending {
		t.Errorf("initial status = %q, want pending", task.Status)
	}

	completed := waitForStatus(t, eng, task.ID, model.StatusCompleted, 5*time.Second)
	if completed.Result != "42" {
		t.Errorf("result = %q, want %q", completed.Result, "42")
	}
	if completed.Error != "" {
		t.Errorf("error = %q, want empty", completed.Error)
	}

	// Stream opened after completion still yields exactly the two events.
	ch, unsub, err := eng.Registry().Subscribe(task.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	var got []model.LogEvent
	for ev := range ch {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Level != model.LevelInfo || got[0].Message != "starting" {
		t.Errorf("event[0] = %+v", got[0])
	}
	if got[1].Level != model.LevelSuccess || got[1].Message != "done" {
		t.Errorf("event[1] = %+v", got[1])
	}
}

func TestSubmitWorkFails(t *testing.T) {
	eng, _ := newTestEngine(t)

	task := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
		rep.Fail("boom")
	})

	failed := waitForStatus(t, eng, task.ID, model.StatusError, 5*time.Second)
	if failed.Error != "boom" {
		t.Errorf("error = %q, want %q", failed.Error, "boom")
	}
	if failed.Result != "" {
		t.Errorf("result = %q, want empty", failed.Result)
	}
}

func TestSubmitWorkPanics(t *testing.T) {
	eng, _ := newTestEngine(t)

	// Scenario: work panics without emitting anything or reporting an
	// outcome. The engine must record a non-empty error.
	task := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, _ engine.Reporter) {
		panic("unexpected fault")
	})

	failed := waitForStatus(t, eng, task.ID, model.StatusError, 5*time.Second)
	if failed.Error == "" {
		t.Error("error must be non-empty after a panic")
	}
}

func TestSubmitWorkNeverReports(t *testing.T) {
	eng, _ := newTestEngine(t)

	task := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
		rep.Emit(model.LevelInfo, "working")
		// Returns without Succeed or Fail.
	})

	failed := waitForStatus(t, eng, task.ID, model.StatusError, 5*time.Second)
	if failed.Error == "" {
		t.Error("error must be non-empty when work never reports an outcome")
	}
}

func TestExactlyOneTerminalTransition(t *testing.T) {
	eng, _ := newTestEngine(t)

	task := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
		rep.Succeed("first")
		rep.Fail("second")
		rep.Succeed("third")
		rep.Emit(model.LevelInfo, "late event")
	})

	eng.Wait()

	got, err := eng.Registry().Get(task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.Result != "first" {
		t.Errorf("result = %q, want %q (first terminal call wins)", got.Result, "first")
	}
	if got.Error != "" {
		t.Errorf("error = %q, want empty", got.Error)
	}

	// The late emit after completion must have been discarded.
	events, closed, err := eng.Registry().Events(task.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if !closed {
		t.Error("channel should be closed after terminal transition")
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0 (late emit discarded)", len(events))
	}
}

func TestTerminalReadIsIdempotent(t *testing.T) {
	eng, _ := newTestEngine(t)

	task := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
		rep.Succeed("stable")
	})
	eng.Wait()

	first, err := eng.Registry().Get(task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := eng.Registry().Get(task.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if again != first {
			t.Fatalf("terminal read changed: %+v vs %+v", again, first)
		}
	}
}

func TestChannelCloseImpliesTerminalRecord(t *testing.T) {
	eng, _ := newTestEngine(t)

	task := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
		rep.Emit(model.LevelInfo, "one")
		rep.Succeed("ok")
	})

	ch, unsub, err := eng.Registry().Subscribe(task.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub()

	// Drain until end-of-stream, then the record must already be terminal.
	for range ch {
	}

	got, err := eng.Registry().Get(task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !model.Terminal(got.Status) {
		t.Errorf("status = %q after channel close, want terminal", got.Status)
	}
}

func TestGetUnknownTask(t *testing.T) {
	eng, _ := newTestEngine(t)

	if _, err := eng.Registry().Get("nonexistent"); err != engine.ErrNotFound {
		t.Errorf("Get unknown = %v, want ErrNotFound", err)
	}
	if _, _, err := eng.Registry().Subscribe("nonexistent"); err != engine.ErrNotFound {
		t.Errorf("Subscribe unknown = %v, want ErrNotFound", err)
	}
}

func TestTwoStreamsSeeIdenticalSequence(t *testing.T) {
	eng, _ := newTestEngine(t)

	release := make(chan struct{})
	task := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
		<-release
		for i := 0; i < 100; i++ {
			rep.Emit(model.LevelStep, string(rune('a'+i%26)))
		}
		rep.Succeed("done")
	})

	ch1, unsub1, err := eng.Registry().Subscribe(task.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub1()
	ch2, unsub2, err := eng.Registry().Subscribe(task.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsub2()

	close(release)

	var got1, got2 []string
	for ev := range ch1 {
		got1 = append(got1, ev.Message)
	}
	for ev := range ch2 {
		got2 = append(got2, ev.Message)
	}

	if len(got1) != 100 || len(got2) != 100 {
		t.Fatalf("got %d and %d events, want 100 each", len(got1), len(got2))
	}
	for i := range got1 {
		if got1[i] != got2[i] {
			t.Fatalf("streams disagree at index %d", i)
		}
	}
}

func TestTasksAreIndependent(t *testing.T) {
	eng, _ := newTestEngine(t)

	block := make(chan struct{})
	slow := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
		<-block
		rep.Succeed("slow done")
	})
	fast := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
		rep.Succeed("fast done")
	})

	// The fast task completes while the slow one is still running.
	waitForStatus(t, eng, fast.ID, model.StatusCompleted, 5*time.Second)

	got, _ := eng.Registry().Get(slow.ID)
	if model.Terminal(got.Status) {
		t.Errorf("slow task status = %q, want non-terminal", got.Status)
	}

	close(block)
	waitForStatus(t, eng, slow.ID, model.StatusCompleted, 5*time.Second)
}

// TestRandomizedWorkSequences drives the executor with randomized emit and
// terminal call sequences and checks the state machine invariants hold.
func TestRandomizedWorkSequences(t *testing.T) {
	eng, _ := newTestEngine(t)
	rng := rand.New(rand.NewSource(1))

	var ids []string
	for i := 0; i < 30; i++ {
		emits := rng.Intn(5)
		succeed := rng.Intn(2) == 0
		extraCalls := rng.Intn(3)

		task := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
			for j := 0; j < emits; j++ {
				rep.Emit(model.LevelInfo, "event")
			}
			if succeed {
				rep.Succeed("ok")
			} else {
				rep.Fail("failed")
			}
			for j := 0; j < extraCalls; j++ {
				rep.Succeed("extra")
				rep.Fail("extra")
			}
		})
		ids = append(ids, task.ID)
	}

	eng.Wait()

	for _, id := range ids {
		task, err := eng.Registry().Get(id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !model.Terminal(task.Status) {
			t.Errorf("task %s ended non-terminal: %q", id, task.Status)
		}
		hasResult := task.Result != ""
		hasError := task.Error != ""
		if hasResult == hasError {
			t.Errorf("task %s: exactly one of result/error must be set (result=%q error=%q)",
				id, task.Result, task.Error)
		}
	}
}

func TestEvictionSweep(t *testing.T) {
	eng, _ := newTestEngine(t)

	done := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
		rep.Succeed("ok")
	})
	block := make(chan struct{})
	defer close(block)
	inflight := eng.Submit(context.Background(), model.KindChat, "test", func(_ context.Context, rep engine.Reporter) {
		<-block
		rep.Succeed("ok")
	})

	waitForStatus(t, eng, done.ID, model.StatusCompleted, 5*time.Second)

	// Sweep with a future cutoff: the terminal task goes, the in-flight
	// task stays.
	evicted := eng.Registry().Sweep(time.Now().UTC().Add(time.Hour))
	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if _, err := eng.Registry().Get(done.ID); err != engine.ErrNotFound {
		t.Errorf("terminal task still present after sweep: %v", err)
	}
	if _, err := eng.Registry().Get(inflight.ID); err != nil {
		t.Errorf("in-flight task evicted: %v", err)
	}
}
