package runner_test

import (
	"context"
	"testing"

	"github.com/deskgenie/genied/internal/model"
	"github.com/deskgenie/genied/internal/runner"
)

// recordingReporter captures everything a runner reports, for assertions.
type recordingReporter struct {
	events  []model.LogEvent
	result  string
	failure string
	done    bool
}

func (r *recordingReporter) Emit(level, message string) {
	r.events = append(r.events, model.NewLogEvent(level, message))
}

func (r *recordingReporter) Succeed(result string) {
	if r.done {
		return
	}
	r.done = true
	r.result = result
}

func (r *recordingReporter) Fail(errMsg string) {
	if r.done {
		return
	}
	r.done = true
	r.failure = errMsg
}

func TestRegistryResolve(t *testing.T) {
	reg := runner.NewRegistry("echo")
	reg.Register(runner.EchoRunner{})

	r, err := reg.Resolve("echo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Name() != "echo" {
		t.Errorf("Name = %q, want echo", r.Name())
	}

	// Empty name falls back to the default.
	r, err = reg.Resolve("")
	if err != nil {
		t.Fatalf("Resolve default: %v", err)
	}
	if r.Name() != "echo" {
		t.Errorf("default Name = %q, want echo", r.Name())
	}

	if _, err := reg.Resolve("nonexistent"); err == nil {
		t.Error("Resolve unknown runner should fail")
	}
}

func TestRegistryListSorted(t *testing.T) {
	reg := runner.NewRegistry("echo")
	reg.Register(runner.NewLLMRunner(runner.LLMConfig{BaseURL: "http://x", Model: "m"}))
	reg.Register(runner.EchoRunner{})

	infos := reg.List()
	if len(infos) != 2 {
		t.Fatalf("List returned %d runners, want 2", len(infos))
	}
	if infos[0].Name != "echo" || infos[1].Name != "llm" {
		t.Errorf("List order = [%s %s], want [echo llm]", infos[0].Name, infos[1].Name)
	}
}

func TestEchoRunner(t *testing.T) {
	rep := &recordingReporter{}
	runner.EchoRunner{}.Run(context.Background(), runner.Input{Message: "hello"}, rep)

	if !rep.done {
		t.Fatal("echo runner did not report an outcome")
	}
	if rep.result != "echo: hello" {
		t.Errorf("result = %q, want %q", rep.result, "echo: hello")
	}
	if len(rep.events) == 0 {
		t.Error("echo runner should emit progress events")
	}
}

func TestCollect(t *testing.T) {
	result, errMsg := runner.Collect(context.Background(), runner.EchoRunner{}, runner.Input{Message: "hi"})
	if errMsg != "" {
		t.Fatalf("Collect error = %q", errMsg)
	}
	if result != "echo: hi" {
		t.Errorf("result = %q, want %q", result, "echo: hi")
	}
}
