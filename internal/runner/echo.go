package runner

import (
	"context"
	"fmt"

	"github.com/deskgenie/genied/internal/engine"
	"github.com/deskgenie/genied/internal/model"
)

// EchoRunner is a deterministic offline runner. It answers by echoing the
// message back, which keeps the service usable without a model endpoint and
// gives tests a predictable agent.
type EchoRunner struct{}

func (EchoRunner) Name() string { return "echo" }

func (EchoRunner) Description() string {
	return "offline agent that echoes the message back"
}

func (EchoRunner) Run(ctx context.Context, in Input, rep engine.Reporter) {
	rep.Emit(model.LevelStep, "reading message")
	if in.FileName != "" {
		rep.Emit(model.LevelTool, fmt.Sprintf("ignoring attached file: %s", in.FileName))
	}
	if ctx.Err() != nil {
		rep.Fail(fmt.Sprintf("cancelled: %v", ctx.Err()))
		return
	}
	rep.Emit(model.LevelSuccess, "done")
	rep.Succeed("echo: " + in.Message)
}
