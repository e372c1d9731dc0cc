// Package runner adapts agent and benchmark work to the engine's capability
// interface. Runners are registered by name; the registry resolves which one
// handles a request and exposes the set for the config/agents endpoints.
package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/deskgenie/genied/internal/engine"
)

// Input carries the request-scoped parameters for one unit of work.
type Input struct {
	// Message is the user's message for chat work.
	Message string
	// FileName optionally names a file the agent should operate on.
	FileName string
	// FilterIndices optionally restricts a benchmark run to specific
	// question indices. Nil means all questions.
	FilterIndices []int
}

// Runner executes one unit of agent work, reporting progress and the final
// outcome through the engine's Reporter capability.
type Runner interface {
	Name() string
	Description() string
	Run(ctx context.Context, in Input, rep engine.Reporter)
}

// Collect runs one unit of work synchronously and returns its outcome. Log
// emissions are discarded; a runner that reports no outcome yields an error.
// This backs the synchronous chat endpoint.
func Collect(ctx context.Context, r Runner, in Input) (result string, errMsg string) {
	c := &collectReporter{}
	r.Run(ctx, in, c)
	if !c.done {
		return "", "agent did not report an outcome"
	}
	return c.result, c.failure
}

type collectReporter struct {
	done    bool
	result  string
	failure string
}

func (c *collectReporter) Emit(level, message string) {}

func (c *collectReporter) Succeed(result string) {
	if c.done {
		return
	}
	c.done = true
	c.result = result
}

func (c *collectReporter) Fail(errMsg string) {
	if c.done {
		return
	}
	c.done = true
	c.failure = errMsg
	if c.failure == "" {
		c.failure = "agent failed"
	}
}

// Info pairs a runner name with its description for API responses.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry holds registered runners and resolves which one to use for a
// given agent type, falling back to a configurable default.
type Registry struct {
	mu          sync.RWMutex
	runners     map[string]Runner
	defaultName string
}

// NewRegistry creates an empty runner registry with the given default name.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		runners:     make(map[string]Runner),
		defaultName: defaultName,
	}
}

// Register adds a runner under its own name.
func (r *Registry) Register(run Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[run.Name()] = run
}

// Default returns the registry's default runner name.
func (r *Registry) Default() string {
	return r.defaultName
}

// Resolve returns the runner for the given agent type. An empty name resolves
// to the default. Returns an error if the runner is not registered.
func (r *Registry) Resolve(name string) (Runner, error) {
	if name == "" {
		name = r.defaultName
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runners[name]
	if !ok {
		return nil, fmt.Errorf("agent %q is not registered", name)
	}
	return run, nil
}

// List returns information about all registered runners, sorted by name for
// a stable API response.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.runners))
	for name, run := range r.runners {
		infos = append(infos, Info{
			Name:        name,
			Description: run.Description(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}
