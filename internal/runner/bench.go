package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/deskgenie/genied/internal/engine"
	"github.com/deskgenie/genied/internal/model"
)

// Question is one benchmark question. Answer is the expected ground truth;
// questions without one are run but not scored.
type Question struct {
	TaskID   string `json:"task_id"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// LoadQuestions reads a benchmark question set from a JSON file.
func LoadQuestions(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse questions file: %w", err)
	}
	return questions, nil
}

// Benchmark runs a question set through an agent runner and scores the
// answers against ground truth.
type Benchmark struct {
	// Agent answers individual questions.
	Agent Runner
	// QuestionsFile is the path to the question set.
	QuestionsFile string
}

// Run executes the benchmark: load questions, apply the index filter, run
// each question through the agent, and report a summary result.
func (b *Benchmark) Run(ctx context.Context, in Input, rep engine.Reporter) {
	questions, err := LoadQuestions(b.QuestionsFile)
	if err != nil {
		rep.Fail(fmt.Sprintf("benchmark setup failed: %v", err))
		return
	}

	selected := filterQuestions(questions, in.FilterIndices)
	if len(selected) == 0 {
		rep.Fail("no questions selected")
		return
	}
	rep.Emit(model.LevelInfo, fmt.Sprintf("running %d of %d questions with agent %q",
		len(selected), len(questions), b.Agent.Name()))

	correct, scored := 0, 0
	for i, q := range selected {
		rep.Emit(model.LevelQuestion, fmt.Sprintf("question %d/%d: %s", i+1, len(selected), q.Question))

		answer, failure := b.ask(ctx, q.Question, rep)
		if failure != "" {
			rep.Emit(model.LevelError, fmt.Sprintf("question %d failed: %s", i+1, failure))
			continue
		}
		rep.Emit(model.LevelResult, answer)

		if q.Answer == "" {
			continue
		}
		scored++
		if answersMatch(answer, q.Answer) {
			correct++
			rep.Emit(model.LevelSuccess, fmt.Sprintf("question %d correct", i+1))
		} else {
			rep.Emit(model.LevelWarning, fmt.Sprintf("question %d incorrect: expected %q", i+1, q.Answer))
		}
	}

	summary := fmt.Sprintf("benchmark completed: %d/%d correct", correct, scored)
	if scored < len(selected) {
		summary += fmt.Sprintf(" (%d unscored)", len(selected)-scored)
	}
	rep.Succeed(summary)
}

// ask runs the agent on one question, forwarding its log emissions to the
// outer reporter and capturing its terminal outcome instead of letting it
// finish the benchmark task.
func (b *Benchmark) ask(ctx context.Context, question string, rep engine.Reporter) (answer, failure string) {
	cr := &captureReporter{forward: rep}
	b.Agent.Run(ctx, Input{Message: question}, cr)
	if !cr.done {
		return "", "agent did not report an outcome"
	}
	return cr.result, cr.failure
}

// captureReporter forwards Emit to an outer reporter but absorbs the
// agent's terminal callbacks so the benchmark decides the task outcome.
type captureReporter struct {
	forward engine.Reporter
	done    bool
	result  string
	failure string
}

func (c *captureReporter) Emit(level, message string) {
	// Per-question result events are re-emitted by the benchmark itself.
	if level == model.LevelResult {
		return
	}
	c.forward.Emit(level, message)
}

func (c *captureReporter) Succeed(result string) {
	if c.done {
		return
	}
	c.done = true
	c.result = result
}

func (c *captureReporter) Fail(errMsg string) {
	if c.done {
		return
	}
	c.done = true
	c.failure = errMsg
	if c.failure == "" {
		c.failure = "agent failed"
	}
}

// filterQuestions selects questions by index, skipping out-of-range entries.
// A nil or empty filter selects everything.
func filterQuestions(questions []Question, indices []int) []Question {
	if len(indices) == 0 {
		return questions
	}
	selected := make([]Question, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(questions) {
			selected = append(selected, questions[idx])
		}
	}
	return selected
}

// answersMatch compares an agent answer with ground truth using normalized
// exact match: case-insensitive, trimmed, collapsed whitespace, trailing
// period stripped.
func answersMatch(got, want string) bool {
	return normalizeAnswer(got) == normalizeAnswer(want)
}

func normalizeAnswer(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimSuffix(s, ".")
	return strings.Join(strings.Fields(s), " ")
}
