package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deskgenie/genied/internal/engine"
	"github.com/deskgenie/genied/internal/model"
)

const llmRequestTimeout = 5 * time.Minute

// LLMConfig configures the llm runner.
type LLMConfig struct {
	// BaseURL is the root of an OpenAI-compatible API, e.g.
	// "http://localhost:11434" or "https://api.openai.com".
	BaseURL string
	Model   string
	APIKey  string
}

// LLMRunner answers chat messages by calling an OpenAI-compatible
// chat-completions endpoint.
type LLMRunner struct {
	cfg    LLMConfig
	client *http.Client
}

// chatCompletionRequest is the OpenAI chat completions request body.
type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the subset of the response body we consume.
type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewLLMRunner creates a runner backed by the configured endpoint.
func NewLLMRunner(cfg LLMConfig) *LLMRunner {
	return &LLMRunner{
		cfg:    cfg,
		client: &http.Client{Timeout: llmRequestTimeout},
	}
}

func (l *LLMRunner) Name() string { return "llm" }

func (l *LLMRunner) Description() string {
	return fmt.Sprintf("chat agent backed by %s (%s)", l.cfg.BaseURL, l.cfg.Model)
}

// Run sends the message to the model and reports the assistant's reply as the
// task result.
func (l *LLMRunner) Run(ctx context.Context, in Input, rep engine.Reporter) {
	prompt := in.Message
	if in.FileName != "" {
		rep.Emit(model.LevelTool, fmt.Sprintf("attaching file: %s", in.FileName))
		prompt = fmt.Sprintf("%s\n\n(The user attached a file named %q.)", prompt, in.FileName)
	}

	rep.Emit(model.LevelStep, fmt.Sprintf("sending request to model %s", l.cfg.Model))

	reply, err := l.complete(ctx, prompt)
	if err != nil {
		rep.Fail(fmt.Sprintf("model request failed: %v", err))
		return
	}

	rep.Emit(model.LevelResult, reply)
	rep.Succeed(reply)
}

// complete performs one chat-completions round trip and returns the
// assistant message content.
func (l *LLMRunner) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model: l.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		l.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("model error: %s", out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
