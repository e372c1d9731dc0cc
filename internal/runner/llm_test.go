package runner_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deskgenie/genied/internal/runner"
)

// newFakeLLM starts an OpenAI-compatible stub that replies with the given
// content, or an error payload when errMsg is non-empty.
func newFakeLLM(t *testing.T, content, errMsg string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if errMsg != "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"message": errMsg},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestLLMRunnerSuccess(t *testing.T) {
	ts := newFakeLLM(t, "the answer is 42", "")

	r := runner.NewLLMRunner(runner.LLMConfig{BaseURL: ts.URL, Model: "test-model"})
	rep := &recordingReporter{}
	r.Run(context.Background(), runner.Input{Message: "what is the answer?"}, rep)

	if !rep.done {
		t.Fatal("llm runner did not report an outcome")
	}
	if rep.failure != "" {
		t.Fatalf("unexpected failure: %s", rep.failure)
	}
	if rep.result != "the answer is 42" {
		t.Errorf("result = %q, want the assistant reply", rep.result)
	}
}

func TestLLMRunnerAPIError(t *testing.T) {
	ts := newFakeLLM(t, "", "model overloaded")

	r := runner.NewLLMRunner(runner.LLMConfig{BaseURL: ts.URL, Model: "test-model"})
	rep := &recordingReporter{}
	r.Run(context.Background(), runner.Input{Message: "hello"}, rep)

	if !rep.done {
		t.Fatal("llm runner did not report an outcome")
	}
	if rep.failure == "" || !strings.Contains(rep.failure, "model overloaded") {
		t.Errorf("failure = %q, want the API error surfaced", rep.failure)
	}
}

func TestLLMRunnerUnreachable(t *testing.T) {
	r := runner.NewLLMRunner(runner.LLMConfig{BaseURL: "http://127.0.0.1:1", Model: "test-model"})
	rep := &recordingReporter{}
	r.Run(context.Background(), runner.Input{Message: "hello"}, rep)

	if !rep.done || rep.failure == "" {
		t.Error("llm runner must fail when the endpoint is unreachable")
	}
}

func TestLLMRunnerSendsAuthAndPrompt(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer ts.Close()

	r := runner.NewLLMRunner(runner.LLMConfig{BaseURL: ts.URL, Model: "m1", APIKey: "k1"})
	rep := &recordingReporter{}
	r.Run(context.Background(), runner.Input{Message: "ping", FileName: "doc.pdf"}, rep)

	if gotAuth != "Bearer k1" {
		t.Errorf("Authorization = %q, want Bearer k1", gotAuth)
	}
	if gotBody.Model != "m1" {
		t.Errorf("model = %q, want m1", gotBody.Model)
	}
	if len(gotBody.Messages) != 1 || !strings.Contains(gotBody.Messages[0].Content, "doc.pdf") {
		t.Errorf("prompt should mention the attached file, got %+v", gotBody.Messages)
	}
}
