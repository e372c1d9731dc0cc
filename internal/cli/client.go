package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/deskgenie/genied/internal/model"
)

// client is a thin HTTP client over the genied API, used by the CLI commands.
type client struct {
	base string
	hc   *http.Client
}

func newClient(base string) *client {
	return &client{
		base: strings.TrimRight(base, "/"),
		// No client timeout: log streams stay open for the task lifetime.
		hc: &http.Client{},
	}
}

type submitResult struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (c *client) submit(ctx context.Context, path string, body any) (submitResult, error) {
	var out submitResult
	payload, err := json.Marshal(body)
	if err != nil {
		return out, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return out, fmt.Errorf("server: %s", out.Error)
	}
	if resp.StatusCode != http.StatusAccepted {
		return out, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return out, nil
}

func (c *client) getTask(ctx context.Context, id string) (model.Task, error) {
	var t model.Task
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/task/"+id, nil)
	if err != nil {
		return t, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return t, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return t, fmt.Errorf("task %s not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		return t, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return t, fmt.Errorf("decode response: %w", err)
	}
	return t, nil
}

// streamEvent is one SSE payload from the log stream.
type streamEvent struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// streamLogs follows a task's SSE log stream, invoking fn per event until the
// stream ends. Malformed payloads are skipped rather than ending the stream.
func (c *client) streamLogs(ctx context.Context, id string, fn func(streamEvent)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/task/"+id+"/logs/stream", nil)
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue // comment, event name, or blank separator
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		if ev.Error != "" {
			return fmt.Errorf("server: %s", ev.Error)
		}
		fn(ev)
	}
	return scanner.Err()
}

func (c *client) logHistory(ctx context.Context, id string) ([]streamEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/task/"+id+"/logs/history", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Events []streamEvent `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Events, nil
}
