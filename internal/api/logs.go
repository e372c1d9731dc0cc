package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/deskgenie/genied/internal/engine"
	"github.com/deskgenie/genied/internal/model"
)

// keepaliveInterval is how often an idle SSE stream sends a comment line so
// intermediaries do not drop the connection.
const keepaliveInterval = 30 * time.Second

// logsResponse is the JSON response for the polling logs endpoint.
type logsResponse struct {
	Logs []model.LogEvent `json:"logs"`
}

// handleGetLogs returns buffered log events for a task, optionally filtered
// to events after the "since" unix timestamp (fractional seconds allowed).
// Unknown tasks yield an empty list rather than an error: the client polls
// before the task may have been registered and treats gaps as benign.
func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	events, _, err := s.engine.Registry().Events(id)
	if errors.Is(err, engine.ErrNotFound) {
		s.writeJSON(w, http.StatusOK, logsResponse{Logs: []model.LogEvent{}})
		return
	}

	if since := parseSinceQuery(r); !since.IsZero() {
		filtered := events[:0]
		for _, ev := range events {
			if ev.Timestamp.After(since) {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	if events == nil {
		events = []model.LogEvent{}
	}

	s.writeJSON(w, http.StatusOK, logsResponse{Logs: events})
}

// handleStreamLogs streams a task's log events as SSE. The subscription
// replays buffered history first, so a late stream sees the full ordered
// sequence. For an unknown task a single error payload is sent and the
// stream ends; the engine stays untouched.
func (s *Server) handleStreamLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	flusher, canFlush := w.(http.Flusher)
	flush := func() {
		if canFlush {
			flusher.Flush()
		}
	}

	ch, unsub, err := s.engine.Registry().Subscribe(id)
	if errors.Is(err, engine.ErrNotFound) {
		w.WriteHeader(http.StatusOK)
		_ = writeSSEData(w, []byte(`{"error":"task not found"}`))
		flush()
		return
	}
	defer unsub()

	w.WriteHeader(http.StatusOK)
	flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				// Task finished; send explicit done event before closing.
				_ = writeSSEEvent(w, "done", "stream complete")
				flush()
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("marshal log event", "task_id", id, "error", err)
				continue
			}
			if err := writeSSEData(w, payload); err != nil {
				return // Write failed (e.g. client gone).
			}
			flush()
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flush()
		case <-r.Context().Done():
			return // Client disconnected; unsub releases the subscription.
		}
	}
}

// logHistoryEvent is a single archived event in the history response.
type logHistoryEvent struct {
	Seq       int    `json:"seq"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// logHistoryResponse is the JSON response for GET /api/task/{id}/logs/history.
type logHistoryResponse struct {
	TaskID string            `json:"task_id"`
	Events []logHistoryEvent `json:"events"`
}

// handleGetLogHistory returns archived log events from the store. Unlike the
// polling endpoint this survives registry eviction.
func (s *Server) handleGetLogHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stored, err := s.store.GetLogEvents(r.Context(), id)
	if err != nil {
		s.logger.Error("get log history", "task_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get log history")
		return
	}

	events := make([]logHistoryEvent, len(stored))
	for i, ev := range stored {
		events[i] = logHistoryEvent{
			Seq:       ev.Seq,
			Level:     ev.Level,
			Message:   ev.Message,
			Timestamp: ev.Timestamp.Format(time.RFC3339Nano),
		}
	}

	s.writeJSON(w, http.StatusOK, logHistoryResponse{TaskID: id, Events: events})
}

// parseSinceQuery parses the "since" query parameter as a unix timestamp
// with optional fractional seconds. Returns the zero time when absent or
// malformed.
func parseSinceQuery(r *http.Request) time.Time {
	q := r.URL.Query().Get("since")
	if q == "" {
		return time.Time{}
	}
	f, err := strconv.ParseFloat(q, 64)
	if err != nil || f <= 0 {
		return time.Time{}
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// writeSSEData writes one payload as an SSE data event. Payloads are JSON,
// which never contains raw newlines, so a single data: line suffices.
func writeSSEData(w http.ResponseWriter, payload []byte) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
