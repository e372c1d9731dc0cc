package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/deskgenie/genied/internal/engine"
	"github.com/deskgenie/genied/internal/model"
	"github.com/deskgenie/genied/internal/runner"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 1 << 20 // 1 MB
)

// chatRequest is the JSON body for POST /api/chat and /api/chat/sync.
type chatRequest struct {
	Message   string `json:"message"`
	FileName  string `json:"file_name,omitempty"`
	AgentType string `json:"agent_type,omitempty"`
}

// benchmarkRequest is the JSON body for POST /api/benchmark.
type benchmarkRequest struct {
	FilterIndices []int  `json:"filter_indices,omitempty"`
	AgentType     string `json:"agent_type,omitempty"`
}

// submitResponse is returned by the async submission endpoints.
type submitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// listTasksResponse wraps the paginated archive listing.
type listTasksResponse struct {
	Tasks  []*model.Task `json:"tasks"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	run, err := s.runners.Resolve(req.AgentType)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := runner.Input{Message: req.Message, FileName: req.FileName}
	t := s.engine.Submit(r.Context(), model.KindChat, run.Name(), func(ctx context.Context, rep engine.Reporter) {
		run.Run(ctx, in, rep)
	})

	s.writeJSON(w, http.StatusAccepted, submitResponse{TaskID: t.ID, Status: t.Status})
}

func (s *Server) handleChatSync(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	run, err := s.runners.Resolve(req.AgentType)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, errMsg := runner.Collect(r.Context(), run, runner.Input{
		Message:  req.Message,
		FileName: req.FileName,
	})
	if errMsg != "" {
		s.writeError(w, http.StatusInternalServerError, errMsg)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": model.StatusCompleted,
		"result": result,
	})
}

func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	var req benchmarkRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	run, err := s.runners.Resolve(req.AgentType)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bench := &runner.Benchmark{Agent: run, QuestionsFile: s.questionsFile}
	in := runner.Input{FilterIndices: req.FilterIndices}
	t := s.engine.Submit(r.Context(), model.KindBenchmark, run.Name(), func(ctx context.Context, rep engine.Reporter) {
		bench.Run(ctx, in, rep)
	})

	s.writeJSON(w, http.StatusAccepted, submitResponse{TaskID: t.ID, Status: t.Status})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, err := s.engine.Registry().Get(id)
	if errors.Is(err, engine.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}

	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	tasks, total, err := s.store.ListTasks(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list tasks", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	if tasks == nil {
		tasks = []*model.Task{}
	}

	s.writeJSON(w, http.StatusOK, listTasksResponse{
		Tasks:  tasks,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetTaskStats(r.Context())
	if err != nil {
		s.logger.Error("get stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return req, false
	}
	return req, true
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	q := r.URL.Query().Get(key)
	if q == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(q)
	if err != nil {
		return defaultVal
	}
	return v
}
