package api

import "net/http"

// configResponse is the JSON response for GET /api/config.
type configResponse struct {
	ActiveAgent     string   `json:"active_agent"`
	AvailableAgents []string `json:"available_agents"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	infos := s.runners.List()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}

	s.writeJSON(w, http.StatusOK, configResponse{
		ActiveAgent:     s.runners.Default(),
		AvailableAgents: names,
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.runners.List())
}
