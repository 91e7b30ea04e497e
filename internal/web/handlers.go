package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cc_session_mgr/internal/session"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type searchResponse struct {
	Results []session.SearchResult `json:"results"`
	Total   int                    `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Error: message})
}

// queryLimit reads the limit parameter; missing, unparsable or zero values
// fall back to def.
func queryLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n == 0 {
		return def
	}
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleProjects(w http.ResponseWriter, _ *http.Request) {
	writeData(w, s.store.ListProjects())
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	writeData(w, s.store.ListSessions(project, queryLimit(r, s.cfg.SessionsLimit)))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	detail, ok := s.store.GetSession(r.PathValue("project"), r.PathValue("sessionId"))
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeData(w, detail)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeData(w, s.store.Stats())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.store.HistoryCommands(queryLimit(r, s.cfg.HistoryLimit)))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results := s.store.SearchAll(query, queryLimit(r, s.cfg.SearchLimit))
	writeData(w, searchResponse{Results: results, Total: len(results)})
}
