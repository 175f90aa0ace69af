package httpapi

import "net/http"

func (s *Server) handlePerfReplies(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.ReplyStats())
}
