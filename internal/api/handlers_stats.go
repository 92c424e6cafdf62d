package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleDocumentStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"scope": "document_outcomes",
		"stats": s.engine.Stats(),
	})
}
