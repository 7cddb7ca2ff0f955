package api

import (
	"net/http"
)

func (s *Server) handleChunkingStats(w http.ResponseWriter, r *http.Request) {
	proc := s.orchestrator.Processor()
	totals, err := s.docs.Totals(r.Context())
	if err != nil {
		s.log.Error("store totals failed", "error", err)
		jsonError(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chunking":        proc.Stats().Snapshot(),
		"config":          proc.Chunker().Config(),
		"queue_depth":     s.orchestrator.QueueDepth(),
		"cached_outcomes": proc.CachedOutcomes(),
		"store":           totals,
	})
}
