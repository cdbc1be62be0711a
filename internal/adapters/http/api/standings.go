package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/verdict/internal/domain/types"
)

// standingsResponse wraps the ranked entries for an event.
type standingsResponse struct {
	EventID   string                `json:"event_id"`
	Standings []types.StandingEntry `json:"standings"`
}

// handleStandings handles GET /api/v1/events/{eventID}/standings?limit=N.
func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	limit := s.maxStandings
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, errBadBody(fmt.Errorf("invalid limit %q", raw)))
			return
		}
		if n < limit {
			limit = n
		}
	}

	entries, err := s.engine.TeamStandings(r.Context(), eventID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []types.StandingEntry{}
	}
	writeJSON(w, http.StatusOK, standingsResponse{EventID: eventID, Standings: entries})
}
