package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/model"
)

// assignmentResponse mirrors the wire shape of an assignment.
type assignmentResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	JudgeID   string    `json:"judge_id"`
	TeamID    string    `json:"team_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// nextAssignmentResponse wraps an assignment or the exhausted outcome.
// Exhausted is informational, not an error: judging is simply done for this
// judge until event state changes.
type nextAssignmentResponse struct {
	Exhausted  bool                `json:"exhausted"`
	Assignment *assignmentResponse `json:"assignment,omitempty"`
}

func toAssignmentResponse(a model.Assignment) *assignmentResponse {
	return &assignmentResponse{
		ID:        a.ID,
		EventID:   a.EventID,
		JudgeID:   a.JudgeID,
		TeamID:    a.TeamID,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

// handleNextAssignment handles POST /api/v1/events/{eventID}/judges/{judgeID}/assignment.
func (s *Server) handleNextAssignment(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	judgeID := chi.URLParam(r, "judgeID")

	a, err := s.engine.NextAssignment(r.Context(), eventID, judgeID)
	if err != nil {
		if errors.Is(err, service.ErrExhausted) {
			writeJSON(w, http.StatusOK, nextAssignmentResponse{Exhausted: true})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nextAssignmentResponse{Assignment: toAssignmentResponse(a)})
}

// skipRequest identifies the judge skipping an assignment.
type skipRequest struct {
	JudgeID string `json:"judge_id"`
}

func (s skipRequest) validate() error {
	if strings.TrimSpace(s.JudgeID) == "" {
		return errors.New("missing judge_id")
	}
	return nil
}

// handleSkipAssignment handles POST /api/v1/assignments/{assignmentID}/skip.
func (s *Server) handleSkipAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "assignmentID")

	var req skipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadBody(err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, errBadBody(err))
		return
	}

	if err := s.engine.SkipAssignment(r.Context(), req.JudgeID, assignmentID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
}
