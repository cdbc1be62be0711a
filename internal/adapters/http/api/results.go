package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/verdict/internal/app"
)

// resultRequest mirrors the wire shape of POST /results.
type resultRequest struct {
	JudgeID      string             `json:"judge_id"`
	AssignmentID string             `json:"assignment_id"`
	Scores       map[string]float64 `json:"scores"`
	Comment      string             `json:"comment"`
}

func (v resultRequest) validate() error {
	switch {
	case strings.TrimSpace(v.JudgeID) == "":
		return errors.New("missing judge_id")
	case strings.TrimSpace(v.AssignmentID) == "":
		return errors.New("missing assignment_id")
	case len(v.Scores) == 0:
		return errors.New("missing scores")
	}
	return nil
}

// resultResponse reports the derived overall score.
type resultResponse struct {
	OverallScore float64 `json:"overall_score"`
}

// handleSubmitResult handles POST /api/v1/results.
func (s *Server) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadBody(err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, errBadBody(err))
		return
	}

	receipt, err := s.engine.SubmitCriteriaResult(r.Context(), service.ResultRequest{
		JudgeID:      req.JudgeID,
		AssignmentID: req.AssignmentID,
		Scores:       req.Scores,
		Comment:      req.Comment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{OverallScore: receipt.OverallScore})
}
