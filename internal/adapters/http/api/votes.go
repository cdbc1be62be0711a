package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/verdict/internal/app"
)

// voteRequest mirrors the wire shape of POST /votes.
type voteRequest struct {
	EventID      string `json:"event_id"`
	JudgeID      string `json:"judge_id"`
	WinnerID     string `json:"winner_id"`
	LoserID      string `json:"loser_id"`
	Draw         bool   `json:"draw"`
	AssignmentID string `json:"assignment_id"`
}

func (v voteRequest) validate() error {
	switch {
	case strings.TrimSpace(v.EventID) == "":
		return errors.New("missing event_id")
	case strings.TrimSpace(v.JudgeID) == "":
		return errors.New("missing judge_id")
	case strings.TrimSpace(v.WinnerID) == "":
		return errors.New("missing winner_id")
	case strings.TrimSpace(v.LoserID) == "":
		return errors.New("missing loser_id")
	case strings.TrimSpace(v.AssignmentID) == "":
		return errors.New("missing assignment_id")
	}
	return nil
}

// voteResponse reports both teams' rating state after the vote.
type voteResponse struct {
	WinnerRating     float64 `json:"winner_rating"`
	LoserRating      float64 `json:"loser_rating"`
	WinnerConfidence int     `json:"winner_confidence"`
	LoserConfidence  int     `json:"loser_confidence"`
}

// handleRecordVote handles POST /api/v1/votes.
func (s *Server) handleRecordVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errBadBody(err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, errBadBody(err))
		return
	}

	receipt, err := s.engine.RecordVote(r.Context(), service.VoteRequest{
		EventID:      req.EventID,
		JudgeID:      req.JudgeID,
		WinnerID:     req.WinnerID,
		LoserID:      req.LoserID,
		Draw:         req.Draw,
		AssignmentID: req.AssignmentID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{
		WinnerRating:     receipt.WinnerRating,
		LoserRating:      receipt.LoserRating,
		WinnerConfidence: receipt.WinnerConfidence,
		LoserConfidence:  receipt.LoserConfidence,
	})
}

// errBadBody wraps request decoding and field errors as validation failures.
func errBadBody(err error) error {
	return fmt.Errorf("%w: %w", service.ErrValidation, err)
}
