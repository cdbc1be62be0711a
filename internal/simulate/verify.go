package simulate

import (
	"context"
	"fmt"

	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/model"
)

// verify checks the engine's invariants after a run and returns one message
// per violation.
func verify(ctx context.Context, svc *service.Service, cfg Config) []string {
	var failures []string
	store := svc.Store()

	votes, err := store.VotesByEvent(ctx, simEventID)
	if err != nil {
		return append(failures, fmt.Sprintf("reading votes: %v", err))
	}
	teams, err := store.TeamsByEvent(ctx, simEventID)
	if err != nil {
		return append(failures, fmt.Sprintf("reading teams: %v", err))
	}

	// Every judge holds at most one pending assignment, and no judge was
	// assigned the same team twice outside of skips.
	for i := 0; i < cfg.JudgeCount; i++ {
		judgeID := judgeName(i)
		assignments, err := store.AssignmentsByJudge(ctx, simEventID, judgeID)
		if err != nil {
			failures = append(failures, fmt.Sprintf("reading assignments for %s: %v", judgeID, err))
			continue
		}
		pending := 0
		completed := make(map[string]int)
		for _, a := range assignments {
			switch a.Status {
			case model.AssignmentPending:
				pending++
			case model.AssignmentCompleted:
				completed[a.TeamID]++
			}
		}
		if pending > 1 {
			failures = append(failures, fmt.Sprintf("judge %s holds %d pending assignments", judgeID, pending))
		}
		for teamID, n := range completed {
			if n > 1 {
				failures = append(failures, fmt.Sprintf("judge %s completed team %s %d times", judgeID, teamID, n))
			}
		}
	}

	if cfg.Mode != model.ModeCriteria {
		// Each vote raises both participants' confidence by one, so total
		// confidence must equal twice the vote count.
		totalConfidence := 0
		for _, t := range teams {
			if t.Confidence < 0 {
				failures = append(failures, fmt.Sprintf("team %s has negative confidence %d", t.ID, t.Confidence))
			}
			totalConfidence += t.Confidence
		}
		if want := 2 * len(votes); totalConfidence != want {
			failures = append(failures, fmt.Sprintf("total confidence %d, want %d for %d votes", totalConfidence, want, len(votes)))
		}

		// Every vote references a completed assignment covering one of its
		// two teams.
		for _, v := range votes {
			a, err := store.Assignment(ctx, v.AssignmentID)
			if err != nil {
				failures = append(failures, fmt.Sprintf("vote %s references missing assignment %s", v.ID, v.AssignmentID))
				continue
			}
			if a.Status != model.AssignmentCompleted {
				failures = append(failures, fmt.Sprintf("vote %s references %s assignment %s", v.ID, a.Status, a.ID))
			}
			if a.TeamID != v.WinnerID && a.TeamID != v.LoserID {
				failures = append(failures, fmt.Sprintf("vote %s does not cover assigned team %s", v.ID, a.TeamID))
			}
		}
	}

	failures = append(failures, verifyStandings(ctx, svc, cfg.TeamCount)...)
	return failures
}

// verifyStandings checks the ordering contract: rating descending, then
// confidence descending, then team id ascending, with ranks starting at 1.
func verifyStandings(ctx context.Context, svc *service.Service, limit int) []string {
	var failures []string

	standings, err := svc.TeamStandings(ctx, simEventID, limit)
	if err != nil {
		return append(failures, fmt.Sprintf("reading standings: %v", err))
	}
	for i, entry := range standings {
		if entry.Rank != i+1 {
			failures = append(failures, fmt.Sprintf("entry %d has rank %d", i, entry.Rank))
		}
		if i == 0 {
			continue
		}
		prev := standings[i-1]
		switch {
		case prev.Rating > entry.Rating:
		case prev.Rating == entry.Rating && prev.Confidence > entry.Confidence:
		case prev.Rating == entry.Rating && prev.Confidence == entry.Confidence && prev.TeamID < entry.TeamID:
		default:
			failures = append(failures, fmt.Sprintf("standings out of order at %d: %s before %s", i, prev.TeamID, entry.TeamID))
		}
	}
	return failures
}
