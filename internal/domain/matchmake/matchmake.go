// Package matchmake selects the next team a judge should evaluate.
//
// Selection is split into two pure steps so tests can drive them
// deterministically: Eligible filters the roster down to candidates, and
// Pick draws one uniformly at random from an injected source.
package matchmake

import "github.com/okian/verdict/internal/domain/model"

// Source supplies randomness for Pick. math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Eligible returns the teams a judge may be assigned next, in roster order.
//
// Rules, applied in order:
//  1. Only approved teams are ever candidates.
//  2. Teams the judge has already judged (per the judged set) are excluded.
//     Skipped encounters are not in the judged set and do not block.
//  3. Teams below the event's comparison target are preferred. When every
//     remaining team has met the target, selection falls back to the
//     least-judged teams to keep coverage balanced.
func Eligible(teams []model.Team, judged map[string]bool, minComparisons int) []model.Team {
	var underTarget, rest []model.Team
	for _, t := range teams {
		if t.Status != model.TeamApproved || judged[t.ID] {
			continue
		}
		if minComparisons <= 0 || t.Confidence < minComparisons {
			underTarget = append(underTarget, t)
		} else {
			rest = append(rest, t)
		}
	}
	if len(underTarget) > 0 {
		return underTarget
	}
	return leastJudged(rest)
}

// leastJudged keeps only the teams tied for the lowest confidence count.
func leastJudged(teams []model.Team) []model.Team {
	if len(teams) == 0 {
		return nil
	}
	minSeen := teams[0].Confidence
	for _, t := range teams[1:] {
		if t.Confidence < minSeen {
			minSeen = t.Confidence
		}
	}
	out := teams[:0:0]
	for _, t := range teams {
		if t.Confidence == minSeen {
			out = append(out, t)
		}
	}
	return out
}

// Pick draws one candidate uniformly at random. The boolean is false when
// the candidate set is empty, the expected terminal condition for a judge
// who has seen every eligible team.
func Pick(candidates []model.Team, src Source) (model.Team, bool) {
	if len(candidates) == 0 {
		return model.Team{}, false
	}
	return candidates[src.Intn(len(candidates))], true
}
