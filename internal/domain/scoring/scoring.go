// Package scoring computes weighted overall scores for criteria-based judging.
package scoring

import (
	"errors"
	"fmt"

	"github.com/okian/verdict/internal/domain/model"
)

// Sentinel kinds for scoring errors. These allow errors.Is from callers.
var (
	// ErrNoCriteria means the event has no criteria configured; there is no
	// default score to fall back to.
	ErrNoCriteria = errors.New("no criteria defined")
	// ErrUnknownCriterion means a raw score references a criterion that is
	// not configured on the event.
	ErrUnknownCriterion = errors.New("unknown criterion")
	// ErrOutOfRange means a raw score falls outside its criterion's bounds.
	// Out-of-range values are rejected, never clamped: clamping would hide
	// judge input errors.
	ErrOutOfRange = errors.New("score out of range")
	// ErrNoScores means the submission carried no raw scores at all.
	ErrNoScores = errors.New("no scores provided")
	// ErrZeroWeight means the scored criteria carry no positive weight
	// between them, leaving the weighted mean undefined.
	ErrZeroWeight = errors.New("criteria carry no weight")
)

// Score computes the weighted overall score for the provided raw scores.
//
// Every key in raw must reference a criterion in criteria, and every value
// must lie within that criterion's [MinScore, MaxScore]. The result is the
// weight-normalized mean over the criteria that received a score:
//
//	overall = sum(raw[c] * weight[c]) / sum(weight[c])
//
// Deterministic and stateless: identical input produces identical output.
func Score(criteria []model.Criterion, raw map[string]float64) (float64, error) {
	if len(criteria) == 0 {
		return 0, ErrNoCriteria
	}
	if len(raw) == 0 {
		return 0, ErrNoScores
	}

	byID := make(map[string]model.Criterion, len(criteria))
	for _, c := range criteria {
		byID[c.ID] = c
	}

	var weighted, totalWeight float64
	for id, score := range raw {
		c, ok := byID[id]
		if !ok {
			return 0, fmt.Errorf("criterion %q: %w", id, ErrUnknownCriterion)
		}
		if score < c.MinScore || score > c.MaxScore {
			return 0, fmt.Errorf("criterion %q: score %g outside [%g, %g]: %w",
				id, score, c.MinScore, c.MaxScore, ErrOutOfRange)
		}
		weighted += score * c.Weight
		totalWeight += c.Weight
	}

	// Criteria normally carry positive weight, but the store does not
	// enforce that, so guard the division here.
	if totalWeight <= 0 {
		return 0, fmt.Errorf("total weight %g: %w", totalWeight, ErrZeroWeight)
	}

	return weighted / totalWeight, nil
}
