package service

import "errors"

// Sentinel kinds for engine errors. Callers branch with errors.Is; the HTTP
// layer maps each kind to a status code.
var (
	// ErrNotFound means an event, team, judge, assignment or criterion
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means the operation is not valid for the current
	// lifecycle state (event not active, assignment not pending, wrong
	// judging mode).
	ErrInvalidState = errors.New("invalid state")
	// ErrForbidden means the assignment does not belong to the
	// requesting judge.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation means the request itself is malformed: missing team
	// references, score outside criterion bounds, no criteria configured.
	ErrValidation = errors.New("validation failed")
	// ErrExhausted means no eligible team remains for the judge right
	// now. This is an expected terminal outcome, not a defect; it recurs
	// until event state changes.
	ErrExhausted = errors.New("no eligible teams")
)

// errKind labels an error for metrics.
func errKind(err error) string {
	switch {
	case errors.Is(err, ErrExhausted):
		return "exhausted"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
