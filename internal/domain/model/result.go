package model

import "time"

// Result is one judge's criteria-based evaluation of a team. A resubmission
// for the same judge+team pair overwrites the prior result (last-write-wins)
// rather than appending a duplicate.
type Result struct {
	ID      string
	EventID string
	JudgeID string
	TeamID  string

	// Scores maps criterion id to the raw score the judge gave.
	Scores map[string]float64
	// OverallScore is the weighted aggregate derived from Scores.
	OverallScore float64

	Comment     string
	SubmittedAt time.Time
}
