package model

import "time"

// Vote is one decided pairwise comparison. Votes are append-only: they are
// the audit log from which ratings are derived and are never edited.
type Vote struct {
	ID           string
	EventID      string
	JudgeID      string
	WinnerID     string
	LoserID      string
	Draw         bool
	AssignmentID string
	CreatedAt    time.Time
}
