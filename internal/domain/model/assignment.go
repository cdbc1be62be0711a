package model

import "time"

// AssignmentStatus is the lifecycle state of an assignment.
// pending is the only non-terminal state.
type AssignmentStatus string

// Assignment states.
const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentSkipped   AssignmentStatus = "skipped"
)

// Terminal reports whether the status admits no further transitions.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentCompleted || s == AssignmentSkipped
}

// Assignment is one judge-visits-one-team unit of work.
type Assignment struct {
	ID      string
	EventID string
	JudgeID string
	TeamID  string
	Status  AssignmentStatus

	CreatedAt  time.Time
	ResolvedAt time.Time // zero until the assignment reaches a terminal state
}
