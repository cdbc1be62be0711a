// Package model contains domain models passed between layers.
package model

import "time"

// Mode selects how an event is judged.
type Mode string

// Judging modes.
const (
	ModePairwiseParticipant Mode = "pairwise-participant"
	ModePairwiseJudge       Mode = "pairwise-judge"
	ModeCriteria            Mode = "criteria-based"
)

// Pairwise reports whether the mode uses pairwise comparison voting.
func (m Mode) Pairwise() bool {
	return m == ModePairwiseParticipant || m == ModePairwiseJudge
}

// Valid reports whether the mode is one of the known judging modes.
func (m Mode) Valid() bool {
	switch m {
	case ModePairwiseParticipant, ModePairwiseJudge, ModeCriteria:
		return true
	}
	return false
}

// EventStatus is the lifecycle state of an event. Transitions are
// one-directional: setup -> active -> completed.
type EventStatus string

// Event lifecycle states.
const (
	EventSetup     EventStatus = "setup"
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
)

// Settings holds mode-specific knobs configured per event.
type Settings struct {
	// MinComparisons is the comparison count target per team. Teams at or
	// above the target are deprioritized by the matchmaker.
	MinComparisons int
	// RoomCount is the number of physical judging rooms.
	RoomCount int
}

// Event owns all assignments, votes and results created under it.
type Event struct {
	ID       string
	Name     string
	Mode     Mode
	Status   EventStatus
	StartsAt time.Time
	EndsAt   time.Time
	Settings Settings
}

// AcceptsClass reports whether judges of the given class participate in
// this event's mode. Participant judging is reserved for the
// pairwise-participant mode; every other mode uses external judges.
func (e Event) AcceptsClass(c JudgeClass) bool {
	if e.Mode == ModePairwiseParticipant {
		return c == ClassParticipant
	}
	return c == ClassExternal
}
