// Package repository defines the judging store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/types"
)

// Counts summarizes stored entities for stats reporting.
type Counts struct {
	Events             int
	Teams              int
	Judges             int
	PendingAssignments int
	Votes              int
	Results            int
}

// Store persists the judging state. The engine consumes this interface and
// never implements persistence itself; MemStore is the in-process backend.
type Store interface {
	// Events.
	CreateEvent(ctx context.Context, e model.Event) error
	Event(ctx context.Context, id string) (model.Event, error)
	SetEventStatus(ctx context.Context, id string, status model.EventStatus) error
	// PurgeEvent removes an event and everything owned by it as an
	// explicit multi-step cascade: results, votes, assignments, criteria,
	// judges, teams, then the event itself.
	PurgeEvent(ctx context.Context, id string) error

	// Teams.
	CreateTeam(ctx context.Context, t model.Team) error
	Team(ctx context.Context, id string) (model.Team, error)
	TeamsByEvent(ctx context.Context, eventID string) ([]model.Team, error)
	// UpdateTeamRating persists a new rating and confidence pair and
	// refreshes the event's standings index.
	UpdateTeamRating(ctx context.Context, teamID string, ratingValue float64, confidence int) error

	// Judges.
	CreateJudge(ctx context.Context, j model.Judge) error
	Judge(ctx context.Context, id string) (model.Judge, error)
	// SetJudgeCurrentAssignment points the judge at a pending assignment;
	// an empty assignment id clears the pointer.
	SetJudgeCurrentAssignment(ctx context.Context, judgeID, assignmentID string) error

	// Assignments.
	CreateAssignment(ctx context.Context, a model.Assignment) error
	Assignment(ctx context.Context, id string) (model.Assignment, error)
	// ResolveAssignment moves a pending assignment to a terminal status.
	// Returns ErrConflict when the assignment is already terminal.
	ResolveAssignment(ctx context.Context, id string, status model.AssignmentStatus, at time.Time) error
	AssignmentsByJudge(ctx context.Context, eventID, judgeID string) ([]model.Assignment, error)

	// Votes. AppendVote is append-only; a second vote for the same
	// assignment returns ErrConflict.
	AppendVote(ctx context.Context, v model.Vote) error
	VotesByJudge(ctx context.Context, eventID, judgeID string) ([]model.Vote, error)
	VotesByEvent(ctx context.Context, eventID string) ([]model.Vote, error)

	// Results. UpsertResult overwrites any prior result for the same
	// judge+team pair (last-write-wins).
	UpsertResult(ctx context.Context, r model.Result) error
	ResultsByEvent(ctx context.Context, eventID string) ([]model.Result, error)

	// Criteria.
	CreateCriterion(ctx context.Context, c model.Criterion) error
	CriteriaByEvent(ctx context.Context, eventID string) ([]model.Criterion, error)

	// Standings returns up to limit entries ordered by rating desc,
	// confidence desc, team id asc.
	Standings(ctx context.Context, eventID string, limit int) ([]types.StandingEntry, error)

	// Counts reports entity totals for monitoring.
	Counts(ctx context.Context) Counts
}
