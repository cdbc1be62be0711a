// Package service provides the judging engine behind the HTTP API: the
// matchmaker, the comparison resolver, criteria result submission and the
// standings read side.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/matchmake"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/rating"
	"github.com/okian/verdict/internal/domain/scoring"
	"github.com/okian/verdict/internal/domain/types"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// VoteRequest carries one decided pairwise comparison.
type VoteRequest struct {
	EventID      string
	JudgeID      string
	WinnerID     string
	LoserID      string
	Draw         bool
	AssignmentID string
}

// VoteReceipt reports both teams' state after the vote applied.
type VoteReceipt struct {
	WinnerRating     float64
	LoserRating      float64
	WinnerConfidence int
	LoserConfidence  int
}

// ResultRequest carries one judge's criteria scores for an assignment.
type ResultRequest struct {
	JudgeID      string
	AssignmentID string
	Scores       map[string]float64
	Comment      string
}

// ResultReceipt reports the derived overall score.
type ResultReceipt struct {
	OverallScore float64
}

// lockedSource makes a rand.Rand safe for concurrent judges.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (l *lockedSource) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

// SeededSource returns a concurrency-safe random source with a fixed seed,
// for reproducible matchmaking runs.
func SeededSource(seed int64) matchmake.Source {
	return &lockedSource{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // selection bias, not secrets
}

// Service implements the judging engine. Operations on a single judge's
// assignment state serialize on a per-judge lock; rating updates serialize
// on per-team locks taken in id order. The store below stays plain CRUD.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	ownStore bool
	src      matchmake.Source
	eloK     float64

	judgeLocks *keyedMutex
	teamLocks  *keyedMutex

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a store; the default is a fresh MemStore owned (and
// closed) by the service.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRand injects the matchmaking random source. Tests pass a seeded
// source to make selection deterministic.
func WithRand(src matchmake.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.src = src
		}
	}
}

// WithEloK overrides the Elo K-factor.
func WithEloK(k float64) Option {
	return func(s *Service) {
		if k > 0 {
			s.eloK = k
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		eloK:       rating.DefaultK,
		judgeLocks: newKeyedMutex(),
		teamLocks:  newKeyedMutex(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemStore(ctx)
		s.ownStore = true
	}
	if s.src == nil {
		s.src = &lockedSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))} //nolint:gosec // selection bias, not secrets
	}

	s.started = true
	s.logger.Info(ctx, "judging engine started", logger.Float64("elo_k", s.eloK))
	return nil
}

// Stop releases service-owned resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if s.ownStore {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
	s.started = false
	s.logger.Info(context.Background(), "judging engine stopped")
}

// Store exposes the underlying store for seeding and admin operations.
func (s *Service) Store() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// NextAssignment returns the team the judge should evaluate next as a
// pending assignment. Requesting again before the current assignment
// resolves returns that same assignment rather than creating a second one.
func (s *Service) NextAssignment(ctx context.Context, eventID, judgeID string) (model.Assignment, error) {
	const op = "next_assignment"
	start := time.Now()

	event, judge, err := s.eventAndJudge(ctx, eventID, judgeID)
	if err != nil {
		return model.Assignment{}, s.fail(ctx, op, err)
	}

	unlock := s.judgeLocks.lock(judgeID)
	defer unlock()

	// Re-read under the lock; another request may have just assigned.
	judge, err = s.store.Judge(ctx, judgeID)
	if err != nil {
		return model.Assignment{}, s.fail(ctx, op, notFound("judge", judgeID))
	}
	if judge.CurrentAssignment != "" {
		current, cerr := s.store.Assignment(ctx, judge.CurrentAssignment)
		if cerr == nil && current.Status == model.AssignmentPending {
			return current, nil
		}
		// Stale pointer; clear it and fall through to matchmaking.
		if cerr := s.store.SetJudgeCurrentAssignment(ctx, judgeID, ""); cerr != nil {
			return model.Assignment{}, s.fail(ctx, op, cerr)
		}
	}

	judged, err := s.judgedTeams(ctx, eventID, judgeID)
	if err != nil {
		return model.Assignment{}, s.fail(ctx, op, err)
	}
	teams, err := s.store.TeamsByEvent(ctx, eventID)
	if err != nil {
		return model.Assignment{}, s.fail(ctx, op, err)
	}

	candidates := matchmake.Eligible(teams, judged, event.Settings.MinComparisons)
	team, ok := matchmake.Pick(candidates, s.src)
	if !ok {
		metrics.RecordMatchmakingExhausted()
		return model.Assignment{}, s.fail(ctx, op, fmt.Errorf("judge %q in event %q: %w", judgeID, eventID, ErrExhausted))
	}

	a := model.Assignment{
		ID:        uuid.NewString(),
		EventID:   eventID,
		JudgeID:   judgeID,
		TeamID:    team.ID,
		Status:    model.AssignmentPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAssignment(ctx, a); err != nil {
		return model.Assignment{}, s.fail(ctx, op, err)
	}
	if err := s.store.SetJudgeCurrentAssignment(ctx, judgeID, a.ID); err != nil {
		return model.Assignment{}, s.fail(ctx, op, err)
	}

	metrics.RecordAssignmentCreated()
	metrics.RecordMatchmakingLatency(float64(time.Since(start).Microseconds()) / 1000)
	s.logger.Debug(ctx, "assignment created",
		logger.String("assignment", a.ID),
		logger.String("judge", judgeID),
		logger.String("team", team.ID),
	)
	return a, nil
}

// RecordVote applies one decided pairwise comparison: both Elo updates, the
// immutable vote row, assignment completion and the judge pointer clear.
// Resolving the assignment is the commit point, so a duplicate submission
// fails with ErrInvalidState before any rating moves.
func (s *Service) RecordVote(ctx context.Context, req VoteRequest) (VoteReceipt, error) {
	const op = "record_vote"

	if req.WinnerID == "" || req.LoserID == "" {
		return VoteReceipt{}, s.fail(ctx, op, fmt.Errorf("vote requires both team references: %w", ErrValidation))
	}
	if req.WinnerID == req.LoserID {
		return VoteReceipt{}, s.fail(ctx, op, fmt.Errorf("vote references the same team twice: %w", ErrValidation))
	}

	event, err := s.activeEvent(ctx, req.EventID)
	if err != nil {
		return VoteReceipt{}, s.fail(ctx, op, err)
	}
	if !event.Mode.Pairwise() {
		return VoteReceipt{}, s.fail(ctx, op, fmt.Errorf("event %q is not in a pairwise mode: %w", req.EventID, ErrInvalidState))
	}
	for _, teamID := range []string{req.WinnerID, req.LoserID} {
		team, terr := s.store.Team(ctx, teamID)
		if terr != nil {
			return VoteReceipt{}, s.fail(ctx, op, notFound("team", teamID))
		}
		if team.EventID != req.EventID {
			return VoteReceipt{}, s.fail(ctx, op, fmt.Errorf("team %q belongs to event %q: %w", teamID, team.EventID, ErrValidation))
		}
	}

	unlockJudge := s.judgeLocks.lock(req.JudgeID)
	defer unlockJudge()

	a, err := s.ownedAssignment(ctx, req.AssignmentID, req.JudgeID)
	if err != nil {
		return VoteReceipt{}, s.fail(ctx, op, err)
	}
	if a.EventID != req.EventID {
		return VoteReceipt{}, s.fail(ctx, op, fmt.Errorf("assignment %q belongs to event %q: %w", a.ID, a.EventID, ErrValidation))
	}
	if a.TeamID != req.WinnerID && a.TeamID != req.LoserID {
		return VoteReceipt{}, s.fail(ctx, op, fmt.Errorf("assignment %q does not cover either team: %w", a.ID, ErrValidation))
	}

	unlockTeams := s.teamLocks.lockPair(req.WinnerID, req.LoserID)
	defer unlockTeams()

	start := time.Now()
	now := time.Now().UTC()

	// Commit point: a terminal assignment fails here and nothing below runs.
	if err := s.store.ResolveAssignment(ctx, a.ID, model.AssignmentCompleted, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return VoteReceipt{}, s.fail(ctx, op, fmt.Errorf("assignment %q is not pending: %w", a.ID, ErrInvalidState))
		}
		return VoteReceipt{}, s.fail(ctx, op, err)
	}

	winner, err := s.store.Team(ctx, req.WinnerID)
	if err != nil {
		return VoteReceipt{}, s.fail(ctx, op, err)
	}
	loser, err := s.store.Team(ctx, req.LoserID)
	if err != nil {
		return VoteReceipt{}, s.fail(ctx, op, err)
	}

	newWinner, newLoser := rating.Apply(
		rating.Entry{Rating: winner.Rating, Confidence: winner.Confidence},
		rating.Entry{Rating: loser.Rating, Confidence: loser.Confidence},
		req.Draw, s.eloK,
	)

	if err := s.store.UpdateTeamRating(ctx, winner.ID, newWinner.Rating, newWinner.Confidence); err != nil {
		return VoteReceipt{}, s.fail(ctx, op, err)
	}
	if err := s.store.UpdateTeamRating(ctx, loser.ID, newLoser.Rating, newLoser.Confidence); err != nil {
		return VoteReceipt{}, s.fail(ctx, op, err)
	}
	if err := s.store.AppendVote(ctx, model.Vote{
		ID:           uuid.NewString(),
		EventID:      req.EventID,
		JudgeID:      req.JudgeID,
		WinnerID:     req.WinnerID,
		LoserID:      req.LoserID,
		Draw:         req.Draw,
		AssignmentID: a.ID,
		CreatedAt:    now,
	}); err != nil {
		return VoteReceipt{}, s.fail(ctx, op, err)
	}
	if err := s.store.SetJudgeCurrentAssignment(ctx, req.JudgeID, ""); err != nil {
		return VoteReceipt{}, s.fail(ctx, op, err)
	}

	metrics.RecordVoteRecorded()
	metrics.RecordRatingUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	s.logger.Debug(ctx, "vote recorded",
		logger.String("assignment", a.ID),
		logger.String("winner", req.WinnerID),
		logger.String("loser", req.LoserID),
		logger.Bool("draw", req.Draw),
	)

	return VoteReceipt{
		WinnerRating:     newWinner.Rating,
		LoserRating:      newLoser.Rating,
		WinnerConfidence: newWinner.Confidence,
		LoserConfidence:  newLoser.Confidence,
	}, nil
}

// SkipAssignment frees the judge without recording anything about the team.
// The team stays fully eligible for future matchmaking.
func (s *Service) SkipAssignment(ctx context.Context, judgeID, assignmentID string) error {
	const op = "skip_assignment"

	unlock := s.judgeLocks.lock(judgeID)
	defer unlock()

	a, err := s.ownedAssignment(ctx, assignmentID, judgeID)
	if err != nil {
		return s.fail(ctx, op, err)
	}

	if err := s.store.ResolveAssignment(ctx, a.ID, model.AssignmentSkipped, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return s.fail(ctx, op, fmt.Errorf("assignment %q is not pending: %w", a.ID, ErrInvalidState))
		}
		return s.fail(ctx, op, err)
	}
	if err := s.store.SetJudgeCurrentAssignment(ctx, judgeID, ""); err != nil {
		return s.fail(ctx, op, err)
	}

	metrics.RecordAssignmentSkipped()
	s.logger.Debug(ctx, "assignment skipped",
		logger.String("assignment", a.ID),
		logger.String("judge", judgeID),
	)
	return nil
}

// SubmitCriteriaResult validates and stores one judge's weighted-criteria
// scores for the assigned team, completing the assignment. A resubmission
// for the same judge+team pair overwrites the prior result.
func (s *Service) SubmitCriteriaResult(ctx context.Context, req ResultRequest) (ResultReceipt, error) {
	const op = "submit_result"

	unlock := s.judgeLocks.lock(req.JudgeID)
	defer unlock()

	a, err := s.ownedAssignment(ctx, req.AssignmentID, req.JudgeID)
	if err != nil {
		return ResultReceipt{}, s.fail(ctx, op, err)
	}
	event, err := s.activeEvent(ctx, a.EventID)
	if err != nil {
		return ResultReceipt{}, s.fail(ctx, op, err)
	}
	if event.Mode != model.ModeCriteria {
		return ResultReceipt{}, s.fail(ctx, op, fmt.Errorf("event %q is not criteria-based: %w", a.EventID, ErrInvalidState))
	}

	criteria, err := s.store.CriteriaByEvent(ctx, a.EventID)
	if err != nil {
		return ResultReceipt{}, s.fail(ctx, op, err)
	}
	overall, err := scoring.Score(criteria, req.Scores)
	if err != nil {
		// Validation failures apply no state change.
		return ResultReceipt{}, s.fail(ctx, op, fmt.Errorf("%w: %w", ErrValidation, err))
	}

	now := time.Now().UTC()
	if err := s.store.ResolveAssignment(ctx, a.ID, model.AssignmentCompleted, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ResultReceipt{}, s.fail(ctx, op, fmt.Errorf("assignment %q is not pending: %w", a.ID, ErrInvalidState))
		}
		return ResultReceipt{}, s.fail(ctx, op, err)
	}
	if err := s.store.UpsertResult(ctx, model.Result{
		ID:           uuid.NewString(),
		EventID:      a.EventID,
		JudgeID:      req.JudgeID,
		TeamID:       a.TeamID,
		Scores:       req.Scores,
		OverallScore: overall,
		Comment:      req.Comment,
		SubmittedAt:  now,
	}); err != nil {
		return ResultReceipt{}, s.fail(ctx, op, err)
	}
	if err := s.store.SetJudgeCurrentAssignment(ctx, req.JudgeID, ""); err != nil {
		return ResultReceipt{}, s.fail(ctx, op, err)
	}

	metrics.RecordResultSubmitted()
	s.logger.Debug(ctx, "criteria result submitted",
		logger.String("assignment", a.ID),
		logger.String("team", a.TeamID),
		logger.Float64("overall", overall),
	)
	return ResultReceipt{OverallScore: overall}, nil
}

// TeamStandings returns the ranked standings for an event: rating desc,
// confidence desc, team id asc.
func (s *Service) TeamStandings(ctx context.Context, eventID string, limit int) ([]types.StandingEntry, error) {
	const op = "standings"

	entries, err := s.store.Standings(ctx, eventID, limit)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, s.fail(ctx, op, notFound("event", eventID))
	case errors.Is(err, repository.ErrInvalidLimit):
		return nil, s.fail(ctx, op, fmt.Errorf("%w: %w", ErrValidation, err))
	case err != nil:
		return nil, s.fail(ctx, op, err)
	}
	return entries, nil
}

// PurgeEvent removes an event and everything owned by it as an explicit
// multi-step cascade.
func (s *Service) PurgeEvent(ctx context.Context, eventID string) error {
	const op = "purge_event"

	if err := s.store.PurgeEvent(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.fail(ctx, op, notFound("event", eventID))
		}
		return s.fail(ctx, op, err)
	}
	s.logger.Info(ctx, "event purged", logger.String("event", eventID))
	return nil
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]interface{}{"started": started}
	if !started {
		return stats
	}

	c := s.store.Counts(ctx)
	stats["events"] = c.Events
	stats["teams"] = c.Teams
	stats["judges"] = c.Judges
	stats["pendingAssignments"] = c.PendingAssignments
	stats["votes"] = c.Votes
	stats["results"] = c.Results

	metrics.UpdatePendingAssignments(c.PendingAssignments)
	metrics.UpdateTeamsTracked(c.Teams)
	metrics.UpdateJudgesTracked(c.Judges)

	return stats
}

// Helpers.

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// fail logs the error, records it in metrics and returns it. Exhausted is an
// expected outcome and logs at debug.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	kind := errKind(err)
	metrics.RecordEngineError(op, kind)
	if kind == "exhausted" {
		s.logger.Debug(ctx, "matchmaking exhausted", logger.String("op", op), logger.Error(err))
	} else {
		s.logger.Warn(ctx, "operation failed", logger.String("op", op), logger.Error(err))
	}
	return err
}

// activeEvent loads an event and requires it to be active.
func (s *Service) activeEvent(ctx context.Context, eventID string) (model.Event, error) {
	event, err := s.store.Event(ctx, eventID)
	if err != nil {
		return model.Event{}, notFound("event", eventID)
	}
	if event.Status != model.EventActive {
		return model.Event{}, fmt.Errorf("event %q is %s: %w", eventID, event.Status, ErrInvalidState)
	}
	return event, nil
}

// eventAndJudge loads both, requires an active event, a judge bound to it
// and a judge class the event's mode accepts.
func (s *Service) eventAndJudge(ctx context.Context, eventID, judgeID string) (model.Event, model.Judge, error) {
	event, err := s.activeEvent(ctx, eventID)
	if err != nil {
		return model.Event{}, model.Judge{}, err
	}
	judge, err := s.store.Judge(ctx, judgeID)
	if err != nil {
		return model.Event{}, model.Judge{}, notFound("judge", judgeID)
	}
	if judge.EventID != eventID {
		return model.Event{}, model.Judge{}, fmt.Errorf("judge %q is not bound to event %q: %w", judgeID, eventID, ErrNotFound)
	}
	if !event.AcceptsClass(judge.Class) {
		return model.Event{}, model.Judge{}, fmt.Errorf("judge class %s not allowed in %s mode: %w", judge.Class, event.Mode, ErrInvalidState)
	}
	return event, judge, nil
}

// ownedAssignment loads an assignment and verifies ownership and that it is
// still pending.
func (s *Service) ownedAssignment(ctx context.Context, assignmentID, judgeID string) (model.Assignment, error) {
	a, err := s.store.Assignment(ctx, assignmentID)
	if err != nil {
		return model.Assignment{}, notFound("assignment", assignmentID)
	}
	if a.JudgeID != judgeID {
		return model.Assignment{}, fmt.Errorf("assignment %q belongs to another judge: %w", assignmentID, ErrForbidden)
	}
	if a.Status != model.AssignmentPending {
		return model.Assignment{}, fmt.Errorf("assignment %q is %s: %w", assignmentID, a.Status, ErrInvalidState)
	}
	return a, nil
}

// judgedTeams returns the set of teams the judge has already compared in
// this event: teams from completed assignments plus both sides of every
// recorded vote. Skipped assignments do not count.
func (s *Service) judgedTeams(ctx context.Context, eventID, judgeID string) (map[string]bool, error) {
	assignments, err := s.store.AssignmentsByJudge(ctx, eventID, judgeID)
	if err != nil {
		return nil, err
	}
	judged := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		if a.Status == model.AssignmentCompleted {
			judged[a.TeamID] = true
		}
	}

	votes, err := s.store.VotesByJudge(ctx, eventID, judgeID)
	if err != nil {
		return nil, err
	}
	for _, v := range votes {
		judged[v.WinnerID] = true
		judged[v.LoserID] = true
	}
	return judged, nil
}
