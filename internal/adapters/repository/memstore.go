package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/types"
	"github.com/okian/verdict/pkg/metrics"
)

// resultKey identifies a judge+team result for last-write-wins upserts.
type resultKey struct {
	judgeID string
	teamID  string
}

// MemStore is the in-memory Store implementation. Plain CRUD under a single
// RWMutex; the engine layers its own per-judge and per-team serialization on
// top, so the store only has to keep individual operations consistent.
type MemStore struct {
	mu               sync.RWMutex
	events           map[string]model.Event
	teams            map[string]model.Team
	judges           map[string]model.Judge
	assignments      map[string]model.Assignment
	votes            map[string]model.Vote
	voteByAssignment map[string]string
	results          map[resultKey]model.Result
	criteria         map[string]model.Criterion
	standings        map[string]*standingsIndex

	metricsInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewMemStore constructs an empty store and starts its gauge updater.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		events:           make(map[string]model.Event),
		teams:            make(map[string]model.Team),
		judges:           make(map[string]model.Judge),
		assignments:      make(map[string]model.Assignment),
		votes:            make(map[string]model.Vote),
		voteByAssignment: make(map[string]string),
		results:          make(map[resultKey]model.Result),
		criteria:         make(map[string]model.Criterion),
		standings:        make(map[string]*standingsIndex),
		metricsInterval:  5 * time.Second,
		stopCh:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.startMetricsUpdater(ctx)

	return s
}

func (s *MemStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				c := s.Counts(ctx)
				metrics.UpdatePendingAssignments(c.PendingAssignments)
				metrics.UpdateTeamsTracked(c.Teams)
				metrics.UpdateJudgesTracked(c.Judges)
			}
		}
	}()
}

// Close stops the background gauge updater.
func (s *MemStore) Close() error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.wg.Wait()
	return nil
}

// Events.

// CreateEvent stores a new event.
func (s *MemStore) CreateEvent(_ context.Context, e model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return fmt.Errorf("event %q: %w", e.ID, ErrConflict)
	}
	s.events[e.ID] = e
	s.standings[e.ID] = newStandingsIndex()
	return nil
}

// Event returns an event by id.
func (s *MemStore) Event(_ context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("event %q: %w", id, ErrNotFound)
	}
	return e, nil
}

// SetEventStatus advances an event's lifecycle status.
func (s *MemStore) SetEventStatus(_ context.Context, id string, status model.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event %q: %w", id, ErrNotFound)
	}
	e.Status = status
	s.events[id] = e
	return nil
}

// PurgeEvent removes the event and everything owned by it, child rows
// first, so no orphaned pending assignment is ever observable.
func (s *MemStore) PurgeEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event %q: %w", id, ErrNotFound)
	}

	for k, r := range s.results {
		if r.EventID == id {
			delete(s.results, k)
		}
	}
	for vid, v := range s.votes {
		if v.EventID == id {
			delete(s.votes, vid)
			delete(s.voteByAssignment, v.AssignmentID)
		}
	}
	for aid, a := range s.assignments {
		if a.EventID == id {
			delete(s.assignments, aid)
		}
	}
	for cid, c := range s.criteria {
		if c.EventID == id {
			delete(s.criteria, cid)
		}
	}
	for jid, j := range s.judges {
		if j.EventID == id {
			delete(s.judges, jid)
		}
	}
	for tid, t := range s.teams {
		if t.EventID == id {
			delete(s.teams, tid)
		}
	}
	delete(s.standings, id)
	delete(s.events, id)
	return nil
}

// Teams.

// CreateTeam stores a new team. Approved teams enter the standings index
// immediately so rankings cover teams that have not yet been compared.
func (s *MemStore) CreateTeam(_ context.Context, t model.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[t.ID]; ok {
		return fmt.Errorf("team %q: %w", t.ID, ErrConflict)
	}
	if _, ok := s.events[t.EventID]; !ok {
		return fmt.Errorf("event %q: %w", t.EventID, ErrNotFound)
	}
	s.teams[t.ID] = t
	if t.Status == model.TeamApproved {
		s.standings[t.EventID].upsert(t.ID, t.Rating, t.Confidence)
	}
	return nil
}

// Team returns a team by id.
func (s *MemStore) Team(_ context.Context, id string) (model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return model.Team{}, fmt.Errorf("team %q: %w", id, ErrNotFound)
	}
	return t, nil
}

// TeamsByEvent returns an event's teams ordered by id for determinism.
func (s *MemStore) TeamsByEvent(_ context.Context, eventID string) ([]model.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Team
	for _, t := range s.teams {
		if t.EventID == eventID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateTeamRating persists a new rating/confidence pair and refreshes the
// standings index entry.
func (s *MemStore) UpdateTeamRating(_ context.Context, teamID string, ratingValue float64, confidence int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return fmt.Errorf("team %q: %w", teamID, ErrNotFound)
	}
	t.Rating = ratingValue
	t.Confidence = confidence
	s.teams[teamID] = t
	if idx, ok := s.standings[t.EventID]; ok && t.Status == model.TeamApproved {
		idx.upsert(t.ID, t.Rating, t.Confidence)
	}
	return nil
}

// Judges.

// CreateJudge stores a new judge.
func (s *MemStore) CreateJudge(_ context.Context, j model.Judge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.judges[j.ID]; ok {
		return fmt.Errorf("judge %q: %w", j.ID, ErrConflict)
	}
	if _, ok := s.events[j.EventID]; !ok {
		return fmt.Errorf("event %q: %w", j.EventID, ErrNotFound)
	}
	s.judges[j.ID] = j
	return nil
}

// Judge returns a judge by id.
func (s *MemStore) Judge(_ context.Context, id string) (model.Judge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.judges[id]
	if !ok {
		return model.Judge{}, fmt.Errorf("judge %q: %w", id, ErrNotFound)
	}
	return j, nil
}

// SetJudgeCurrentAssignment updates the judge's pending-assignment pointer.
func (s *MemStore) SetJudgeCurrentAssignment(_ context.Context, judgeID, assignmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.judges[judgeID]
	if !ok {
		return fmt.Errorf("judge %q: %w", judgeID, ErrNotFound)
	}
	j.CurrentAssignment = assignmentID
	s.judges[judgeID] = j
	return nil
}

// Assignments.

// CreateAssignment stores a new assignment.
func (s *MemStore) CreateAssignment(_ context.Context, a model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[a.ID]; ok {
		return fmt.Errorf("assignment %q: %w", a.ID, ErrConflict)
	}
	s.assignments[a.ID] = a
	return nil
}

// Assignment returns an assignment by id.
func (s *MemStore) Assignment(_ context.Context, id string) (model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return model.Assignment{}, fmt.Errorf("assignment %q: %w", id, ErrNotFound)
	}
	return a, nil
}

// ResolveAssignment moves a pending assignment to a terminal status.
func (s *MemStore) ResolveAssignment(_ context.Context, id string, status model.AssignmentStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok {
		return fmt.Errorf("assignment %q: %w", id, ErrNotFound)
	}
	if a.Status.Terminal() {
		return fmt.Errorf("assignment %q already %s: %w", id, a.Status, ErrConflict)
	}
	a.Status = status
	a.ResolvedAt = at
	s.assignments[id] = a
	return nil
}

// AssignmentsByJudge returns a judge's assignments in an event, oldest first.
func (s *MemStore) AssignmentsByJudge(_ context.Context, eventID, judgeID string) ([]model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Assignment
	for _, a := range s.assignments {
		if a.EventID == eventID && a.JudgeID == judgeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Votes.

// AppendVote stores a vote. At most one vote may exist per assignment.
func (s *MemStore) AppendVote(_ context.Context, v model.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.votes[v.ID]; ok {
		return fmt.Errorf("vote %q: %w", v.ID, ErrConflict)
	}
	if _, ok := s.voteByAssignment[v.AssignmentID]; ok {
		return fmt.Errorf("assignment %q already voted: %w", v.AssignmentID, ErrConflict)
	}
	s.votes[v.ID] = v
	s.voteByAssignment[v.AssignmentID] = v.ID
	return nil
}

// VotesByJudge returns a judge's votes in an event, oldest first.
func (s *MemStore) VotesByJudge(_ context.Context, eventID, judgeID string) ([]model.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Vote
	for _, v := range s.votes {
		if v.EventID == eventID && v.JudgeID == judgeID {
			out = append(out, v)
		}
	}
	sortVotes(out)
	return out, nil
}

// VotesByEvent returns all votes in an event, oldest first.
func (s *MemStore) VotesByEvent(_ context.Context, eventID string) ([]model.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Vote
	for _, v := range s.votes {
		if v.EventID == eventID {
			out = append(out, v)
		}
	}
	sortVotes(out)
	return out, nil
}

func sortVotes(votes []model.Vote) {
	sort.Slice(votes, func(i, j int) bool {
		if !votes[i].CreatedAt.Equal(votes[j].CreatedAt) {
			return votes[i].CreatedAt.Before(votes[j].CreatedAt)
		}
		return votes[i].ID < votes[j].ID
	})
}

// Results.

// UpsertResult stores a result, replacing any prior one for the same
// judge+team pair.
func (s *MemStore) UpsertResult(_ context.Context, r model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[resultKey{judgeID: r.JudgeID, teamID: r.TeamID}] = r
	return nil
}

// ResultsByEvent returns all results in an event ordered by team then judge.
func (s *MemStore) ResultsByEvent(_ context.Context, eventID string) ([]model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Result
	for _, r := range s.results {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TeamID != out[j].TeamID {
			return out[i].TeamID < out[j].TeamID
		}
		return out[i].JudgeID < out[j].JudgeID
	})
	return out, nil
}

// Criteria.

// CreateCriterion stores a new criterion.
func (s *MemStore) CreateCriterion(_ context.Context, c model.Criterion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.criteria[c.ID]; ok {
		return fmt.Errorf("criterion %q: %w", c.ID, ErrConflict)
	}
	if _, ok := s.events[c.EventID]; !ok {
		return fmt.Errorf("event %q: %w", c.EventID, ErrNotFound)
	}
	s.criteria[c.ID] = c
	return nil
}

// CriteriaByEvent returns an event's criteria ordered by id.
func (s *MemStore) CriteriaByEvent(_ context.Context, eventID string) ([]model.Criterion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Criterion
	for _, c := range s.criteria {
		if c.EventID == eventID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Standings.

// Standings returns up to limit ranked entries for an event.
func (s *MemStore) Standings(_ context.Context, eventID string, limit int) ([]types.StandingEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit %d: %w", limit, ErrInvalidLimit)
	}

	s.mu.RLock()
	idx, ok := s.standings[eventID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("event %q: %w", eventID, ErrNotFound)
	}

	start := time.Now()
	entries := idx.topN(limit)
	metrics.RecordStandingsQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	return entries, nil
}

// Counts reports entity totals for monitoring.
func (s *MemStore) Counts(_ context.Context) Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := Counts{
		Events:  len(s.events),
		Teams:   len(s.teams),
		Judges:  len(s.judges),
		Votes:   len(s.votes),
		Results: len(s.results),
	}
	for _, a := range s.assignments {
		if a.Status == model.AssignmentPending {
			c.PendingAssignments++
		}
	}
	return c
}
