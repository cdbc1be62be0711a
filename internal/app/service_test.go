package service_test

import (
	"context"
	"testing"
	"time"

	repository "github.com/okian/verdict/internal/adapters/repository"
	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// firstPick always selects the first candidate, which is the lowest team id
// since the store lists teams in id order.
type firstPick struct{}

func (firstPick) Intn(int) int { return 0 }

func newService(t *testing.T) (*service.Service, *repository.MemStore) {
	t.Helper()
	if err := logger.Init(); err != nil {
		t.Fatalf("initializing logger: %v", err)
	}
	ctx := context.Background()
	store := repository.NewMemStore(ctx,
		repository.WithMetricsUpdateInterval(time.Hour))
	svc := service.New(
		service.WithStore(store),
		service.WithRand(firstPick{}),
	)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("starting service: %v", err)
	}
	t.Cleanup(func() {
		svc.Stop()
		_ = store.Close()
	})
	return svc, store
}

func seedPairwiseEvent(ctx context.Context, store *repository.MemStore, teamIDs ...string) {
	_ = store.CreateEvent(ctx, model.Event{
		ID:     "ev-1",
		Name:   "demo event",
		Mode:   model.ModePairwiseJudge,
		Status: model.EventActive,
	})
	for _, id := range teamIDs {
		_ = store.CreateTeam(ctx, model.Team{
			ID:      id,
			EventID: "ev-1",
			Status:  model.TeamApproved,
			Rating:  1000,
		})
	}
	_ = store.CreateJudge(ctx, model.Judge{
		ID:      "judge-1",
		EventID: "ev-1",
		Class:   model.ClassExternal,
	})
}

func TestNextAssignment(t *testing.T) {
	ctx := context.Background()

	Convey("Given an active pairwise event", t, func() {
		svc, store := newService(t)
		seedPairwiseEvent(ctx, store, "team-a", "team-b")

		Convey("When a judge requests an assignment", func() {
			a, err := svc.NextAssignment(ctx, "ev-1", "judge-1")

			Convey("Then a pending assignment for the first candidate is created", func() {
				So(err, ShouldBeNil)
				So(a.Status, ShouldEqual, model.AssignmentPending)
				So(a.TeamID, ShouldEqual, "team-a")
				So(a.JudgeID, ShouldEqual, "judge-1")
			})

			Convey("And the judge's pointer tracks it", func() {
				j, _ := store.Judge(ctx, "judge-1")
				So(j.CurrentAssignment, ShouldEqual, a.ID)
			})

			Convey("And requesting again returns the same assignment", func() {
				again, err := svc.NextAssignment(ctx, "ev-1", "judge-1")
				So(err, ShouldBeNil)
				So(again.ID, ShouldEqual, a.ID)

				assignments, _ := store.AssignmentsByJudge(ctx, "ev-1", "judge-1")
				So(len(assignments), ShouldEqual, 1)
			})
		})

		Convey("When the judge has voted on every team", func() {
			a, err := svc.NextAssignment(ctx, "ev-1", "judge-1")
			So(err, ShouldBeNil)
			_, err = svc.RecordVote(ctx, service.VoteRequest{
				EventID:      "ev-1",
				JudgeID:      "judge-1",
				WinnerID:     "team-a",
				LoserID:      "team-b",
				AssignmentID: a.ID,
			})
			So(err, ShouldBeNil)

			Convey("Then matchmaking reports exhaustion", func() {
				_, err := svc.NextAssignment(ctx, "ev-1", "judge-1")
				So(err, ShouldWrap, service.ErrExhausted)
			})
		})
	})

	Convey("Given lifecycle and identity problems", t, func() {
		svc, store := newService(t)
		seedPairwiseEvent(ctx, store, "team-a")

		Convey("An unknown event is not found", func() {
			_, err := svc.NextAssignment(ctx, "missing", "judge-1")
			So(err, ShouldWrap, service.ErrNotFound)
		})

		Convey("An unknown judge is not found", func() {
			_, err := svc.NextAssignment(ctx, "ev-1", "missing")
			So(err, ShouldWrap, service.ErrNotFound)
		})

		Convey("A completed event rejects matchmaking", func() {
			So(store.SetEventStatus(ctx, "ev-1", model.EventCompleted), ShouldBeNil)
			_, err := svc.NextAssignment(ctx, "ev-1", "judge-1")
			So(err, ShouldWrap, service.ErrInvalidState)
		})

		Convey("A judge bound to another event is not found here", func() {
			So(store.CreateEvent(ctx, model.Event{
				ID: "ev-2", Mode: model.ModePairwiseJudge, Status: model.EventActive,
			}), ShouldBeNil)
			_, err := svc.NextAssignment(ctx, "ev-2", "judge-1")
			So(err, ShouldWrap, service.ErrNotFound)
		})

		Convey("A participant judge is rejected outside participant mode", func() {
			So(store.CreateJudge(ctx, model.Judge{
				ID: "judge-p", EventID: "ev-1", Class: model.ClassParticipant,
			}), ShouldBeNil)
			_, err := svc.NextAssignment(ctx, "ev-1", "judge-p")
			So(err, ShouldWrap, service.ErrInvalidState)
		})
	})

	Convey("Given an event with a comparison target", t, func() {
		svc, store := newService(t)
		_ = store.CreateEvent(ctx, model.Event{
			ID:       "ev-1",
			Mode:     model.ModePairwiseJudge,
			Status:   model.EventActive,
			Settings: model.Settings{MinComparisons: 3},
		})
		_ = store.CreateTeam(ctx, model.Team{ID: "team-a", EventID: "ev-1", Status: model.TeamApproved, Confidence: 5})
		_ = store.CreateTeam(ctx, model.Team{ID: "team-b", EventID: "ev-1", Status: model.TeamApproved, Confidence: 1})
		_ = store.CreateJudge(ctx, model.Judge{ID: "judge-1", EventID: "ev-1", Class: model.ClassExternal})

		Convey("Then the under-target team is preferred", func() {
			a, err := svc.NextAssignment(ctx, "ev-1", "judge-1")
			So(err, ShouldBeNil)
			So(a.TeamID, ShouldEqual, "team-b")
		})
	})
}

func TestRecordVote(t *testing.T) {
	ctx := context.Background()

	Convey("Given a judge holding a pending assignment", t, func() {
		svc, store := newService(t)
		seedPairwiseEvent(ctx, store, "team-a", "team-b")

		a, err := svc.NextAssignment(ctx, "ev-1", "judge-1")
		So(err, ShouldBeNil)
		So(a.TeamID, ShouldEqual, "team-a")

		req := service.VoteRequest{
			EventID:      "ev-1",
			JudgeID:      "judge-1",
			WinnerID:     "team-a",
			LoserID:      "team-b",
			AssignmentID: a.ID,
		}

		Convey("When the vote is recorded", func() {
			receipt, err := svc.RecordVote(ctx, req)
			So(err, ShouldBeNil)

			Convey("Then equal teams move by the full half-K", func() {
				So(receipt.WinnerRating, ShouldAlmostEqual, 1016, 1e-9)
				So(receipt.LoserRating, ShouldAlmostEqual, 984, 1e-9)
				So(receipt.WinnerConfidence, ShouldEqual, 1)
				So(receipt.LoserConfidence, ShouldEqual, 1)
			})

			Convey("And the team rows carry the new ratings", func() {
				winner, _ := store.Team(ctx, "team-a")
				loser, _ := store.Team(ctx, "team-b")
				So(winner.Rating, ShouldAlmostEqual, 1016, 1e-9)
				So(loser.Rating, ShouldAlmostEqual, 984, 1e-9)
			})

			Convey("And the assignment is completed with the judge freed", func() {
				got, _ := store.Assignment(ctx, a.ID)
				So(got.Status, ShouldEqual, model.AssignmentCompleted)
				j, _ := store.Judge(ctx, "judge-1")
				So(j.CurrentAssignment, ShouldBeEmpty)
			})

			Convey("And exactly one vote row exists", func() {
				votes, _ := store.VotesByEvent(ctx, "ev-1")
				So(len(votes), ShouldEqual, 1)
				So(votes[0].AssignmentID, ShouldEqual, a.ID)
			})

			Convey("And submitting the same vote again fails without moving ratings", func() {
				_, err := svc.RecordVote(ctx, req)
				So(err, ShouldWrap, service.ErrInvalidState)

				winner, _ := store.Team(ctx, "team-a")
				loser, _ := store.Team(ctx, "team-b")
				So(winner.Rating, ShouldAlmostEqual, 1016, 1e-9)
				So(loser.Rating, ShouldAlmostEqual, 984, 1e-9)
				So(winner.Confidence, ShouldEqual, 1)
				So(loser.Confidence, ShouldEqual, 1)

				votes, _ := store.VotesByEvent(ctx, "ev-1")
				So(len(votes), ShouldEqual, 1)
			})
		})

		Convey("When the vote is a draw between equals", func() {
			req.Draw = true
			receipt, err := svc.RecordVote(ctx, req)

			Convey("Then ratings hold and confidence still advances", func() {
				So(err, ShouldBeNil)
				So(receipt.WinnerRating, ShouldAlmostEqual, 1000, 1e-9)
				So(receipt.LoserRating, ShouldAlmostEqual, 1000, 1e-9)
				So(receipt.WinnerConfidence, ShouldEqual, 1)
				So(receipt.LoserConfidence, ShouldEqual, 1)
			})
		})

		Convey("When the request is malformed", func() {
			Convey("A missing team reference is a validation error", func() {
				bad := req
				bad.LoserID = ""
				_, err := svc.RecordVote(ctx, bad)
				So(err, ShouldWrap, service.ErrValidation)
			})

			Convey("The same team on both sides is a validation error", func() {
				bad := req
				bad.LoserID = bad.WinnerID
				_, err := svc.RecordVote(ctx, bad)
				So(err, ShouldWrap, service.ErrValidation)
			})

			Convey("An unknown team is not found", func() {
				bad := req
				bad.LoserID = "missing"
				_, err := svc.RecordVote(ctx, bad)
				So(err, ShouldWrap, service.ErrNotFound)
			})
		})

		Convey("When the assignment covers neither referenced team", func() {
			So(store.CreateTeam(ctx, model.Team{ID: "team-c", EventID: "ev-1", Status: model.TeamApproved, Rating: 1000}), ShouldBeNil)
			So(store.CreateTeam(ctx, model.Team{ID: "team-d", EventID: "ev-1", Status: model.TeamApproved, Rating: 1000}), ShouldBeNil)

			bad := req
			bad.WinnerID = "team-c"
			bad.LoserID = "team-d"
			_, err := svc.RecordVote(ctx, bad)

			Convey("Then the vote is rejected and the assignment stays pending", func() {
				So(err, ShouldWrap, service.ErrValidation)
				got, _ := store.Assignment(ctx, a.ID)
				So(got.Status, ShouldEqual, model.AssignmentPending)
			})
		})

		Convey("When another judge submits against the assignment", func() {
			So(store.CreateJudge(ctx, model.Judge{ID: "judge-2", EventID: "ev-1", Class: model.ClassExternal}), ShouldBeNil)

			bad := req
			bad.JudgeID = "judge-2"
			_, err := svc.RecordVote(ctx, bad)

			So(err, ShouldWrap, service.ErrForbidden)
		})

		Convey("When the event completes before the vote lands", func() {
			So(store.SetEventStatus(ctx, "ev-1", model.EventCompleted), ShouldBeNil)
			_, err := svc.RecordVote(ctx, req)
			So(err, ShouldWrap, service.ErrInvalidState)
		})
	})

	Convey("Given two active pairwise events", t, func() {
		svc, store := newService(t)
		seedPairwiseEvent(ctx, store, "team-a", "team-b")

		So(store.CreateEvent(ctx, model.Event{
			ID: "ev-2", Mode: model.ModePairwiseJudge, Status: model.EventActive,
		}), ShouldBeNil)
		So(store.CreateTeam(ctx, model.Team{ID: "team-x", EventID: "ev-2", Status: model.TeamApproved, Rating: 1000}), ShouldBeNil)
		So(store.CreateTeam(ctx, model.Team{ID: "team-y", EventID: "ev-2", Status: model.TeamApproved, Rating: 1000}), ShouldBeNil)

		a, err := svc.NextAssignment(ctx, "ev-1", "judge-1")
		So(err, ShouldBeNil)

		Convey("When the vote names the other event with that event's teams", func() {
			_, err := svc.RecordVote(ctx, service.VoteRequest{
				EventID:      "ev-2",
				JudgeID:      "judge-1",
				WinnerID:     "team-x",
				LoserID:      "team-y",
				AssignmentID: a.ID,
			})

			Convey("Then the vote is rejected because the assignment is bound elsewhere", func() {
				So(err, ShouldWrap, service.ErrValidation)
			})
		})

		Convey("When the vote names the other event but this event's teams", func() {
			_, err := svc.RecordVote(ctx, service.VoteRequest{
				EventID:      "ev-2",
				JudgeID:      "judge-1",
				WinnerID:     "team-a",
				LoserID:      "team-b",
				AssignmentID: a.ID,
			})

			Convey("Then the vote is rejected and neither event records state", func() {
				So(err, ShouldWrap, service.ErrValidation)

				got, _ := store.Assignment(ctx, a.ID)
				So(got.Status, ShouldEqual, model.AssignmentPending)

				votes1, _ := store.VotesByEvent(ctx, "ev-1")
				votes2, _ := store.VotesByEvent(ctx, "ev-2")
				So(len(votes1), ShouldEqual, 0)
				So(len(votes2), ShouldEqual, 0)

				winner, _ := store.Team(ctx, "team-a")
				So(winner.Rating, ShouldAlmostEqual, 1000, 1e-9)
			})
		})
	})

	Convey("Given a criteria-based event", t, func() {
		svc, store := newService(t)
		_ = store.CreateEvent(ctx, model.Event{
			ID: "ev-c", Mode: model.ModeCriteria, Status: model.EventActive,
		})
		_ = store.CreateTeam(ctx, model.Team{ID: "team-a", EventID: "ev-c", Status: model.TeamApproved})
		_ = store.CreateTeam(ctx, model.Team{ID: "team-b", EventID: "ev-c", Status: model.TeamApproved})

		Convey("Then pairwise votes are rejected", func() {
			_, err := svc.RecordVote(ctx, service.VoteRequest{
				EventID:      "ev-c",
				JudgeID:      "judge-1",
				WinnerID:     "team-a",
				LoserID:      "team-b",
				AssignmentID: "whatever",
			})
			So(err, ShouldWrap, service.ErrInvalidState)
		})
	})
}

func TestSkipAssignment(t *testing.T) {
	ctx := context.Background()

	Convey("Given a judge holding a pending assignment", t, func() {
		svc, store := newService(t)
		seedPairwiseEvent(ctx, store, "team-a")

		a, err := svc.NextAssignment(ctx, "ev-1", "judge-1")
		So(err, ShouldBeNil)

		Convey("When the judge skips it", func() {
			So(svc.SkipAssignment(ctx, "judge-1", a.ID), ShouldBeNil)

			Convey("Then the assignment is terminal and the judge freed", func() {
				got, _ := store.Assignment(ctx, a.ID)
				So(got.Status, ShouldEqual, model.AssignmentSkipped)
				j, _ := store.Judge(ctx, "judge-1")
				So(j.CurrentAssignment, ShouldBeEmpty)
			})

			Convey("And the skipped team stays eligible for the same judge", func() {
				next, err := svc.NextAssignment(ctx, "ev-1", "judge-1")
				So(err, ShouldBeNil)
				So(next.TeamID, ShouldEqual, "team-a")
				So(next.ID, ShouldNotEqual, a.ID)
			})

			Convey("And skipping again is an invalid state", func() {
				So(svc.SkipAssignment(ctx, "judge-1", a.ID), ShouldWrap, service.ErrInvalidState)
			})

			Convey("And no vote or rating change was recorded", func() {
				votes, _ := store.VotesByEvent(ctx, "ev-1")
				So(votes, ShouldBeEmpty)
				team, _ := store.Team(ctx, "team-a")
				So(team.Rating, ShouldAlmostEqual, 1000, 1e-9)
				So(team.Confidence, ShouldEqual, 0)
			})
		})

		Convey("When another judge tries to skip it", func() {
			So(store.CreateJudge(ctx, model.Judge{ID: "judge-2", EventID: "ev-1", Class: model.ClassExternal}), ShouldBeNil)
			So(svc.SkipAssignment(ctx, "judge-2", a.ID), ShouldWrap, service.ErrForbidden)
		})

		Convey("When the assignment does not exist", func() {
			So(svc.SkipAssignment(ctx, "judge-1", "missing"), ShouldWrap, service.ErrNotFound)
		})
	})
}

func TestSubmitCriteriaResult(t *testing.T) {
	ctx := context.Background()

	seedCriteriaEvent := func(store *repository.MemStore) {
		_ = store.CreateEvent(ctx, model.Event{
			ID: "ev-c", Mode: model.ModeCriteria, Status: model.EventActive,
		})
		_ = store.CreateTeam(ctx, model.Team{ID: "team-a", EventID: "ev-c", Status: model.TeamApproved})
		_ = store.CreateJudge(ctx, model.Judge{ID: "judge-1", EventID: "ev-c", Class: model.ClassExternal})
		_ = store.CreateCriterion(ctx, model.Criterion{ID: "impact", EventID: "ev-c", Weight: 2, MinScore: 1, MaxScore: 10})
		_ = store.CreateCriterion(ctx, model.Criterion{ID: "execution", EventID: "ev-c", Weight: 1, MinScore: 1, MaxScore: 10})
	}

	Convey("Given a judge assigned in a criteria event", t, func() {
		svc, store := newService(t)
		seedCriteriaEvent(store)

		a, err := svc.NextAssignment(ctx, "ev-c", "judge-1")
		So(err, ShouldBeNil)
		So(a.TeamID, ShouldEqual, "team-a")

		Convey("When valid scores are submitted", func() {
			receipt, err := svc.SubmitCriteriaResult(ctx, service.ResultRequest{
				JudgeID:      "judge-1",
				AssignmentID: a.ID,
				Scores:       map[string]float64{"impact": 8, "execution": 5},
				Comment:      "solid work",
			})

			Convey("Then the weighted overall score comes back", func() {
				So(err, ShouldBeNil)
				// (8*2 + 5*1) / 3
				So(receipt.OverallScore, ShouldAlmostEqual, 7.0, 1e-9)
			})

			Convey("And the assignment completes with a stored result", func() {
				got, _ := store.Assignment(ctx, a.ID)
				So(got.Status, ShouldEqual, model.AssignmentCompleted)

				results, _ := store.ResultsByEvent(ctx, "ev-c")
				So(len(results), ShouldEqual, 1)
				So(results[0].Comment, ShouldEqual, "solid work")
			})

			Convey("And resubmitting against the spent assignment fails", func() {
				_, err := svc.SubmitCriteriaResult(ctx, service.ResultRequest{
					JudgeID:      "judge-1",
					AssignmentID: a.ID,
					Scores:       map[string]float64{"impact": 9},
				})
				So(err, ShouldWrap, service.ErrInvalidState)
			})
		})

		Convey("When a score is out of range", func() {
			_, err := svc.SubmitCriteriaResult(ctx, service.ResultRequest{
				JudgeID:      "judge-1",
				AssignmentID: a.ID,
				Scores:       map[string]float64{"impact": 11},
			})

			Convey("Then the submission fails and the assignment stays pending", func() {
				So(err, ShouldWrap, service.ErrValidation)
				got, _ := store.Assignment(ctx, a.ID)
				So(got.Status, ShouldEqual, model.AssignmentPending)
			})
		})

		Convey("When a score references an unknown criterion", func() {
			_, err := svc.SubmitCriteriaResult(ctx, service.ResultRequest{
				JudgeID:      "judge-1",
				AssignmentID: a.ID,
				Scores:       map[string]float64{"novelty": 5},
			})
			So(err, ShouldWrap, service.ErrValidation)
		})
	})

	Convey("Given a pairwise event", t, func() {
		svc, store := newService(t)
		seedPairwiseEvent(ctx, store, "team-a")

		a, err := svc.NextAssignment(ctx, "ev-1", "judge-1")
		So(err, ShouldBeNil)

		Convey("Then criteria submissions are rejected", func() {
			_, err := svc.SubmitCriteriaResult(ctx, service.ResultRequest{
				JudgeID:      "judge-1",
				AssignmentID: a.ID,
				Scores:       map[string]float64{"impact": 5},
			})
			So(err, ShouldWrap, service.ErrInvalidState)
		})
	})

	Convey("Given an event with no criteria configured", t, func() {
		svc, store := newService(t)
		_ = store.CreateEvent(ctx, model.Event{
			ID: "ev-c", Mode: model.ModeCriteria, Status: model.EventActive,
		})
		_ = store.CreateTeam(ctx, model.Team{ID: "team-a", EventID: "ev-c", Status: model.TeamApproved})
		_ = store.CreateJudge(ctx, model.Judge{ID: "judge-1", EventID: "ev-c", Class: model.ClassExternal})

		a, err := svc.NextAssignment(ctx, "ev-c", "judge-1")
		So(err, ShouldBeNil)

		Convey("Then submissions fail validation", func() {
			_, err := svc.SubmitCriteriaResult(ctx, service.ResultRequest{
				JudgeID:      "judge-1",
				AssignmentID: a.ID,
				Scores:       map[string]float64{"impact": 5},
			})
			So(err, ShouldWrap, service.ErrValidation)
		})
	})
}

func TestTeamStandings(t *testing.T) {
	ctx := context.Background()

	Convey("Given recorded votes", t, func() {
		svc, store := newService(t)
		seedPairwiseEvent(ctx, store, "team-a", "team-b", "team-c")

		a, err := svc.NextAssignment(ctx, "ev-1", "judge-1")
		So(err, ShouldBeNil)
		_, err = svc.RecordVote(ctx, service.VoteRequest{
			EventID:      "ev-1",
			JudgeID:      "judge-1",
			WinnerID:     a.TeamID,
			LoserID:      "team-b",
			AssignmentID: a.ID,
		})
		So(err, ShouldBeNil)

		Convey("When standings are queried", func() {
			got, err := svc.TeamStandings(ctx, "ev-1", 10)

			Convey("Then the winner leads and the loser trails", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 3)
				So(got[0].TeamID, ShouldEqual, "team-a")
				So(got[0].Rank, ShouldEqual, 1)
				So(got[2].TeamID, ShouldEqual, "team-b")
			})
		})

		Convey("When the limit is invalid", func() {
			_, err := svc.TeamStandings(ctx, "ev-1", 0)
			So(err, ShouldWrap, service.ErrValidation)
		})

		Convey("When the event is unknown", func() {
			_, err := svc.TeamStandings(ctx, "missing", 10)
			So(err, ShouldWrap, service.ErrNotFound)
		})
	})
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that owns its store", t, func() {
		So(logger.Init(), ShouldBeNil)
		svc := service.New()

		Convey("Stats before start reports not started", func() {
			stats := svc.Stats(ctx)
			So(stats["started"], ShouldBeFalse)
		})

		Convey("After start the store is reachable and stats are live", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			So(svc.Store(), ShouldNotBeNil)
			stats := svc.Stats(ctx)
			So(stats["started"], ShouldBeTrue)
			So(stats["events"], ShouldEqual, 0)
		})

		Convey("Start is idempotent", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()
		})
	})

	Convey("Given a purge request", t, func() {
		svc, store := newService(t)
		seedPairwiseEvent(ctx, store, "team-a")

		Convey("Purging an existing event removes it", func() {
			So(svc.PurgeEvent(ctx, "ev-1"), ShouldBeNil)
			_, err := store.Event(ctx, "ev-1")
			So(err, ShouldWrap, repository.ErrNotFound)
		})

		Convey("Purging an unknown event is not found", func() {
			So(svc.PurgeEvent(ctx, "missing"), ShouldWrap, service.ErrNotFound)
		})
	})
}
