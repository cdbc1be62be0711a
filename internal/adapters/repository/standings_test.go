package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	repository "github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStandingsOrdering(t *testing.T) {
	ctx := context.Background()

	Convey("Given approved teams with distinct ratings", t, func() {
		s := newStore(t)
		seedEvent(ctx, s, "ev-1")

		teams := []model.Team{
			{ID: "team-a", EventID: "ev-1", Status: model.TeamApproved, Rating: 1016, Confidence: 1},
			{ID: "team-b", EventID: "ev-1", Status: model.TeamApproved, Rating: 984, Confidence: 1},
			{ID: "team-c", EventID: "ev-1", Status: model.TeamApproved, Rating: 1000, Confidence: 0},
		}
		for _, team := range teams {
			So(s.CreateTeam(ctx, team), ShouldBeNil)
		}

		Convey("When standings are queried", func() {
			got, err := s.Standings(ctx, "ev-1", 10)

			Convey("Then teams come back in descending rating order with 1-based ranks", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 3)
				So(got[0].TeamID, ShouldEqual, "team-a")
				So(got[1].TeamID, ShouldEqual, "team-c")
				So(got[2].TeamID, ShouldEqual, "team-b")
				So(got[0].Rank, ShouldEqual, 1)
				So(got[2].Rank, ShouldEqual, 3)
			})
		})

		Convey("When a limit smaller than the field is given", func() {
			got, err := s.Standings(ctx, "ev-1", 2)

			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 2)
			So(got[0].TeamID, ShouldEqual, "team-a")
		})

		Convey("When a rating update changes the order", func() {
			So(s.UpdateTeamRating(ctx, "team-b", 1100, 2), ShouldBeNil)

			got, err := s.Standings(ctx, "ev-1", 10)
			So(err, ShouldBeNil)
			So(got[0].TeamID, ShouldEqual, "team-b")
			So(got[0].Rating, ShouldAlmostEqual, 1100, 1e-9)
			So(got[0].Confidence, ShouldEqual, 2)
		})
	})

	Convey("Given teams tied on rating", t, func() {
		s := newStore(t)
		seedEvent(ctx, s, "ev-1")

		So(s.CreateTeam(ctx, model.Team{ID: "team-b", EventID: "ev-1", Status: model.TeamApproved, Rating: 1000, Confidence: 3}), ShouldBeNil)
		So(s.CreateTeam(ctx, model.Team{ID: "team-a", EventID: "ev-1", Status: model.TeamApproved, Rating: 1000, Confidence: 1}), ShouldBeNil)
		So(s.CreateTeam(ctx, model.Team{ID: "team-c", EventID: "ev-1", Status: model.TeamApproved, Rating: 1000, Confidence: 3}), ShouldBeNil)

		Convey("When standings are queried", func() {
			got, err := s.Standings(ctx, "ev-1", 10)
			So(err, ShouldBeNil)

			Convey("Then higher confidence ranks first and id breaks the final tie", func() {
				So(got[0].TeamID, ShouldEqual, "team-b")
				So(got[1].TeamID, ShouldEqual, "team-c")
				So(got[2].TeamID, ShouldEqual, "team-a")
			})
		})
	})

	Convey("Given unapproved teams in the roster", t, func() {
		s := newStore(t)
		seedEvent(ctx, s, "ev-1")

		So(s.CreateTeam(ctx, model.Team{ID: "team-a", EventID: "ev-1", Status: model.TeamApproved, Rating: 1000}), ShouldBeNil)
		So(s.CreateTeam(ctx, model.Team{ID: "team-p", EventID: "ev-1", Status: model.TeamPending, Rating: 2000}), ShouldBeNil)

		Convey("Then only approved teams appear in standings", func() {
			got, err := s.Standings(ctx, "ev-1", 10)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 1)
			So(got[0].TeamID, ShouldEqual, "team-a")
		})
	})

	Convey("Given invalid queries", t, func() {
		s := newStore(t)
		seedEvent(ctx, s, "ev-1")

		Convey("A non-positive limit is rejected", func() {
			_, err := s.Standings(ctx, "ev-1", 0)
			So(err, ShouldWrap, repository.ErrInvalidLimit)
		})

		Convey("An unknown event is not found", func() {
			_, err := s.Standings(ctx, "missing", 10)
			So(err, ShouldWrap, repository.ErrNotFound)
		})
	})

	Convey("Given standings read concurrently with rating updates", t, func() {
		s := newStore(t)
		seedEvent(ctx, s, "ev-1")

		const n = 200
		for i := 0; i < n; i++ {
			So(s.CreateTeam(ctx, model.Team{
				ID:      fmt.Sprintf("team-%03d", i),
				EventID: "ev-1",
				Status:  model.TeamApproved,
				Rating:  1000 + float64(i),
			}), ShouldBeNil)
		}

		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_, _ = s.Standings(ctx, "ev-1", n)
				}
			}
		}()

		Convey("Then each update is visible to the writer's next read", func() {
			for i := 1; i <= 200; i++ {
				So(s.UpdateTeamRating(ctx, "team-000", 1000, i), ShouldBeNil)

				got, err := s.Standings(ctx, "ev-1", n)
				So(err, ShouldBeNil)

				var confidence int
				for _, e := range got {
					if e.TeamID == "team-000" {
						confidence = e.Confidence
					}
				}
				So(confidence, ShouldEqual, i)
			}
			close(done)
			wg.Wait()
		})
	})

	Convey("Given a large field of teams", t, func() {
		s := newStore(t)
		seedEvent(ctx, s, "ev-1")

		const n = 250
		for i := 0; i < n; i++ {
			So(s.CreateTeam(ctx, model.Team{
				ID:      fmt.Sprintf("team-%03d", i),
				EventID: "ev-1",
				Status:  model.TeamApproved,
				Rating:  1000 + float64(i),
			}), ShouldBeNil)
		}

		Convey("When the full field is queried", func() {
			got, err := s.Standings(ctx, "ev-1", n)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, n)

			Convey("Then the order is strictly descending by rating", func() {
				for i := 1; i < len(got); i++ {
					So(got[i-1].Rating, ShouldBeGreaterThan, got[i].Rating)
					So(got[i].Rank, ShouldEqual, i+1)
				}
			})
		})
	})
}
