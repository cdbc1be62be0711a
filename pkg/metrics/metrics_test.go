package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a manager with an isolated registry", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(WithPrometheusRegistry(registry))

		Convey("Then it registers its collectors", func() {
			So(manager, ShouldNotBeNil)

			families, err := registry.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})

	Convey("Given custom naming options", t, func() {
		registry := prometheus.NewRegistry()
		manager := NewManager(
			WithNamespace("custom"),
			WithSubsystem("judging"),
			WithHistogramBuckets([]float64{1, 10, 100}),
			WithPrometheusRegistry(registry),
		)

		Convey("Then metric names carry the namespace and subsystem", func() {
			So(manager, ShouldNotBeNil)
			manager.votesRecorded.Inc()

			families, err := registry.Gather()
			So(err, ShouldBeNil)

			found := false
			for _, f := range families {
				if f.GetName() == "custom_judging_votes_recorded_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}

func TestPackageHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Counter helpers do not panic", func() {
			So(RecordAssignmentCreated, ShouldNotPanic)
			So(RecordAssignmentSkipped, ShouldNotPanic)
			So(RecordVoteRecorded, ShouldNotPanic)
			So(RecordResultSubmitted, ShouldNotPanic)
			So(RecordMatchmakingExhausted, ShouldNotPanic)
			So(func() { RecordEngineError("record_vote", "validation") }, ShouldNotPanic)
		})

		Convey("Latency and gauge helpers do not panic", func() {
			So(func() { RecordRatingUpdateLatency(1.5) }, ShouldNotPanic)
			So(func() { RecordMatchmakingLatency(0.2) }, ShouldNotPanic)
			So(func() { RecordStandingsQueryLatency(0.1) }, ShouldNotPanic)
			So(func() { UpdatePendingAssignments(3) }, ShouldNotPanic)
			So(func() { UpdateTeamsTracked(40) }, ShouldNotPanic)
			So(func() { UpdateJudgesTracked(8) }, ShouldNotPanic)
			So(func() { RecordHTTPRequest("votes", "POST", "200") }, ShouldNotPanic)
			So(func() { RecordHTTPRequestDuration("votes", "POST", "200", 4.2) }, ShouldNotPanic)
		})

		Convey("The shared registry gathers engine metrics", func() {
			RecordVoteRecorded()

			families, err := Registry().Gather()
			So(err, ShouldBeNil)

			found := false
			for _, f := range families {
				if f.GetName() == "verdict_engine_votes_recorded_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey("The HTTP handler is available", func() {
			So(Handler(), ShouldNotBeNil)
		})
	})
}
