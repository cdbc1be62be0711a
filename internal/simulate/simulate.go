// Package simulate drives a synthetic judging session against an in-process
// engine and verifies the engine's invariants afterwards. It exists for load
// and correctness rehearsals before a live event.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/roster"
	"github.com/okian/verdict/pkg/logger"
)

// Config controls a simulation run.
type Config struct {
	TeamCount      int
	JudgeCount     int
	Mode           model.Mode
	MinComparisons int
	DrawRate       float64 // probability a vote is a draw
	SkipRate       float64 // probability a judge skips an assignment
	Seed           int64
}

// Stats aggregates what happened during a run.
type Stats struct {
	Assignments int
	Votes       int
	Skips       int
	Results     int
	Exhausted   int
	Duration    time.Duration
}

// Report is the outcome of a run: raw stats plus invariant checks.
type Report struct {
	Stats    Stats
	Failures []string
}

// OK reports whether every invariant held.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

const simEventID = "sim-event"

// Run seeds a synthetic event, lets every judge work until exhaustion and
// verifies the results.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.TeamCount < 2 || cfg.JudgeCount < 1 {
		return nil, fmt.Errorf("simulation needs at least two teams and one judge")
	}
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	svc := service.New(
		service.WithRand(service.SeededSource(seed)),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	defer svc.Stop()

	fixture := buildFixture(cfg)
	if err := roster.Seed(ctx, svc.Store(), fixture); err != nil {
		return nil, err
	}

	log := logger.Get()
	log.Info(ctx, "simulation starting",
		logger.Int("teams", cfg.TeamCount),
		logger.Int("judges", cfg.JudgeCount),
		logger.String("mode", string(cfg.Mode)),
	)

	start := time.Now()
	stats := &Stats{}
	var statsMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < cfg.JudgeCount; i++ {
		wg.Add(1)
		go func(judgeIdx int) {
			defer wg.Done()
			local := runJudge(ctx, svc, cfg, judgeIdx, rand.New(rand.NewSource(seed+int64(judgeIdx)+1))) //nolint:gosec // simulation randomness
			statsMu.Lock()
			stats.Assignments += local.Assignments
			stats.Votes += local.Votes
			stats.Skips += local.Skips
			stats.Results += local.Results
			stats.Exhausted += local.Exhausted
			statsMu.Unlock()
		}(i)
	}
	wg.Wait()
	stats.Duration = time.Since(start)

	report := &Report{Stats: *stats}
	report.Failures = verify(ctx, svc, cfg)

	log.Info(ctx, "simulation finished",
		logger.Int("assignments", stats.Assignments),
		logger.Int("votes", stats.Votes),
		logger.Int("skips", stats.Skips),
		logger.Int("results", stats.Results),
		logger.Int("failures", len(report.Failures)),
	)
	return report, nil
}

// runJudge loops one judge through request/resolve until no eligible team
// remains. The iteration bound guards against a pathological skip loop.
func runJudge(ctx context.Context, svc *service.Service, cfg Config, judgeIdx int, rng *rand.Rand) Stats {
	var stats Stats
	judgeID := judgeName(judgeIdx)
	prevTeam := ""
	maxIters := cfg.TeamCount * 4

	for iter := 0; iter < maxIters; iter++ {
		a, err := svc.NextAssignment(ctx, simEventID, judgeID)
		if err != nil {
			if errors.Is(err, service.ErrExhausted) {
				stats.Exhausted++
			}
			return stats
		}
		stats.Assignments++

		if cfg.SkipRate > 0 && rng.Float64() < cfg.SkipRate {
			if err := svc.SkipAssignment(ctx, judgeID, a.ID); err == nil {
				stats.Skips++
			}
			continue
		}

		if cfg.Mode == model.ModeCriteria {
			if _, err := svc.SubmitCriteriaResult(ctx, service.ResultRequest{
				JudgeID:      judgeID,
				AssignmentID: a.ID,
				Scores: map[string]float64{
					"crit-impact":    float64(rng.Intn(10) + 1),
					"crit-execution": float64(rng.Intn(10) + 1),
				},
				Comment: "simulated",
			}); err == nil {
				stats.Results++
			}
			continue
		}

		opponent := prevTeam
		if opponent == "" || opponent == a.TeamID {
			opponent = otherTeam(cfg, a.TeamID, rng)
		}
		winner, loser := a.TeamID, opponent
		if rng.Intn(2) == 0 {
			winner, loser = loser, winner
		}
		if _, err := svc.RecordVote(ctx, service.VoteRequest{
			EventID:      simEventID,
			JudgeID:      judgeID,
			WinnerID:     winner,
			LoserID:      loser,
			Draw:         cfg.DrawRate > 0 && rng.Float64() < cfg.DrawRate,
			AssignmentID: a.ID,
		}); err == nil {
			stats.Votes++
			prevTeam = a.TeamID
		}
	}
	return stats
}

func buildFixture(cfg Config) *roster.Fixture {
	f := &roster.Fixture{
		Event: roster.EventSpec{
			ID:             simEventID,
			Name:           "simulated event",
			Mode:           string(cfg.Mode),
			Status:         string(model.EventActive),
			MinComparisons: cfg.MinComparisons,
		},
	}
	for i := 0; i < cfg.TeamCount; i++ {
		f.Teams = append(f.Teams, roster.TeamSpec{
			ID:     teamName(i),
			Name:   fmt.Sprintf("Team %d", i),
			Status: string(model.TeamApproved),
		})
	}
	class := model.ClassExternal
	if cfg.Mode == model.ModePairwiseParticipant {
		class = model.ClassParticipant
	}
	for i := 0; i < cfg.JudgeCount; i++ {
		f.Judges = append(f.Judges, roster.JudgeSpec{
			ID:    judgeName(i),
			Name:  fmt.Sprintf("Judge %d", i),
			Class: string(class),
		})
	}
	if cfg.Mode == model.ModeCriteria {
		f.Criteria = []roster.CriterionSpec{
			{ID: "crit-impact", Name: "Impact", Weight: 2, MinScore: 1, MaxScore: 10},
			{ID: "crit-execution", Name: "Execution", Weight: 1, MinScore: 1, MaxScore: 10},
		}
	}
	return f
}

func teamName(i int) string  { return fmt.Sprintf("team-%03d", i) }
func judgeName(i int) string { return fmt.Sprintf("judge-%03d", i) }

func otherTeam(cfg Config, exclude string, rng *rand.Rand) string {
	for {
		candidate := teamName(rng.Intn(cfg.TeamCount))
		if candidate != exclude {
			return candidate
		}
	}
}
