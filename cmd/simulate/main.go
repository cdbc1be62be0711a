package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/simulate"
	"github.com/okian/verdict/pkg/logger"
)

// Default configuration constants.
const (
	defaultTeams          = 40
	defaultJudges         = 8
	defaultMinComparisons = 5
	defaultDrawRate       = 0.1
	defaultSkipRate       = 0.05
	defaultRunTimeout     = 5 * time.Minute
)

func main() {
	var (
		teams    = flag.Int("teams", defaultTeams, "Number of teams in the simulated event")
		judges   = flag.Int("judges", defaultJudges, "Number of concurrent simulated judges")
		mode     = flag.String("mode", string(model.ModePairwiseJudge), "Event mode: pairwise-participant, pairwise-judge or criteria-based")
		minComps = flag.Int("min-comparisons", defaultMinComparisons, "Comparison target per team before fallback matchmaking")
		drawRate = flag.Float64("draw-rate", defaultDrawRate, "Probability a simulated vote is a draw")
		skipRate = flag.Float64("skip-rate", defaultSkipRate, "Probability a simulated judge skips an assignment")
		seed     = flag.Int64("seed", 0, "Random seed (0 picks one from the clock)")
		logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("logger init failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if err := logger.SetLevelString(*logLevel); err != nil {
		os.Stderr.WriteString("invalid log level: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	report, err := simulate.Run(ctx, simulate.Config{
		TeamCount:      *teams,
		JudgeCount:     *judges,
		Mode:           model.Mode(*mode),
		MinComparisons: *minComps,
		DrawRate:       *drawRate,
		SkipRate:       *skipRate,
		Seed:           *seed,
	})
	if err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	fmt.Printf("assignments: %d\n", report.Stats.Assignments)
	fmt.Printf("votes:       %d\n", report.Stats.Votes)
	fmt.Printf("skips:       %d\n", report.Stats.Skips)
	fmt.Printf("results:     %d\n", report.Stats.Results)
	fmt.Printf("duration:    %s\n", report.Stats.Duration)

	if !report.OK() {
		for _, failure := range report.Failures {
			fmt.Printf("FAIL: %s\n", failure)
		}
		os.Exit(1)
	}
	fmt.Println("all invariants held")
}
