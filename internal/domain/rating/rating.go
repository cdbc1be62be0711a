// Package rating implements the Elo update rule applied to pairwise votes.
//
// The math is pure: callers read both teams' current entries, apply a vote,
// and persist the returned entries. No state is kept here.
package rating

import "math"

// DefaultK is the Elo K-factor used when callers do not override it.
const DefaultK = 32

// eloDivisor controls rating spread in the expected-score curve.
const eloDivisor = 400

// Entry is a team's rating state as seen by the updater.
type Entry struct {
	Rating     float64
	Confidence int
}

// Expected returns the expected outcome for a player rated ra against an
// opponent rated rb. Expected(a,b) + Expected(b,a) == 1 for all inputs.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/eloDivisor))
}

// Apply applies a single decided vote to the winner and loser entries and
// returns both updated. For a draw both sides move toward a 0.5 outcome.
// Each side's confidence increments by exactly one either way.
func Apply(winner, loser Entry, draw bool, k float64) (Entry, Entry) {
	if k <= 0 {
		k = DefaultK
	}

	winTarget, loseTarget := 1.0, 0.0
	if draw {
		winTarget, loseTarget = 0.5, 0.5
	}

	expWin := Expected(winner.Rating, loser.Rating)
	expLose := Expected(loser.Rating, winner.Rating)

	winner.Rating += k * (winTarget - expWin)
	loser.Rating += k * (loseTarget - expLose)
	winner.Confidence++
	loser.Confidence++

	return winner, loser
}
