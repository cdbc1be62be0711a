// Package types contains common read-side types used across the application.
package types

// StandingEntry is one row of an event's ranked standings.
type StandingEntry struct {
	Rank       int     `json:"rank"`
	TeamID     string  `json:"team_id"`
	Rating     float64 `json:"rating"`
	Confidence int     `json:"confidence"`
}
