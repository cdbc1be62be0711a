package model

// TeamStatus tracks roster approval for judging.
type TeamStatus string

// Team approval states.
const (
	TeamPending  TeamStatus = "pending"
	TeamApproved TeamStatus = "approved"
	TeamRejected TeamStatus = "rejected"
)

// Team is a competing entry. Rating and Confidence are mutated only by the
// comparison resolver; both start at zero before the first comparison.
type Team struct {
	ID      string
	EventID string
	Name    string
	Status  TeamStatus

	// Rating is the relative-strength score derived from pairwise votes.
	Rating float64
	// Confidence counts the comparisons contributing to Rating.
	Confidence int

	// Location is an optional physical table/room token.
	Location string
}
