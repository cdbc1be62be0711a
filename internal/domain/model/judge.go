package model

// JudgeClass distinguishes participant judges from external ones.
type JudgeClass string

// Judge classes.
const (
	ClassParticipant JudgeClass = "internal-participant"
	ClassExternal    JudgeClass = "external"
)

// Valid reports whether the class is known.
func (c JudgeClass) Valid() bool {
	return c == ClassParticipant || c == ClassExternal
}

// Judge evaluates teams at an event. A judge has at most one outstanding
// assignment; CurrentAssignment is empty whenever none is pending.
type Judge struct {
	ID      string
	EventID string
	Name    string
	Class   JudgeClass

	// CurrentAssignment holds the id of the judge's pending assignment,
	// or "" when the judge is free. Updated only by the three assignment
	// state transitions (create, complete, skip).
	CurrentAssignment string
}
