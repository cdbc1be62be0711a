package model

// Criterion is one weighted scoring dimension for criteria-based judging.
// Raw scores must fall within [MinScore, MaxScore]; MinScore < MaxScore.
type Criterion struct {
	ID       string
	EventID  string
	Name     string
	Weight   float64
	MinScore float64
	MaxScore float64
}
