// Package roster loads event fixtures: the event record plus the team,
// judge and criterion rosters the engine consumes from the surrounding
// product. Fixtures are YAML files; see Load.
package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/model"
)

// Sentinel kinds for roster errors.
var (
	ErrLoadFixture    = errors.New("load fixture failed")
	ErrInvalidFixture = errors.New("invalid fixture")
)

// EventSpec is the event block of a fixture.
type EventSpec struct {
	ID             string `koanf:"id" validate:"required"`
	Name           string `koanf:"name"`
	Mode           string `koanf:"mode" validate:"required,oneof=pairwise-participant pairwise-judge criteria-based"`
	Status         string `koanf:"status" validate:"omitempty,oneof=setup active completed"`
	StartsAt       string `koanf:"starts_at" validate:"omitempty"`
	EndsAt         string `koanf:"ends_at" validate:"omitempty"`
	MinComparisons int    `koanf:"min_comparisons" validate:"gte=0"`
	RoomCount      int    `koanf:"room_count" validate:"gte=0"`
}

// TeamSpec is one team row of a fixture.
type TeamSpec struct {
	ID       string `koanf:"id" validate:"required"`
	Name     string `koanf:"name"`
	Status   string `koanf:"status" validate:"omitempty,oneof=pending approved rejected"`
	Location string `koanf:"location"`
}

// JudgeSpec is one judge row of a fixture.
type JudgeSpec struct {
	ID    string `koanf:"id" validate:"required"`
	Name  string `koanf:"name"`
	Class string `koanf:"class" validate:"required,oneof=internal-participant external"`
}

// CriterionSpec is one criterion row of a fixture.
type CriterionSpec struct {
	ID       string  `koanf:"id" validate:"required"`
	Name     string  `koanf:"name"`
	Weight   float64 `koanf:"weight" validate:"gt=0"`
	MinScore float64 `koanf:"min_score"`
	MaxScore float64 `koanf:"max_score"`
}

// Fixture is a complete event setup.
type Fixture struct {
	Event    EventSpec       `koanf:"event" validate:"required"`
	Teams    []TeamSpec      `koanf:"teams" validate:"min=1,dive"`
	Judges   []JudgeSpec     `koanf:"judges" validate:"min=1,dive"`
	Criteria []CriterionSpec `koanf:"criteria" validate:"dive"`
}

// Load reads and validates a fixture from a YAML file.
func Load(path string) (*Fixture, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFixture, err)
	}

	var f Fixture
	if err := k.UnmarshalWithConf("", &f, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFixture, err)
	}

	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate applies structural rules plus the cross-field checks the
// validator tags cannot express.
func Validate(f *Fixture) error {
	if err := validator.New().Struct(f); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}

	if mode := model.Mode(f.Event.Mode); mode == model.ModeCriteria && len(f.Criteria) == 0 {
		return fmt.Errorf("%w: criteria-based event needs at least one criterion", ErrInvalidFixture)
	}

	seen := make(map[string]bool)
	for _, t := range f.Teams {
		if seen["team:"+t.ID] {
			return fmt.Errorf("%w: duplicate team id %q", ErrInvalidFixture, t.ID)
		}
		seen["team:"+t.ID] = true
	}
	for _, j := range f.Judges {
		if seen["judge:"+j.ID] {
			return fmt.Errorf("%w: duplicate judge id %q", ErrInvalidFixture, j.ID)
		}
		seen["judge:"+j.ID] = true
	}
	for _, c := range f.Criteria {
		if seen["criterion:"+c.ID] {
			return fmt.Errorf("%w: duplicate criterion id %q", ErrInvalidFixture, c.ID)
		}
		seen["criterion:"+c.ID] = true
		if c.MinScore >= c.MaxScore {
			return fmt.Errorf("%w: criterion %q: min_score must be below max_score", ErrInvalidFixture, c.ID)
		}
	}

	if _, err := parseTime(f.Event.StartsAt); err != nil {
		return fmt.Errorf("%w: starts_at: %w", ErrInvalidFixture, err)
	}
	if _, err := parseTime(f.Event.EndsAt); err != nil {
		return fmt.Errorf("%w: ends_at: %w", ErrInvalidFixture, err)
	}
	return nil
}

// Seed writes the fixture into the store. The event defaults to active and
// teams default to approved when the fixture leaves status fields empty.
func Seed(ctx context.Context, store repository.Store, f *Fixture) error {
	startsAt, _ := parseTime(f.Event.StartsAt)
	endsAt, _ := parseTime(f.Event.EndsAt)

	status := model.EventStatus(f.Event.Status)
	if status == "" {
		status = model.EventActive
	}
	event := model.Event{
		ID:       f.Event.ID,
		Name:     f.Event.Name,
		Mode:     model.Mode(f.Event.Mode),
		Status:   status,
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Settings: model.Settings{
			MinComparisons: f.Event.MinComparisons,
			RoomCount:      f.Event.RoomCount,
		},
	}
	if err := store.CreateEvent(ctx, event); err != nil {
		return err
	}

	for _, t := range f.Teams {
		ts := model.TeamStatus(t.Status)
		if ts == "" {
			ts = model.TeamApproved
		}
		if err := store.CreateTeam(ctx, model.Team{
			ID:       t.ID,
			EventID:  event.ID,
			Name:     t.Name,
			Status:   ts,
			Location: t.Location,
		}); err != nil {
			return err
		}
	}
	for _, j := range f.Judges {
		if err := store.CreateJudge(ctx, model.Judge{
			ID:      j.ID,
			EventID: event.ID,
			Name:    j.Name,
			Class:   model.JudgeClass(j.Class),
		}); err != nil {
			return err
		}
	}
	for _, c := range f.Criteria {
		if err := store.CreateCriterion(ctx, model.Criterion{
			ID:       c.ID,
			EventID:  event.ID,
			Name:     c.Name,
			Weight:   c.Weight,
			MinScore: c.MinScore,
			MaxScore: c.MaxScore,
		}); err != nil {
			return err
		}
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
