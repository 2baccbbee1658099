package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/playmatatu/orbitsim/internal/physics"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// BodySpec is the initial state of one body
type BodySpec struct {
	Name   string     `json:"name"`
	Pos    [2]float64 `json:"pos"`
	Vel    [2]float64 `json:"vel"`
	Mass   float64    `json:"mass"`
	Radius float64    `json:"radius"`
	Color  string     `json:"color,omitempty"`
}

// Scenario is an initial body set plus the timestep to run it at
type Scenario struct {
	ID          int        `json:"id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Timestep    float64    `json:"dt"`
	AutoOrbit   bool       `json:"auto_orbit,omitempty"`
	Bodies      []BodySpec `json:"bodies"`
}

// Validate checks the scenario can be turned into a world
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidScenario)
	}
	if s.Timestep < 0 || math.IsNaN(s.Timestep) || math.IsInf(s.Timestep, 0) {
		return fmt.Errorf("%w: timestep %g", ErrInvalidScenario, s.Timestep)
	}
	for i, b := range s.Bodies {
		if !(b.Mass > 0) || !(b.Radius > 0) {
			return fmt.Errorf("%w: body %d (%s) needs positive mass and radius", ErrInvalidScenario, i, b.Name)
		}
	}
	return nil
}

// ApplyAutoOrbit gives every body at rest (except the first) the velocity of
// a counter-clockwise circular orbit around the first body.
func (s *Scenario) ApplyAutoOrbit(g, scale float64) {
	if len(s.Bodies) == 0 {
		return
	}
	central := s.Bodies[0]
	for i := 1; i < len(s.Bodies); i++ {
		b := &s.Bodies[i]
		if b.Vel[0] != 0 || b.Vel[1] != 0 {
			continue
		}
		dx := b.Pos[0] - central.Pos[0]
		dy := b.Pos[1] - central.Pos[1]
		r := math.Hypot(dx, dy)
		if r == 0 {
			continue
		}
		v := physics.CircularOrbitSpeed(g, central.Mass, r, scale)
		b.Vel[0] = central.Vel[0] - dy/r*v
		b.Vel[1] = central.Vel[1] + dx/r*v
	}
}

// Build converts the specs into engine bodies. Unparseable colors fall back
// to the default.
func (s *Scenario) Build() ([]physics.Body, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	bodies := make([]physics.Body, 0, len(s.Bodies))
	for i, spec := range s.Bodies {
		color := physics.RandomColor()
		if spec.Color != "" {
			color, _ = physics.ParseColor(spec.Color)
		}
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("body-%d", i+1)
		}
		b := physics.NewBody(name, physics.NewVec2(spec.Pos[0], spec.Pos[1]), spec.Mass, spec.Radius, color)
		b.Velocity = physics.NewVec2(spec.Vel[0], spec.Vel[1])
		bodies = append(bodies, b)
	}
	return bodies, nil
}

// LoadFile reads a JSON scenario file
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a JSON scenario
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Default is the built-in five body system: a star, two planets, a small
// moonlet and a rogue body on an inbound path.
func Default() *Scenario {
	return &Scenario{
		Name:        "default",
		Description: "Star with two planets, a moonlet and a rogue body",
		Timestep:    physics.DefaultTimestep,
		Bodies: []BodySpec{
			{Name: "Ember", Pos: [2]float64{-50.5, 6.8}, Vel: [2]float64{0, -7.5}, Mass: 6e24, Radius: 0.5, Color: "#ff0000"},
			{Name: "Verdant", Pos: [2]float64{20, 0}, Vel: [2]float64{0, 10}, Mass: 8e23, Radius: 0.05, Color: "#00ff00"},
			{Name: "Azure", Pos: [2]float64{-50, -60}, Mass: 4.8e20, Radius: 0.004, Color: "#0000ff"},
			{Name: "Sol", Pos: [2]float64{0, 0.8}, Mass: 1.989e30, Radius: 3.5, Color: "#ffffcc"},
			{Name: "Rogue", Pos: [2]float64{-100, 5}, Vel: [2]float64{2, 5}, Mass: 4.8e22, Radius: 0.01, Color: "#ff0000"},
		},
	}
}
