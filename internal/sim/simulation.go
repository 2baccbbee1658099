package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/playmatatu/orbitsim/internal/physics"
)

var (
	ErrNotFound        = errors.New("simulation not found")
	ErrInvalidTimestep = errors.New("timestep must be positive and finite")
	ErrLimitReached    = errors.New("simulation limit reached")
)

// Simulation owns one world. Every mutation and read of the body store goes
// through mu, so a step, a reclassification and an external edit never
// interleave.
type Simulation struct {
	ID         string
	Name       string
	ScenarioID int
	CreatedAt  time.Time

	mu           sync.Mutex
	world        *physics.World
	paused       bool
	step         int64
	simTime      float64
	merges       int
	telemetry    *Telemetry
	lastActivity time.Time
}

// StepResult describes one completed step.
type StepResult struct {
	Step    int64          `json:"step"`
	SimTime float64        `json:"sim_time"`
	Merge   *physics.Merge `json:"merge,omitempty"`
}

// Snapshot is a deep copy of the simulation state, safe to serialise.
type Snapshot struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Step       int64          `json:"step"`
	SimTime    float64        `json:"sim_time"`
	Paused     bool           `json:"paused"`
	Params     physics.Params `json:"params"`
	Merges     int            `json:"merges"`
	Bodies     []physics.Body `json:"bodies"`
	CapturedAt time.Time      `json:"captured_at"`
}

// NewBodyRequest is a body created by user interaction.
type NewBodyRequest struct {
	Name     string        `json:"name"`
	Position physics.Vec2  `json:"position"`
	Mass     float64       `json:"mass"`
	Radius   float64       `json:"radius"`
	Color    string        `json:"color,omitempty"`
	Velocity *physics.Vec2 `json:"velocity,omitempty"`
}

// New builds a simulation and assigns initial parents.
func New(id, name string, p physics.Params, bodies []physics.Body, telemetryCapacity int) (*Simulation, error) {
	w, err := physics.NewWorld(p, bodies...)
	if err != nil {
		return nil, err
	}
	w.Reclassify()
	now := time.Now()
	return &Simulation{
		ID:           id,
		Name:         name,
		CreatedAt:    now,
		world:        w,
		telemetry:    NewTelemetry(telemetryCapacity),
		lastActivity: now,
	}, nil
}

// Step advances the simulation by one timestep regardless of the pause flag.
func (s *Simulation) Step() StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := s.world.Step()
	s.step++
	s.simTime += s.world.Params.Timestep
	if report.Merge != nil {
		s.merges++
		s.telemetry.forget(report.Merge.RemovedID)
	}
	for _, b := range s.world.Store().Bodies() {
		s.telemetry.record(b.ID, Sample{Step: s.step, Time: s.simTime, Speed: b.Speed()})
	}
	return StepResult{Step: s.step, SimTime: s.simTime, Merge: report.Merge}
}

// Reclassify recomputes every body's dominant attractor.
func (s *Simulation) Reclassify() []physics.ParentChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world.Reclassify()
}

// AddBody appends a body at rest (unless a velocity is given) and returns
// its index and a copy of it.
func (s *Simulation) AddBody(req NewBodyRequest) (int, physics.Body, error) {
	color := physics.RandomColor()
	if req.Color != "" {
		c, err := physics.ParseColor(req.Color)
		if err != nil {
			return -1, physics.Body{}, fmt.Errorf("%w: color %q", physics.ErrInvalidBody, req.Color)
		}
		color = c
	}
	if req.Mass == 0 {
		req.Mass = physics.DefaultCreatedMass
	}
	if req.Radius == 0 {
		req.Radius = physics.DefaultCreatedSize
	}
	if !req.Position.IsFinite() {
		return -1, physics.Body{}, fmt.Errorf("%w: position must be finite", physics.ErrInvalidBody)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.world.Store()
	if req.Name == "" {
		req.Name = fmt.Sprintf("body-%d", store.Len()+1)
	}
	idx, err := store.Add(req.Name, req.Position, req.Mass, req.Radius, color)
	if err != nil {
		return -1, physics.Body{}, err
	}
	if req.Velocity != nil {
		if err := store.SetVelocity(idx, *req.Velocity); err != nil {
			// idx was just appended.
			_ = store.Remove(idx)
			return -1, physics.Body{}, err
		}
	}
	s.lastActivity = time.Now()
	return idx, *store.At(idx), nil
}

// BodyRef addresses a body by ID or, when ID is empty, by index. IDs
// survive the renumbering a merge causes; indices do not.
type BodyRef struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
}

// resolve maps a reference to a current index. Callers hold s.mu.
func (s *Simulation) resolve(ref BodyRef) (int, error) {
	if ref.ID == "" {
		return ref.Index, nil
	}
	idx := s.world.Store().IndexOf(ref.ID)
	if idx < 0 {
		return -1, fmt.Errorf("%w: no body with id %s", physics.ErrIndexOutOfRange, ref.ID)
	}
	return idx, nil
}

// SetVelocity sets the velocity of the referenced body and returns its
// current index.
func (s *Simulation) SetVelocity(ref BodyRef, v physics.Vec2) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.resolve(ref)
	if err != nil {
		return -1, err
	}
	s.lastActivity = time.Now()
	return idx, s.world.Store().SetVelocity(idx, v)
}

// GrowBody applies one growth step to the referenced body and returns a
// copy of it.
func (s *Simulation) GrowBody(ref BodyRef) (int, physics.Body, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.resolve(ref)
	if err != nil {
		return -1, physics.Body{}, err
	}
	store := s.world.Store()
	if err := store.Grow(idx); err != nil {
		return -1, physics.Body{}, err
	}
	s.lastActivity = time.Now()
	b := *store.At(idx)
	b.Trail = []float64{}
	return idx, b, nil
}

// SetTimestep changes dt for subsequent steps.
func (s *Simulation) SetTimestep(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidTimestep, dt)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.world.Params.Timestep = dt
	s.lastActivity = time.Now()
	return nil
}

func (s *Simulation) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *Simulation) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

func (s *Simulation) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Snapshot copies the current state. Trails are omitted unless withTrails.
func (s *Simulation) Snapshot(withTrails bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.world.Store().Bodies()
	bodies := make([]physics.Body, len(src))
	for i, b := range src {
		bodies[i] = *b
		if withTrails {
			bodies[i].Trail = append(make([]float64, 0, len(b.Trail)), b.Trail...)
		} else {
			bodies[i].Trail = []float64{}
		}
	}

	return Snapshot{
		ID:         s.ID,
		Name:       s.Name,
		Step:       s.step,
		SimTime:    s.simTime,
		Paused:     s.paused,
		Params:     s.world.Params,
		Merges:     s.merges,
		Bodies:     bodies,
		CapturedAt: time.Now(),
	}
}

// Telemetry returns the recorded speed samples for a body.
func (s *Simulation) Telemetry(bodyID string) []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.telemetry.Series(bodyID)
}

// LastActivity is the time of the last external mutation.
func (s *Simulation) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}
