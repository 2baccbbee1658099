package sim

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/playmatatu/orbitsim/internal/config"
	"github.com/playmatatu/orbitsim/internal/physics"
	"github.com/playmatatu/orbitsim/internal/scenario"
)

func newTestSim(t *testing.T) *Simulation {
	t.Helper()
	p := physics.DefaultParams()
	v := physics.CircularOrbitSpeed(p.G, 2e30, 20, p.DistanceScale)
	planet := physics.NewBody("planet", physics.NewVec2(20, 0), 1e24, 0.05, physics.DefaultColor)
	planet.Velocity = physics.NewVec2(0, v)
	s, err := New("sim_test", "test", p, []physics.Body{
		physics.NewBody("sun", physics.NewVec2(0, 0), 2e30, 1, physics.DefaultColor),
		planet,
	}, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewAssignsInitialParents(t *testing.T) {
	s := newTestSim(t)
	snap := s.Snapshot(false)
	if snap.Bodies[0].ParentIndex != physics.NoParent {
		t.Errorf("sun should have no parent, got %d", snap.Bodies[0].ParentIndex)
	}
	if snap.Bodies[1].ParentIndex != 0 {
		t.Errorf("planet should orbit the sun, got %d", snap.Bodies[1].ParentIndex)
	}
}

func TestStepAdvancesTimeAndTelemetry(t *testing.T) {
	s := newTestSim(t)
	for i := 0; i < 25; i++ {
		s.Step()
	}
	snap := s.Snapshot(true)
	if snap.Step != 25 {
		t.Errorf("expected step 25, got %d", snap.Step)
	}
	if snap.SimTime < 0.1249 || snap.SimTime > 0.1251 {
		t.Errorf("expected sim time 0.125, got %g", snap.SimTime)
	}
	if len(snap.Bodies[1].Trail) == 0 {
		t.Error("trail should be recorded while stepping")
	}

	samples := s.Telemetry(snap.Bodies[1].ID)
	if len(samples) != 10 {
		t.Fatalf("telemetry should be capped at 10, got %d", len(samples))
	}
	if samples[0].Step != 16 || samples[9].Step != 25 {
		t.Errorf("telemetry should keep the newest samples, got steps %d..%d", samples[0].Step, samples[9].Step)
	}
	if samples[9].Speed <= 0 {
		t.Errorf("planet speed should be positive, got %g", samples[9].Speed)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := newTestSim(t)
	s.Step()
	snap := s.Snapshot(true)
	snap.Bodies[1].Trail[0] = 12345
	snap.Bodies[1].Mass = 1

	again := s.Snapshot(true)
	if again.Bodies[1].Trail[0] == 12345 || again.Bodies[1].Mass == 1 {
		t.Error("mutating a snapshot must not affect the simulation")
	}
}

func TestAddBodyAndSetVelocity(t *testing.T) {
	s := newTestSim(t)
	idx, b, err := s.AddBody(NewBodyRequest{Position: physics.NewVec2(-40, 0)})
	if err != nil {
		t.Fatalf("AddBody: %v", err)
	}
	if idx != 2 || b.ParentIndex != physics.NoParent || !b.Velocity.IsZero() {
		t.Errorf("unexpected new body: idx=%d %+v", idx, b)
	}
	if b.Mass != physics.DefaultCreatedMass || b.Radius != physics.DefaultCreatedSize {
		t.Errorf("defaults not applied: mass=%g radius=%g", b.Mass, b.Radius)
	}

	if _, err := s.SetVelocity(BodyRef{Index: idx}, physics.NewVec2(0, -3)); err != nil {
		t.Fatalf("SetVelocity: %v", err)
	}
	if got := s.Snapshot(false).Bodies[idx].Velocity; got.Y != -3 {
		t.Errorf("velocity not applied: %+v", got)
	}

	if _, _, err := s.AddBody(NewBodyRequest{Mass: -1, Radius: 1}); !errors.Is(err, physics.ErrInvalidBody) {
		t.Errorf("negative mass should be rejected, got %v", err)
	}
	if _, _, err := s.AddBody(NewBodyRequest{Color: "nope"}); !errors.Is(err, physics.ErrInvalidBody) {
		t.Errorf("bad color should be rejected, got %v", err)
	}
	if _, err := s.SetVelocity(BodyRef{Index: 99}, physics.NewVec2(1, 1)); !errors.Is(err, physics.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestAddBodyRollsBackOnBadVelocity(t *testing.T) {
	s := newTestSim(t)
	bad := physics.NewVec2(math.Inf(1), 0)
	_, _, err := s.AddBody(NewBodyRequest{Position: physics.NewVec2(-40, 0), Velocity: &bad})
	if !errors.Is(err, physics.ErrInvalidBody) {
		t.Fatalf("expected ErrInvalidBody, got %v", err)
	}
	if n := len(s.Snapshot(false).Bodies); n != 2 {
		t.Errorf("rejected body must not stay in the store, have %d bodies", n)
	}
}

func TestBodyRefByIDSurvivesRenumbering(t *testing.T) {
	p := physics.DefaultParams()
	s, err := New("sim_ids", "ids", p, []physics.Body{
		physics.NewBody("big", physics.NewVec2(0, 0), 1e24, 1, physics.DefaultColor),
		physics.NewBody("small", physics.NewVec2(1.5, 0), 1e20, 1, physics.DefaultColor),
		physics.NewBody("far", physics.NewVec2(100, 0), 1e20, 0.1, physics.DefaultColor),
	}, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	farID := s.Snapshot(false).Bodies[2].ID

	if res := s.Step(); res.Merge == nil {
		t.Fatal("expected overlapping bodies to merge")
	}

	// The stale index now points past the end of the store.
	if _, err := s.SetVelocity(BodyRef{Index: 2}, physics.NewVec2(0, 1)); !errors.Is(err, physics.ErrIndexOutOfRange) {
		t.Errorf("stale index should be rejected, got %v", err)
	}

	idx, err := s.SetVelocity(BodyRef{ID: farID}, physics.NewVec2(0, 7))
	if err != nil {
		t.Fatalf("SetVelocity by id: %v", err)
	}
	if idx != 1 {
		t.Errorf("expected far body renumbered to 1, got %d", idx)
	}
	snap := s.Snapshot(false)
	if snap.Bodies[1].ID != farID || snap.Bodies[1].Velocity.Y != 7 {
		t.Errorf("velocity landed on the wrong body: %+v", snap.Bodies[1])
	}

	gi, grown, err := s.GrowBody(BodyRef{ID: farID})
	if err != nil || gi != 1 || grown.Radius <= 0.1 {
		t.Errorf("GrowBody by id: idx=%d radius=%g err=%v", gi, grown.Radius, err)
	}
	if _, _, err := s.GrowBody(BodyRef{ID: "missing"}); !errors.Is(err, physics.ErrIndexOutOfRange) {
		t.Errorf("unknown id should be rejected, got %v", err)
	}
}

func TestSetTimestepValidates(t *testing.T) {
	s := newTestSim(t)
	if err := s.SetTimestep(0); !errors.Is(err, ErrInvalidTimestep) {
		t.Errorf("zero timestep should be rejected, got %v", err)
	}
	if err := s.SetTimestep(0.01); err != nil {
		t.Fatalf("SetTimestep: %v", err)
	}
	if got := s.Snapshot(false).Params.Timestep; got != 0.01 {
		t.Errorf("timestep not applied: %g", got)
	}
}

func TestRunSkipsStepsWhilePaused(t *testing.T) {
	s := newTestSim(t)
	s.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond, 0, Hooks{})
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	if step := s.Snapshot(false).Step; step != 0 {
		t.Errorf("paused simulation advanced to step %d", step)
	}

	s.Resume()
	deadline := time.Now().Add(2 * time.Second)
	for s.Snapshot(false).Step == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if s.Snapshot(false).Step == 0 {
		t.Error("resumed simulation should step")
	}
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
}

func (r *recordingBroadcaster) BroadcastToSim(simID string, message interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recordingBroadcaster) HasWatchers(simID string) bool { return true }

func (r *recordingBroadcaster) events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, m := range r.messages {
		if ev, ok := m.(Event); ok {
			out = append(out, ev)
		}
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Gravity:                  physics.GravitationalConstant,
		DistanceScale:            physics.DefaultDistanceScale,
		Timestep:                 physics.DefaultTimestep,
		MergeRadiusDamping:       physics.MergeRadiusDamping,
		HysteresisBonus:          physics.HysteresisBonus,
		TrailMaxPoints:           100,
		TrailLoopCheck:           50,
		FrameIntervalMs:          0, // stepped manually
		HierarchyIntervalSeconds: 0,
		TelemetryCapacity:        100,
		MaxSimulations:           2,
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(nil, nil, testConfig())
	defer m.Shutdown()

	s, err := m.Create(scenario.Default())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get: %v", err)
	}
	if list := m.List(); len(list) != 1 || list[0].Bodies != 5 {
		t.Errorf("unexpected list: %+v", list)
	}

	if _, err := m.Create(scenario.Default()); err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if _, err := m.Create(scenario.Default()); !errors.Is(err, ErrLimitReached) {
		t.Errorf("expected ErrLimitReached, got %v", err)
	}

	if err := m.Delete(s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestManagerStepBroadcastsMerge(t *testing.T) {
	m := NewManager(nil, nil, testConfig())
	defer m.Shutdown()
	b := &recordingBroadcaster{}
	m.SetBroadcaster(b)

	s, err := m.Create(&scenario.Scenario{
		Name: "crash",
		Bodies: []scenario.BodySpec{
			{Name: "big", Pos: [2]float64{0, 0}, Mass: 1e20, Radius: 1},
			{Name: "small", Pos: [2]float64{0.5, 0}, Mass: 1e10, Radius: 1},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	res := m.Step(s)
	if res.Merge == nil {
		t.Fatal("expected overlapping bodies to merge")
	}

	var merges int
	for _, ev := range b.events() {
		if ev.Type == "merge" && ev.SimulationID == s.ID {
			merges++
		}
	}
	if merges != 1 {
		t.Errorf("expected one merge event, got %d", merges)
	}
	if n := len(s.Snapshot(false).Bodies); n != 1 {
		t.Errorf("expected 1 body after merge, got %d", n)
	}
}
