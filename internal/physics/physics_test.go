package physics

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-9

func approxEqual(a, b, tol float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol*scale
}

// Helper to build a store from bodies, failing the test on invalid input.
func mustStore(t *testing.T, bodies ...Body) *Store {
	t.Helper()
	s, err := NewStore(bodies...)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func body(name string, x, y, mass, radius float64) Body {
	return NewBody(name, NewVec2(x, y), mass, radius, DefaultColor)
}

func movingBody(name string, x, y, vx, vy, mass, radius float64) Body {
	b := body(name, x, y, mass, radius)
	b.Velocity = NewVec2(vx, vy)
	return b
}

func TestMergeConservesMomentumAndMass(t *testing.T) {
	s := mustStore(t,
		movingBody("heavy", 0, 0, 2, -1, 3, 1),
		movingBody("light", 0.5, 0, -4, 5, 1, 1),
	)

	m, ok := ResolveCollision(s, MergeRadiusDamping)
	if !ok {
		t.Fatal("expected overlapping bodies to merge")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 body after merge, got %d", s.Len())
	}

	survivor := s.At(0)
	if survivor.Name != "heavy" {
		t.Errorf("heavier body should survive, got %s", survivor.Name)
	}
	if !approxEqual(survivor.Mass, 4, tolerance) {
		t.Errorf("mass not conserved: got %g want 4", survivor.Mass)
	}
	wantVX := (2.0*3 + -4.0*1) / 4
	wantVY := (-1.0*3 + 5.0*1) / 4
	if !approxEqual(survivor.Velocity.X, wantVX, tolerance) || !approxEqual(survivor.Velocity.Y, wantVY, tolerance) {
		t.Errorf("momentum not conserved: got (%g,%g) want (%g,%g)", survivor.Velocity.X, survivor.Velocity.Y, wantVX, wantVY)
	}
	if !approxEqual(survivor.Radius, 1.1, tolerance) {
		t.Errorf("radius should grow by damped fraction: got %g want 1.1", survivor.Radius)
	}
	if m.RemovedIndex != 1 || m.SurvivorIndex != 0 {
		t.Errorf("unexpected merge indices: %+v", m)
	}
}

func TestMergeTieKeepsOuterScanIndex(t *testing.T) {
	s := mustStore(t, body("first", 0, 0, 5, 1), body("second", 0.1, 0, 5, 1))
	secondID := s.At(1).ID

	m, ok := ResolveCollision(s, MergeRadiusDamping)
	if !ok {
		t.Fatal("expected merge")
	}
	if m.SurvivorIndex != 1 || m.RemovedIndex != 0 {
		t.Errorf("equal masses should keep the outer scan index: %+v", m)
	}
	if s.At(0).ID != secondID {
		t.Errorf("survivor should be the second body")
	}
}

func TestMergeRenumbersParents(t *testing.T) {
	// A(0) overlaps the heavier B(1); C(2) is far away.
	s := mustStore(t,
		body("A", 0, 0, 1, 1),
		body("B", 0.5, 0, 100, 1),
		body("C", 50, 0, 1, 1),
	)
	s.At(1).ParentIndex = 0
	s.At(1).Trail = []float64{1, 2, 3, 4}
	s.At(2).ParentIndex = 1
	s.At(2).Trail = []float64{5, 6}

	m, ok := ResolveCollision(s, MergeRadiusDamping)
	if !ok {
		t.Fatal("expected merge")
	}
	if m.RemovedIndex != 0 {
		t.Fatalf("expected A (index 0) to be removed, got %+v", m)
	}

	b, c := s.At(0), s.At(1)
	if b.Name != "B" || c.Name != "C" {
		t.Fatalf("unexpected order after removal: %s, %s", b.Name, c.Name)
	}
	if b.ParentIndex != NoParent {
		t.Errorf("B's parent was removed, expected -1 got %d", b.ParentIndex)
	}
	if len(b.Trail) != 0 {
		t.Errorf("B's trail should be cleared, got %d values", len(b.Trail))
	}
	if c.ParentIndex != 0 {
		t.Errorf("C's parent should shift to 0, got %d", c.ParentIndex)
	}
	if len(c.Trail) != 2 {
		t.Errorf("C's trail should be untouched, got %d values", len(c.Trail))
	}
}

func TestCollisionBoundary(t *testing.T) {
	const eps = 1e-9

	inside := mustStore(t, body("a", 0, 0, 1, 1), body("b", 2-eps, 0, 2, 1))
	if _, ok := ResolveCollision(inside, MergeRadiusDamping); !ok {
		t.Error("bodies closer than the radius sum should merge")
	}

	outside := mustStore(t, body("a", 0, 0, 1, 1), body("b", 2+eps, 0, 2, 1))
	if _, ok := ResolveCollision(outside, MergeRadiusDamping); ok {
		t.Error("bodies farther than the radius sum should not merge")
	}
	if outside.Len() != 2 {
		t.Errorf("no body should be removed, have %d", outside.Len())
	}
}

func TestOneMergePerStep(t *testing.T) {
	// Two separate overlapping pairs: only one may merge per step.
	w, err := NewWorld(DefaultParams(),
		body("a", 0, 0, 1e10, 1),
		body("b", 0.5, 0, 1e10, 1),
		body("c", 100, 0, 1e10, 1),
		body("d", 100.5, 0, 1e10, 1),
	)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}

	if r := w.Step(); !r.Merged {
		t.Fatal("expected a merge on the first step")
	}
	if w.Store().Len() != 3 {
		t.Fatalf("expected exactly one merge, have %d bodies", w.Store().Len())
	}
	if r := w.Step(); !r.Merged {
		t.Fatal("expected the pending merge on the second step")
	}
	if w.Store().Len() != 2 {
		t.Errorf("expected 2 bodies after two steps, have %d", w.Store().Len())
	}
}

func TestComputeForcesNewtonian(t *testing.T) {
	bodies := []*Body{
		{Position: NewVec2(0, 0), Mass: 2e20, Radius: 1},
		{Position: NewVec2(3, 4), Mass: 5e22, Radius: 1},
	}
	ComputeForces(bodies, GravitationalConstant, DefaultDistanceScale)

	r := 5 * DefaultDistanceScale
	want := GravitationalConstant * 2e20 * 5e22 / (r * r)
	got := bodies[0].Force.Magnitude()
	if !approxEqual(got, want, 1e-12) {
		t.Errorf("force magnitude: got %g want %g", got, want)
	}
	if !approxEqual(bodies[0].Force.X/got, 0.6, 1e-12) || !approxEqual(bodies[0].Force.Y/got, 0.8, 1e-12) {
		t.Errorf("force should point at the other body: %+v", bodies[0].Force)
	}
	sum := bodies[0].Force.Plus(bodies[1].Force)
	if math.Abs(sum.X) > want*1e-12 || math.Abs(sum.Y) > want*1e-12 {
		t.Errorf("pair forces should cancel, sum=%+v", sum)
	}
}

func TestComputeForcesSkipsCoincidentBodies(t *testing.T) {
	bodies := []*Body{
		{Position: NewVec2(1, 1), Mass: 1e24, Radius: 1, Force: NewVec2(7, 7)},
		{Position: NewVec2(1, 1), Mass: 1e24, Radius: 1},
	}
	ComputeForces(bodies, GravitationalConstant, DefaultDistanceScale)
	for i, b := range bodies {
		if !b.Force.IsFinite() || !b.Force.IsZero() {
			t.Errorf("body %d: coincident pair should contribute nothing, got %+v", i, b.Force)
		}
	}
}

func TestCircularOrbitStaysBounded(t *testing.T) {
	const (
		sunMass = 2e30
		r0      = 20.0
	)
	p := DefaultParams()
	v := CircularOrbitSpeed(p.G, sunMass, r0, p.DistanceScale)

	w, err := NewWorld(p,
		body("sun", 0, 0, sunMass, 1),
		movingBody("planet", r0, 0, 0, v, 1e24, 0.05),
	)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}

	// Roughly one full revolution.
	for step := 0; step < 2000; step++ {
		w.Step()
		sun, planet := w.Store().At(0), w.Store().At(1)
		r := sun.Position.DistanceTo(planet.Position)
		if math.Abs(r-r0)/r0 > 0.01 {
			t.Fatalf("step %d: orbital radius drifted to %.4f (start %.1f)", step, r, r0)
		}
	}
}

func TestThreeBodyScenarioStaysFinite(t *testing.T) {
	w, err := NewWorld(DefaultParams(),
		movingBody("planet", 20, 0, 0, 10, 1e24, 0.05),
		movingBody("moonlet", -30, 5, 2, 5, 1e20, 0.004),
		body("star", 0, 0.8, 1e30, 3.5),
	)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}

	for step := 0; step < 1000; step++ {
		w.Step()
		for _, b := range w.Store().Bodies() {
			if !b.Position.IsFinite() || !b.Velocity.IsFinite() {
				t.Fatalf("step %d: non-finite state for %s: pos=%+v vel=%+v", step, b.Name, b.Position, b.Velocity)
			}
		}
	}
}

func TestHysteresisPreventsFlapping(t *testing.T) {
	build := func(alternativeMass float64) *Store {
		// child at origin, current parent 10 units right, alternative 10 units down
		s := mustStore(t,
			body("child", 0, 0, 1, 0.1),
			body("current", 10, 0, 100, 0.1),
			body("alternative", 0, -10, alternativeMass, 0.1),
		)
		s.At(0).ParentIndex = 1
		s.At(0).Trail = []float64{1, 1}
		return s
	}

	// 10% stronger: inside the bonus margin
	s := build(110)
	Classify(s.Bodies(), HysteresisBonus)
	if s.At(0).ParentIndex != 1 {
		t.Errorf("marginally stronger candidate should not steal the parent, got %d", s.At(0).ParentIndex)
	}
	if len(s.At(0).Trail) != 2 {
		t.Error("trail should be kept when the parent does not change")
	}

	// 50% stronger: decisive
	s = build(150)
	changes := Classify(s.Bodies(), HysteresisBonus)
	if s.At(0).ParentIndex != 2 {
		t.Errorf("decisively stronger candidate should become parent, got %d", s.At(0).ParentIndex)
	}
	if len(s.At(0).Trail) != 0 {
		t.Error("trail should be cleared on parent change")
	}
	found := false
	for _, c := range changes {
		if c.Index == 0 && c.OldParent == 1 && c.NewParent == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a change record for the child, got %+v", changes)
	}
}

func TestClassifyWithoutHeavierBody(t *testing.T) {
	s := mustStore(t,
		body("big", 0, 0, 100, 1),
		body("twin", 5, 0, 100, 1),
		body("small", 0, 0, 1, 1), // coincident with big
	)
	s.At(0).ParentIndex = 1
	Classify(s.Bodies(), HysteresisBonus)

	if s.At(0).ParentIndex != NoParent {
		t.Errorf("equal mass bodies are not candidates, got parent %d", s.At(0).ParentIndex)
	}
	if s.At(1).ParentIndex != NoParent {
		t.Errorf("expected no parent for twin, got %d", s.At(1).ParentIndex)
	}
	// big sits on top of small and is skipped; twin is still eligible
	if s.At(2).ParentIndex != 1 {
		t.Errorf("coincident candidate should be skipped, got parent %d", s.At(2).ParentIndex)
	}
}

func TestTrailBoundAndParity(t *testing.T) {
	const maxPoints = 50
	s := mustStore(t, body("runner", 0, 0, 1, 0.01))

	for i := 0; i < 200; i++ {
		s.At(0).Position = NewVec2(float64(i), 0)
		RecordTrail(s, 0, maxPoints, 1000)
		n := len(s.At(0).Trail)
		if n > maxPoints*2 {
			t.Fatalf("iteration %d: trail holds %d values, cap is %d", i, n, maxPoints*2)
		}
		if n%2 != 0 {
			t.Fatalf("iteration %d: trail length %d is odd", i, n)
		}
	}
	trail := s.At(0).Trail
	if trail[len(trail)-2] != 199 {
		t.Errorf("newest point should be last, got x=%g", trail[len(trail)-2])
	}
	if trail[0] != 150 {
		t.Errorf("oldest points should be dropped first, got x=%g", trail[0])
	}
}

func TestTrailRepairsOddLength(t *testing.T) {
	s := mustStore(t, body("b", 1, 2, 1, 1))
	s.At(0).Trail = []float64{9}
	RecordTrail(s, 0, 100, 100)
	if len(s.At(0).Trail)%2 != 0 {
		t.Errorf("odd trail should be repaired, got %v", s.At(0).Trail)
	}
}

func TestTrailLoopClosureTruncates(t *testing.T) {
	const perLoop = 100
	s := mustStore(t, body("orbiter", 10, 0, 1, 1))

	for i := 0; i < 3*perLoop; i++ {
		angle := 2 * math.Pi * float64(i) / perLoop
		s.At(0).Position = NewVec2(10*math.Cos(angle), 10*math.Sin(angle))
		RecordTrail(s, 0, DefaultMaxTrailPoints, perLoop/2)
	}

	if got := s.At(0).TrailPoints(); got > perLoop {
		t.Errorf("completed loops should be truncated, trail has %d points", got)
	}
}

func TestTrailLoopClosureDropsThroughMatch(t *testing.T) {
	const loopCheck = 4
	s := mustStore(t, body("walker", 0, 0, 1, 1))
	record := func(x, y float64) {
		s.At(0).Position = NewVec2(x, y)
		RecordTrail(s, 0, DefaultMaxTrailPoints, loopCheck)
	}

	// Returning to the start does not truncate while the trail is at or
	// below the check threshold.
	record(0, 0)
	record(10, 0)
	record(20, 0)
	record(0, 0)
	if got := s.At(0).TrailPoints(); got != loopCheck {
		t.Fatalf("expected %d points below the threshold, got %d", loopCheck, got)
	}

	// The fifth point lands within two radii of the second one.
	record(10.5, 0)
	want := []float64{20, 0, 0, 0, 10.5, 0}
	got := s.At(0).Trail
	if len(got) != len(want) {
		t.Fatalf("expected trail %v, got %v", want, got)
	}
	for k := range want {
		if got[k] != want[k] {
			t.Fatalf("expected trail %v, got %v", want, got)
		}
	}
}

func TestTrailRelativeToParent(t *testing.T) {
	s := mustStore(t, body("sun", 100, 100, 1000, 1), body("planet", 110, 100, 1, 0.1))
	s.At(1).ParentIndex = 0
	RecordTrail(s, 1, 10, 10)
	if got := s.At(1).Trail; got[0] != 10 || got[1] != 0 {
		t.Errorf("trail should be parent-relative, got %v", got)
	}
}

func TestStoreRejectsInvalidBodies(t *testing.T) {
	s := mustStore(t)
	if _, err := s.Add("zero", NewVec2(0, 0), 0, 1, DefaultColor); !errors.Is(err, ErrInvalidBody) {
		t.Errorf("zero mass should be rejected, got %v", err)
	}
	if _, err := s.Add("flat", NewVec2(0, 0), 1, -1, DefaultColor); !errors.Is(err, ErrInvalidBody) {
		t.Errorf("negative radius should be rejected, got %v", err)
	}
	idx, err := s.Add("ok", NewVec2(1, 2), 1, 1, DefaultColor)
	if err != nil || idx != 0 {
		t.Fatalf("valid body rejected: idx=%d err=%v", idx, err)
	}
	b := s.At(idx)
	if b.ParentIndex != NoParent || !b.Velocity.IsZero() || !b.Force.IsZero() || len(b.Trail) != 0 || b.ID == "" {
		t.Errorf("new body not initialised correctly: %+v", b)
	}
	if err := s.SetVelocity(3, NewVec2(1, 1)); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestGrowAddsRadiusAndMass(t *testing.T) {
	s := mustStore(t, body("seed", 0, 0, DefaultCreatedMass, DefaultCreatedSize))
	if err := s.Grow(0); err != nil {
		t.Fatalf("Grow: %v", err)
	}
	b := s.At(0)
	if !approxEqual(b.Radius, 0.02, tolerance) {
		t.Errorf("radius: got %g want 0.02", b.Radius)
	}
	if !approxEqual(b.Mass, DefaultCreatedMass+0.02*GrowMassPerRadius, tolerance) {
		t.Errorf("mass: got %g", b.Mass)
	}
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	p.Timestep = 0
	if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("zero timestep should be rejected, got %v", err)
	}
	if _, err := NewWorld(p); err == nil {
		t.Error("NewWorld should reject invalid params")
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff0000")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if c[0] != 1 || c[1] != 0 || c[2] != 0 || c[3] != 1 {
		t.Errorf("unexpected color %v", c)
	}
	if c.Hex() != "#ff0000" {
		t.Errorf("round trip: got %s", c.Hex())
	}
	if _, err := ParseColor("red"); err == nil {
		t.Error("expected error for non-hex color")
	}
}
