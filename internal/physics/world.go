package physics

// World is the complete engine state for one simulation: the body store
// and the parameters it is stepped with.
type World struct {
	Params Params
	store  *Store
}

// StepReport summarises one call to Step.
type StepReport struct {
	Merged bool   `json:"merged"`
	Merge  *Merge `json:"merge,omitempty"`
}

// NewWorld validates params and primes forces so the first half-kick has
// an acceleration to work with.
func NewWorld(p Params, bodies ...Body) (*World, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s, err := NewStore(bodies...)
	if err != nil {
		return nil, err
	}
	w := &World{Params: p, store: s}
	ComputeForces(s.bodies, p.G, p.DistanceScale)
	return w, nil
}

func (w *World) Store() *Store {
	return w.store
}

// Step advances the world by one timestep: resolve at most one collision,
// kick-drift-kick, then extend trails.
func (w *World) Step() StepReport {
	var report StepReport
	if m, ok := ResolveCollision(w.store, w.Params.MergeRadiusDamping); ok {
		report.Merged = true
		report.Merge = &m
	}

	Leapfrog(w.store.bodies, w.Params)
	RecordTrails(w.store, w.Params.MaxTrailPoints, w.Params.LoopCheckPoints)
	return report
}

// Reclassify reassigns each body's dominant attractor.
func (w *World) Reclassify() []ParentChange {
	return Classify(w.store.bodies, w.Params.HysteresisBonus)
}
