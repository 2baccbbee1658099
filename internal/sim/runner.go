package sim

import (
	"context"
	"log"
	"time"

	"github.com/playmatatu/orbitsim/internal/physics"
)

// Hooks receive the output of a running simulation. Any hook may be nil.
type Hooks struct {
	OnStep      func(s *Simulation, res StepResult)
	OnMerge     func(s *Simulation, res StepResult, m physics.Merge)
	OnHierarchy func(s *Simulation, changes []physics.ParentChange)
}

// Run drives the simulation until ctx is cancelled: one step per frame tick
// while not paused, and a reclassification per hierarchy tick. Both run on
// this goroutine, so they never overlap. A frameInterval <= 0 leaves
// stepping to the caller.
func (s *Simulation) Run(ctx context.Context, frameInterval, hierarchyInterval time.Duration, hooks Hooks) {
	var frames <-chan time.Time
	if frameInterval > 0 {
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()
		frames = ticker.C
	}

	var hierarchy <-chan time.Time
	if hierarchyInterval > 0 {
		ticker := time.NewTicker(hierarchyInterval)
		defer ticker.Stop()
		hierarchy = ticker.C
	}

	log.Printf("[SIM] %s running (frame=%s hierarchy=%s)", s.ID, frameInterval, hierarchyInterval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SIM] %s stopping", s.ID)
			return
		case <-frames:
			if s.Paused() {
				continue
			}
			res := s.Step()
			if res.Merge != nil && hooks.OnMerge != nil {
				hooks.OnMerge(s, res, *res.Merge)
			}
			if hooks.OnStep != nil {
				hooks.OnStep(s, res)
			}
		case <-hierarchy:
			changes := s.Reclassify()
			if len(changes) > 0 && hooks.OnHierarchy != nil {
				hooks.OnHierarchy(s, changes)
			}
		}
	}
}
