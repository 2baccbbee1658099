package physics

// Merge describes one resolved collision. Indices refer to the store as it
// was before the removed body was deleted.
type Merge struct {
	SurvivorIndex int     `json:"survivor_index"`
	RemovedIndex  int     `json:"removed_index"`
	SurvivorID    string  `json:"survivor_id"`
	RemovedID     string  `json:"removed_id"`
	SurvivorName  string  `json:"survivor_name"`
	RemovedName   string  `json:"removed_name"`
	Mass          float64 `json:"mass"`
	Radius        float64 `json:"radius"`
	Velocity      Vec2    `json:"velocity"`
}

// findCollision returns the first overlapping pair, scanning both indices
// downward from the end of the store.
func findCollision(bodies []*Body) (int, int, bool) {
	for i := len(bodies) - 1; i >= 0; i-- {
		for z := len(bodies) - 1; z >= 0; z-- {
			if i == z {
				continue
			}
			if bodies[i].Position.DistanceTo(bodies[z].Position) < bodies[i].Radius+bodies[z].Radius {
				return i, z, true
			}
		}
	}
	return -1, -1, false
}

// ResolveCollision merges at most one overlapping pair. The heavier body
// survives (ties go to the outer scan index), absorbs the other's mass and
// momentum, and grows by a damped fraction of its radius. The absorbed body
// is removed from the store.
func ResolveCollision(s *Store, radiusDamping float64) (Merge, bool) {
	i, z, ok := findCollision(s.bodies)
	if !ok {
		return Merge{}, false
	}

	keep, drop := i, z
	if s.bodies[i].Mass < s.bodies[z].Mass {
		keep, drop = z, i
	}
	survivor, removed := s.bodies[keep], s.bodies[drop]

	total := survivor.Mass + removed.Mass
	survivor.Velocity = survivor.Velocity.Times(survivor.Mass).
		Plus(removed.Velocity.Times(removed.Mass)).
		Times(1 / total)
	survivor.Mass = total
	survivor.Radius += removed.Radius * radiusDamping

	m := Merge{
		SurvivorIndex: keep,
		RemovedIndex:  drop,
		SurvivorID:    survivor.ID,
		RemovedID:     removed.ID,
		SurvivorName:  survivor.Name,
		RemovedName:   removed.Name,
		Mass:          survivor.Mass,
		Radius:        survivor.Radius,
		Velocity:      survivor.Velocity,
	}

	// drop is always in range here.
	_ = s.Remove(drop)
	return m, true
}
