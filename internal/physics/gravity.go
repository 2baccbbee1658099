package physics

import "math"

// ComputeForces resets every body's force and accumulates the Newtonian
// attraction from all other bodies. Separations are measured in scaled
// space (position * scale). Coincident pairs contribute nothing.
func ComputeForces(bodies []*Body, g, scale float64) {
	for _, b := range bodies {
		b.Force = Vec2{}
	}

	for i, bi := range bodies {
		for j, bj := range bodies {
			if i == j {
				continue
			}
			separation := bj.Position.Minus(bi.Position).Times(scale)
			distance := separation.Magnitude()
			if distance == 0 {
				continue
			}
			magnitude := g * bi.Mass * bj.Mass / (distance * distance)
			if math.IsInf(magnitude, 0) || math.IsNaN(magnitude) {
				continue
			}
			bi.Force = bi.Force.Plus(separation.Times(magnitude / distance))
		}
	}
}

// CircularOrbitSpeed returns the speed, in simulation units per unit time,
// of a circular orbit of radius r (simulation units) around a central mass.
func CircularOrbitSpeed(g, centralMass, r, scale float64) float64 {
	if r <= 0 || scale <= 0 {
		return 0
	}
	return math.Sqrt(g * centralMass / (r * scale * scale))
}
