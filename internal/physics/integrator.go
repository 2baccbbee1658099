package physics

// HalfKick advances every velocity by half a timestep using the force
// currently stored on each body.
func HalfKick(bodies []*Body, dt float64) {
	half := dt / 2
	for _, b := range bodies {
		accel := b.Force.Times(1 / b.Mass)
		b.Velocity = b.Velocity.Plus(accel.Times(half))
	}
}

// Drift advances every position by a full timestep at the current velocity.
func Drift(bodies []*Body, dt float64) {
	for _, b := range bodies {
		b.Position = b.Position.Plus(b.Velocity.Times(dt))
	}
}

// Leapfrog performs one kick-drift-kick step. The first kick uses the forces
// left over from the previous step; forces are then recomputed at the new
// positions for the closing kick.
func Leapfrog(bodies []*Body, p Params) {
	HalfKick(bodies, p.Timestep)
	Drift(bodies, p.Timestep)
	ComputeForces(bodies, p.G, p.DistanceScale)
	HalfKick(bodies, p.Timestep)
}
