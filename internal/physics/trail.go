package physics

// RecordTrail appends the body's current position to its trail, relative to
// its parent when it has one, then enforces the point cap and the
// loop-closure truncation.
//
// Once the trail holds more than loopCheckPoints points, the older half is
// scanned for a point within two radii of the newest one. A hit means the
// body has come round a full loop, so everything up to and including that
// point is dropped.
func RecordTrail(s *Store, i, maxPoints, loopCheckPoints int) {
	b := s.At(i)
	if b == nil {
		return
	}

	pos := b.Position
	if parent := s.At(b.ParentIndex); parent != nil {
		pos = pos.Minus(parent.Position)
	}
	b.Trail = append(b.Trail, pos.X, pos.Y)

	if excess := len(b.Trail) - maxPoints*2; excess > 0 {
		b.Trail = b.Trail[excess+excess%2:]
	}

	if len(b.Trail) > loopCheckPoints*2 {
		n := len(b.Trail)
		last := Vec2{X: b.Trail[n-2], Y: b.Trail[n-1]}
		minDistance := b.Radius * 2
		searchEnd := n / 2
		for k := 0; k < searchEnd; k += 2 {
			if last.DistanceTo(Vec2{X: b.Trail[k], Y: b.Trail[k+1]}) < minDistance {
				b.Trail = b.Trail[k+2:]
				break
			}
		}
	}

	if len(b.Trail)%2 != 0 {
		b.Trail = b.Trail[:len(b.Trail)-1]
	}
}

// RecordTrails records the trail of every body in the store.
func RecordTrails(s *Store, maxPoints, loopCheckPoints int) {
	for i := range s.bodies {
		RecordTrail(s, i, maxPoints, loopCheckPoints)
	}
}
