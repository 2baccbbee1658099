package physics

// ParentChange records one reclassification.
type ParentChange struct {
	Index     int    `json:"index"`
	BodyID    string `json:"body_id"`
	OldParent int    `json:"old_parent"`
	NewParent int    `json:"new_parent"`
}

// candidate is a scored parent option for one child.
type candidate struct {
	index int
	score float64
}

var noCandidate = candidate{index: NoParent}

// beats reports whether c should replace the current best.
func (c candidate) beats(best candidate) bool {
	return best.index == NoParent || c.score > best.score
}

// influence is the simplified attraction of a candidate on a child:
// candidate mass over squared distance. G and the child's mass are common
// to every candidate and omitted. ok is false for coincident bodies.
func influence(child, parent *Body) (float64, bool) {
	d2 := parent.Position.Minus(child.Position).MagnitudeSquared()
	if d2 == 0 {
		return 0, false
	}
	return parent.Mass / d2, true
}

// dominantAttractor returns the heaviest-influence body strictly more
// massive than bodies[i]. The current parent's score is multiplied by bonus.
func dominantAttractor(bodies []*Body, i int, bonus float64) candidate {
	child := bodies[i]
	best := noCandidate
	for j, other := range bodies {
		if j == i || other.Mass <= child.Mass {
			continue
		}
		score, ok := influence(child, other)
		if !ok {
			continue
		}
		if j == child.ParentIndex {
			score *= bonus
		}
		c := candidate{index: j, score: score}
		if c.beats(best) {
			best = c
		}
	}
	return best
}

// Classify recomputes every body's parent. Bodies whose parent changes get
// their trail cleared, since it was recorded relative to the old parent.
func Classify(bodies []*Body, bonus float64) []ParentChange {
	winners := make([]int, len(bodies))
	for i := range bodies {
		winners[i] = dominantAttractor(bodies, i, bonus).index
	}

	var changes []ParentChange
	for i, b := range bodies {
		if winners[i] == b.ParentIndex {
			continue
		}
		changes = append(changes, ParentChange{
			Index:     i,
			BodyID:    b.ID,
			OldParent: b.ParentIndex,
			NewParent: winners[i],
		})
		b.ParentIndex = winners[i]
		b.ClearTrail()
	}
	return changes
}
