package physics

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidParams = errors.New("invalid engine parameters")

// Params configures one world. The zero value is not usable; start from
// DefaultParams.
type Params struct {
	G                  float64 `json:"g"`
	DistanceScale      float64 `json:"distance_scale"`
	Timestep           float64 `json:"timestep"`
	MergeRadiusDamping float64 `json:"merge_radius_damping"`
	HysteresisBonus    float64 `json:"hysteresis_bonus"`
	MaxTrailPoints     int     `json:"max_trail_points"`
	LoopCheckPoints    int     `json:"loop_check_points"`
}

func DefaultParams() Params {
	return Params{
		G:                  GravitationalConstant,
		DistanceScale:      DefaultDistanceScale,
		Timestep:           DefaultTimestep,
		MergeRadiusDamping: MergeRadiusDamping,
		HysteresisBonus:    HysteresisBonus,
		MaxTrailPoints:     DefaultMaxTrailPoints,
		LoopCheckPoints:    DefaultLoopCheckPoints,
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Validate rejects parameter sets the engine cannot run with.
func (p Params) Validate() error {
	switch {
	case !positive(p.G):
		return fmt.Errorf("%w: gravitational constant %g", ErrInvalidParams, p.G)
	case !positive(p.DistanceScale):
		return fmt.Errorf("%w: distance scale %g", ErrInvalidParams, p.DistanceScale)
	case !positive(p.Timestep):
		return fmt.Errorf("%w: timestep %g", ErrInvalidParams, p.Timestep)
	case p.MergeRadiusDamping < 0 || math.IsNaN(p.MergeRadiusDamping):
		return fmt.Errorf("%w: merge radius damping %g", ErrInvalidParams, p.MergeRadiusDamping)
	case p.HysteresisBonus < 1 || math.IsInf(p.HysteresisBonus, 0):
		return fmt.Errorf("%w: hysteresis bonus %g", ErrInvalidParams, p.HysteresisBonus)
	case p.MaxTrailPoints < 1:
		return fmt.Errorf("%w: max trail points %d", ErrInvalidParams, p.MaxTrailPoints)
	case p.LoopCheckPoints < 1:
		return fmt.Errorf("%w: loop check points %d", ErrInvalidParams, p.LoopCheckPoints)
	}
	return nil
}
