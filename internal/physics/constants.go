package physics

// Physical constants and engine defaults.
const (
	GravitationalConstant = 6.6743e-11 // m^3 kg^-1 s^-2
	DefaultDistanceScale  = 2e8        // metres per simulation unit
	DefaultTimestep       = 0.005

	// MergeRadiusDamping is the fraction of the absorbed body's radius added
	// to the survivor. Keeps merged bodies from growing without bound.
	MergeRadiusDamping = 0.1

	// HysteresisBonus multiplies the current parent's influence score when
	// reclassifying, so near-equal candidates do not flap.
	HysteresisBonus = 1.2

	DefaultMaxTrailPoints  = 10000
	DefaultLoopCheckPoints = 500

	// Growth applied per frame while a body is being created by a held gesture.
	GrowRadiusStep     = 0.01
	GrowMassPerRadius  = 1e26
	DefaultCreatedMass = 5e20
	DefaultCreatedSize = 0.01

	NoParent = -1
)
