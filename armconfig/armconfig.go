// Package armconfig holds every tunable constant named in spec.md 6,
// grouped into a single value type the way the teacher's motionplan
// package groups planner tunables into plannerOptions.
package armconfig

import "math"

// Config bundles the SDLS solver, collision, and annealing tunables.
// All fields are SI-consistent (radians, world units, seconds).
type Config struct {
	// DeltaSMax caps the per-effector position error fed into the
	// Jacobian each IK step (spec.md 4.5 step 2).
	DeltaSMax float64
	// GammaMax caps the per-joint rotation any single singular
	// direction may induce in one SDLS step (spec.md 4.5 step 3).
	GammaMax float64
	// GammaTotal caps the combined per-step joint rotation after all
	// singular directions are summed (spec.md 4.5 step 3).
	GammaTotal float64

	// SphereRadius is the radius of the largest collision sphere along
	// an arm segment (spec.md 4.6).
	SphereRadius float64
	// SphereInterval is the spacing between collision spheres along an
	// arm segment.
	SphereInterval float64
	// Gap insets each segment's collision-sphere chain inward by
	// span*Gap to avoid shared-endpoint self-overlap.
	Gap float64

	// AnnealT0 is the simulated annealing solver's starting temperature.
	AnnealT0 float64
	// AnnealTMin is the temperature at which annealing stops.
	AnnealTMin float64
	// AnnealAlpha is the per-round geometric cooling factor.
	AnnealAlpha float64
	// AnnealInnerLoop is the number of neighbor trials per temperature.
	AnnealInnerLoop int
}

// DefaultConfig returns the defaults named throughout spec.md.
func DefaultConfig() Config {
	sphereRadius := 0.1
	return Config{
		DeltaSMax:  0.4,
		GammaMax:   math.Pi / 4,
		GammaTotal: math.Pi / 4,

		SphereRadius:   sphereRadius,
		SphereInterval: sphereRadius / 4,
		Gap:            0.001,

		AnnealT0:        1.0,
		AnnealTMin:      1e-5,
		AnnealAlpha:     0.9,
		AnnealInnerLoop: 50,
	}
}
