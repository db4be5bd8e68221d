// Package vecmath provides the 3-vector arithmetic used throughout the
// kinematic tree and IK solver.
package vecmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Vec3 is a world- or local-space 3-vector. It is a direct alias of
// r3.Vector so that callers can freely mix arithmetic from that package
// (Add, Sub, Cross, Dot, Norm, Normalize) with the helpers added here.
type Vec3 = r3.Vector

// Zero is the additive identity.
var Zero = Vec3{X: 0, Y: 0, Z: 0}

// DirectionTo returns the unit vector pointing from a to b. If a and b
// coincide the zero vector is returned, matching r3.Vector.Normalize's
// treatment of the zero vector.
func DirectionTo(a, b Vec3) Vec3 {
	return b.Sub(a).Normalize()
}

// Lerp linearly interpolates component-wise between a and b. t is not
// clamped; callers pass t outside [0,1] to extrapolate deliberately.
func Lerp(a, b Vec3, t float64) Vec3 {
	return Vec3{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// ClampNorm scales v down so its norm does not exceed max. Vectors
// already within the limit, and the zero vector, are returned unchanged.
func ClampNorm(v Vec3, max float64) Vec3 {
	n := v.Norm()
	if n <= max || n == 0 {
		return v
	}
	return v.Mul(max / n)
}

// RotateAboutAxis rotates v by theta radians about the unit axis using
// Rodrigues' rotation formula. axis is assumed to already be normalized;
// callers that cannot guarantee this should call axis.Normalize() first.
func RotateAboutAxis(v, axis Vec3, theta float64) Vec3 {
	if theta == 0 {
		return v
	}
	cosT, sinT := math.Cos(theta), math.Sin(theta)
	term1 := v.Mul(cosT)
	term2 := axis.Cross(v).Mul(sinT)
	term3 := axis.Mul(axis.Dot(v) * (1 - cosT))
	return term1.Add(term2).Add(term3)
}

// AlmostEqual reports whether a and b differ by no more than tol in
// every component, following the teacher's absolute-tolerance
// convention for world-space positions.
func AlmostEqual(a, b Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}
