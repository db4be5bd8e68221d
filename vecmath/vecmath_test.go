package vecmath

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDirectionToZeroVector(t *testing.T) {
	dir := DirectionTo(Vec3{X: 1, Y: 1, Z: 1}, Vec3{X: 1, Y: 1, Z: 1})
	test.That(t, dir, test.ShouldResemble, Zero)
}

func TestDirectionToUnit(t *testing.T) {
	dir := DirectionTo(Zero, Vec3{X: 0, Y: 5, Z: 0})
	test.That(t, dir.X, test.ShouldAlmostEqual, 0.0)
	test.That(t, dir.Y, test.ShouldAlmostEqual, 1.0)
	test.That(t, dir.Z, test.ShouldAlmostEqual, 0.0)
}

func TestLerp(t *testing.T) {
	a := Vec3{X: 0, Y: 0, Z: 0}
	b := Vec3{X: 10, Y: 20, Z: 30}
	mid := Lerp(a, b, 0.5)
	test.That(t, mid, test.ShouldResemble, Vec3{X: 5, Y: 10, Z: 15})
}

func TestClampNorm(t *testing.T) {
	v := Vec3{X: 3, Y: 4, Z: 0} // norm 5
	clamped := ClampNorm(v, 2.5)
	test.That(t, clamped.Norm(), test.ShouldAlmostEqual, 2.5)

	unclamped := ClampNorm(v, 10)
	test.That(t, unclamped, test.ShouldResemble, v)

	test.That(t, ClampNorm(Zero, 1), test.ShouldResemble, Zero)
}

func TestRotateAboutAxisQuarterTurn(t *testing.T) {
	v := Vec3{X: 1, Y: 0, Z: 0}
	axis := Vec3{X: 0, Y: 0, Z: 1}
	rotated := RotateAboutAxis(v, axis, math.Pi/2)
	test.That(t, AlmostEqual(rotated, Vec3{X: 0, Y: 1, Z: 0}, 1e-9), test.ShouldBeTrue)
}

func TestRotateAboutAxisZeroTheta(t *testing.T) {
	v := Vec3{X: 1, Y: 2, Z: 3}
	axis := Vec3{X: 0, Y: 1, Z: 0}
	test.That(t, RotateAboutAxis(v, axis, 0), test.ShouldResemble, v)
}
