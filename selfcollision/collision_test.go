package selfcollision

import (
	"testing"

	"go.viam.com/test"

	"github.com/viam-labs/armik/armconfig"
	"github.com/viam-labs/armik/vecmath"
)

func straightChain() []vecmath.Vec3 {
	return []vecmath.Vec3{
		{Y: 0},
		{Y: 1},
		{Y: 4},
		{Y: 8},
	}
}

func TestNewBuildsOneSegmentPerAdjacentPair(t *testing.T) {
	c := New(armconfig.DefaultConfig(), straightChain())
	test.That(t, len(c.Segments()), test.ShouldEqual, 3)
	test.That(t, c.Segments()[0].IndexRange, test.ShouldResemble, IndexRange{0, 1})
	test.That(t, c.Segments()[2].IndexRange, test.ShouldResemble, IndexRange{2, 3})
}

func TestSpheresTaperToZeroAtEndpoints(t *testing.T) {
	c := New(armconfig.DefaultConfig(), straightChain())
	seg := c.Segments()[1] // length 3, several spheres
	test.That(t, len(seg.Spheres) > 2, test.ShouldBeTrue)
	first, last := seg.Spheres[0], seg.Spheres[len(seg.Spheres)-1]
	test.That(t, first.Radius(), test.ShouldBeLessThan, 0.02)
	test.That(t, last.Radius(), test.ShouldBeLessThan, 0.02)
	mid := seg.Spheres[len(seg.Spheres)/2]
	test.That(t, mid.Radius(), test.ShouldBeGreaterThan, first.Radius())
}

func TestNoCollisionWhenSegmentsFarApart(t *testing.T) {
	c := New(armconfig.DefaultConfig(), straightChain())
	c.Update(straightChain())
	test.That(t, c.AreAnyColliding(), test.ShouldBeFalse)
}

func TestAdjacentSegmentsNeverFlaggedEvenWhenTouching(t *testing.T) {
	// Fold the arm back on itself so segment 0 and segment 2 overlap in
	// space while sharing no endpoint with each other, but keep segment
	// 0/1 and 1/2 adjacent (sharing an index) so they must be skipped.
	positions := []vecmath.Vec3{
		{X: 0, Y: 0},
		{X: 0, Y: 1},
		{X: 0, Y: 0.5}, // folds back near segment 0
		{X: 0, Y: 0.05},
	}
	c := New(armconfig.DefaultConfig(), positions)
	c.Update(positions)
	// segment0 = (0,1), segment1=(1,2), segment2=(2,3): 0 and 2 are
	// non-adjacent and geometrically close, so a collision is expected.
	test.That(t, c.AreAnyColliding(), test.ShouldBeTrue)
	// segment1 overlaps both neighbours in space but is adjacent to each,
	// so none of its spheres may be flagged.
	for _, sph := range c.Segments()[1].Spheres {
		test.That(t, sph.IsColliding(), test.ShouldBeFalse)
	}
}
