// Package selfcollision implements the capsule-approximated
// self-collision detector: each arm segment is represented as a chain
// of tapered spheres, and non-adjacent segments are checked pairwise
// for sphere-sphere overlap (spec.md 4.6).
package selfcollision

import (
	"math"

	"github.com/viam-labs/armik/armconfig"
	"github.com/viam-labs/armik/vecmath"
)

// Sphere is one collision volume along an arm segment.
type Sphere struct {
	center                 vecmath.Vec3
	radius                 float64
	distanceAlongArmSegment float64
	isColliding            bool
}

// Center returns the sphere's current world-space center.
func (s *Sphere) Center() vecmath.Vec3 { return s.center }

// Radius returns the sphere's radius.
func (s *Sphere) Radius() float64 { return s.radius }

// DistanceAlongArmSegment returns the sphere's normalized position
// along its segment, in [0,1].
func (s *Sphere) DistanceAlongArmSegment() float64 { return s.distanceAlongArmSegment }

// IsColliding reports whether the sphere overlaps a sphere on a
// non-adjacent segment as of the last Update call.
func (s *Sphere) IsColliding() bool { return s.isColliding }

// IndexRange identifies the pair of adjacent chain-position indices
// (i-1, i) a segment spans.
type IndexRange struct {
	Lo, Hi int
}

// Segment is one arm segment's chain of collision spheres, spanning the
// positions at IndexRange.Lo and IndexRange.Hi.
type Segment struct {
	IndexRange IndexRange
	Spheres    []*Sphere
}

// Collision owns one sphere chain per arm segment and the pairwise
// overlap state between non-adjacent segments.
type Collision struct {
	cfg      armconfig.Config
	segments []*Segment
}

// New builds a Collision from the initial node-position chain, one
// segment per adjacent pair (positions[i-1], positions[i]).
func New(cfg armconfig.Config, positions []vecmath.Vec3) *Collision {
	c := &Collision{cfg: cfg}
	for i := 1; i < len(positions); i++ {
		c.segments = append(c.segments, buildSegment(cfg, IndexRange{i - 1, i}, positions[i-1], positions[i]))
	}
	return c
}

func buildSegment(cfg armconfig.Config, idx IndexRange, start, end vecmath.Vec3) *Segment {
	span := end.Sub(start)
	length := span.Norm()

	insetStart, insetEnd := start, end
	if length > 0 {
		insetStart = vecmath.Lerp(start, end, cfg.Gap)
		insetEnd = vecmath.Lerp(start, end, 1-cfg.Gap)
	}
	insetLength := insetEnd.Sub(insetStart).Norm()

	numSpheres := int(math.Floor(insetLength / cfg.SphereInterval))
	seg := &Segment{IndexRange: idx}
	for k := 0; k < numSpheres; k++ {
		var t float64
		if numSpheres > 1 {
			t = float64(k) / float64(numSpheres-1)
		}
		center := vecmath.Lerp(insetStart, insetEnd, t)
		taper := 1 - 2*math.Abs(t-0.5)
		seg.Spheres = append(seg.Spheres, &Sphere{
			center:                  center,
			radius:                  cfg.SphereRadius * taper,
			distanceAlongArmSegment: t,
		})
	}
	return seg
}

// Segments returns every arm segment's sphere chain.
func (c *Collision) Segments() []*Segment { return c.segments }

// Update recomputes every sphere's center from the segment's current
// start/end positions, then re-evaluates every non-adjacent segment
// pair for overlap (spec.md 4.6).
func (c *Collision) Update(positions []vecmath.Vec3) {
	for _, seg := range c.segments {
		start, end := positions[seg.IndexRange.Lo], positions[seg.IndexRange.Hi]
		insetStart, insetEnd := start, end
		if end.Sub(start).Norm() > 0 {
			insetStart = vecmath.Lerp(start, end, c.cfg.Gap)
			insetEnd = vecmath.Lerp(start, end, 1-c.cfg.Gap)
		}
		for _, sph := range seg.Spheres {
			sph.center = vecmath.Lerp(insetStart, insetEnd, sph.distanceAlongArmSegment)
			sph.isColliding = false
		}
	}

	for a := 0; a < len(c.segments); a++ {
		for b := a + 1; b < len(c.segments); b++ {
			segA, segB := c.segments[a], c.segments[b]
			if adjacent(segA.IndexRange, segB.IndexRange) {
				continue
			}
			for _, sa := range segA.Spheres {
				for _, sb := range segB.Spheres {
					if sa.center.Sub(sb.center).Norm() < sa.radius+sb.radius {
						sa.isColliding = true
						sb.isColliding = true
					}
				}
			}
		}
	}
}

func adjacent(a, b IndexRange) bool {
	return a.Lo == b.Lo || a.Lo == b.Hi || a.Hi == b.Lo || a.Hi == b.Hi
}

// AreAnyColliding reports whether any sphere in any segment is flagged.
func (c *Collision) AreAnyColliding() bool {
	for _, seg := range c.segments {
		for _, sph := range seg.Spheres {
			if sph.isColliding {
				return true
			}
		}
	}
	return false
}
