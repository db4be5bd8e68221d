// Package kintree implements the left-child/right-sibling kinematic tree:
// nodes are revolute joints or end-effectors, held in an arena indexed by
// stable NodeID values (spec.md 3-4, design notes 9 on cyclic references).
package kintree

import (
	"math"

	"github.com/viam-labs/armik/vecmath"
)

// Purpose distinguishes a revolute joint from a terminal end-effector.
type Purpose int

const (
	// Joint is a revolute joint with one rotational degree of freedom.
	Joint Purpose = iota
	// Effector is a terminal point the solver drives toward a target.
	Effector
)

// NodeID stably identifies a node within a Tree's arena for its lifetime.
type NodeID uint32

// noNode is the sentinel for "no such node" (root's parent, a leaf's
// first child, a last sibling's next sibling).
const noNode NodeID = math.MaxUint32

// NodeConfig is the immutable construction-time description of a node.
type NodeConfig struct {
	Name         string
	Purpose      Purpose
	Attach       vecmath.Vec3 // local attachment offset relative to parent
	RotationAxis vecmath.Vec3 // unit axis in local frame; unused for Effector
	MinTheta     float64
	MaxTheta     float64
	InitialTheta float64
}

// Node is one joint or end-effector in the kinematic tree. Its fields
// mirror spec.md 3 exactly; structural (parent/child/sibling) links are
// kept separately on the owning Tree so that a Node's own state is pure
// kinematic data.
type Node struct {
	id      NodeID
	name    string
	purpose Purpose

	attach       vecmath.Vec3
	rotationAxis vecmath.Vec3

	theta    float64
	minTheta float64
	maxTheta float64
	isFrozen bool

	s vecmath.Vec3 // world-space position, valid after Tree.Compute
	w vecmath.Vec3 // world-space rotation axis, valid after Tree.Compute
	r vecmath.Vec3 // vector from parent's s to this node's s

	seqNumJoint    int
	seqNumEffector int
}

// ID returns the node's stable arena identifier.
func (n *Node) ID() NodeID { return n.id }

// Name returns the node's diagnostic name (not part of the wire format).
func (n *Node) Name() string { return n.name }

// Purpose returns whether this node is a Joint or an Effector.
func (n *Node) Purpose() Purpose { return n.purpose }

// Attach returns the local attachment offset relative to the parent.
func (n *Node) Attach() vecmath.Vec3 { return n.attach }

// RotationAxis returns the local (construction-time) rotation axis.
func (n *Node) RotationAxis() vecmath.Vec3 { return n.rotationAxis }

// Theta returns the current joint angle in radians. Always 0 for Effector.
func (n *Node) Theta() float64 { return n.theta }

// Limits returns the inclusive angular limits, in radians.
func (n *Node) Limits() (min, max float64) { return n.minTheta, n.maxTheta }

// IsFrozen reports whether the solver is forbidden from changing theta.
func (n *Node) IsFrozen() bool { return n.isFrozen }

// Freeze holds theta fixed at its current value for all future solver steps.
func (n *Node) Freeze() { n.isFrozen = true }

// Unfreeze releases a previously frozen joint.
func (n *Node) Unfreeze() { n.isFrozen = false }

// SetTheta assigns a new joint angle, clamped to [minTheta, maxTheta].
// It is a no-op (LimitViolation recovered silently, spec.md 7) beyond
// the clamp itself. Frozen joints and effectors ignore the call.
func (n *Node) SetTheta(theta float64) {
	if n.isFrozen || n.purpose == Effector {
		return
	}
	if theta < n.minTheta {
		theta = n.minTheta
	} else if theta > n.maxTheta {
		theta = n.maxTheta
	}
	n.theta = theta
}

// Position returns the world-space position computed by the last Compute.
func (n *Node) Position() vecmath.Vec3 { return n.s }

// WorldAxis returns the world-space rotation axis computed by the last Compute.
func (n *Node) WorldAxis() vecmath.Vec3 { return n.w }

// OffsetFromParent returns the vector from the parent's position to this
// node's position, as of the last Compute.
func (n *Node) OffsetFromParent() vecmath.Vec3 { return n.r }

// SeqNumJoint returns this node's zero-based column index in the
// Jacobian, or -1 if this node is not a joint.
func (n *Node) SeqNumJoint() int {
	if n.purpose != Joint {
		return -1
	}
	return n.seqNumJoint
}

// SeqNumEffector returns this node's zero-based row-block index in the
// Jacobian, or -1 if this node is not an effector.
func (n *Node) SeqNumEffector() int {
	if n.purpose != Effector {
		return -1
	}
	return n.seqNumEffector
}
