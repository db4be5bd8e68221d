package kintree

import (
	"github.com/pkg/errors"

	"github.com/viam-labs/armik/vecmath"
)

// Tree is a left-child/right-sibling kinematic tree. It owns its nodes
// for the lifetime of the owning ArmSolution; the node set is fixed
// after construction (spec.md 3).
type Tree struct {
	nodes []*Node

	// structural links, indexed in parallel with nodes; kept off the
	// Node struct itself per the arena design (design notes 9).
	firstChild  []NodeID
	nextSibling []NodeID

	root NodeID

	joints    []NodeID
	effectors []NodeID

	initialized bool
}

// NewTree constructs an empty tree.
func NewTree() *Tree {
	return &Tree{root: noNode}
}

func (t *Tree) newNode(cfg NodeConfig) *Node {
	id := NodeID(len(t.nodes))
	n := &Node{
		id:           id,
		name:         cfg.Name,
		purpose:      cfg.Purpose,
		attach:       cfg.Attach,
		rotationAxis: cfg.RotationAxis.Normalize(),
		theta:        cfg.InitialTheta,
		minTheta:     cfg.MinTheta,
		maxTheta:     cfg.MaxTheta,
	}
	if n.purpose == Effector {
		n.theta = 0
		n.rotationAxis = vecmath.Zero
	} else if n.theta < n.minTheta || n.theta > n.maxTheta {
		if n.theta < n.minTheta {
			n.theta = n.minTheta
		} else {
			n.theta = n.maxTheta
		}
	}
	t.nodes = append(t.nodes, n)
	t.firstChild = append(t.firstChild, noNode)
	t.nextSibling = append(t.nextSibling, noNode)
	return n
}

// InsertRoot creates the tree's root node. The root's attach is taken
// to be the world origin per spec.md's invariant; any non-zero Attach
// in cfg is ignored for the root.
func (t *Tree) InsertRoot(cfg NodeConfig) (NodeID, error) {
	if t.root != noNode {
		return noNode, errors.New("kintree: root already inserted")
	}
	cfg.Attach = vecmath.Zero
	n := t.newNode(cfg)
	t.root = n.id
	return n.id, nil
}

// InsertLeftChild attaches a new node as the first (leftmost) child of
// parent, pushing any existing first child to be its next sibling.
func (t *Tree) InsertLeftChild(parent NodeID, cfg NodeConfig) (NodeID, error) {
	if !t.validID(parent) {
		return noNode, errors.Errorf("kintree: invalid parent id %d", parent)
	}
	n := t.newNode(cfg)
	oldFirst := t.firstChild[parent]
	t.nextSibling[n.id] = oldFirst
	t.firstChild[parent] = n.id
	return n.id, nil
}

// InsertRightSibling attaches a new node immediately after sibling in
// its parent's child list.
func (t *Tree) InsertRightSibling(sibling NodeID, cfg NodeConfig) (NodeID, error) {
	if !t.validID(sibling) {
		return noNode, errors.Errorf("kintree: invalid sibling id %d", sibling)
	}
	n := t.newNode(cfg)
	t.nextSibling[n.id] = t.nextSibling[sibling]
	t.nextSibling[sibling] = n.id
	return n.id, nil
}

func (t *Tree) validID(id NodeID) bool {
	return id != noNode && int(id) < len(t.nodes)
}

// Node returns the node for id, or nil if id is not valid.
func (t *Tree) Node(id NodeID) *Node {
	if !t.validID(id) {
		return nil
	}
	return t.nodes[id]
}

// Root returns the tree's root node id, or noNode and an error if
// InsertRoot has not yet been called.
func (t *Tree) Root() (NodeID, error) {
	if t.root == noNode {
		return noNode, errors.New("kintree: tree has no root")
	}
	return t.root, nil
}

// Nodes returns every node in the tree, in arena (insertion) order.
func (t *Tree) Nodes() []*Node {
	return t.nodes
}

// Joints returns every joint node, ordered by seqNumJoint.
func (t *Tree) Joints() []*Node {
	out := make([]*Node, len(t.joints))
	for _, id := range t.joints {
		n := t.nodes[id]
		out[n.seqNumJoint] = n
	}
	return out
}

// Effectors returns every effector node, ordered by seqNumEffector.
func (t *Tree) Effectors() []*Node {
	out := make([]*Node, len(t.effectors))
	for _, id := range t.effectors {
		n := t.nodes[id]
		out[n.seqNumEffector] = n
	}
	return out
}

// Init walks the tree in pre-order, assigning seqNumJoint and
// seqNumEffector in separate zero-based counters (spec.md 3-4). It must
// be called once after all Insert* calls and before Compute.
func (t *Tree) Init() error {
	if t.root == noNode {
		return errors.New("kintree: cannot Init an empty tree")
	}
	t.joints = t.joints[:0]
	t.effectors = t.effectors[:0]
	var walk func(id NodeID)
	walk = func(id NodeID) {
		n := t.nodes[id]
		switch n.purpose {
		case Joint:
			n.seqNumJoint = len(t.joints)
			t.joints = append(t.joints, id)
		case Effector:
			n.seqNumEffector = len(t.effectors)
			t.effectors = append(t.effectors, id)
		}
		for child := t.firstChild[id]; child != noNode; child = t.nextSibling[child] {
			walk(child)
		}
	}
	walk(t.root)
	t.initialized = true
	return nil
}

// NumJoints returns the number of joint nodes (the Jacobian's column count).
func (t *Tree) NumJoints() int { return len(t.joints) }

// NumEffectors returns the number of effector nodes (the Jacobian's
// row-block count).
func (t *Tree) NumEffectors() int { return len(t.effectors) }

// IsAncestor reports whether ancestor lies on the root-to-node path of n,
// inclusive of walking through intermediate joints. Used by the Jacobian
// solver to decide which columns influence which effector rows.
func (t *Tree) IsAncestor(ancestor, n NodeID) bool {
	for cur := n; cur != noNode; {
		if cur == ancestor {
			return true
		}
		parent, ok := t.GetParent(cur)
		if !ok {
			return false
		}
		cur = parent
	}
	return false
}

// GetParent returns the structural parent of id. Node itself carries no
// parent pointer (spec.md 3 lists no such field); the arena instead
// scans each node's first-child/next-sibling chain and returns the node
// whose chain contains id (design notes 9).
func (t *Tree) GetParent(id NodeID) (NodeID, bool) {
	if id == t.root {
		return noNode, false
	}
	for candidate := range t.nodes {
		p := NodeID(candidate)
		for child := t.firstChild[p]; child != noNode; child = t.nextSibling[child] {
			if child == id {
				return p, true
			}
		}
	}
	return noNode, false
}

// Compute performs a forward-kinematics pass: for every non-root node,
// s = parent.s + rotated(attach-chain), with rotation composed via
// Rodrigues' formula about each ancestor's world axis by that ancestor's
// theta, applied root-to-node (spec.md 3-4).
func (t *Tree) Compute() error {
	if t.root == noNode {
		return errors.New("kintree: cannot Compute an empty tree")
	}
	if !t.initialized {
		return errors.New("kintree: Init must be called before Compute")
	}
	root := t.nodes[t.root]
	root.s = root.attach
	root.w = root.rotationAxis
	rootRotate := func(v vecmath.Vec3) vecmath.Vec3 {
		return vecmath.RotateAboutAxis(v, root.w, root.theta)
	}
	t.computeChildren(t.root, root.s, rootRotate)
	return nil
}

func (t *Tree) computeChildren(parentID NodeID, parentS vecmath.Vec3, accum func(vecmath.Vec3) vecmath.Vec3) {
	for childID := t.firstChild[parentID]; childID != noNode; childID = t.nextSibling[childID] {
		n := t.nodes[childID]
		n.w = accum(n.rotationAxis)
		n.r = accum(n.attach)
		n.s = parentS.Add(n.r)

		axis, theta, s := n.w, n.theta, n.s
		parentAccum := accum
		childAccum := func(v vecmath.Vec3) vecmath.Vec3 {
			return vecmath.RotateAboutAxis(parentAccum(v), axis, theta)
		}
		t.computeChildren(childID, s, childAccum)
	}
}
