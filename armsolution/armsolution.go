// Package armsolution composes a kinematic tree, a Jacobian IK solver,
// and a self-collision detector into one steppable unit (spec.md 4.7).
package armsolution

import (
	stderrors "errors"
	"math"

	"go.uber.org/multierr"

	"github.com/viam-labs/armik/armconfig"
	"github.com/viam-labs/armik/armerrors"
	"github.com/viam-labs/armik/armlog"
	"github.com/viam-labs/armik/ik"
	"github.com/viam-labs/armik/kintree"
	"github.com/viam-labs/armik/selfcollision"
	"github.com/viam-labs/armik/vecmath"
)

// ArmSolution owns one Tree, one ik.Solver, one selfcollision.Collision,
// and the target list; its lifetime spans a planning session.
type ArmSolution struct {
	tree      *kintree.Tree
	solver    *ik.Solver
	collision *selfcollision.Collision
	cfg       armconfig.Config
	logger    armlog.Logger

	targets []vecmath.Vec3
}

// New builds the spec.md 4.7 default arm: four revolute joints on
// Y,X,X,X axes with segment offsets (0,1,0),(0,3,0),(0,4,0), an
// effector at (0,3,0), a single target at (0,6,0). The tilt joints
// (1-3) rotate about X rather than Z so that swinging the arm out of
// the vertical plane it starts in requires driving joint0 (see
// DESIGN.md's axis-choice note); with a Z axis the tilt joints alone
// keep the arm in the Z=0 plane, reach targets there without help, and
// joint0 never moves. If initialThetas is non-nil it must have length 4 and seeds
// the joint angles before the first step.
func New(cfg armconfig.Config, logger armlog.Logger, initialThetas []float64) (*ArmSolution, error) {
	if logger == nil {
		logger = armlog.NewNopLogger()
	}
	tree := kintree.NewTree()
	root, err := tree.InsertRoot(kintree.NodeConfig{
		Name: "joint0", Purpose: kintree.Joint,
		RotationAxis: vecmath.Vec3{Y: 1},
		MinTheta:     -math.Pi, MaxTheta: math.Pi,
	})
	if err != nil {
		return nil, err
	}
	j1, err := tree.InsertLeftChild(root, kintree.NodeConfig{
		Name: "joint1", Purpose: kintree.Joint,
		Attach: vecmath.Vec3{Y: 1}, RotationAxis: vecmath.Vec3{X: 1},
		MinTheta: -math.Pi, MaxTheta: math.Pi,
	})
	if err != nil {
		return nil, err
	}
	j2, err := tree.InsertLeftChild(j1, kintree.NodeConfig{
		Name: "joint2", Purpose: kintree.Joint,
		Attach: vecmath.Vec3{Y: 3}, RotationAxis: vecmath.Vec3{X: 1},
		MinTheta: -math.Pi, MaxTheta: math.Pi,
	})
	if err != nil {
		return nil, err
	}
	j3, err := tree.InsertLeftChild(j2, kintree.NodeConfig{
		Name: "joint3", Purpose: kintree.Joint,
		Attach: vecmath.Vec3{Y: 4}, RotationAxis: vecmath.Vec3{X: 1},
		MinTheta: -math.Pi, MaxTheta: math.Pi,
	})
	if err != nil {
		return nil, err
	}
	if _, err := tree.InsertLeftChild(j3, kintree.NodeConfig{
		Name: "effector0", Purpose: kintree.Effector, Attach: vecmath.Vec3{Y: 3},
	}); err != nil {
		return nil, err
	}
	if err := tree.Init(); err != nil {
		return nil, err
	}

	if initialThetas != nil {
		if len(initialThetas) != len(tree.Joints()) {
			return nil, armerrors.NewShapeMismatch("initialThetas", len(initialThetas), len(tree.Joints()))
		}
		for i, joint := range tree.Joints() {
			joint.SetTheta(initialThetas[i])
		}
	}
	if err := tree.Compute(); err != nil {
		return nil, err
	}

	positions := make([]vecmath.Vec3, len(tree.Nodes()))
	for i, n := range tree.Nodes() {
		positions[i] = n.Position()
	}

	as := &ArmSolution{
		tree:      tree,
		solver:    ik.NewSolver(tree, cfg, logger),
		collision: selfcollision.New(cfg, positions),
		cfg:       cfg,
		logger:    logger.Named("armsolution"),
		targets:   []vecmath.Vec3{{Y: 6}},
	}
	if _, err := as.stepIK(); err != nil {
		return nil, err
	}
	as.refreshCollision()
	return as, nil
}

// Tree returns the owned kinematic tree, for renderers and diagnostics.
func (a *ArmSolution) Tree() *kintree.Tree { return a.tree }

// Collision returns the owned self-collision detector.
func (a *ArmSolution) Collision() *selfcollision.Collision { return a.collision }

// SetTarget assigns the i-th target, ground-clamping y up to 0 per
// spec.md 6 (input device contract).
func (a *ArmSolution) SetTarget(i int, p vecmath.Vec3) error {
	if i < 0 || i >= len(a.targets) {
		return armerrors.NewShapeMismatch("target index", i, len(a.targets))
	}
	if p.Y < 0 {
		p.Y = 0
	}
	a.targets[i] = p
	return nil
}

// Targets returns the current target list.
func (a *ArmSolution) Targets() []vecmath.Vec3 { return a.targets }

func (a *ArmSolution) stepIK() (ik.StepReport, error) {
	return a.solver.Step(a.targets)
}

func (a *ArmSolution) refreshCollision() {
	positions := make([]vecmath.Vec3, len(a.tree.Nodes()))
	for i, n := range a.tree.Nodes() {
		positions[i] = n.Position()
	}
	a.collision.Update(positions)
}

// Update performs one IK step followed by a collision refresh, in that
// order (spec.md 5's fixed within-tick ordering).
func (a *ArmSolution) Update() (ik.StepReport, error) {
	report, err := a.stepIK()
	if err != nil {
		return report, err
	}
	a.refreshCollision()
	return report, nil
}

// StepIKState performs exactly one IK iteration without touching
// collision state, matching spec.md 4.7's stepIKState.
func (a *ArmSolution) StepIKState() (ik.StepReport, error) {
	return a.stepIK()
}

// ValidatePoint reports whether node position i satisfies the
// ground-plane constraint. Index 0 (the base) is always valid.
func ValidatePoint(p vecmath.Vec3, i int) bool {
	if i == 0 {
		return true
	}
	return p.Y >= 0
}

// SolutionIsValid reports whether every node position passes
// ValidatePoint and no collision is flagged (spec.md 4.7).
func (a *ArmSolution) SolutionIsValid() bool {
	for i, n := range a.tree.Nodes() {
		if !ValidatePoint(n.Position(), i) {
			return false
		}
	}
	return !a.collision.AreAnyColliding()
}

// ValidationErrors reports every ground-plane and collision violation
// currently present, aggregated so a caller can log or surface them all
// at once instead of learning only about the first one. A nil return
// means SolutionIsValid() is true.
func (a *ArmSolution) ValidationErrors() error {
	var errs error
	for i, n := range a.tree.Nodes() {
		if !ValidatePoint(n.Position(), i) {
			errs = multierr.Append(errs, stderrors.New(n.Name()+": below ground plane"))
		}
	}
	if a.collision.AreAnyColliding() {
		errs = multierr.Append(errs, stderrors.New("self-collision detected"))
	}
	return errs
}

// Serialize returns every node's joint angle, in node (insertion) order.
func (a *ArmSolution) Serialize() []float64 {
	nodes := a.tree.Nodes()
	out := make([]float64, len(nodes))
	for i, n := range nodes {
		out[i] = n.Theta()
	}
	return out
}

// ApplySolution assigns theta from thetas (in node order) and refreshes
// forward kinematics and collision state; it does not invoke the IK
// solver (spec.md 4.7).
func (a *ArmSolution) ApplySolution(thetas []float64) error {
	nodes := a.tree.Nodes()
	if len(thetas) != len(nodes) {
		return armerrors.NewShapeMismatch("thetas", len(thetas), len(nodes))
	}
	for i, n := range nodes {
		n.SetTheta(thetas[i])
	}
	if err := a.tree.Compute(); err != nil {
		return err
	}
	a.refreshCollision()
	return nil
}
