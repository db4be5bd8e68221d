// Package ik implements the Jacobian-based inverse-kinematics solver
// described in spec.md 4.5: builds the Jacobian J for a kinematic tree,
// solves for a joint-angle update via Selectively Damped Least Squares
// (SDLS), and applies the update subject to per-joint limits.
package ik

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/viam-labs/armik/armconfig"
	"github.com/viam-labs/armik/armerrors"
	"github.com/viam-labs/armik/armlog"
	"github.com/viam-labs/armik/jacobianmath"
	"github.com/viam-labs/armik/kintree"
	"github.com/viam-labs/armik/vecmath"
)

const (
	// stuckDeltaEpsilon bounds how close to bit-exact zero Δθ must be
	// before Step treats the pose as stuck rather than merely converging
	// slowly.
	stuckDeltaEpsilon = 1e-9
	// stuckResidualEpsilon is the residual norm below which the solver is
	// considered converged, so a zero Δθ there is success, not a stall.
	stuckResidualEpsilon = 1e-6
	// stuckMutationAmount is the per-joint nudge used to escape an exact
	// Jacobian singularity, mirroring the teacher's jointAmt.
	stuckMutationAmount = 0.05
)

// Mode selects which goal the Jacobian solver drives effectors toward
// (spec.md 4.5 step 1).
type Mode int

const (
	// TargetMode drives every effector toward its assigned target.
	TargetMode Mode = iota
	// EndMode treats every effector's own current position as its goal,
	// used for passive relaxation; retained for parity with spec.md.
	EndMode
)

// StepReport describes the outcome of one Solver.Step call.
type StepReport struct {
	// DeltaTheta is the SDLS per-joint update for this step, in
	// seqNumJoint order, before joint-limit clamping. It is all zeros on
	// a step that nudged a joint off a singular pose instead.
	DeltaTheta []float64
	// NumericalBreakdown is true if a NaN/Inf forced this step's
	// DeltaTheta to zero (spec.md 7); the step is not fatal.
	NumericalBreakdown bool
	// ResidualNorm is the post-step norm of the largest per-effector
	// clamped position error, useful for convergence checks (spec.md 8).
	ResidualNorm float64
}

// Solver is the SDLS Jacobian IK solver for the Tree given to
// NewSolver. Besides its mode it keeps the last clamped dS and the
// singularity-escape state (next joint, sign, random source) across
// Step calls.
type Solver struct {
	tree   *kintree.Tree
	cfg    armconfig.Config
	logger armlog.Logger
	mode   Mode

	lastDS []vecmath.Vec3 // most recent per-effector clamped offset

	// Anti-stuck state (spec.md 7's numerical-breakdown handling extended
	// to exact Jacobian singularities): which joint to mutate next and
	// which sign to try, cycling like the teacher's jointMut/jointAmt,
	// plus a source for the final random-restart fallback.
	mutJoint int
	mutSign  float64
	rng      *rand.Rand
}

// NewSolver constructs a solver for tree. tree.Init must already have
// been called.
func NewSolver(tree *kintree.Tree, cfg armconfig.Config, logger armlog.Logger) *Solver {
	if logger == nil {
		logger = armlog.NewNopLogger()
	}
	return &Solver{
		tree: tree, cfg: cfg, logger: logger.Named("ik"), mode: TargetMode,
		mutSign: 1, rng: rand.New(rand.NewSource(1)),
	}
}

// SetJtargetActive switches to target mode (spec.md 4.5 state machine).
func (s *Solver) SetJtargetActive() { s.mode = TargetMode }

// SetJendActive switches to end mode.
func (s *Solver) SetJendActive() { s.mode = EndMode }

// Mode returns the solver's current mode.
func (s *Solver) Mode() Mode { return s.mode }

// LastDS returns the per-effector clamped offset computed by the most
// recent Step, in effector seqNum order (spec.md 4.5 step 5,
// UpdatedSClampValue).
func (s *Solver) LastDS() []vecmath.Vec3 { return s.lastDS }

// Step performs one full IK iteration: builds J and dS, solves for
// Δθ via SDLS, applies Δθ subject to joint limits, and refreshes the
// tree's forward kinematics. targets is ignored in EndMode.
func (s *Solver) Step(targets []vecmath.Vec3) (StepReport, error) {
	numEffectors := s.tree.NumEffectors()
	if s.mode == TargetMode && len(targets) != numEffectors {
		return StepReport{}, armerrors.NewShapeMismatch("targets", len(targets), numEffectors)
	}

	j, dSFlat, _ := s.computeJacobian(targets)

	deltaTheta, breakdown := s.calcDeltaThetasSDLS(j, dSFlat)

	// An exact Jacobian singularity (the range of J orthogonal to dS)
	// produces a bit-exact zero Δθ forever even though the residual is
	// still large; SDLS alone can never escape that pose. Detect it and
	// mutate a joint the way the teacher's jointMut/jointAmt loop does.
	// Only bother when some effector's target is actually within reach:
	// an unreachable target (S3) is already at its optimal extended
	// pose, and mutating away from it would only move the effector
	// further from the target, violating the settle-at-reach behavior.
	stuck := !breakdown && vectorNorm(deltaTheta) < stuckDeltaEpsilon && s.hasAchievableEffector(targets)
	if stuck {
		s.escapeStuckPose()
	} else {
		s.updateThetas(deltaTheta)
		s.mutJoint = 0
		s.mutSign = 1
	}
	_ = s.tree.Compute()

	// UpdatedSClampValue: refresh dS against the post-update pose so the
	// next Step call (and any caller inspecting LastDS) sees current data.
	_, _, s.lastDS = s.computeJacobian(targets)

	residual := 0.0
	for _, v := range s.lastDS {
		if n := v.Norm(); n > residual {
			residual = n
		}
	}

	if breakdown {
		s.logger.Warnw("numerical breakdown during SDLS step, delta-theta forced to zero")
	}
	if stuck {
		s.logger.Debugw("jacobian stuck at singularity, mutating a joint to escape")
	}

	return StepReport{DeltaTheta: deltaTheta, NumericalBreakdown: breakdown, ResidualNorm: residual}, nil
}

// hasAchievableEffector reports whether at least one not-yet-converged
// effector's target lies within that effector's maximum reach from the
// tree's root, i.e. whether the stuck pose is worth escaping at all.
func (s *Solver) hasAchievableEffector(targets []vecmath.Vec3) bool {
	if s.mode != TargetMode {
		return false
	}
	rootID, err := s.tree.Root()
	if err != nil {
		return false
	}
	rootPos := s.tree.Node(rootID).Position()
	for ei, eff := range s.tree.Effectors() {
		if targets[ei].Sub(eff.Position()).Norm() < stuckResidualEpsilon {
			continue
		}
		if targets[ei].Sub(rootPos).Norm() < s.maxReach(eff)-1e-6 {
			return true
		}
	}
	return false
}

// maxReach sums the segment lengths from the tree's root to eff, an
// upper bound on how far eff can be positioned from the root.
func (s *Solver) maxReach(eff *kintree.Node) float64 {
	total := 0.0
	cur := eff
	for {
		total += cur.Attach().Norm()
		parentID, ok := s.tree.GetParent(cur.ID())
		if !ok {
			return total
		}
		cur = s.tree.Node(parentID)
	}
}

// vectorNorm returns the Euclidean norm of v.
func vectorNorm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// escapeStuckPose nudges one joint off the exact singularity, cycling
// through +jointAmt then -jointAmt for each joint in turn before
// falling back to a full random restart, mirroring
// jacobianInverseKinematics.go's Solve loop.
func (s *Solver) escapeStuckPose() {
	joints := s.tree.Joints()
	if s.mutJoint >= len(joints) {
		for _, joint := range joints {
			if joint.IsFrozen() {
				continue
			}
			min, max := joint.Limits()
			joint.SetTheta(min + s.rng.Float64()*(max-min))
		}
		s.mutJoint = 0
		s.mutSign = 1
		return
	}

	joint := joints[s.mutJoint]
	if !joint.IsFrozen() {
		joint.SetTheta(joint.Theta() + s.mutSign*stuckMutationAmount)
	}

	// Test +/- jointAmt on this joint before moving to the next one.
	s.mutSign *= -1
	if s.mutSign > 0 {
		s.mutJoint++
	}
}

// computeJacobian rebuilds dS (clamped) and J for the tree's current
// pose, per spec.md 4.5 step 2.
func (s *Solver) computeJacobian(targets []vecmath.Vec3) (*jacobianmath.Matrix, []float64, []vecmath.Vec3) {
	effectors := s.tree.Effectors()
	joints := s.tree.Joints()
	numEffectors := len(effectors)
	numJoints := len(joints)

	j := jacobianmath.NewMatrix(3*numEffectors, numJoints)
	dSVecs := make([]vecmath.Vec3, numEffectors)
	dSFlat := make([]float64, 3*numEffectors)

	for ei, eff := range effectors {
		var goal vecmath.Vec3
		if s.mode == TargetMode {
			goal = targets[ei]
		} else {
			goal = eff.Position()
		}
		d := goal.Sub(eff.Position())
		d = vecmath.ClampNorm(d, s.cfg.DeltaSMax)
		dSVecs[ei] = d
		dSFlat[3*ei+0] = d.X
		dSFlat[3*ei+1] = d.Y
		dSFlat[3*ei+2] = d.Z

		for ji, joint := range joints {
			if joint.IsFrozen() || !s.tree.IsAncestor(joint.ID(), eff.ID()) {
				continue
			}
			col := joint.WorldAxis().Cross(eff.Position().Sub(joint.Position()))
			j.Set(3*ei+0, ji, col.X)
			j.Set(3*ei+1, ji, col.Y)
			j.Set(3*ei+2, ji, col.Z)
		}
	}
	return j, dSFlat, dSVecs
}

// calcDeltaThetasSDLS implements spec.md 4.5 step 3: Selectively Damped
// Least Squares. It never returns an error; a numerical breakdown is
// reported via the bool return and results in a zeroed Δθ.
func (s *Solver) calcDeltaThetasSDLS(j *jacobianmath.Matrix, dS []float64) ([]float64, bool) {
	_, numJoints := j.Dims()
	deltaTheta := make([]float64, numJoints)

	svd, err := jacobianmath.ComputeSVD(j)
	if err != nil {
		return deltaTheta, true
	}

	dSVec := mat.NewVecDense(len(dS), dS)
	anyNonZero := false

	for i, wi := range svd.W {
		if jacobianmath.NumericalZero(svd.W, wi) {
			continue
		}
		anyNonZero = true

		ui := mat.NewVecDense(dSVec.Len(), mat.Col(nil, i, svd.U))
		vi := mat.Col(nil, i, svd.V)

		phiScale := mat.Dot(ui, dSVec) / wi
		phi := make([]float64, numJoints)
		for jj := range phi {
			phi[jj] = vi[jj] * phiScale
		}

		mi := s.perComponentDampingSum(j, vi)
		if mi > 0 {
			clamp := s.cfg.GammaMax * wi / mi
			for jj := range phi {
				if phi[jj] > clamp {
					phi[jj] = clamp
				} else if phi[jj] < -clamp {
					phi[jj] = -clamp
				}
			}
		}

		for jj := range deltaTheta {
			deltaTheta[jj] += phi[jj]
		}
	}

	if !anyNonZero {
		return deltaTheta, false
	}

	// Global clamp: rescale so max|Δθ_j| <= γ_total.
	maxAbs := 0.0
	for _, v := range deltaTheta {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs > s.cfg.GammaTotal {
		scale := s.cfg.GammaTotal / maxAbs
		for jj := range deltaTheta {
			deltaTheta[jj] *= scale
		}
	}

	for _, v := range deltaTheta {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return make([]float64, numJoints), true
		}
	}
	return deltaTheta, false
}

// perComponentDampingSum computes Mi = sum_j |Vij| * (sum_e ||J_ej|| for
// effectors e depending on joint j), spec.md 4.5 step 3.
func (s *Solver) perComponentDampingSum(j *jacobianmath.Matrix, vi []float64) float64 {
	rows, cols := j.Dims()
	numEffectors := rows / 3
	mi := 0.0
	for col := 0; col < cols; col++ {
		if vi[col] == 0 {
			continue
		}
		sum := 0.0
		for e := 0; e < numEffectors; e++ {
			block := vecmath.Vec3{
				X: j.At(3*e+0, col),
				Y: j.At(3*e+1, col),
				Z: j.At(3*e+2, col),
			}
			sum += block.Norm()
		}
		mi += math.Abs(vi[col]) * sum
	}
	return mi
}

// updateThetas applies Δθ to every non-frozen joint, clamped to its
// limits, per spec.md 4.5 step 4.
func (s *Solver) updateThetas(deltaTheta []float64) {
	for _, joint := range s.tree.Joints() {
		if joint.IsFrozen() {
			continue
		}
		idx := joint.SeqNumJoint()
		joint.SetTheta(joint.Theta() + deltaTheta[idx])
	}
}
