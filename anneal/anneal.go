// Package anneal implements the simulated-annealing alternative to the
// Jacobian IK solver: a Metropolis search over joint-angle candidates
// using only forward kinematics and validity checks (spec.md 4.8).
package anneal

import (
	"math"
	"math/rand"

	"github.com/viam-labs/armik/armconfig"
	"github.com/viam-labs/armik/armlog"
	"github.com/viam-labs/armik/kintree"
	"github.com/viam-labs/armik/vecmath"
)

// Candidate is one joint-angle vector together with the node positions
// it produces, so cost evaluation and continuity comparisons never need
// to re-run forward kinematics.
type Candidate struct {
	Theta     []float64
	Positions []vecmath.Vec3
}

// SolutionAndCost pairs a Candidate with its evaluated cost, the unit
// the search compares and accepts on.
type SolutionAndCost struct {
	Candidate Candidate
	Cost      float64
}

// Solver runs the spec.md 4.8 Metropolis search against a fixed tree
// topology. It never calls Tree.Compute concurrently with the tree's
// owning ArmSolution; callers must serialize access as with any other
// single-threaded core component.
type Solver struct {
	tree   *kintree.Tree
	cfg    armconfig.Config
	logger armlog.Logger
	rng    *rand.Rand

	target vecmath.Vec3

	validate func(p vecmath.Vec3, i int) bool
	collides func([]vecmath.Vec3) bool
}

// NewSolver constructs an annealing solver over tree. validate mirrors
// ArmSolution.ValidatePoint and collides mirrors the collision
// detector's AreAnyColliding, re-evaluated against a candidate's
// positions without mutating any shared Collision state.
func NewSolver(
	tree *kintree.Tree,
	cfg armconfig.Config,
	logger armlog.Logger,
	rng *rand.Rand,
	validate func(p vecmath.Vec3, i int) bool,
	collides func([]vecmath.Vec3) bool,
) *Solver {
	if logger == nil {
		logger = armlog.NewNopLogger()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Solver{
		tree: tree, cfg: cfg, logger: logger.Named("anneal"), rng: rng,
		validate: validate, collides: collides,
	}
}

// SetTarget assigns the single effector target the cost function's
// first term measures against.
func (s *Solver) SetTarget(target vecmath.Vec3) { s.target = target }

// snapshot captures the tree's current joint angles and node positions
// as a Candidate, without mutating the tree.
func (s *Solver) snapshot() Candidate {
	joints := s.tree.Joints()
	theta := make([]float64, len(joints))
	for i, j := range joints {
		theta[i] = j.Theta()
	}
	nodes := s.tree.Nodes()
	positions := make([]vecmath.Vec3, len(nodes))
	for i, n := range nodes {
		positions[i] = n.Position()
	}
	return Candidate{Theta: theta, Positions: positions}
}

// apply writes theta into the tree's joints and recomputes forward
// kinematics, returning the resulting Candidate. It mutates s.tree, so
// callers restore the tree's prior state (via apply again) before
// returning if the candidate is rejected.
func (s *Solver) apply(theta []float64) Candidate {
	for i, j := range s.tree.Joints() {
		j.SetTheta(theta[i])
	}
	_ = s.tree.Compute()
	return s.snapshot()
}

// isValid reports whether every node position in c passes validate and
// no collision is present, mirroring ArmSolution.SolutionIsValid.
func (s *Solver) isValid(c Candidate) bool {
	for i, p := range c.Positions {
		if s.validate != nil && !s.validate(p, i) {
			return false
		}
	}
	if s.collides != nil && s.collides(c.Positions) {
		return false
	}
	return true
}

// neighbor perturbs one randomly chosen joint to a uniform-random value
// within its limits, resampling until the result is valid (spec.md
// 4.8's neighbor generator).
func (s *Solver) neighbor(cur Candidate) Candidate {
	joints := s.tree.Joints()
	base := make([]float64, len(cur.Theta))
	copy(base, cur.Theta)

	for {
		idx := s.rng.Intn(len(joints))
		min, max := joints[idx].Limits()
		trial := make([]float64, len(base))
		copy(trial, base)
		trial[idx] = min + s.rng.Float64()*(max-min)

		candidate := s.apply(trial)
		if s.isValid(candidate) {
			return candidate
		}
	}
}

// cost implements spec.md 4.8's literal cost function, including the
// signed (not absolute) mean joint drift term. prev is nil for the
// first evaluation of a run, in which case only the positional term
// against target applies.
func (s *Solver) cost(c Candidate, prev *Candidate) float64 {
	effPos := c.Positions[len(c.Positions)-1]
	for i, n := range s.tree.Nodes() {
		if n.Purpose() == kintree.Effector {
			effPos = c.Positions[i]
			break
		}
	}
	total := effPos.Sub(s.target).Norm()
	if prev == nil {
		return total
	}

	driftSum := 0.0
	for i := range c.Theta {
		driftSum += c.Theta[i] - prev.Theta[i]
	}
	total += driftSum / float64(len(c.Theta))

	posSum := 0.0
	for i := range c.Positions {
		posSum += c.Positions[i].Sub(prev.Positions[i]).Norm()
	}
	total += 0.5 * posSum / float64(len(c.Positions))

	return total
}

// Run executes the full annealing schedule starting from the tree's
// current pose (or, if prev is non-nil, scoring continuity against it)
// and returns the last accepted SolutionAndCost. It leaves the tree
// applied to the final accepted candidate.
func (s *Solver) Run(prev *Candidate) SolutionAndCost {
	sol := s.snapshot()
	solCost := s.cost(sol, prev)

	temp := s.cfg.AnnealT0
	for temp > s.cfg.AnnealTMin {
		for i := 0; i < s.cfg.AnnealInnerLoop; i++ {
			candidate := s.neighbor(sol)
			candidateCost := s.cost(candidate, prev)

			p := math.Exp((solCost - candidateCost) / temp)
			if p > s.rng.Float64() {
				sol = candidate
				solCost = candidateCost
			} else {
				// restore the tree to sol before the next trial, since
				// neighbor() mutated it while probing candidate.
				s.apply(sol.Theta)
			}
		}
		temp *= s.cfg.AnnealAlpha
	}

	s.apply(sol.Theta)
	s.logger.Debugw("annealing converged", "cost", solCost, "finalTemp", temp)
	return SolutionAndCost{Candidate: sol, Cost: solCost}
}
