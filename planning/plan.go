// Package planning implements the planned/committed dual-ArmSolution
// session model, plan serialization, and reset-to-initial semantics
// (spec.md 4.9).
package planning

import (
	"github.com/viam-labs/armik/armconfig"
	"github.com/viam-labs/armik/armerrors"
	"github.com/viam-labs/armik/armlog"
	"github.com/viam-labs/armik/armsolution"
	"github.com/viam-labs/armik/vecmath"
)

// Plan is a serializable snapshot of a joint-angle vector and the
// target it was solved against.
type Plan struct {
	ThetaVector []float64
	Target      vecmath.Vec3
}

// getPlan captures as, returning the Plan the caller can later hand to
// loadPlan (its own copy, on this or a different ArmSolution).
func getPlan(as *armsolution.ArmSolution, target vecmath.Vec3) Plan {
	theta := as.Serialize()
	out := make([]float64, len(theta))
	copy(out, theta)
	return Plan{ThetaVector: out, Target: target}
}

// loadPlan applies p's joint-angle vector to as via ApplySolution (FK
// only, no IK) and returns p.Target for the caller to feed into the
// target list.
func loadPlan(as *armsolution.ArmSolution, p Plan) (vecmath.Vec3, error) {
	if err := as.ApplySolution(p.ThetaVector); err != nil {
		return vecmath.Vec3{}, err
	}
	return p.Target, nil
}

// Session owns the two independent ArmSolution instances spec.md 4.9
// describes: planned (live-solving against the user's target) and
// committed (holds the last user-confirmed plan). They share no
// mutable state.
type Session struct {
	logger armlog.Logger

	planned   *armsolution.ArmSolution
	committed *armsolution.ArmSolution

	initialTheta  []float64
	initialTarget vecmath.Vec3
}

// NewSession constructs both ArmSolution instances from the same
// initial pose and captures the initial-state snapshot resetToInitial
// restores.
func NewSession(cfg armconfig.Config, logger armlog.Logger) (*Session, error) {
	if logger == nil {
		logger = armlog.NewNopLogger()
	}
	planned, err := armsolution.New(cfg, logger.Named("planned"), nil)
	if err != nil {
		return nil, err
	}
	committed, err := armsolution.New(cfg, logger.Named("committed"), nil)
	if err != nil {
		return nil, err
	}
	initialTheta := planned.Serialize()
	initialTarget := planned.Targets()[0]

	return &Session{
		logger: logger.Named("planning"), planned: planned, committed: committed,
		initialTheta: initialTheta, initialTarget: initialTarget,
	}, nil
}

// Planned returns the live-solving ArmSolution.
func (s *Session) Planned() *armsolution.ArmSolution { return s.planned }

// Committed returns the last user-confirmed ArmSolution.
func (s *Session) Committed() *armsolution.ArmSolution { return s.committed }

// CommitPlan copies planned's current joint angles into committed via
// ApplySolution, and returns the theta-vector so the caller may forward
// it to a physical arm (spec.md 4.9, 6).
func (s *Session) CommitPlan() ([]float64, error) {
	theta := s.planned.Serialize()
	if err := s.committed.ApplySolution(theta); err != nil {
		return nil, err
	}
	s.logger.Debugw("plan committed", "thetaVector", theta)
	return theta, nil
}

// GetPlan captures planned's current state against target.
func (s *Session) GetPlan(target vecmath.Vec3) Plan {
	return getPlan(s.planned, target)
}

// LoadPlan applies p to planned and, if setTarget, assigns p.Target as
// planned's live target.
func (s *Session) LoadPlan(p Plan, setTarget bool) error {
	target, err := loadPlan(s.planned, p)
	if err != nil {
		return err
	}
	if setTarget {
		return s.planned.SetTarget(0, target)
	}
	return nil
}

// ResetToInitial restores planned's joint angles to the snapshot taken
// at NewSession, and optionally its target too. It does not touch
// committed and, per spec.md 5, does not cancel any in-flight animation.
func (s *Session) ResetToInitial(alsoResetTarget bool) error {
	if err := s.planned.ApplySolution(s.initialTheta); err != nil {
		return err
	}
	if alsoResetTarget {
		return s.planned.SetTarget(0, s.initialTarget)
	}
	return nil
}

// ValidatePlan reports whether p's theta-vector has numJoints entries.
// It checks the length only: the pose is not evaluated for ground-plane
// or self-collision validity, so a plan that passes may still leave the
// arm in an unsafe pose when loaded.
func ValidatePlan(p Plan, numJoints int) error {
	if len(p.ThetaVector) != numJoints {
		return armerrors.NewShapeMismatch("plan theta vector", len(p.ThetaVector), numJoints)
	}
	return nil
}
