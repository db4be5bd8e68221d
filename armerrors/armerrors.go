// Package armerrors defines the error kinds surfaced by the planner
// (spec.md 7): ShapeMismatch and NumericalBreakdown are the only two
// that abort or degrade an operation; joint-limit clamping, collision,
// and ground violations are reported through return values, not errors.
package armerrors

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// ErrShapeMismatch is the sentinel wrapped by NewShapeMismatch; test
// with errors.Is.
var ErrShapeMismatch = stderrors.New("shape mismatch")

// ErrNumericalBreakdown is the sentinel wrapped by NewNumericalBreakdown;
// test with errors.Is.
var ErrNumericalBreakdown = stderrors.New("numerical breakdown")

// NewShapeMismatch reports that a caller-supplied slice's length does
// not match the tree's joint or effector count.
func NewShapeMismatch(what string, got, want int) error {
	return errors.Wrapf(ErrShapeMismatch, "%s has length %d, want %d", what, got, want)
}

// NewNumericalBreakdown reports that a NaN or Inf appeared during a
// named computation stage. The caller has already discarded the
// offending step's result (spec.md 7: delta-theta forced to zero).
func NewNumericalBreakdown(stage string) error {
	return errors.Wrapf(ErrNumericalBreakdown, "during %s", stage)
}
