package armerrors

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

func TestShapeMismatchIs(t *testing.T) {
	err := NewShapeMismatch("targets", 2, 3)
	test.That(t, errors.Is(err, ErrShapeMismatch), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrNumericalBreakdown), test.ShouldBeFalse)
}

func TestNumericalBreakdownIs(t *testing.T) {
	err := NewNumericalBreakdown("svd")
	test.That(t, errors.Is(err, ErrNumericalBreakdown), test.ShouldBeTrue)
}
