package armconfig

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.DeltaSMax, test.ShouldAlmostEqual, 0.4)
	test.That(t, cfg.GammaMax, test.ShouldAlmostEqual, math.Pi/4)
	test.That(t, cfg.SphereInterval, test.ShouldAlmostEqual, cfg.SphereRadius/4)
	test.That(t, cfg.AnnealInnerLoop, test.ShouldEqual, 50)
}
