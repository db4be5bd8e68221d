package animate

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/viam-labs/armik/armtestutils"
)

func TestMain(m *testing.M) {
	armtestutils.VerifyTestMain(goleak.TestingM(m))
}
