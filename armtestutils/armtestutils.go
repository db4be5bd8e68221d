// Package armtestutils holds small shared test helpers, mirroring the
// teacher's testutils package.
package armtestutils

import "go.uber.org/goleak"

// VerifyTestMain wraps goleak.VerifyTestMain with no ignore options, so
// any goroutine still running after a package's tests fails the run.
func VerifyTestMain(m goleak.TestingM) {
	goleak.VerifyTestMain(m)
}
