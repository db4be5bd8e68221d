// Package armlog is a small structured-logging façade over zap, shaped
// after the teacher's logging package but stripped of the network
// appender and remote log-config machinery: this core has no outbound
// transport (spec.md 6).
package armlog

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Logger is the interface ArmSolution and the annealing solver take at
// construction. Only the levels the core actually emits are exposed.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Named(name string) Logger
}

type impl struct {
	*zap.SugaredLogger
}

func (l *impl) Named(name string) Logger {
	return &impl{l.SugaredLogger.Named(name)}
}

// NewLogger returns a logger that writes Info+ logs to stderr, named name.
func NewLogger(name string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	base, err := cfg.Build()
	if err != nil {
		base = zap.NewNop()
	}
	return &impl{base.Named(name).Sugar()}
}

// NewTestLogger returns a logger that writes Debug+ logs through tb,
// matching the teacher's NewTestLogger convention.
func NewTestLogger(tb testing.TB) Logger {
	return &impl{zaptest.NewLogger(tb).Sugar()}
}

// NewNopLogger discards everything; used where a caller does not care
// to observe NumericalBreakdown / annealing diagnostics.
func NewNopLogger() Logger {
	return &impl{zap.NewNop().Sugar()}
}
