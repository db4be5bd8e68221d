// Package animate implements the keyframe animator described in
// spec.md 4.9: an ordered list of {interval, plan} keyframes played
// back against a host-supplied clock and scheduler, driving a
// planning.Session's live target and joint angles.
package animate

import (
	"time"

	"github.com/viam-labs/armik/armlog"
	"github.com/viam-labs/armik/planning"
	"github.com/viam-labs/armik/vecmath"
)

// Clock is the time source the animator reads from; production code
// satisfies it with github.com/benbjohnson/clock.Clock so tests can
// drive playback with a clock.Mock instead of wall time.
type Clock interface {
	Now() time.Time
}

// Token identifies one scheduled callback for cancellation purposes.
type Token uint64

// Scheduler is the host-loop callback: the animator has no timers or
// goroutines of its own (spec.md 5's single-threaded cooperative
// model), it only ever asks the host to call it back once more.
type Scheduler interface {
	ScheduleNextTick(cb func()) Token
	Cancel(Token)
}

// Keyframe is one stop in an animation: hold plan for interval seconds
// before advancing (or interpolating toward) the next keyframe.
type Keyframe struct {
	IntervalSeconds float64
	Plan            planning.Plan
}

// Animation is an ordered keyframe list plus a loop flag.
type Animation struct {
	Frames []Keyframe
	Loop   bool
}

// Player drives one Animation against a Session, clock, and scheduler.
// Starting a new animation cancels any prior one via a monotonically
// increasing token compare, per spec.md 5.
type Player struct {
	session   *planning.Session
	clock     Clock
	scheduler Scheduler
	logger    armlog.Logger

	generation uint64

	anim                    Animation
	startTime               time.Time
	elapsedFrameIntervalSum float64
	currentFrame            int
	running                 bool
	token                   Token
}

// NewPlayer constructs a Player. logger may be nil.
func NewPlayer(session *planning.Session, clock Clock, scheduler Scheduler, logger armlog.Logger) *Player {
	if logger == nil {
		logger = armlog.NewNopLogger()
	}
	return &Player{session: session, clock: clock, scheduler: scheduler, logger: logger.Named("animate")}
}

// Play starts anim, cancelling any animation already in flight.
func (p *Player) Play(anim Animation) {
	if p.running {
		p.scheduler.Cancel(p.token)
	}
	p.generation++
	gen := p.generation

	p.anim = anim
	p.startTime = p.clock.Now()
	p.elapsedFrameIntervalSum = 0
	p.currentFrame = 0
	p.running = len(anim.Frames) > 0

	if !p.running {
		return
	}
	p.token = p.scheduler.ScheduleNextTick(func() { p.tick(gen) })
}

// Stop cancels the in-flight animation, if any.
func (p *Player) Stop() {
	if p.running {
		p.scheduler.Cancel(p.token)
	}
	p.running = false
}

// IsRunning reports whether an animation is currently playing.
func (p *Player) IsRunning() bool { return p.running }

// tick is the callback the scheduler invokes; gen must match the
// generation captured when this callback was scheduled, or this
// callback belongs to an animation that was superseded and self-aborts
// (spec.md 5, cancellation via monotonically-increasing token compare).
func (p *Player) tick(gen uint64) {
	if gen != p.generation || !p.running {
		return
	}

	frames := p.anim.Frames
	sinceStart := p.clock.Now().Sub(p.startTime).Seconds()

	for p.currentFrame < len(frames) &&
		p.elapsedFrameIntervalSum+frames[p.currentFrame].IntervalSeconds < sinceStart {
		p.elapsedFrameIntervalSum += frames[p.currentFrame].IntervalSeconds
		p.currentFrame++
		if p.currentFrame < len(frames) {
			if err := p.session.LoadPlan(frames[p.currentFrame].Plan, true); err != nil {
				p.logger.Warnw("failed to load keyframe plan", "error", err, "frame", p.currentFrame)
			}
		}
	}

	if p.currentFrame+1 < len(frames) {
		// A next frame exists: interpolate the live target from the
		// current frame toward it (spec.md 4.9).
		frame := frames[p.currentFrame]
		next := frames[p.currentFrame+1]
		// frameCompletion is deliberately computed with the source's
		// original operator precedence: division binds to interval only,
		// not to the whole (sinceStart - elapsedFrameIntervalSum) span.
		frameCompletion := sinceStart - p.elapsedFrameIntervalSum/frame.IntervalSeconds
		p.interpolateTarget(frame, next, frameCompletion)
	} else if p.currentFrame < len(frames) {
		// Holding within the last frame; its target was already
		// committed by the LoadPlan call above, nothing to interpolate
		// toward.
	} else if p.anim.Loop {
		p.startTime = p.clock.Now()
		p.elapsedFrameIntervalSum = 0
		p.currentFrame = 0
	} else {
		p.running = false
		return
	}

	gen2 := gen
	p.token = p.scheduler.ScheduleNextTick(func() { p.tick(gen2) })
}

// interpolateTarget linearly interpolates the live target between the
// current frame's target and the next frame's target, by
// frameCompletion, and writes the result into the session's planned
// target (spec.md 4.9: "interpolate the target between current and
// next frame").
func (p *Player) interpolateTarget(current, next Keyframe, frameCompletion float64) {
	from := current.Plan.Target
	to := next.Plan.Target
	target := vecmath.Lerp(from, to, frameCompletion)
	if err := p.session.Planned().SetTarget(0, target); err != nil {
		p.logger.Warnw("failed to set interpolated target", "error", err)
	}
}
