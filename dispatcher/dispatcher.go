// Package dispatcher implements the single-threaded cooperative scheduler
// that drives the trajectory planner's queue, the segment generator, and
// arc tessellation in priority order on each invocation (spec §4.4). It
// is the foreground superloop body; the DDA and segment-load ISR
// contexts it coordinates with live in the mpe package.
package dispatcher

import (
	"math"

	"motionforge/machine"
	"motionforge/mpe"
	"motionforge/planner"
	"motionforge/seggen"
)

// Result is the outcome of one Tick: whether the dispatcher made
// progress, is waiting on the MPE ring, has nothing runnable, or just
// observed a kill/terminate request.
type Result uint8

const (
	Idle Result = iota
	InProgress
	Again
	BufferComplete
	Killed
)

// Engine is the minimal pulse-engine surface the dispatcher needs: ring
// access for fullness checks and a reset hook for kill/terminate.
type Engine interface {
	Ring() *mpe.Ring
	Busy() bool
	Reset()
}

// Dispatcher binds the trajectory planner, segment generator, and pulse
// engine into the run-to-completion scheduling loop described by spec
// §4.4.
type Dispatcher struct {
	cfg *machine.MachineConfig
	tp  *planner.Planner
	sg  *seggen.Generator
	mpe Engine

	cursor  seggen.Cursor
	running *machine.Buffer

	arc arcState

	killRequested      bool
	terminateRequested bool
}

// New creates a Dispatcher over the given planner, segment generator, and
// pulse engine.
func New(cfg *machine.MachineConfig, tp *planner.Planner, sg *seggen.Generator, mpe Engine) *Dispatcher {
	return &Dispatcher{cfg: cfg, tp: tp, sg: sg, mpe: mpe}
}

// RequestKill schedules an asynchronous kill: flush both queues, clear
// active-motor bits, and zero the runtime on the next Tick. Matches the
// ISR-set-flag convention; safe to call from any context that only sets
// the flag (no ring mutation happens here).
func (d *Dispatcher) RequestKill() { d.killRequested = true }

// RequestTerminate schedules a terminate: like kill, but the pulse engine
// first runs out the segments it already holds; no new segments are
// generated meanwhile.
func (d *Dispatcher) RequestTerminate() { d.terminateRequested = true }

// Tick runs one pass of the dispatcher: service pending kill/terminate
// flags, then, unless a terminate is waiting, call move_dispatch once.
func (d *Dispatcher) Tick() Result {
	if d.killRequested {
		d.doKill()
		d.killRequested = false
		return Killed
	}
	if d.terminateRequested {
		if !d.mpe.Busy() {
			d.doKill()
			d.terminateRequested = false
			return Killed
		}
		// Let the segments already in the pulse engine finish; generate
		// no new ones while waiting.
		return Again
	}
	return d.moveDispatch()
}

// doKill disables timers, flushes both queues, clears the runtime
// cursor, and restores default state (spec §4.4 Kill/terminate).
func (d *Dispatcher) doKill() {
	d.mpe.Reset()
	d.tp.Queue().Reset()
	d.running = nil
	d.arc = arcState{}
	d.cursor = seggen.Cursor{}
	d.tp.SetPosition(machine.Position{})
}

// moveDispatch binds the next QUEUED/PENDING buffer if none is RUNNING,
// invokes its handler, and frees the buffer once its continuation
// reports completion.
func (d *Dispatcher) moveDispatch() Result {
	if d.running == nil {
		buf := d.tp.Queue().NextRunnable()
		if buf == nil {
			return Idle
		}
		d.tp.Queue().BeginRunning(buf)
		d.running = buf
		d.bind(buf)
	}

	res := d.invoke(d.running)
	switch res {
	case seggen.Again:
		return Again
	case seggen.BufferDone:
		d.tp.Queue().Complete()
		d.running = nil
		return BufferComplete
	default:
		return InProgress
	}
}

// bind sets up per-move-type continuation state the first time a buffer
// becomes RUNNING (spec §4.4's handler binding by move_type).
func (d *Dispatcher) bind(buf *machine.Buffer) {
	switch buf.MoveType {
	case machine.Arc:
		d.arc.start(buf, d.cursor.Position, d.cfg.MinSegmentLengthMM)
	default:
		d.cursor.Reset(buf, d.cursor.Position)
	}
}

// invoke runs the bound handler for the currently RUNNING buffer: line
// and jerk-line moves, dwells, and start/stop/end markers all run
// through the segment generator; arcs tessellate into enqueued line
// sub-moves instead of generating segments directly.
func (d *Dispatcher) invoke(buf *machine.Buffer) seggen.Result {
	if buf.MoveType == machine.Arc {
		return d.arc.step(d.tp)
	}
	return d.sg.Step(&d.cursor)
}

// RuntimePosition returns the segment generator's current tool position,
// the position arc tessellation resumes from when the next arc begins.
func (d *Dispatcher) RuntimePosition() machine.Position {
	return d.cursor.Position
}

// arcState is arc tessellation's continuation: spec §4.4 describes it as
// "compute segment count on first entry; emit one line sub-move per
// subsequent entry until the counter exhausts".
type arcState struct {
	active bool

	center       [2]float64
	axis1, axis2 machine.Axis
	axisLinear   machine.Axis

	theta            float64
	angularIncrement float64
	linearIncrement  float64
	linearPos        float64
	radius           float64

	remaining    int
	subDuration  float64
	basePosition machine.Position
}

// start computes the tessellation parameters for a freshly-RUNNING arc
// buffer: segment count, angular increment, linear increment, and the
// circle center derived from the start position and (theta, radius).
func (s *arcState) start(buf *machine.Buffer, from machine.Position, minSegmentLength float64) {
	a := buf.Arc
	arcLength := math.Abs(a.AngularTravel) * a.Radius
	n := int(math.Ceil(arcLength / minSegmentLength))
	if n < 1 {
		n = 1
	}

	*s = arcState{
		active:           true,
		axis1:            a.Axis1,
		axis2:            a.Axis2,
		axisLinear:       a.AxisLinear,
		theta:            a.Theta,
		angularIncrement: a.AngularTravel / float64(n),
		linearIncrement:  a.LinearTravel / float64(n),
		radius:           a.Radius,
		remaining:        n,
		basePosition:     from,
	}
	s.center[0] = from[a.Axis1] - a.Radius*arcCos(a.Theta)
	s.center[1] = from[a.Axis2] - a.Radius*arcSin(a.Theta)

	if buf.Time > 0 {
		s.subDuration = buf.Time / float64(n)
	}
}

// step enqueues one line sub-move toward the next point on the arc, or
// reports BufferDone once the tessellation counter has exhausted every
// sub-move. A full planner queue yields Again so the dispatcher retries
// on the next tick with tessellation state intact.
func (s *arcState) step(tp *planner.Planner) seggen.Result {
	if s.remaining == 0 {
		s.active = false
		return seggen.BufferDone
	}

	s.theta += s.angularIncrement
	s.linearPos += s.linearIncrement

	target := s.basePosition
	target[s.axis1] = s.center[0] + s.radius*arcCos(s.theta)
	target[s.axis2] = s.center[1] + s.radius*arcSin(s.theta)
	target[s.axisLinear] = s.basePosition[s.axisLinear] + s.linearPos

	switch tp.EnqueueLine(target, s.subDuration) {
	case machine.BufferFullNonFatal, machine.BufferFullFatal:
		s.theta -= s.angularIncrement
		s.linearPos -= s.linearIncrement
		return seggen.Again
	case machine.ZeroLength:
		// Degenerate sub-segment (can happen on the final increment when
		// floating-point rounding lands exactly back on the prior point):
		// skip it rather than stalling tessellation.
	}

	s.remaining--
	if s.remaining == 0 {
		s.active = false
		return seggen.BufferDone
	}
	return seggen.InProgress
}
