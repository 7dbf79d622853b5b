package seggen

import (
	"math"

	"motionforge/kinematics"
	"motionforge/machine"
	"motionforge/mpe"
)

// Result is SG's cooperative return value: each call either advances the
// buffer's state (InProgress), completes it (BufferDone), or asks to be
// retried next tick because the MPE ring is full (Again).
type Result uint8

const (
	Again Result = iota
	InProgress
	BufferDone
)

// Generator runs the S-curve sample loop for one RUNNING planner buffer
// at a time, emitting segments into the MPE ring.
type Generator struct {
	cfg    *machine.MachineConfig
	motors []machine.MotorConfig
	kin    kinematics.Kinematics
	ring   *mpe.Ring
}

// New creates a Generator bound to the given configuration, motor
// mapping, kinematics, and MPE segment ring.
func New(cfg *machine.MachineConfig, motors []machine.MotorConfig, kin kinematics.Kinematics, ring *mpe.Ring) *Generator {
	return &Generator{cfg: cfg, motors: motors, kin: kin, ring: ring}
}

// Step advances cur by one cooperative unit of work. For DWELL and
// marker (START/STOP/END) buffers it emits a single segment and
// completes. For LINE/JERK_LINE/ARC-tessellated-as-LINE buffers it runs
// the five-segment S-curve sampler.
func (g *Generator) Step(cur *Cursor) Result {
	if cur.Buf == nil {
		return BufferDone
	}
	buf := cur.Buf

	switch buf.MoveType {
	case machine.Dwell:
		return g.stepMarker(cur, mpe.SegmentDwell, buf.Time*60.0)
	case machine.Start:
		return g.stepMarker(cur, mpe.SegmentStart, 0)
	case machine.Stop:
		return g.stepMarker(cur, mpe.SegmentStop, 0)
	case machine.End:
		return g.stepMarker(cur, mpe.SegmentEnd, 0)
	default:
		return g.stepLine(cur)
	}
}

// stepMarker emits the single segment a dwell or start/stop/end buffer
// needs and completes it.
func (g *Generator) stepMarker(cur *Cursor, t mpe.SegmentType, durationSeconds float64) Result {
	if g.ring.Full() {
		return Again
	}
	if durationSeconds <= 0 {
		durationSeconds = g.cfg.MinSegmentTimeUS / 1e6
	}
	seg, _ := buildSegment(cur.Buf, 0, durationSeconds, t, nil, g.cfg.Axes, kinematics.Cartesian{}, cur.prevTimerTicks)
	g.ring.Push(seg)
	cur.prevTimerTicks = seg.TimerTicks
	cur.State = Done
	return BufferDone
}

// stepLine drives the NEW -> ACCEL_0 -> ... -> DECEL_2 -> DONE state
// machine for a line move.
func (g *Generator) stepLine(cur *Cursor) Result {
	buf := cur.Buf

	switch cur.State {
	case StateNew:
		if buf.HeadLength > g.cfg.MinLineLength {
			g.setupRamp(cur, buf.EntryVelocity, buf.CruiseVelocity, buf.HeadLength)
			cur.State = Accel1
		} else if buf.BodyLength > g.cfg.MinLineLength {
			cur.State = Cruise
		} else {
			g.setupRamp(cur, buf.CruiseVelocity, buf.ExitVelocity, buf.TailLength)
			cur.State = Decel1
		}
		return InProgress

	case Accel1, Accel2:
		return g.emitRampSegment(cur, Accel2, Cruise)

	case Cruise:
		if buf.BodyLength > g.cfg.MinLineLength && buf.CruiseVelocity > 0 {
			if g.ring.Full() {
				return Again
			}
			duration := buf.BodyLength / buf.CruiseVelocity
			seg, travel := buildSegment(buf, buf.BodyLength, duration, mpe.SegmentLine, g.motors, g.cfg.Axes, g.kin, cur.prevTimerTicks)
			g.ring.Push(seg)
			cur.Position = addPos(cur.Position, travel)
			cur.prevTimerTicks = seg.TimerTicks
		}
		if buf.TailLength > g.cfg.MinLineLength {
			g.setupRamp(cur, buf.CruiseVelocity, buf.ExitVelocity, buf.TailLength)
			cur.State = Decel1
		} else {
			cur.State = Done
			return BufferDone
		}
		return InProgress

	case Decel1, Decel2:
		res := g.emitRampSegment(cur, Decel2, Done)
		if cur.State == Done {
			return BufferDone
		}
		return res
	}

	return BufferDone
}

// setupRamp seeds the midpoint-velocity sampling scratch for one
// jerk-limited half (ACCEL_0/DECEL_0 of spec §4.2).
func (g *Generator) setupRamp(cur *Cursor, vIn, vOut, length float64) {
	cur.midVelocity = (vIn + vOut) / 2
	cur.remainingLength = length

	if cur.midVelocity <= 0 || length <= 0 {
		cur.segTotal, cur.segCounter = 0, 0
		return
	}

	duration := length / cur.midVelocity
	jerk := g.effectiveJerk(cur.Buf.Unit)
	cur.midAccel = duration * (jerk / 2)

	n := int(math.Round(duration * 1e6 / g.cfg.MinSegmentTimeUS / 2))
	if n < 1 {
		n = 1
	}
	cur.segTotal = n
	cur.segCounter = n
	cur.segDuration = duration / (2 * float64(n))
	cur.elapsed = 0
	cur.startVel = vIn
	cur.endVel = vOut
}

func (g *Generator) effectiveJerk(unit machine.Position) float64 {
	jerk := math.MaxFloat64
	for i := 0; i < int(machine.MaxAxes); i++ {
		if unit[i] == 0 {
			continue
		}
		if g.cfg.Axes[i].MaxJerk < jerk {
			jerk = g.cfg.Axes[i].MaxJerk
		}
	}
	if jerk == math.MaxFloat64 {
		return 0
	}
	return jerk
}

// emitRampSegment samples one segment of the concave (_1) or convex (_2)
// half of a jerk-limited ramp and pushes it into the MPE ring. on
// completion of _2 it transitions cur.State to next and returns
// BufferDone only if next == Done; otherwise InProgress.
func (g *Generator) emitRampSegment(cur *Cursor, convexState, next SubState) Result {
	if cur.segTotal == 0 {
		// Degenerate ramp (zero length or zero midpoint velocity): skip
		// straight to the next phase.
		cur.State = next
		if next == Done {
			return BufferDone
		}
		return InProgress
	}
	if g.ring.Full() {
		return Again
	}

	jerk := g.effectiveJerk(cur.Buf.Unit)
	t := cur.elapsed
	var v float64
	if cur.State != convexState {
		v = cur.startVel + (jerk/2)*t*t
	} else {
		v = cur.midVelocity + cur.midAccel*t - (jerk/2)*t*t
	}
	if v < 0 {
		v = 0
	}

	cur.segCounter--
	last := cur.segCounter == 0 && cur.State == convexState

	length := v * cur.segDuration
	if last || length > cur.remainingLength {
		length = cur.remainingLength
	}
	cur.remainingLength -= length

	seg, travel := buildSegment(cur.Buf, length, cur.segDuration, mpe.SegmentLine, g.motors, g.cfg.Axes, g.kin, cur.prevTimerTicks)
	g.ring.Push(seg)
	cur.Position = addPos(cur.Position, travel)
	cur.prevTimerTicks = seg.TimerTicks

	cur.elapsed += cur.segDuration

	if cur.State != convexState {
		if cur.segCounter == 0 {
			cur.State = convexState
			cur.segCounter = cur.segTotal
			cur.elapsed = cur.segDuration / 2
		}
		return InProgress
	}

	if cur.segCounter == 0 {
		cur.State = next
		if next == Done {
			return BufferDone
		}
	}
	return InProgress
}

func addPos(a, b machine.Position) machine.Position {
	var r machine.Position
	for i := range r {
		r[i] = a[i] + b[i]
	}
	return r
}
