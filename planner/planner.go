// Package planner implements the Trajectory Planner (TP): it turns
// canonical motion requests (line, arc, dwell, start/stop/end) into
// QUEUED planner buffers with computed head/body/tail breakdowns and
// entry/cruise/exit velocities, and back-plans across the queue's
// replannable tail each time a new move arrives.
package planner

import (
	"math"

	"motionforge/machine"
)

// Planner is the Trajectory Planner. It owns the planner queue and the
// current planning-position cursor (distinct from the runtime position
// the segment generator tracks).
type Planner struct {
	cfg      *machine.MachineConfig
	queue    *machine.Queue
	planPos  machine.Position
	mpeBusy  func() bool // reports whether the pulse engine is still stepping
}

// NewPlanner creates a Planner over a ring of the given capacity (design
// target 8-32 slots).
func NewPlanner(cfg *machine.MachineConfig, ringSize int, mpeBusy func() bool) *Planner {
	return &Planner{
		cfg:     cfg,
		queue:   machine.NewQueue(ringSize),
		mpeBusy: mpeBusy,
	}
}

// Queue exposes the underlying ring for the dispatcher and segment
// generator.
func (p *Planner) Queue() *machine.Queue { return p.queue }

// Busy reports whether the MPE is still stepping or any planner buffer is
// not EMPTY.
func (p *Planner) Busy() bool {
	if p.mpeBusy != nil && p.mpeBusy() {
		return true
	}
	return p.queue.Busy()
}

// SetPosition establishes a new planning position without generating
// motion. The segment generator's runtime position (the dispatcher's
// cursor) is not changed.
func (p *Planner) SetPosition(pos machine.Position) {
	p.planPos = pos
}

// Position returns the current planning-position cursor.
func (p *Planner) Position() machine.Position {
	return p.planPos
}

// effectiveJerk is the minimum max_jerk over axes participating in the
// move (nonzero unit component).
func (p *Planner) effectiveJerk(unit machine.Position) float64 {
	jerk := math.MaxFloat64
	for i := 0; i < int(machine.MaxAxes); i++ {
		if unit[i] == 0 {
			continue
		}
		if p.cfg.Axes[i].MaxJerk < jerk {
			jerk = p.cfg.Axes[i].MaxJerk
		}
	}
	if jerk == math.MaxFloat64 {
		return 0
	}
	return jerk
}

// velocityCap is the per-axis velocity cap projected onto unit: the
// largest cruise velocity that keeps every participating axis within its
// max_velocity.
func (p *Planner) velocityCap(unit machine.Position) float64 {
	vcap := math.MaxFloat64
	for i := 0; i < int(machine.MaxAxes); i++ {
		u := math.Abs(unit[i])
		if u == 0 {
			continue
		}
		axisCap := p.cfg.Axes[i].MaxVelocity / u
		if axisCap < vcap {
			vcap = axisCap
		}
	}
	if vcap == math.MaxFloat64 {
		return p.cfg.DefaultVelocity
	}
	return vcap
}

// EnqueueLine implements enqueue_line(target, duration_minutes).
func (p *Planner) EnqueueLine(target machine.Position, durationMinutes float64) machine.Status {
	unit, length := unitVector(p.planPos, target)
	if length < p.cfg.MinLineLength {
		return machine.ZeroLength
	}

	buf, ok := p.queue.AllocateBuffer()
	if !ok {
		return machine.BufferFullNonFatal
	}

	buf.MoveType = machine.Line
	buf.Target = target
	buf.Unit = unit
	buf.Length = length
	buf.Time = durationMinutes

	cruiseSet := p.velocityCap(unit)
	if durationMinutes > 0 {
		requested := length / (durationMinutes * 60.0) // mm/s implied by the requested duration
		if requested < cruiseSet {
			cruiseSet = requested
		}
	}
	buf.CruiseVelocitySet = cruiseSet
	buf.Replannable = true

	p.planJunction(buf, unit)
	p.computeBuffer(buf)
	p.backPlan(buf)

	p.queue.Commit(buf)
	p.planPos = target
	return machine.OK
}

// EnqueueArc implements enqueue_arc: it records the arc sub-record: arc
// tessellation into line sub-moves happens at run time in the dispatcher,
// not here.
func (p *Planner) EnqueueArc(target machine.Position, theta, radius, angularTravel, linearTravel float64, axis1, axis2, axisLinear machine.Axis, durationMinutes float64) machine.Status {
	buf, ok := p.queue.AllocateBuffer()
	if !ok {
		return machine.BufferFullNonFatal
	}

	unit, length := unitVector(p.planPos, target)
	buf.MoveType = machine.Arc
	buf.Target = target
	buf.Unit = unit
	buf.Length = length
	buf.Time = durationMinutes
	buf.Arc = machine.ArcInfo{
		Theta:         theta,
		Radius:        radius,
		AngularTravel: angularTravel,
		LinearTravel:  linearTravel,
		Axis1:         axis1,
		Axis2:         axis2,
		AxisLinear:    axisLinear,
	}
	buf.CruiseVelocitySet = p.velocityCap(unit)
	buf.Replannable = true

	p.planJunction(buf, unit)
	p.computeBuffer(buf)
	p.backPlan(buf)

	p.queue.Commit(buf)
	p.planPos = target
	return machine.OK
}

// EnqueueDwell implements enqueue_dwell(seconds).
func (p *Planner) EnqueueDwell(seconds float64) machine.Status {
	buf, ok := p.queue.AllocateBuffer()
	if !ok {
		return machine.BufferFullNonFatal
	}
	buf.MoveType = machine.Dwell
	buf.Time = seconds / 60.0
	buf.Replannable = false

	// Dwells force the neighbouring lines' entry/exit velocity to zero:
	// the buffer immediately preceding a dwell can carry no exit speed
	// through it.
	if prev := p.queue.LastQueued(); prev != nil {
		prev.ExitVelocity = 0
		prev.JoinVelocityLimit = 0
		p.recomputePrev(prev)
	}

	p.queue.Commit(buf)
	return machine.OK
}

func (p *Planner) enqueueMarker(mt machine.MoveType) machine.Status {
	buf, ok := p.queue.AllocateBuffer()
	if !ok {
		return machine.BufferFullNonFatal
	}
	buf.MoveType = mt
	buf.Replannable = false
	p.queue.Commit(buf)
	return machine.OK
}

// EnqueueStart implements enqueue_start() (a queued_start marker).
func (p *Planner) EnqueueStart() machine.Status { return p.enqueueMarker(machine.Start) }

// EnqueueStop implements enqueue_stop() (a queued_stop marker).
func (p *Planner) EnqueueStop() machine.Status { return p.enqueueMarker(machine.Stop) }

// EnqueueEnd implements enqueue_end() (a queued_end marker).
func (p *Planner) EnqueueEnd() machine.Status { return p.enqueueMarker(machine.End) }

// planJunction computes buf.JoinVelocityLimit against the previously
// queued move, honoring the configured path-control mode.
func (p *Planner) planJunction(buf *machine.Buffer, unit machine.Position) {
	prev := p.queue.LastQueued()
	if prev == nil || prev.MoveType == machine.Dwell || prev.MoveType == machine.Stop || prev.MoveType == machine.End {
		buf.JoinVelocityLimit = 0
		return
	}

	switch p.cfg.PathControlMode {
	case machine.ExactStop:
		buf.JoinVelocityLimit = 0
	case machine.Continuous:
		buf.JoinVelocityLimit = math.MaxFloat64
	default:
		buf.JoinVelocityLimit = junctionVelocity(prev.Unit, unit, p.cfg)
	}
}

// computeBuffer runs the jerk-limited segment computation for buf using
// its current entry/cruise-set/exit velocities, honoring the join
// velocity limit.
func (p *Planner) computeBuffer(buf *machine.Buffer) {
	jerk := p.effectiveJerk(buf.Unit)
	entry := math.Min(buf.EntryVelocity, buf.JoinVelocityLimit)
	head, body, tail, cruise, _ := computeSegments(entry, buf.CruiseVelocitySet, buf.ExitVelocity, buf.Length, jerk, p.cfg.MinLineLength, p.cfg.Epsilon)
	buf.HeadLength, buf.BodyLength, buf.TailLength, buf.CruiseVelocity = head, body, tail, cruise
	buf.EntryVelocity = entry
}

// recomputePrev re-runs segment computation on a buffer whose exit
// velocity was just externally constrained (e.g. by a following dwell).
func (p *Planner) recomputePrev(buf *machine.Buffer) {
	jerk := p.effectiveJerk(buf.Unit)
	head, body, tail, cruise, _ := computeSegments(buf.EntryVelocity, buf.CruiseVelocitySet, buf.ExitVelocity, buf.Length, jerk, p.cfg.MinLineLength, p.cfg.Epsilon)
	buf.HeadLength, buf.BodyLength, buf.TailLength, buf.CruiseVelocity = head, body, tail, cruise
}

// maxStoppableVelocity is the peak velocity of a move of the given length
// that accelerates from rest and brakes back to zero under jerk jm, each
// ramp taking half the length; from the head/tail closed form with
// V1=V, V2=0: L/2 = V*sqrt(V/jm)  =>  V = (L*sqrt(jm)/2)^(2/3).
func maxStoppableVelocity(length, jerk float64) float64 {
	if jerk <= 0 || length <= 0 {
		return 0
	}
	return math.Pow(length*math.Sqrt(jerk)/2, 2.0/3.0)
}

// backPlan implements the three-phase back-planning algorithm of spec
// §4.1, run each time a new move (newBuf) is enqueued.
func (p *Planner) backPlan(newBuf *machine.Buffer) {
	jerk := p.effectiveJerk(newBuf.Unit)
	newBuf.DiffVelocity = maxStoppableVelocity(newBuf.Length, jerk)
	newBuf.DiffToStop = newBuf.DiffVelocity

	// Backward pass: walk prev while replannable, accumulating
	// difference_to_stop. The walk stops at a RUNNING buffer and never
	// wraps back onto the new move.
	first := newBuf.Index
	p.queue.WalkReplannableTail(p.queue.Prev(newBuf.Index), func(buf *machine.Buffer) bool {
		if buf == newBuf || buf.State == machine.Running {
			return false
		}
		axJerk := p.effectiveJerk(buf.Unit)
		buf.DiffVelocity = maxStoppableVelocity(buf.Length, axJerk)
		next := p.queue.At(p.queue.Next(buf.Index))
		buf.DiffToStop = buf.DiffVelocity + next.DiffToStop
		first = buf.Index
		return true
	})

	// Forward pass: from the earliest replannable buffer forward to (and
	// including) the new move, recompute entry/exit/cruise. Each buffer's
	// entry is its predecessor's already-finalized exit.
	i := first
	prevExit := p.queue.At(first).EntryVelocity
	if pred := p.queue.At(p.queue.Prev(first)); pred.State != machine.Empty && pred != newBuf {
		prevExit = pred.ExitVelocity
	}
	for {
		buf := p.queue.At(i)
		if buf.State == machine.Empty {
			break
		}
		next := p.queue.At(p.queue.Next(i))

		buf.EntryVelocity = prevExit

		newExit := math.MaxFloat64
		if next.State != machine.Empty {
			newExit = math.Min(newExit, next.JoinVelocityLimit)
			newExit = math.Min(newExit, next.CruiseVelocitySet)
			newExit = math.Min(newExit, buf.DiffToSetV)
			newExit = math.Min(newExit, buf.DiffToStop)
		} else {
			newExit = 0
		}
		if i == newBuf.Index {
			// Finalize: the newest move brakes to zero worst-case; it may
			// be raised later once another move arrives behind it.
			newExit = 0
		}
		buf.ExitVelocity = math.Max(0, newExit)
		buf.DiffToSetV = buf.CruiseVelocitySet

		p.computeBuffer(buf)

		atJoinLimit := buf.EntryVelocity >= buf.JoinVelocityLimit-p.cfg.Epsilon
		atSetpoint := buf.CruiseVelocity >= buf.CruiseVelocitySet-p.cfg.Epsilon
		atExitLimit := i != newBuf.Index && buf.ExitVelocity >= next.JoinVelocityLimit-p.cfg.Epsilon
		if atJoinLimit && atSetpoint && atExitLimit {
			buf.Replannable = false
		}

		if i == newBuf.Index {
			break
		}
		prevExit = buf.ExitVelocity
		i = p.queue.Next(i)
	}
}

