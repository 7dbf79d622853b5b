package mpe

import "motionforge/core"

// PulseBackend is the hardware abstraction the DDA ISR drives: one
// implementation serves all motors, indexed by motor number, adapting
// core.StepperBackend's single-motor Step/SetDirection/Stop contract to
// the multi-motor segment the engine executes.
type PulseBackend interface {
	EmitStep(motor int)
	SetDirection(motor int, reverse bool)
	EnableMotor(motor int)
	DisableMotor(motor int)
}

// MotorConfig is the subset of machine.MotorConfig the engine itself
// needs at run time (polarity and idle power-down), kept local to avoid
// a dependency from mpe back to the gcode-facing machine package types
// that don't matter to pulse generation.
type MotorConfig struct {
	Polarity        int8
	PowerDownOnIdle bool
}

// Engine is the Motor Pulse Engine. It owns the segment ring and the
// per-motor Bresenham error accumulators, and is driven one DDA tick at a
// time by the timer ISR.
type Engine struct {
	ring    *Ring
	backend PulseBackend
	motors  []MotorConfig

	counter       [MaxMotors]int64
	ticksRemaining uint32
	current        Segment
	hasCurrent     bool
	direction      [MaxMotors]bool

	// stepped counts total pulses emitted per motor for the currently
	// loaded segment; used by tests and by step-conservation checks.
	stepped [MaxMotors]int64
}

// NewEngine creates a pulse engine over ringCapacity segment slots,
// driving the given backend for the given motor configuration.
func NewEngine(ringCapacity int, backend PulseBackend, motors []MotorConfig) *Engine {
	return &Engine{
		ring:    NewRing(ringCapacity),
		backend: backend,
		motors:  motors,
	}
}

// Ring exposes the segment ring so the segment generator can push onto
// it and the dispatcher can check fullness.
func (e *Engine) Ring() *Ring { return e.ring }

// Busy reports whether the engine is mid-segment or has segments queued.
func (e *Engine) Busy() bool {
	return e.hasCurrent || !e.ring.Empty()
}

// loadNext pops the next segment off the ring and installs it as the
// current segment, re-phasing error accumulators if requested. Returns
// false if the ring was empty.
func (e *Engine) loadNext() bool {
	seg, ok := e.ring.Pop()
	if !ok {
		e.hasCurrent = false
		return false
	}
	e.current = seg
	e.hasCurrent = true
	e.ticksRemaining = seg.TimerTicks
	for i := range e.stepped {
		e.stepped[i] = 0
	}

	for m := 0; m < int(seg.NumMotors); m++ {
		if seg.CounterResetFlag {
			e.counter[m] = -int64(seg.TimerTicks)
		} else {
			e.counter[m] = 0
		}
		reverse := seg.Steps[m] < 0
		e.direction[m] = reverse
		if e.backend != nil {
			e.backend.SetDirection(m, reverse != (e.motorPolarity(m) < 0))
		}
	}

	switch seg.Type {
	case SegmentStop, SegmentEnd:
		e.disableAll(int(seg.NumMotors))
	case SegmentStart:
		e.enableAll(int(seg.NumMotors))
	}

	return true
}

func (e *Engine) motorPolarity(m int) int8 {
	if m < len(e.motors) {
		return e.motors[m].Polarity
	}
	return 1
}

func (e *Engine) enableAll(n int) {
	if e.backend == nil {
		return
	}
	for m := 0; m < n; m++ {
		e.backend.EnableMotor(m)
	}
}

func (e *Engine) disableAll(n int) {
	if e.backend == nil {
		return
	}
	for m := 0; m < n; m++ {
		e.backend.DisableMotor(m)
	}
}

// Tick runs one DDA increment: the multi-axis Bresenham step per spec
// §4.3. Call this from the hardware timer ISR. Returns true if a step
// pulse loop is (still) active after this tick.
func (e *Engine) Tick() bool {
	if !e.hasCurrent {
		if !e.loadNext() {
			return false
		}
	}

	seg := &e.current
	emitPulses := seg.Type == SegmentLine

	for m := 0; m < int(seg.NumMotors); m++ {
		steps := int64(seg.Steps[m])
		if steps < 0 {
			steps = -steps
		}
		e.counter[m] += steps
		if e.counter[m] > 0 {
			if emitPulses && e.backend != nil {
				e.backend.EmitStep(m)
			}
			if emitPulses {
				e.stepped[m]++
				core.IncrementStepCount(1)
			}
			e.counter[m] -= int64(seg.TimerTicksScaled)
		}
	}

	if e.ticksRemaining > 0 {
		e.ticksRemaining--
	}
	if e.ticksRemaining == 0 {
		e.endOfSegment()
		return e.hasCurrent || !e.ring.Empty()
	}
	return true
}

// endOfSegment fires once a segment's DDA ticks are exhausted: it powers
// down idle-configured motors and requests the next segment load.
func (e *Engine) endOfSegment() {
	seg := e.current
	for m := 0; m < int(seg.NumMotors); m++ {
		if m < len(e.motors) && e.motors[m].PowerDownOnIdle && e.backend != nil {
			e.backend.DisableMotor(m)
		}
	}
	e.hasCurrent = false
	e.loadNext()
}

// Reset disables every configured motor and discards both the current
// segment and the ring's contents (kill()/terminate semantics: the DDA
// ISR observes hasCurrent false and stops emitting on its next tick).
func (e *Engine) Reset() {
	e.disableAll(len(e.motors))
	for !e.ring.Empty() {
		e.ring.Pop()
	}
	e.hasCurrent = false
	e.current = Segment{}
	e.ticksRemaining = 0
	for i := range e.counter {
		e.counter[i] = 0
		e.stepped[i] = 0
	}
}

// StepsEmitted returns the number of pulses emitted for motor m during
// the currently (or most recently) loaded segment. Used by tests to
// verify conservation of steps.
func (e *Engine) StepsEmitted(m int) int64 {
	if m < 0 || m >= len(e.stepped) {
		return 0
	}
	return e.stepped[m]
}
