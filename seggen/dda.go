package seggen

import (
	"motionforge/core"
	"motionforge/kinematics"
	"motionforge/machine"
	"motionforge/mpe"
)

// DDA tuning constants (spec §4.2's F_DDA_MIN/F_DDA_MAX/overclock cap are
// named but not numerically pinned in the source; these are the
// configuration constants the spec's design notes ask implementations to
// expose).
const (
	fDDAMin        = 10.0      // Hz, floor the DDA rate is raised to when full overclock stays below it
	fDDAMax        = 300000.0  // Hz, ceiling the overclocked rate must stay under
	overclockKMax  = 8         // largest integer overclock multiplier tried
	substepsMax    = 256       // initial Bresenham fixed-point scale
	resetFactor    = 2         // counter_reset_flag trips when ticks shrink by this much
)

// computeDDA derives the DDA clock for one segment from its major-axis
// step count and wall-clock duration, choosing an integer overclock
// factor and a substep scale that keep timer_ticks_scaled inside 32 bits.
func computeDDA(steps []int64, durationSeconds float64, prevTimerTicks uint32) (period, ticks, ticksScaled uint32, resetFlag bool) {
	var majorAxisSteps int64
	for _, s := range steps {
		if s < 0 {
			s = -s
		}
		if s > majorAxisSteps {
			majorAxisSteps = s
		}
	}

	durationMicros := durationSeconds * 1e6
	if majorAxisSteps == 0 || durationMicros <= 0 {
		ticks = uint32(durationMicros)
		if ticks == 0 {
			ticks = 1
		}
		ticksScaled = ticks
		period = core.TimerFreq / 1000
		return period, ticks, ticksScaled, ticks*resetFactor < prevTimerTicks
	}

	fBase := float64(majorAxisSteps) * 1e6 / durationMicros

	k := 1
	for kk := overclockKMax; kk >= 1; kk-- {
		if fBase*float64(kk) < fDDAMax {
			k = kk
			break
		}
	}
	fDDA := fBase * float64(k)
	if fDDA < fDDAMin {
		if fBase*overclockKMax < fDDAMin {
			fDDA = fDDAMin
		} else {
			fDDA = fBase * overclockKMax
		}
	}

	ticks = uint32(durationSeconds * fDDA)
	if ticks == 0 {
		ticks = 1
	}

	substeps := uint64(substepsMax)
	scaled := uint64(ticks) * substeps
	for scaled > 0xFFFFFFFF && substeps > 1 {
		substeps /= 2
		scaled = uint64(ticks) * substeps
	}
	if scaled > 0xFFFFFFFF {
		// Even one substep overflows: clamp to the 32-bit maximum. The
		// overclock factor is not reduced and no diagnostic is recorded.
		scaled = 0xFFFFFFFF
	}
	ticksScaled = uint32(scaled)

	period = uint32(core.TimerFreq / uint32(fDDA))
	if period == 0 {
		period = 1
	}

	resetFlag = uint64(ticks)*resetFactor < uint64(prevTimerTicks)
	return period, ticks, ticksScaled, resetFlag
}

// buildSegment runs the axis-to-motor transform and DDA clock
// computation for a segment that travels segLength mm along buf.Unit
// over durationSeconds, and returns the ring-ready mpe.Segment plus the
// axis-space travel actually applied (for updating the tool position).
func buildSegment(buf *machine.Buffer, segLength, durationSeconds float64, segType mpe.SegmentType, motors []machine.MotorConfig, axes [machine.MaxAxes]machine.AxisConfig, kin kinematics.Kinematics, prevTimerTicks uint32) (mpe.Segment, machine.Position) {
	var travel machine.Position
	for i := range travel {
		travel[i] = buf.Unit[i] * segLength
	}
	transformed := kin.Transform(travel)
	steps := kinematics.StepsForMotors(transformed, motors, axes)

	period, ticks, ticksScaled, reset := computeDDA(steps, durationSeconds, prevTimerTicks)

	seg := mpe.Segment{
		Type:             segType,
		NumMotors:        uint8(len(motors)),
		TimerPeriod:      period,
		TimerTicks:       ticks,
		TimerTicksScaled: ticksScaled,
		CounterResetFlag: reset,
	}
	for m, s := range steps {
		if m >= mpe.MaxMotors {
			break
		}
		seg.Steps[m] = int32(s)
	}
	return seg, transformed
}
