// Package kinematics implements the axis-to-motor transform the segment
// generator calls once per emitted segment: Transform maps the segment's
// axis travel to motor-space travel, and StepsForMotors turns that into
// per-motor step counts. The Cartesian case is an identity
// map; the interface and call signature leave room for non-identity
// mappings (delta, CoreXY) without touching the segment generator.
package kinematics

import (
	"math"

	"motionforge/machine"
)

// Kinematics converts a per-axis travel vector (mm, one planning segment's
// worth) into the equivalent axis-space travel actually driven. For
// Cartesian machines this is the identity; other geometries (delta,
// CoreXY) would mix axes here.
type Kinematics interface {
	Transform(axisTravel machine.Position) machine.Position
}

// Cartesian is the identity transform: each logical axis is driven
// independently.
type Cartesian struct{}

// Transform returns axisTravel unchanged.
func (Cartesian) Transform(axisTravel machine.Position) machine.Position {
	return axisTravel
}

// StepsForMotors maps a transformed axis-space travel vector onto
// integer step counts per physical motor, honoring each motor's
// motor_map binding and polarity (spec §3/§6: motor_map[motor] = axis,
// polarity[motor]). More than one motor may bind to the same axis (e.g.
// dual-Z), each independently signed.
func StepsForMotors(axisTravel machine.Position, motors []machine.MotorConfig, axes [machine.MaxAxes]machine.AxisConfig) []int64 {
	steps := make([]int64, len(motors))
	for m, mc := range motors {
		travel := axisTravel[mc.Axis]
		stepsPerMM := axes[mc.Axis].StepsPerMM
		s := math.Round(travel * stepsPerMM)
		if mc.Polarity < 0 {
			s = -s
		}
		steps[m] = int64(s)
	}
	return steps
}
