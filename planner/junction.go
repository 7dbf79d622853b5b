package planner

import (
	"math"

	"motionforge/machine"
)

// junctionVelocity computes the join_velocity_limit at the corner between
// two moves with unit direction vectors a (incoming) and b (outgoing),
// per spec §4.1: the corner is modeled as an inscribed arc whose radius
// depends on a path-deviation tolerance delta and the turn angle.
func junctionVelocity(a, b machine.Position, cfg *machine.MachineConfig) float64 {
	c := -dot(a, b)

	if math.Abs(c+1) < cfg.Epsilon {
		// Straight line, theta ~ 0: no geometric limit; cruise caps apply
		// downstream.
		return math.MaxFloat64
	}
	if math.Abs(c-1) < cfg.Epsilon {
		// 180-degree reversal.
		return 0
	}

	sinHalfTheta := math.Sqrt((1 - c) / 2)
	if sinHalfTheta >= 1 {
		return 0
	}

	delta := blendedCornerOffset(a, b, cfg)
	radius := delta * sinHalfTheta / (1 - sinHalfTheta)

	v := cfg.CornerAcceleration * radius
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

// blendedCornerOffset computes the weighted delta used in the junction
// formula: each axis's per-axis corner offset is scaled by that axis's
// contribution to both unit vectors, so axes with tighter dynamics (a
// slow Z, say) pull the effective corner radius tighter.
func blendedCornerOffset(a, b machine.Position, cfg *machine.MachineConfig) float64 {
	var weightedSum, weightTotal float64
	for i := 0; i < int(machine.MaxAxes); i++ {
		weight := math.Abs(a[i]) + math.Abs(b[i])
		weightedSum += weight * cfg.Axes[i].CornerOffset
		weightTotal += weight
	}
	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

func dot(a, b machine.Position) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// unitVector returns the unit direction vector from 'from' to 'to' and
// the Cartesian path length between them.
func unitVector(from, to machine.Position) (machine.Position, float64) {
	delta := to.Sub(from)
	var sumSq float64
	for _, d := range delta {
		sumSq += d * d
	}
	length := math.Sqrt(sumSq)
	if length == 0 {
		return machine.Position{}, 0
	}
	var unit machine.Position
	for i := range delta {
		unit[i] = delta[i] / length
	}
	return unit, length
}
