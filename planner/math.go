package planner

import "math"

// rampLength is the closed-form distance needed to transition between
// velocities v1 and v2 under max jerk jm: L = (v1+v2) * sqrt(|v1-v2| / jm).
func rampLength(v1, v2, jm float64) float64 {
	if jm <= 0 {
		return 0
	}
	dv := v1 - v2
	if dv < 0 {
		dv = -dv
	}
	return (v1 + v2) * math.Sqrt(dv/jm)
}

// rampAccel is the acceleration implied by ramping between v1 and v2 over
// a jerk-limited S-curve: a = sqrt(jm * |v2-v1|).
func rampAccel(v1, v2, jm float64) float64 {
	dv := v2 - v1
	if dv < 0 {
		dv = -dv
	}
	return math.Sqrt(jm * dv)
}

// velocityFromRamp re-derives an achieved cruise velocity from entry/exit
// velocities, an acceleration estimate, and the available ramp length:
// V = sqrt((v1^2 + v2^2 + 2*a*L) / 2).
func velocityFromRamp(v1, v2, a, length float64) float64 {
	v := (v1*v1 + v2*v2 + 2*a*length) / 2
	if v <= 0 {
		return 0
	}
	return math.Sqrt(v)
}

const (
	maxIterations       = 20
	convergencePercent  = 0.01 // 1% relative threshold
)

// segmentCase identifies which of the spec's six cases produced a given
// segment breakdown, mostly useful for tests and diagnostics.
type segmentCase uint8

const (
	caseZero segmentCase = iota
	caseBody
	caseTrapezoid
	caseHeadOnly
	caseTailOnly
	caseTwoSegment
)

// computeSegments implements the jerk-limited segment computation of
// spec §4.1: given entry/cruise/exit velocities and a path length, it
// produces head/body/tail lengths and the actually achieved cruise
// velocity, selecting among the six cases in the spec's table.
func computeSegments(entry, cruiseSet, exit, length, jerk, minLineLength, eps float64) (head, body, tail, cruise float64, c segmentCase) {
	if length < minLineLength {
		return 0, 0, 0, 0, caseZero
	}

	// With no requested cruise velocity there is no plateau to plan
	// around: such moves go straight to the iterative solve below.
	hasCruise := cruiseSet > eps

	if hasCruise && math.Abs(entry-cruiseSet) < eps && math.Abs(cruiseSet-exit) < eps {
		return 0, length, 0, cruiseSet, caseBody
	}

	head = rampLength(entry, cruiseSet, jerk)
	tail = rampLength(cruiseSet, exit, jerk)

	if hasCruise && head+tail <= length {
		body = length - head - tail
		return head, body, tail, cruiseSet, caseTrapezoid
	}

	if hasCruise && math.Abs(exit-cruiseSet) < eps {
		// 1/2-seg head: ramp straight from entry to exit, cruise if room.
		head = rampLength(entry, exit, jerk)
		if head <= length {
			return head, length - head, 0, exit, caseHeadOnly
		}
	}
	if hasCruise && math.Abs(entry-cruiseSet) < eps {
		tail = rampLength(entry, exit, jerk)
		if tail <= length {
			return 0, length - tail, tail, entry, caseTailOnly
		}
	}

	// 2-segment iterative solve: find a reduced cruise velocity V such
	// that head(V,entry) + tail(V,exit) == length.
	v := (entry + exit) / 2
	if v <= 0 {
		v = cruiseSet / 2
	}
	for i := 0; i < maxIterations; i++ {
		a := rampAccel(entry, v, jerk)
		if a == 0 {
			a = rampAccel(exit, v, jerk)
		}
		newV := velocityFromRamp(entry, exit, a, length)
		if newV < entry && newV < exit {
			// No plateau reachable at all; fall back to the smaller of a
			// head-only or tail-only ramp.
			break
		}
		delta := newV - v
		if delta < 0 {
			delta = -delta
		}
		v = newV
		if v == 0 || delta/v < convergencePercent {
			break
		}
	}

	if v < entry {
		tail = rampLength(entry, exit, jerk)
		if tail > length {
			tail = length
		}
		return 0, length - tail, tail, entry, caseTailOnly
	}
	if v < exit {
		head = rampLength(entry, exit, jerk)
		if head > length {
			head = length
		}
		return head, length - head, 0, exit, caseHeadOnly
	}

	head = rampLength(entry, v, jerk)
	tail = rampLength(v, exit, jerk)
	if head+tail > length {
		// Residual imprecision from the iterative solve; scale both ramps
		// down proportionally so the invariant head+body+tail == length
		// holds exactly.
		scale := length / (head + tail)
		head *= scale
		tail *= scale
	}
	body = length - head - tail
	if body < 0 {
		body = 0
	}
	return head, body, tail, v, caseTwoSegment
}
