package planner

import (
	"math"
	"testing"

	"motionforge/machine"
)

func TestJunctionVelocityColinear(t *testing.T) {
	cfg := testConfig()
	a := machine.Position{0: 1}
	v := junctionVelocity(a, a, cfg)
	if v != math.MaxFloat64 {
		t.Errorf("colinear unit vectors should yield an unbounded junction velocity, got %v", v)
	}
}

func TestJunctionVelocityReversal(t *testing.T) {
	cfg := testConfig()
	a := machine.Position{0: 1}
	b := machine.Position{0: -1}
	v := junctionVelocity(a, b, cfg)
	if v != 0 {
		t.Errorf("a 180-degree reversal should yield zero junction velocity, got %v", v)
	}
}

func TestJunctionVelocityRightAngle(t *testing.T) {
	cfg := testConfig()
	a := machine.Position{0: 1}
	b := machine.Position{1: 1}
	v := junctionVelocity(a, b, cfg)
	if v <= 0 || math.IsInf(v, 1) {
		t.Errorf("a 90-degree corner should yield a finite positive junction velocity, got %v", v)
	}
}

func TestUnitVectorAndLength(t *testing.T) {
	from := machine.Position{}
	to := machine.Position{0: 3, 1: 4}
	unit, length := unitVector(from, to)
	if length != 5 {
		t.Fatalf("expected length 5 (3-4-5 triangle), got %v", length)
	}
	if math.Abs(unit[0]-0.6) > 1e-9 || math.Abs(unit[1]-0.8) > 1e-9 {
		t.Errorf("expected unit vector (0.6, 0.8), got (%v, %v)", unit[0], unit[1])
	}
}
