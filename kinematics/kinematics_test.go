package kinematics

import (
	"testing"

	"motionforge/machine"
)

func TestCartesianIdentity(t *testing.T) {
	var k Cartesian
	travel := machine.Position{0: 1.5, 1: -2.5}
	out := k.Transform(travel)
	if out != travel {
		t.Errorf("Cartesian transform should be identity, got %v want %v", out, travel)
	}
}

func TestStepsForMotorsAppliesPolarityAndMapping(t *testing.T) {
	var axes [machine.MaxAxes]machine.AxisConfig
	axes[machine.AxisX].StepsPerMM = 80
	axes[machine.AxisZ].StepsPerMM = 400

	motors := []machine.MotorConfig{
		{Axis: machine.AxisX, Polarity: 1},
		{Axis: machine.AxisZ, Polarity: -1}, // dual-Z style inverted motor
		{Axis: machine.AxisZ, Polarity: 1},
	}

	travel := machine.Position{machine.AxisX: 1, machine.AxisZ: 0.5}
	steps := StepsForMotors(travel, motors, axes)

	if steps[0] != 80 {
		t.Errorf("expected 80 X steps, got %d", steps[0])
	}
	if steps[1] != -200 {
		t.Errorf("expected -200 steps for the inverted Z motor, got %d", steps[1])
	}
	if steps[2] != 200 {
		t.Errorf("expected 200 steps for the non-inverted Z motor, got %d", steps[2])
	}
}
