package driverchip

import "motionforge/core"

// StepBackend is the step/dir pulse source a chip-backed motor still
// needs: TMC5240-family chips in step/dir mode take pulses over GPIO or
// PIO exactly like a driverless board, they just add SPI-configured
// current control and enable-by-register on top.
type StepBackend = core.StepperBackend

// MotorChip pairs one motor's pulse backend with its driver chip's
// register-access Driver and its configured microstep resolution (the
// value Enable/Disable must echo back into CHOPCONF).
type MotorChip struct {
	Step       StepBackend
	Chip       *Driver
	Microsteps uint8
}

// Backend adapts a set of chip-driven motors to the mpe.PulseBackend
// contract: step/direction still go through each motor's StepBackend,
// while enable/disable go through the chip's own CHOPCONF TOFF field
// instead of a physical enable pin.
type Backend struct {
	motors []MotorChip
}

// NewBackend creates a Backend over the given per-motor chip bindings.
func NewBackend(motors []MotorChip) *Backend {
	return &Backend{motors: motors}
}

// EmitStep pulses motor m's step output.
func (b *Backend) EmitStep(m int) {
	if m >= 0 && m < len(b.motors) {
		b.motors[m].Step.Step()
	}
}

// SetDirection sets motor m's direction output.
func (b *Backend) SetDirection(m int, reverse bool) {
	if m >= 0 && m < len(b.motors) {
		b.motors[m].Step.SetDirection(reverse)
	}
}

// EnableMotor re-enables motor m's chopper via its driver chip.
func (b *Backend) EnableMotor(m int) {
	if m < 0 || m >= len(b.motors) {
		return
	}
	mc := b.motors[m]
	if mc.Chip != nil {
		mc.Chip.Enable(mc.Microsteps)
	}
}

// DisableMotor cuts motor m's current via its driver chip's TOFF field
// and stops any in-flight pulse on its step backend.
func (b *Backend) DisableMotor(m int) {
	if m < 0 || m >= len(b.motors) {
		return
	}
	mc := b.motors[m]
	if mc.Chip != nil {
		mc.Chip.Disable(mc.Microsteps)
	}
	mc.Step.Stop()
}
