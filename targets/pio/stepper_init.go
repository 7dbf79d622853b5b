//go:build rp2040

package pio

import (
	"motionforge/core"
)

// StepperBackendMode selects which backend to use for steppers
type StepperBackendMode int

const (
	// StepperBackendAuto automatically selects best available backend
	StepperBackendAuto StepperBackendMode = iota
	// StepperBackendPIO uses PIO-based step generation (RP2040/RP2350 only)
	StepperBackendPIO
	// StepperBackendGPIO uses GPIO-based step generation (universal fallback)
	StepperBackendGPIO
)

var (
	// Current backend mode
	stepperBackendMode = StepperBackendPIO // Default to PIO for best performance

	// PIO allocation tracking
	// RP2040 has 2 PIO blocks (PIO0, PIO1) with 4 state machines each
	pioAllocations = [2][4]bool{} // [pioNum][smNum]
	nextPIONum     = uint8(0)
	nextSMNum      = uint8(0)
)

// MotorPins is one motor's step/dir pin assignment and polarity inversion,
// read from machine configuration at startup.
type MotorPins struct {
	StepPin, DirPin       uint8
	InvertStep, InvertDir bool
}

// MultiMotorBackend adapts a set of single-motor core.StepperBackend
// instances (PIO or GPIO, chosen per the current backend mode) to the
// mpe.PulseBackend contract the pulse engine drives: one call site
// indexed by motor number instead of one backend instance per motor.
type MultiMotorBackend struct {
	motors []core.StepperBackend
}

// NewMultiMotorBackend creates and initializes one backend per entry in
// pins using the current backend-selection mode, falling back to GPIO
// for any motor that exhausts PIO resources.
func NewMultiMotorBackend(pins []MotorPins) (*MultiMotorBackend, error) {
	motors := make([]core.StepperBackend, len(pins))
	for i, p := range pins {
		backend := createStepperBackend()
		if backend == nil {
			backend = NewGPIOStepperBackend()
		}
		if err := backend.Init(p.StepPin, p.DirPin, p.InvertStep, p.InvertDir); err != nil {
			return nil, err
		}
		motors[i] = backend
	}
	return &MultiMotorBackend{motors: motors}, nil
}

// EmitStep pulses motor m's step output.
func (b *MultiMotorBackend) EmitStep(m int) {
	if m >= 0 && m < len(b.motors) {
		b.motors[m].Step()
	}
}

// SetDirection sets motor m's direction output.
func (b *MultiMotorBackend) SetDirection(m int, reverse bool) {
	if m >= 0 && m < len(b.motors) {
		b.motors[m].SetDirection(reverse)
	}
}

// EnableMotor is a no-op on GPIO/PIO step/dir backends: they drive no
// enable output. Chip-driven motors are enabled by the driverchip
// package through the chip's TOFF register field.
func (b *MultiMotorBackend) EnableMotor(m int) {}

// DisableMotor immediately halts motor m's in-flight pulse, if any.
func (b *MultiMotorBackend) DisableMotor(m int) {
	if m >= 0 && m < len(b.motors) {
		b.motors[m].Stop()
	}
}

// createStepperBackend creates a stepper backend based on current mode
func createStepperBackend() core.StepperBackend {
	switch stepperBackendMode {
	case StepperBackendPIO:
		return createPIOBackend()
	case StepperBackendGPIO:
		return NewGPIOStepperBackend()
	case StepperBackendAuto:
		// Try PIO first, fall back to GPIO if PIO is exhausted
		backend := createPIOBackend()
		if backend != nil {
			return backend
		}
		return NewGPIOStepperBackend()
	default:
		return NewGPIOStepperBackend()
	}
}

// createPIOBackend creates a PIO-based stepper backend
// Returns nil if no PIO resources available
func createPIOBackend() core.StepperBackend {
	// Find available PIO state machine
	pioNum, smNum, ok := allocatePIO()
	if !ok {
		// No PIO available, return nil to fall back to GPIO
		return nil
	}

	return NewPIOStepperBackend(pioNum, smNum)
}

// allocatePIO allocates a PIO state machine
// Returns (pioNum, smNum, ok)
func allocatePIO() (uint8, uint8, bool) {
	// Round-robin allocation across PIO blocks and state machines
	for i := 0; i < 8; i++ { // 2 PIO Ã— 4 SM = 8 total
		pioNum := nextPIONum
		smNum := nextSMNum

		// Advance to next slot
		nextSMNum++
		if nextSMNum >= 4 {
			nextSMNum = 0
			nextPIONum = (nextPIONum + 1) % 2
		}

		// Check if this slot is free
		if !pioAllocations[pioNum][smNum] {
			pioAllocations[pioNum][smNum] = true
			return pioNum, smNum, true
		}
	}

	// All PIO resources exhausted
	return 0, 0, false
}

// SetStepperBackendMode sets the backend mode for future steppers
// Must be called before creating steppers
func SetStepperBackendMode(mode StepperBackendMode) {
	stepperBackendMode = mode
}

// GetPIOAllocationStatus returns PIO allocation status for debugging
func GetPIOAllocationStatus() [2][4]bool {
	return pioAllocations
}
