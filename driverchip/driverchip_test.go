package driverchip

import (
	"testing"

	"motionforge/core"
)

type fakeComm struct {
	regs map[uint8]uint32
}

func newFakeComm() *fakeComm { return &fakeComm{regs: make(map[uint8]uint32)} }

func (f *fakeComm) WriteRegister(reg uint8, value uint32) error {
	f.regs[reg] = value
	return nil
}

func (f *fakeComm) ReadRegister(reg uint8) (uint32, error) {
	return f.regs[reg], nil
}

func TestConfigureWritesExpectedRegisters(t *testing.T) {
	comm := newFakeComm()
	d := New(comm)

	err := d.Configure(Config{IRun: 20, IHold: 8, IHoldDelay: 4, Microsteps: 4, StealthChop: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gconf := comm.regs[core.TMC5240_GCONF]
	if gconf&core.TMC5240_GCONF_EN_PWM_MODE == 0 {
		t.Errorf("expected StealthChop bit set in GCONF, got %#x", gconf)
	}

	iholdIrun := comm.regs[core.TMC5240_IHOLD_IRUN]
	if iholdIrun&0xFF != 8 {
		t.Errorf("expected IHOLD=8, got %#x", iholdIrun)
	}
	if (iholdIrun>>8)&0xFF != 20 {
		t.Errorf("expected IRUN=20, got %#x", iholdIrun)
	}

	chopconf := comm.regs[core.TMC5240_CHOPCONF]
	if chopconf&0xF == 0 {
		t.Errorf("expected TOFF nonzero (enabled) after Configure, got %#x", chopconf)
	}
}

func TestDisableClearsTOFF(t *testing.T) {
	comm := newFakeComm()
	d := New(comm)
	d.Configure(Config{Microsteps: 2})

	if err := d.Disable(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toff := comm.regs[core.TMC5240_CHOPCONF] & 0xF; toff != 0 {
		t.Errorf("expected TOFF=0 after Disable, got %d", toff)
	}

	if err := d.Enable(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toff := comm.regs[core.TMC5240_CHOPCONF] & 0xF; toff == 0 {
		t.Errorf("expected TOFF nonzero after Enable")
	}
}

type fakeStep struct {
	steps     int
	dir       bool
	stopCalls int
}

func (f *fakeStep) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error { return nil }
func (f *fakeStep) Step()                                                       { f.steps++ }
func (f *fakeStep) SetDirection(dir bool)                                       { f.dir = dir }
func (f *fakeStep) Stop()                                                       { f.stopCalls++ }
func (f *fakeStep) GetName() string                                             { return "fake" }

func TestBackendDelegatesStepsAndChipEnable(t *testing.T) {
	comm := newFakeComm()
	chip := New(comm)
	chip.Configure(Config{Microsteps: 4})

	step := &fakeStep{}
	backend := NewBackend([]MotorChip{{Step: step, Chip: chip, Microsteps: 4}})

	backend.EmitStep(0)
	backend.EmitStep(0)
	if step.steps != 2 {
		t.Errorf("expected 2 steps emitted, got %d", step.steps)
	}

	backend.SetDirection(0, true)
	if !step.dir {
		t.Errorf("expected direction to be set to reverse")
	}

	backend.DisableMotor(0)
	if step.stopCalls != 1 {
		t.Errorf("expected Stop() to be called once, got %d", step.stopCalls)
	}
	if comm.regs[core.TMC5240_CHOPCONF]&0xF != 0 {
		t.Errorf("expected chip TOFF cleared after DisableMotor")
	}

	backend.EnableMotor(0)
	if comm.regs[core.TMC5240_CHOPCONF]&0xF == 0 {
		t.Errorf("expected chip TOFF set after EnableMotor")
	}
}

func TestBackendOutOfRangeMotorIndexIsNoOp(t *testing.T) {
	backend := NewBackend(nil)
	backend.EmitStep(0)
	backend.SetDirection(0, true)
	backend.EnableMotor(0)
	backend.DisableMotor(0)
}

var _ core.StepperBackend = (*fakeStep)(nil)
