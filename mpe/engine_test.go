package mpe

import "testing"

type fakeBackend struct {
	steps     [MaxMotors]int
	enabled   [MaxMotors]bool
	direction [MaxMotors]bool
}

func (f *fakeBackend) EmitStep(motor int)                { f.steps[motor]++ }
func (f *fakeBackend) SetDirection(motor int, rev bool)  { f.direction[motor] = rev }
func (f *fakeBackend) EnableMotor(motor int)             { f.enabled[motor] = true }
func (f *fakeBackend) DisableMotor(motor int)            { f.enabled[motor] = false }

func TestEngineConservesSteps(t *testing.T) {
	backend := &fakeBackend{}
	e := NewEngine(4, backend, []MotorConfig{{Polarity: 1}})

	seg := Segment{
		Type:             SegmentLine,
		NumMotors:        1,
		TimerTicks:       100,
		TimerTicksScaled: 100,
	}
	seg.Steps[0] = 37
	if !e.Ring().Push(seg) {
		t.Fatal("push should succeed on an empty ring")
	}

	for i := 0; i < 100; i++ {
		e.Tick()
	}

	if backend.steps[0] != 37 {
		t.Errorf("expected exactly 37 pulses (conservation of steps), got %d", backend.steps[0])
	}
}

func TestEngineNoStepsAfterSegmentEnds(t *testing.T) {
	backend := &fakeBackend{}
	e := NewEngine(4, backend, []MotorConfig{{Polarity: 1}})

	seg := Segment{Type: SegmentLine, NumMotors: 1, TimerTicks: 10, TimerTicksScaled: 10}
	seg.Steps[0] = 5
	e.Ring().Push(seg)

	for i := 0; i < 10; i++ {
		e.Tick()
	}
	before := backend.steps[0]

	// Further ticks with nothing queued must not emit spurious pulses.
	for i := 0; i < 20; i++ {
		e.Tick()
	}
	if backend.steps[0] != before {
		t.Errorf("expected no further pulses once the ring drains, got %d extra", backend.steps[0]-before)
	}
}

func TestEngineDwellEmitsNoSteps(t *testing.T) {
	backend := &fakeBackend{}
	e := NewEngine(4, backend, nil)

	seg := Segment{Type: SegmentDwell, NumMotors: 0, TimerTicks: 50, TimerTicksScaled: 50}
	e.Ring().Push(seg)

	for i := 0; i < 50; i++ {
		e.Tick()
	}
	for _, s := range backend.steps {
		if s != 0 {
			t.Errorf("dwell segment must not emit any pulses, got %d", s)
		}
	}
}

func TestEngineStopDisablesMotors(t *testing.T) {
	backend := &fakeBackend{}
	backend.enabled[0] = true
	e := NewEngine(4, backend, []MotorConfig{{Polarity: 1}})

	seg := Segment{Type: SegmentStop, NumMotors: 1, TimerTicks: 1, TimerTicksScaled: 1}
	e.Ring().Push(seg)
	e.Tick()

	if backend.enabled[0] {
		t.Error("expected STOP marker segment to disable the motor")
	}
}

func TestEnginePowerDownOnIdle(t *testing.T) {
	backend := &fakeBackend{}
	backend.enabled[0] = true
	e := NewEngine(4, backend, []MotorConfig{{Polarity: 1, PowerDownOnIdle: true}})

	seg := Segment{Type: SegmentLine, NumMotors: 1, TimerTicks: 5, TimerTicksScaled: 5}
	seg.Steps[0] = 3
	e.Ring().Push(seg)

	for i := 0; i < 5; i++ {
		e.Tick()
	}
	if backend.enabled[0] {
		t.Error("expected end-of-segment power-down for a motor configured with PowerDownOnIdle")
	}
}

func TestEngineBusyReflectsRingAndCurrentSegment(t *testing.T) {
	e := NewEngine(2, &fakeBackend{}, nil)
	if e.Busy() {
		t.Fatal("fresh engine should be idle")
	}
	e.Ring().Push(Segment{Type: SegmentDwell, TimerTicks: 3, TimerTicksScaled: 3})
	if !e.Busy() {
		t.Fatal("engine with a queued segment should report busy")
	}
}
