package dispatcher

import (
	"math"
	"testing"

	"motionforge/kinematics"
	"motionforge/machine"
	"motionforge/mpe"
	"motionforge/planner"
	"motionforge/seggen"
)

type fakeBackend struct{}

func (fakeBackend) EmitStep(motor int)             {}
func (fakeBackend) SetDirection(motor int, r bool) {}
func (fakeBackend) EnableMotor(motor int)          {}
func (fakeBackend) DisableMotor(motor int)         {}

func newHarness(t *testing.T, ringSize int) (*Dispatcher, *mpe.Engine) {
	return newHarnessWithSegmentLength(t, ringSize, 1.0)
}

func newHarnessWithSegmentLength(t *testing.T, ringSize int, minSegmentLength float64) (*Dispatcher, *mpe.Engine) {
	t.Helper()
	cfg := machine.DefaultMachineConfig()
	cfg.MinSegmentTimeUS = 1000
	cfg.MinSegmentLengthMM = minSegmentLength

	motors := []mpe.MotorConfig{{Polarity: 1}}
	engine := mpe.NewEngine(4, fakeBackend{}, motors)

	tp := planner.NewPlanner(&cfg, ringSize, engine.Busy)
	sg := seggen.New(&cfg, []machine.MotorConfig{{Axis: machine.AxisX, Polarity: 1}}, kinematics.Cartesian{}, engine.Ring())

	d := New(&cfg, tp, sg, engine)
	return d, engine
}

// drainEngine pops and discards every ISR-side segment so the ring never
// blocks the generator from pushing more.
func drainEngine(engine *mpe.Engine) {
	for !engine.Ring().Empty() {
		engine.Tick()
	}
}

func TestDispatcherRunsLineToCompletion(t *testing.T) {
	d, engine := newHarness(t, 8)

	status := d.tp.EnqueueLine(machine.Position{machine.AxisX: 10}, 0)
	if status != machine.OK {
		t.Fatalf("enqueue failed: %v", status)
	}

	completed := false
	for i := 0; i < 100000 && !completed; i++ {
		res := d.Tick()
		drainEngine(engine)
		if res == BufferComplete {
			completed = true
		}
	}
	if !completed {
		t.Fatalf("dispatcher never completed the line buffer")
	}
	if d.tp.Queue().Busy() {
		t.Errorf("expected queue to be empty after completion")
	}
}

func TestDispatcherIdleWithEmptyQueue(t *testing.T) {
	d, _ := newHarness(t, 8)
	if res := d.Tick(); res != Idle {
		t.Errorf("expected Idle on an empty queue, got %v", res)
	}
}

func TestDispatcherArcTessellatesIntoLines(t *testing.T) {
	// A coarse min-segment-length keeps the tessellation count within the
	// ring's capacity, so the arc buffer can finish handing out every
	// sub-move without the queue deadlocking on itself (the arc's own
	// buffer occupies the RUNNING slot until every sub-move is enqueued).
	d, engine := newHarnessWithSegmentLength(t, 16, 5.0)

	status := d.tp.EnqueueArc(
		machine.Position{machine.AxisX: -10},
		0, 10, math.Pi, 0,
		machine.AxisX, machine.AxisY, machine.AxisZ,
		1.0,
	)
	if status != machine.OK {
		t.Fatalf("enqueue arc failed: %v", status)
	}

	for i := 0; i < 200000; i++ {
		res := d.Tick()
		drainEngine(engine)
		if res == Idle {
			break
		}
	}

	if d.tp.Queue().Busy() {
		t.Errorf("expected all tessellated sub-moves to drain, queue still busy")
	}
}

func TestDispatcherKillFlushesQueueAndResetsPosition(t *testing.T) {
	d, _ := newHarness(t, 8)
	d.tp.EnqueueLine(machine.Position{machine.AxisX: 10}, 0)
	d.tp.SetPosition(machine.Position{machine.AxisX: 3})

	d.RequestKill()
	res := d.Tick()
	if res != Killed {
		t.Fatalf("expected Killed, got %v", res)
	}
	if d.tp.Queue().Busy() {
		t.Errorf("expected queue to be empty after kill")
	}
	if d.tp.Position() != (machine.Position{}) {
		t.Errorf("expected position reset to zero after kill, got %v", d.tp.Position())
	}
}

func TestDispatcherBackpressureThenDrain(t *testing.T) {
	d, engine := newHarness(t, 8)

	succeeded := 0
	var lastStatus machine.Status
	for i := 0; i < 10; i++ {
		lastStatus = d.tp.EnqueueLine(machine.Position{machine.AxisX: float64(i + 1)}, 0)
		if lastStatus == machine.OK {
			succeeded++
		} else {
			break
		}
	}
	if lastStatus != machine.BufferFullNonFatal {
		t.Fatalf("expected the 9th short enqueue to hit BUFFER_FULL_NON_FATAL, got %v after %d successes", lastStatus, succeeded)
	}

	// Drain two buffers worth of dispatcher work.
	for completed := 0; completed < 2; {
		if d.Tick() == BufferComplete {
			completed++
		}
		drainEngine(engine)
	}

	if status := d.tp.EnqueueLine(machine.Position{machine.AxisX: 100}, 0); status != machine.OK {
		t.Errorf("expected enqueue to succeed after draining, got %v", status)
	}
}
