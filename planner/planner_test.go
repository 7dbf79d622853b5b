package planner

import (
	"math"
	"testing"

	"motionforge/machine"
)

func testConfig() *machine.MachineConfig {
	cfg := machine.DefaultMachineConfig()
	for i := range cfg.Axes {
		cfg.Axes[i].StepsPerMM = 80
		cfg.Axes[i].MaxJerk = 5e7
		cfg.Axes[i].MaxVelocity = 300
	}
	cfg.CornerAcceleration = 1e5
	return &cfg
}

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

// Scenario 1: single straight line. A lone 10mm move at 0.5 minutes
// implies a cruise velocity of 1/3 mm/s; against this config's jerk
// (5e7) the accel/decel ramps needed to reach that velocity are a
// few hundredths of a micrometer, so the move is almost entirely a
// constant-velocity body with a negligible head and tail — not the
// zero-cruise, all-ramp shape a much higher requested velocity (closer
// to the axis's max_velocity) would produce.
func TestSingleStraightLine(t *testing.T) {
	cfg := testConfig()
	p := NewPlanner(cfg, 8, nil)

	status := p.EnqueueLine(machine.Position{0: 10}, 0.5)
	if status != machine.OK {
		t.Fatalf("expected OK, got %v", status)
	}
	if p.Queue().Count() != 1 {
		t.Fatalf("expected 1 queued buffer, got %d", p.Queue().Count())
	}

	buf := p.Queue().At(0)
	if !approxEqual(buf.HeadLength+buf.BodyLength+buf.TailLength, buf.Length, 1e-6) {
		t.Errorf("expected head+body+tail=length, got head=%v body=%v tail=%v length=%v",
			buf.HeadLength, buf.BodyLength, buf.TailLength, buf.Length)
	}
	if buf.HeadLength <= 0 || buf.TailLength <= 0 {
		t.Errorf("expected nonzero ramp on both ends, got head=%v tail=%v", buf.HeadLength, buf.TailLength)
	}
	if buf.HeadLength+buf.TailLength > 0.001*buf.Length {
		t.Errorf("expected a cruise-dominated profile (ramps << length), got head+tail=%v of length=%v",
			buf.HeadLength+buf.TailLength, buf.Length)
	}
	if buf.ExitVelocity != 0 {
		t.Errorf("expected exit velocity 0 for a lone move, got %v", buf.ExitVelocity)
	}

	steps := round(buf.Target[0] * cfg.Axes[0].StepsPerMM)
	if steps != 800 {
		t.Errorf("expected 800 X steps, got %d", steps)
	}
}

// Scenario 2: two collinear lines.
func TestTwoCollinearLines(t *testing.T) {
	cfg := testConfig()
	p := NewPlanner(cfg, 8, nil)

	p.EnqueueLine(machine.Position{0: 10}, 10.0/20.0/60.0)
	status := p.EnqueueLine(machine.Position{0: 20}, 10.0/20.0/60.0)
	if status != machine.OK {
		t.Fatalf("expected OK, got %v", status)
	}

	first := p.Queue().At(0)
	second := p.Queue().At(1)

	if !approxEqual(first.ExitVelocity, second.EntryVelocity, 1e-6) {
		t.Errorf("junction velocity mismatch: first.exit=%v second.entry=%v", first.ExitVelocity, second.EntryVelocity)
	}
	if first.ExitVelocity < 19.9 {
		t.Errorf("expected collinear moves to carry near-full cruise velocity through the joint, got %v", first.ExitVelocity)
	}
	if first.BodyLength <= 0 {
		t.Errorf("expected first move to have a nonzero cruise body, got %v", first.BodyLength)
	}
}

// Scenario 3: 90-degree corner.
func TestNinetyDegreeCorner(t *testing.T) {
	cfg := testConfig()
	p := NewPlanner(cfg, 8, nil)

	p.EnqueueLine(machine.Position{0: 10}, 10.0/200.0/60.0)
	p.EnqueueLine(machine.Position{0: 10, 1: 10}, 10.0/200.0/60.0)

	first := p.Queue().At(0)
	second := p.Queue().At(1)

	if second.JoinVelocityLimit <= 0 || second.JoinVelocityLimit >= 200 {
		t.Errorf("expected a nonzero join velocity strictly below cruise, got %v", second.JoinVelocityLimit)
	}
	if first.TailLength <= 0 || second.HeadLength <= 0 {
		t.Errorf("expected both moves to plan a ramp at the joint: tail=%v head=%v", first.TailLength, second.HeadLength)
	}
	if !approxEqual(first.ExitVelocity, second.JoinVelocityLimit, 1e-3) && first.ExitVelocity > second.JoinVelocityLimit+cfg.Epsilon {
		t.Errorf("exit velocity %v should not exceed join velocity limit %v", first.ExitVelocity, second.JoinVelocityLimit)
	}
}

// Scenario 4: dwell in chain forces neighbouring velocities to zero.
func TestDwellInChain(t *testing.T) {
	cfg := testConfig()
	p := NewPlanner(cfg, 8, nil)

	p.EnqueueLine(machine.Position{0: 10}, 0.5)
	p.EnqueueDwell(1.0)
	p.EnqueueLine(machine.Position{0: 20}, 0.5)

	line1 := p.Queue().At(0)
	dwell := p.Queue().At(1)
	line2 := p.Queue().At(2)

	if line1.ExitVelocity != 0 {
		t.Errorf("expected move before dwell to exit at zero, got %v", line1.ExitVelocity)
	}
	if line2.EntryVelocity != 0 {
		t.Errorf("expected move after dwell to enter at zero, got %v", line2.EntryVelocity)
	}
	if dwell.MoveType != machine.Dwell {
		t.Errorf("expected dwell buffer type, got %v", dwell.MoveType)
	}
}

// Scenario 6: queue-full backpressure with N=8.
func TestQueueFullBackpressure(t *testing.T) {
	cfg := testConfig()
	p := NewPlanner(cfg, 8, nil)

	var statuses []machine.Status
	for i := 0; i < 10; i++ {
		s := p.EnqueueLine(machine.Position{0: float64(i+1) * 0.5}, 0.01)
		statuses = append(statuses, s)
	}

	for i := 0; i < 8; i++ {
		if statuses[i] != machine.OK {
			t.Fatalf("enqueue %d expected OK, got %v", i, statuses[i])
		}
	}
	if statuses[8] != machine.BufferFullNonFatal {
		t.Fatalf("9th enqueue expected BUFFER_FULL_NON_FATAL, got %v", statuses[8])
	}

	// Drain two buffers, then two more enqueues should succeed.
	q := p.Queue()
	for i := 0; i < 2; i++ {
		buf := q.NextRunnable()
		q.BeginRunning(buf)
		q.Complete()
	}
	for i := 0; i < 2; i++ {
		s := p.EnqueueLine(machine.Position{0: float64(10+i) * 0.5}, 0.01)
		if s != machine.OK {
			t.Fatalf("post-drain enqueue %d expected OK, got %v", i, s)
		}
	}
}

func TestZeroLengthLineRejected(t *testing.T) {
	cfg := testConfig()
	p := NewPlanner(cfg, 8, nil)

	status := p.EnqueueLine(machine.Position{}, 1)
	if status != machine.ZeroLength {
		t.Fatalf("expected ZERO_LENGTH for a zero-length move, got %v", status)
	}
}

func TestMinLineLengthBoundary(t *testing.T) {
	cfg := testConfig()
	p := NewPlanner(cfg, 8, nil)

	if s := p.EnqueueLine(machine.Position{0: cfg.MinLineLength}, 1); s != machine.OK {
		t.Errorf("a move exactly at MIN_LINE_LENGTH should be accepted, got %v", s)
	}
	p2 := NewPlanner(cfg, 8, nil)
	if s := p2.EnqueueLine(machine.Position{0: cfg.MinLineLength * 0.99}, 1); s != machine.ZeroLength {
		t.Errorf("a move just below MIN_LINE_LENGTH should be rejected, got %v", s)
	}
}

func round(f float64) int64 {
	if f < 0 {
		return int64(f - 0.5)
	}
	return int64(f + 0.5)
}
