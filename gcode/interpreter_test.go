package gcode

import (
	"testing"

	"motionforge/machine"
	"motionforge/planner"
)

func newTestInterpreter() (*Interpreter, *planner.Planner) {
	cfg := machine.DefaultMachineConfig()
	tp := planner.NewPlanner(&cfg, 16, func() bool { return false })
	return NewInterpreter(&cfg, tp), tp
}

func TestParserParsesLineMove(t *testing.T) {
	p := NewParser()
	cmd, err := p.ParseLine("G1 X10 Y20 F1200")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd == nil || cmd.Type != 'G' || cmd.Number != 1 {
		t.Fatalf("expected G1, got %+v", cmd)
	}
	if cmd.Param('X', 0) != 10 || cmd.Param('Y', 0) != 20 || cmd.Param('F', 0) != 1200 {
		t.Errorf("unexpected parameters: %+v", cmd.Params)
	}
}

func TestParserSkipsCommentsAndBlankLines(t *testing.T) {
	p := NewParser()
	for _, line := range []string{"", "   ", "; a comment", "(also a comment)"} {
		cmd, err := p.ParseLine(line)
		if err != nil || cmd != nil {
			t.Errorf("expected nil command for %q, got %+v", line, cmd)
		}
	}
}

func TestInterpreterLineMoveEnqueuesAndAdvancesPosition(t *testing.T) {
	in, tp := newTestInterpreter()
	p := NewParser()
	cmd, _ := p.ParseLine("G1 X10 Y0 Z0 F3000")

	status := in.Execute(cmd)
	if status != machine.OK {
		t.Fatalf("expected OK, got %v", status)
	}
	if got := tp.Position()[machine.AxisX]; got != 10 {
		t.Errorf("expected planner position X=10, got %v", got)
	}
}

func TestInterpreterRelativeMode(t *testing.T) {
	in, tp := newTestInterpreter()
	p := NewParser()

	g91, _ := p.ParseLine("G91")
	in.Execute(g91)

	move, _ := p.ParseLine("G1 X5 F600")
	in.Execute(move)
	move2, _ := p.ParseLine("G1 X5")
	in.Execute(move2)

	if got := tp.Position()[machine.AxisX]; got != 10 {
		t.Errorf("expected relative moves to accumulate to X=10, got %v", got)
	}
}

func TestInterpreterSetPositionG92(t *testing.T) {
	in, tp := newTestInterpreter()
	p := NewParser()
	cmd, _ := p.ParseLine("G92 X5 Y7")
	in.Execute(cmd)

	pos := tp.Position()
	if pos[machine.AxisX] != 5 || pos[machine.AxisY] != 7 {
		t.Errorf("expected G92 to set position directly, got %v", pos)
	}
}

func TestInterpreterDwellEnqueues(t *testing.T) {
	in, tp := newTestInterpreter()
	p := NewParser()
	cmd, _ := p.ParseLine("G4 P10")

	status := in.Execute(cmd)
	if status != machine.OK {
		t.Fatalf("expected OK, got %v", status)
	}
	if !tp.Queue().Busy() {
		t.Errorf("expected a dwell buffer to be queued")
	}
}

func TestInterpreterHomeZeroesPosition(t *testing.T) {
	in, tp := newTestInterpreter()
	p := NewParser()
	move, _ := p.ParseLine("G1 X10 Y10 F600")
	in.Execute(move)

	home, _ := p.ParseLine("G28")
	in.Execute(home)

	if pos := tp.Position(); pos != (machine.Position{}) {
		t.Errorf("expected home to zero position, got %v", pos)
	}
}
