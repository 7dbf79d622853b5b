package gcode

import (
	"math"

	"motionforge/machine"
	"motionforge/planner"
)

// Interpreter executes parsed G-code commands against a trajectory
// planner: it tracks the modal state (G90/G91, feed rate, extrusion
// mode) a G-code stream implies and translates each line into one of
// the planner's canonical motion requests.
type Interpreter struct {
	tp  *planner.Planner
	cfg *machine.MachineConfig

	absolute        bool
	extrudeAbsolute bool
	feedRateMMPerS  float64
	homed           [machine.MaxAxes]bool
}

// NewInterpreter creates an Interpreter bound to the given machine
// configuration and trajectory planner.
func NewInterpreter(cfg *machine.MachineConfig, tp *planner.Planner) *Interpreter {
	return &Interpreter{
		tp:             tp,
		cfg:            cfg,
		absolute:       true,
		feedRateMMPerS: cfg.DefaultVelocity,
	}
}

// CurrentPosition returns the planner's current planning-position cursor.
func (in *Interpreter) CurrentPosition() machine.Position {
	return in.tp.Position()
}

// Busy reports whether the planner still has queued or in-flight work.
func (in *Interpreter) Busy() bool {
	return in.tp.Busy()
}

// Execute runs one parsed command and returns the planner's status.
func (in *Interpreter) Execute(cmd *Command) machine.Status {
	if cmd == nil {
		return machine.OK
	}
	switch cmd.Type {
	case 'G':
		return in.execG(cmd)
	case 'M':
		return in.execM(cmd)
	default:
		return machine.OK
	}
}

func (in *Interpreter) execG(cmd *Command) machine.Status {
	switch cmd.Number {
	case 0, 1:
		return in.doLine(cmd)
	case 2, 3:
		return in.doArc(cmd, cmd.Number == 2)
	case 4:
		return in.doDwell(cmd)
	case 28:
		return in.doHome(cmd)
	case 90:
		in.absolute = true
	case 91:
		in.absolute = false
	case 92:
		return in.doSetPosition(cmd)
	}
	return machine.OK
}

func (in *Interpreter) execM(cmd *Command) machine.Status {
	switch cmd.Number {
	case 0, 1:
		return in.tp.EnqueueStop()
	case 2:
		return in.tp.EnqueueEnd()
	case 3, 4, 5:
		// Spindle on/off: motion-path side effect only, nothing to enqueue
		// on the planner's motion queue.
	case 82:
		in.extrudeAbsolute = true
	case 83:
		in.extrudeAbsolute = false
	}
	return machine.OK
}

// axisLetters maps G-code axis letters onto logical machine axes. E
// (extruder/auxiliary) is carried on the first rotary axis.
var axisLetters = map[byte]machine.Axis{
	'X': machine.AxisX,
	'Y': machine.AxisY,
	'Z': machine.AxisZ,
	'E': machine.AxisA,
}

func (in *Interpreter) targetFromParams(cmd *Command) machine.Position {
	current := in.tp.Position()
	target := current
	for letter, axis := range axisLetters {
		if !cmd.HasParam(letter) {
			continue
		}
		v := cmd.Param(letter, 0)
		if letter == 'E' {
			if in.extrudeAbsolute {
				target[axis] = v
			} else {
				target[axis] = current[axis] + v
			}
			continue
		}
		if in.absolute {
			target[axis] = v
		} else {
			target[axis] = current[axis] + v
		}
	}
	return target
}

func (in *Interpreter) doLine(cmd *Command) machine.Status {
	if cmd.HasParam('F') {
		in.feedRateMMPerS = cmd.Param('F', in.feedRateMMPerS*60) / 60.0
	}
	target := in.targetFromParams(cmd)
	return in.tp.EnqueueLine(target, in.durationMinutes(in.tp.Position(), target))
}

func (in *Interpreter) durationMinutes(from, to machine.Position) float64 {
	if in.feedRateMMPerS <= 0 {
		return 0
	}
	length := math.Sqrt(distanceSquared(from, to))
	return length / (in.feedRateMMPerS * 60.0)
}

func distanceSquared(a, b machine.Position) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// doArc implements G2/G3 in its common I/J-offset form: the arc center
// is current position + (I, J), the plane is XY, and Z carries helical
// travel.
func (in *Interpreter) doArc(cmd *Command, clockwise bool) machine.Status {
	if cmd.HasParam('F') {
		in.feedRateMMPerS = cmd.Param('F', in.feedRateMMPerS*60) / 60.0
	}

	current := in.tp.Position()
	target := in.targetFromParams(cmd)

	i := cmd.Param('I', 0)
	j := cmd.Param('J', 0)
	centerX := current[machine.AxisX] + i
	centerY := current[machine.AxisY] + j
	radius := math.Hypot(i, j)

	theta := math.Atan2(current[machine.AxisY]-centerY, current[machine.AxisX]-centerX)
	endTheta := math.Atan2(target[machine.AxisY]-centerY, target[machine.AxisX]-centerX)

	angularTravel := endTheta - theta
	if clockwise {
		for angularTravel >= 0 {
			angularTravel -= 2 * math.Pi
		}
	} else {
		for angularTravel <= 0 {
			angularTravel += 2 * math.Pi
		}
	}
	if target == current {
		// I/J-only full circle: no target axis letters were given.
		if clockwise {
			angularTravel = -2 * math.Pi
		} else {
			angularTravel = 2 * math.Pi
		}
	}

	linearTravel := target[machine.AxisZ] - current[machine.AxisZ]
	duration := in.durationMinutes(current, target)
	if duration <= 0 && in.feedRateMMPerS > 0 {
		duration = math.Abs(angularTravel) * radius / (in.feedRateMMPerS * 60.0)
	}

	return in.tp.EnqueueArc(target, theta, radius, angularTravel, linearTravel,
		machine.AxisX, machine.AxisY, machine.AxisZ, duration)
}

func (in *Interpreter) doDwell(cmd *Command) machine.Status {
	seconds := cmd.Param('S', 0)
	if cmd.HasParam('P') {
		seconds = cmd.Param('P', 0) / 1000.0
	}
	return in.tp.EnqueueDwell(seconds)
}

// doHome is a stub: real homing is an external continuation (switch
// polling, back-off, re-approach) that belongs outside the motion core.
// Here it simply zeroes the requested axes' planning position.
func (in *Interpreter) doHome(cmd *Command) machine.Status {
	pos := in.tp.Position()
	any := false
	for letter, axis := range axisLetters {
		if letter == 'E' {
			continue
		}
		if cmd.HasParam(letter) {
			pos[axis] = 0
			in.homed[axis] = true
			any = true
		}
	}
	if !any {
		pos = machine.Position{}
		in.homed[machine.AxisX] = true
		in.homed[machine.AxisY] = true
		in.homed[machine.AxisZ] = true
	}
	in.tp.SetPosition(pos)
	return machine.OK
}

func (in *Interpreter) doSetPosition(cmd *Command) machine.Status {
	pos := in.tp.Position()
	for letter, axis := range axisLetters {
		if cmd.HasParam(letter) {
			pos[axis] = cmd.Param(letter, 0)
		}
	}
	in.tp.SetPosition(pos)
	return machine.OK
}
