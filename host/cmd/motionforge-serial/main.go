// Command motionforge-serial drives the motion core the same way
// motionforge-host does, except the G-code stream comes from a real
// board over a USB CDC/UART link instead of stdin: it opens a
// host/serial.Port, reads one G-code line per newline-terminated
// message, executes it against the pipeline, and writes an "ok"/error
// status line back out the same port. This is the non-demo host
// motionforge-host's in-process wiring stands in for.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"

	"motionforge/dispatcher"
	"motionforge/gcode"
	"motionforge/host/serial"
	"motionforge/kinematics"
	"motionforge/machine"
	"motionforge/mpe"
	"motionforge/planner"
	"motionforge/seggen"
)

var (
	device = flag.String("device", "/dev/ttyACM0", "serial device the controller board is attached to")
	baud   = flag.Int("baud", 250000, "baud rate (ignored over USB CDC, required for real UART links)")
)

// nullBackend discards pulses: this binary is the host side of the
// link, not the MCU; real pulse generation happens on the board itself.
type nullBackend struct{}

func (nullBackend) EmitStep(motor int)             {}
func (nullBackend) SetDirection(motor int, r bool) {}
func (nullBackend) EnableMotor(motor int)          {}
func (nullBackend) DisableMotor(motor int)         {}

func main() {
	flag.Parse()

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	port, err := serial.Open(cfg)
	if err != nil {
		log.Fatalf("open %s: %v", *device, err)
	}
	defer port.Close()

	mcfg := machine.DefaultMachineConfig()
	motors := []machine.MotorConfig{
		{Axis: machine.AxisX, Polarity: 1},
		{Axis: machine.AxisY, Polarity: 1},
		{Axis: machine.AxisZ, Polarity: 1},
	}
	engineMotors := make([]mpe.MotorConfig, len(motors))
	for i, m := range motors {
		engineMotors[i] = mpe.MotorConfig{Polarity: m.Polarity, PowerDownOnIdle: m.PowerDownOnIdle}
	}

	engine := mpe.NewEngine(8, nullBackend{}, engineMotors)
	tp := planner.NewPlanner(&mcfg, 16, engine.Busy)
	sg := seggen.New(&mcfg, motors, kinematics.Cartesian{}, engine.Ring())
	disp := dispatcher.New(&mcfg, tp, sg, engine)
	interp := gcode.NewInterpreter(&mcfg, tp)
	parser := gcode.NewParser()

	serveLines(port, parser, interp, disp, engine)
}

// serveLines reads one G-code line per call to Scan, executes it, and
// writes a status line back; it drains the dispatcher/engine after each
// line so the reply reflects the move actually queued, not just parsed.
func serveLines(port serial.Port, parser *gcode.Parser, interp *gcode.Interpreter, disp *dispatcher.Dispatcher, engine *mpe.Engine) {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		line := scanner.Text()
		status := execute(line, parser, interp)
		drain(disp, engine)
		fmt.Fprintf(port, "%s\n", status)
		port.Flush()
	}
	if err := scanner.Err(); err != nil {
		log.Printf("serial read error: %v", err)
	}
}

func execute(line string, parser *gcode.Parser, interp *gcode.Interpreter) string {
	cmd, err := parser.ParseLine(line)
	if err != nil {
		return fmt.Sprintf("error: parse: %v", err)
	}
	if cmd == nil {
		return "ok"
	}
	if status := interp.Execute(cmd); status != machine.OK {
		return fmt.Sprintf("error: %s", status)
	}
	return "ok"
}

func drain(disp *dispatcher.Dispatcher, engine *mpe.Engine) {
	for i := 0; i < 10_000_000; i++ {
		res := disp.Tick()
		for !engine.Ring().Empty() {
			engine.Tick()
		}
		if res == dispatcher.Idle {
			return
		}
	}
}
