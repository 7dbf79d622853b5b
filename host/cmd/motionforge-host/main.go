// Command motionforge-host is the foreground demo driver for the motion
// core: it reads G-code (interactively, or replayed from a file) and
// drives the planner/dispatcher/segment-generator/pulse-engine pipeline
// in-process, printing the status each line produced. It is the "demo
// producer" the core's entry points are written for, not a Klipper-style
// MCU host.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"

	"motionforge/dispatcher"
	"motionforge/gcode"
	"motionforge/kinematics"
	"motionforge/machine"
	"motionforge/mpe"
	"motionforge/planner"
	"motionforge/seggen"
)

var (
	file    = flag.String("file", "", "G-code file to replay; omit for an interactive prompt")
	verbose = flag.Bool("verbose", false, "print the dispatcher's per-tick result")
)

// nullBackend discards pulses: this CLI demonstrates the motion pipeline
// without real hardware attached.
type nullBackend struct{}

func (nullBackend) EmitStep(motor int)             {}
func (nullBackend) SetDirection(motor int, r bool) {}
func (nullBackend) EnableMotor(motor int)          {}
func (nullBackend) DisableMotor(motor int)         {}

func main() {
	flag.Parse()

	cfg := machine.DefaultMachineConfig()
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
	tp := planner.NewPlanner(&cfg, 16, engine.Busy)
	sg := seggen.New(&cfg, motors, kinematics.Cartesian{}, engine.Ring())
	disp := dispatcher.New(&cfg, tp, sg, engine)
	interp := gcode.NewInterpreter(&cfg, tp)
	parser := gcode.NewParser()

	fmt.Println("motionforge-host")
	fmt.Println("================")

	if *file != "" {
		replay(*file, parser, interp, disp, engine)
		return
	}

	interactive(parser, interp, disp, engine)
}

func replay(path string, parser *gcode.Parser, interp *gcode.Interpreter, disp *dispatcher.Dispatcher, engine *mpe.Engine) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		processLine(scanner.Text(), lineNo, parser, interp)
	}
	drain(disp, engine)
	fmt.Println("done")
}

func interactive(parser *gcode.Parser, interp *gcode.Interpreter, disp *dispatcher.Dispatcher, engine *mpe.Engine) {
	fmt.Println("Enter G-code lines, or a command ('status', 'kill', 'quit'). 'help' for more.")
	scanner := bufio.NewScanner(os.Stdin)
	lineNo := 0
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		args, err := shlex.Split(raw)
		if err == nil && len(args) > 0 {
			switch strings.ToLower(args[0]) {
			case "quit", "exit", "q":
				return
			case "help", "?":
				printHelp()
				continue
			case "status":
				drain(disp, engine)
				fmt.Printf("position: %v busy: %v\n", interp.CurrentPosition(), interp.Busy())
				continue
			case "kill":
				disp.RequestKill()
				disp.Tick()
				fmt.Println("killed")
				continue
			}
		}

		lineNo++
		processLine(raw, lineNo, parser, interp)
		drain(disp, engine)
	}
}

func processLine(text string, lineNo int, parser *gcode.Parser, interp *gcode.Interpreter) {
	cmd, err := parser.ParseLine(text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "line %d: parse error: %v\n", lineNo, err)
		return
	}
	if cmd == nil {
		return
	}
	status := interp.Execute(cmd)
	if status != machine.OK {
		fmt.Printf("line %d: %s -> %s\n", lineNo, text, status)
	} else if *verbose {
		fmt.Printf("line %d: %s -> OK\n", lineNo, text)
	}
}

// drain runs the dispatcher to completion for everything currently
// queued, discarding pulses on the demo backend as it goes.
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

func printHelp() {
	fmt.Println("\nCommands:")
	fmt.Println("  status         - print current position and busy state")
	fmt.Println("  kill           - flush the queue and reset the runtime")
	fmt.Println("  quit/exit/q    - exit")
	fmt.Println("Anything else is parsed as a line of G-code.")
	fmt.Println()
}
