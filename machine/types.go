// Package machine holds the process-wide data model shared by the
// trajectory planner, segment generator, and pulse engine: axis and motor
// configuration, the planner buffer ring, and the status codes returned
// across the parser boundary.
package machine

// Axis identifies a logical Cartesian or rotary axis addressed by G-code.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	AxisA
	AxisB
	AxisC
	MaxAxes
)

// Position holds one floating-point coordinate per logical axis, in mm
// (or degrees for rotary axes).
type Position [MaxAxes]float64

// Sub returns a - b component-wise.
func (a Position) Sub(b Position) Position {
	var r Position
	for i := range r {
		r[i] = a[i] - b[i]
	}
	return r
}

// PathControlMode selects how aggressively the planner carries velocity
// through a junction between two moves.
type PathControlMode uint8

const (
	ExactStop PathControlMode = iota
	ExactPath
	Continuous
)

// AxisConfig is the per-axis configuration loaded at startup and treated
// as read-only by the core thereafter.
type AxisConfig struct {
	StepsPerMM  float64
	MaxVelocity float64
	MaxJerk     float64
	CornerOffset float64 // delta used in the junction-velocity formula
}

// MotorConfig binds one physical stepper motor to a logical axis.
type MotorConfig struct {
	Axis            Axis
	Polarity        int8 // +1 or -1, XORed into the direction bit
	Microsteps      uint16
	PowerDownOnIdle bool
}

// MachineConfig is the process-wide configuration record. It is read-only
// after startup; any context may read it without synchronization.
type MachineConfig struct {
	Axes   [MaxAxes]AxisConfig
	Motors []MotorConfig

	CornerAcceleration float64 // A_corner, global centripetal bound
	MinSegmentLengthMM float64 // arc/segment granularity
	MinSegmentTimeUS   float64 // target segment duration

	PathControlMode PathControlMode

	MinLineLength float64 // MIN_LINE_LENGTH tolerance, mm
	Epsilon       float64 // float-equality epsilon

	// Ambient defaults consumed by the external gcode collaborator. The
	// planner also uses DefaultVelocity as the cruise cap of a move with
	// no axis travel.
	DefaultVelocity float64
	DefaultAccel    float64
}

// DefaultMachineConfig returns conservative defaults matching the tolerances
// the spec calls out explicitly (MIN_LINE_LENGTH ~0.01mm, epsilon 1e-5).
func DefaultMachineConfig() MachineConfig {
	cfg := MachineConfig{
		CornerAcceleration: 1e5,
		MinSegmentLengthMM: 0.1,
		MinSegmentTimeUS:   5000,
		PathControlMode:    ExactPath,
		MinLineLength:      0.01,
		Epsilon:            1e-5,
		DefaultVelocity:    50.0,
		DefaultAccel:       500.0,
	}
	for i := range cfg.Axes {
		cfg.Axes[i] = AxisConfig{
			StepsPerMM:   80.0,
			MaxVelocity:  300.0,
			MaxJerk:      5e7,
			CornerOffset: 0.01,
		}
	}
	return cfg
}

// Status is the closed status-code enum returned across the parser
// boundary (spec §6/§7).
type Status uint8

const (
	OK Status = iota
	ZeroLength
	BufferFullNonFatal
	BufferFullFatal
	EAGAIN
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case ZeroLength:
		return "ZERO_LENGTH"
	case BufferFullNonFatal:
		return "BUFFER_FULL_NON_FATAL"
	case BufferFullFatal:
		return "BUFFER_FULL_FATAL"
	case EAGAIN:
		return "EAGAIN"
	default:
		return "UNKNOWN"
	}
}

// BufferState is the lifecycle state of a planner buffer. EMPTY is the
// only free state; transitions are monotonic through the cycle.
type BufferState uint8

const (
	Empty BufferState = iota
	Loading
	Queued
	Pending
	Running
)

// MoveType discriminates the seven kinds of planner buffer.
type MoveType uint8

const (
	Line MoveType = iota
	JerkLine
	Arc
	Dwell
	Start
	Stop
	End
)

// ArcInfo is the arc-specific sub-record, populated only when MoveType ==
// Arc.
type ArcInfo struct {
	Theta         float64 // start angle, radians
	Radius        float64
	AngularTravel float64 // signed radians; sign gives rotation sense
	LinearTravel  float64 // helical axis travel
	Axis1         Axis
	Axis2         Axis
	AxisLinear    Axis
}

// Buffer is one slot in the planner queue ring.
type Buffer struct {
	Index uint8
	Next  uint8
	Prev  uint8

	State    BufferState
	MoveType MoveType

	Target Position
	Unit   Position
	Length float64
	Time   float64 // requested duration, minutes

	CruiseVelocitySet float64
	EntryVelocity     float64
	CruiseVelocity    float64
	ExitVelocity      float64

	HeadLength float64
	BodyLength float64
	TailLength float64

	JoinVelocityLimit float64

	DiffVelocity float64
	DiffToStop   float64
	DiffToSetV   float64

	Replannable bool

	Arc ArcInfo
}

// reset clears every field except the ring links, returning the buffer to
// a state fit for re-allocation.
func (b *Buffer) reset() {
	next, prev, idx := b.Next, b.Prev, b.Index
	*b = Buffer{}
	b.Next, b.Prev, b.Index = next, prev, idx
}
