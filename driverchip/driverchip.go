// Package driverchip configures TMC5240-family stepper driver chips over
// SPI: current limits, microstep resolution, and StealthChop/chopper
// settings, grounded on the register map the core package already
// carries (core/tmc5240_regs.go) and on the scottfeldman-drivers
// TMC5160/TMC2209 packages' RegisterComm/Driver split.
package driverchip

import "motionforge/core"

// RegisterComm is the SPI register-access contract a Driver is built
// over: one 8-bit address, one 32-bit value, per TMC5240-family
// datasheet framing (write bit in address bit 7).
type RegisterComm interface {
	WriteRegister(reg uint8, value uint32) error
	ReadRegister(reg uint8) (uint32, error)
}

// Config holds the startup register values for one driver chip.
type Config struct {
	IRun          uint8 // run current, 0-31
	IHold         uint8 // hold current, 0-31
	IHoldDelay    uint8 // 0-15
	Microsteps    uint8 // MRES field: 0 = 256 usteps ... 8 = full step
	StealthChop   bool
	InvertedShaft bool
}

// Driver drives one TMC5240-family chip's configuration registers. It
// does not generate step pulses itself: those still come from the
// step/dir GPIO or PIO backend (see targets/pio); the chip only needs
// configuring once and polling for status thereafter.
type Driver struct {
	comm RegisterComm
}

// New creates a Driver over the given register-access transport.
func New(comm RegisterComm) *Driver {
	return &Driver{comm: comm}
}

// Configure writes GCONF, IHOLD_IRUN, and CHOPCONF from cfg, clearing
// the GSTAT reset/undervoltage flags first (scottfeldman-drivers'
// Begin() does the same clear-then-configure sequence).
func (d *Driver) Configure(cfg Config) error {
	if err := d.comm.WriteRegister(core.TMC5240_GSTAT, 0x7); err != nil {
		return err
	}

	gconf := uint32(0)
	if cfg.StealthChop {
		gconf |= core.TMC5240_GCONF_EN_PWM_MODE
	}
	if cfg.InvertedShaft {
		gconf |= core.TMC5240_GCONF_SHAFT
	}
	if err := d.comm.WriteRegister(core.TMC5240_GCONF, gconf); err != nil {
		return err
	}

	ihold := uint32(clamp(cfg.IHold, 0, 31))
	irun := uint32(clamp(cfg.IRun, 0, 31))
	delay := uint32(clamp(cfg.IHoldDelay, 0, 15))
	iholdIrun := ihold | irun<<8 | delay<<16
	if err := d.comm.WriteRegister(core.TMC5240_IHOLD_IRUN, iholdIrun); err != nil {
		return err
	}

	return d.setChopConf(cfg.Microsteps, true)
}

// setChopConf writes CHOPCONF with the given microstep resolution and
// chopper enable state. TOFF=0 disables the driver stage entirely; any
// nonzero value (5 here, a common StealthChop default) enables it.
func (d *Driver) setChopConf(microsteps uint8, enabled bool) error {
	toff := uint32(5)
	if !enabled {
		toff = 0
	}
	mres := uint32(clamp(microsteps, 0, 8))
	chopconf := toff | 2<<15 /* TBL */ | mres<<24
	return d.comm.WriteRegister(core.TMC5240_CHOPCONF, chopconf)
}

// Enable re-enables the chopper (TOFF != 0) without disturbing the
// microstep setting last configured.
func (d *Driver) Enable(microsteps uint8) error {
	return d.setChopConf(microsteps, true)
}

// Disable sets TOFF=0, cutting motor current through the chip's own
// register rather than a physical enable pin.
func (d *Driver) Disable(microsteps uint8) error {
	return d.setChopConf(microsteps, false)
}

// ReadDriverStatus reads DRV_STATUS, exposing stall, overtemperature,
// and short-to-ground/supply flags (spec's diagnostic surface).
func (d *Driver) ReadDriverStatus() (uint32, error) {
	return d.comm.ReadRegister(core.TMC5240_DRV_STATUS)
}

// StalledRaw reports the raw StallGuard4 result (lower = more load); the
// caller compares against a configured threshold.
func (d *Driver) StalledRaw() (uint32, error) {
	v, err := d.comm.ReadRegister(core.TMC5240_SG4_RESULT)
	return v, err
}

func clamp(v, lo, hi uint8) uint8 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
