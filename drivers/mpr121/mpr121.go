// Package mpr121 provides a driver for the MPR121 12-channel capacitive touch
// controller. The driver configures the chip for auto-baselined touch sensing
// on all twelve electrodes and exposes the touch status as a bitmask:
//
//	d := mpr121.New(bus)
//	err := d.Configure(mpr121.Config{Address: 0x5B})
//	mask, err := d.Touched() // bit n set while electrode n is touched
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.
package mpr121

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Default I2C address (ADDR pin to GND). ADDR to VDD selects 0x5B.
const Address = 0x5A

// Electrodes is the number of touch channels.
const Electrodes = 12

// Registers.
const (
	regTouchStatusL = 0x00
	regFiltData0L   = 0x04
	regBaseline0    = 0x1E
	regMHDR         = 0x2B
	regNHDR         = 0x2C
	regNCLR         = 0x2D
	regFDLR         = 0x2E
	regMHDF         = 0x2F
	regNHDF         = 0x30
	regNCLF         = 0x31
	regFDLF         = 0x32
	regNHDT         = 0x33
	regNCLT         = 0x34
	regFDLT         = 0x35
	regTouchTh0     = 0x41
	regReleaseTh0   = 0x42
	regDebounce     = 0x5B
	regConfig1      = 0x5C
	regConfig2      = 0x5D
	regECR          = 0x5E
	regSoftReset    = 0x80
)

const (
	softResetMagic = 0x63
	config2Reset   = 0x24 // CONFIG2 value after power-on or soft reset
	ecrBaseline    = 0x80 // baseline tracking, initial value from first sample
)

// Errors returned by the driver.
var (
	ErrNotFound = errors.New("mpr121: device not found")
	ErrChannel  = errors.New("mpr121: channel out of range")
)

// Config controls chip setup. All fields are optional.
type Config struct {
	// Address defaults to 0x5A if zero.
	Address uint16
	// TouchThreshold and ReleaseThreshold apply to every electrode.
	// Defaults 12 and 6.
	TouchThreshold   uint8
	ReleaseThreshold uint8
	// Electrodes enabled, counted from ELE0. Default 12.
	Electrodes uint8
}

// Device wraps an I2C connection to an MPR121.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg Config
	w   [2]byte
	r   [2]byte
}

// New creates a Device. The I2C bus must already be configured. Nothing is
// sent to the chip until Configure.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Configure soft-resets the chip, checks that it answers like an MPR121,
// loads thresholds and filter settings and starts it in run mode.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}
	if cfg.TouchThreshold == 0 {
		cfg.TouchThreshold = 12
	}
	if cfg.ReleaseThreshold == 0 {
		cfg.ReleaseThreshold = 6
	}
	if cfg.Electrodes == 0 || cfg.Electrodes > Electrodes {
		cfg.Electrodes = Electrodes
	}
	d.cfg = cfg

	if err := d.write(regSoftReset, softResetMagic); err != nil {
		return err
	}
	// Registers other than ECR are only writable in stop mode.
	if err := d.write(regECR, 0x00); err != nil {
		return err
	}
	c2, err := d.read(regConfig2)
	if err != nil {
		return err
	}
	if c2 != config2Reset {
		return ErrNotFound
	}
	if err := d.setThresholds(cfg.TouchThreshold, cfg.ReleaseThreshold); err != nil {
		return err
	}
	for _, rv := range [...][2]byte{
		{regMHDR, 0x01}, {regNHDR, 0x01}, {regNCLR, 0x0E}, {regFDLR, 0x00},
		{regMHDF, 0x01}, {regNHDF, 0x05}, {regNCLF, 0x01}, {regFDLF, 0x00},
		{regNHDT, 0x00}, {regNCLT, 0x00}, {regFDLT, 0x00},
		{regDebounce, 0x00},
		{regConfig1, 0x10}, // 16uA charge current
		{regConfig2, 0x20}, // 0.5us encoding, 1ms period
	} {
		if err := d.write(rv[0], rv[1]); err != nil {
			return err
		}
	}
	return d.write(regECR, ecrBaseline|cfg.Electrodes)
}

// SetThresholds changes the touch and release thresholds of every electrode.
// The chip is briefly stopped while the registers are written.
func (d *Device) SetThresholds(touch, release uint8) error {
	if err := d.write(regECR, 0x00); err != nil {
		return err
	}
	if err := d.setThresholds(touch, release); err != nil {
		return err
	}
	d.cfg.TouchThreshold, d.cfg.ReleaseThreshold = touch, release
	return d.write(regECR, ecrBaseline|d.electrodes())
}

func (d *Device) setThresholds(touch, release uint8) error {
	for i := 0; i < Electrodes; i++ {
		if err := d.write(regTouchTh0+byte(2*i), touch); err != nil {
			return err
		}
		if err := d.write(regReleaseTh0+byte(2*i), release); err != nil {
			return err
		}
	}
	return nil
}

// Touched returns the touch status bitmask of the twelve electrodes.
func (d *Device) Touched() (uint16, error) {
	v, err := d.readWord(regTouchStatusL)
	if err != nil {
		return 0, err
	}
	return v & 0x0FFF, nil
}

// FilteredData returns the 10-bit filtered electrode reading for channel ch.
func (d *Device) FilteredData(ch int) (uint16, error) {
	if ch < 0 || ch >= Electrodes {
		return 0, ErrChannel
	}
	v, err := d.readWord(regFiltData0L + byte(2*ch))
	return v & 0x03FF, err
}

// Baseline returns the baseline for channel ch, scaled to the filtered data
// range (the chip stores the top eight bits).
func (d *Device) Baseline(ch int) (uint16, error) {
	if ch < 0 || ch >= Electrodes {
		return 0, ErrChannel
	}
	b, err := d.read(regBaseline0 + byte(ch))
	return uint16(b) << 2, err
}

func (d *Device) electrodes() uint8 {
	if d.cfg.Electrodes == 0 {
		return Electrodes
	}
	return d.cfg.Electrodes
}

// Register access.

func (d *Device) write(reg, val byte) error {
	d.w[0], d.w[1] = reg, val
	return d.bus.Tx(d.Address, d.w[:2], nil)
}

func (d *Device) read(reg byte) (byte, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.Address, d.w[:1], d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

// readWord reads a little-endian register pair.
func (d *Device) readWord(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.Address, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0]) | uint16(d.r[1])<<8, nil
}
