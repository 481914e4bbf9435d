// Package aht20 provides a driver for the AHT20 temperature/humidity sensor.
// It exposes a two-phase measurement API so callers never block on the
// conversion:
//
//	d.Trigger()              // start a measurement (fast)
//	err := d.Collect(&s)     // fetch when ready; returns ErrNotReady while busy
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.
//
// Fixed-point helpers return tenths of units (deci-°C and deci-%RH).
package aht20

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// I2C address.
const Address = 0x38

const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE
	cmdSoftReset  = 0xBA
	cmdStatus     = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

// Errors returned by the driver.
var (
	ErrNotReady     = errors.New("aht20: not ready")
	ErrUncalibrated = errors.New("aht20: not calibrated")
)

// ConversionTime is the nominal delay between Trigger and a ready sample.
const ConversionTime = 80 * time.Millisecond

// Device wraps an I2C connection to an AHT20 device.
type Device struct {
	bus     drivers.I2C
	Address uint16

	w    [3]byte
	buf  [7]byte
	last Sample
}

// New creates a Device. The I2C bus must already be configured; nothing is
// sent until Configure.
func New(bus drivers.I2C) Device {
	return Device{bus: bus, Address: Address}
}

// Configure sends the calibration command if the device reports itself
// uncalibrated. The device needs ~10 ms before the first Trigger.
func (d *Device) Configure() error {
	st, err := d.Status()
	if err != nil {
		return err
	}
	if st&statusCalibrated != 0 {
		return nil
	}
	if err := d.tx(cmdInitialize, 0x08, 0x00); err != nil {
		return err
	}
	st, err = d.Status()
	if err != nil {
		return err
	}
	if st&statusCalibrated == 0 {
		return ErrUncalibrated
	}
	return nil
}

// Reset issues a soft reset. Give the device ~20ms afterwards before using.
func (d *Device) Reset() error {
	d.w[0] = cmdSoftReset
	return d.bus.Tx(d.Address, d.w[:1], nil)
}

// Status reads the status byte.
func (d *Device) Status() (byte, error) {
	d.w[0] = cmdStatus
	if err := d.bus.Tx(d.Address, d.w[:1], d.buf[:1]); err != nil {
		return 0, err
	}
	return d.buf[0], nil
}

// Trigger starts a measurement without waiting for it.
func (d *Device) Trigger() error {
	return d.tx(cmdTrigger, 0x33, 0x00)
}

// Collect reads one measurement into out. ErrNotReady is returned while the
// conversion is running; bus errors are returned as-is.
func (d *Device) Collect(out *Sample) error {
	data := d.buf[:]
	if err := d.bus.Tx(d.Address, nil, data); err != nil {
		return err
	}
	if (data[0]&statusCalibrated) == 0 || (data[0]&statusBusy) != 0 {
		return ErrNotReady
	}
	s := Sample{
		RawHumidity: (uint32(data[1]) << 12) | (uint32(data[2]) << 4) | (uint32(data[3]) >> 4),
		RawTemp:     (uint32(data[3]&0x0F) << 16) | (uint32(data[4]) << 8) | uint32(data[5]),
	}
	d.last = s
	if out != nil {
		*out = s
	}
	return nil
}

// Last returns the most recent collected sample.
func (d *Device) Last() Sample { return d.last }

func (d *Device) tx(cmd, a, b byte) error {
	d.w[0], d.w[1], d.w[2] = cmd, a, b
	return d.bus.Tx(d.Address, d.w[:3], nil)
}

// Sample holds raw readings.
type Sample struct {
	RawHumidity uint32
	RawTemp     uint32
}

func (s Sample) DeciRelHumidity() int32 {
	return int32((uint64(s.RawHumidity) * 1000) >> 20)
}

func (s Sample) DeciCelsius() int32 {
	return int32((uint64(s.RawTemp)*2000)>>20) - 500
}

// Celsius returns °C as a float.
func (s Sample) Celsius() float32 {
	return float32(s.RawTemp)*200/0x100000 - 50
}
