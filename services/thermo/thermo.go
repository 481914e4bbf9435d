// Package thermo reads an ambient temperature for the status bar. Backends
// share the addressed request/read protocol of 1-Wire thermometers; single
// device buses expose one synthetic address.
package thermo

import (
	"math"

	"ringlight-go/errcode"
	"ringlight-go/x/conv"
)

// Address identifies one sensor on its bus.
type Address [8]byte

// String renders the address as 16 upper-case hex digits.
func (a Address) String() string {
	var buf [16]byte
	hi := uint32(a[0])<<24 | uint32(a[1])<<16 | uint32(a[2])<<8 | uint32(a[3])
	lo := uint32(a[4])<<24 | uint32(a[5])<<16 | uint32(a[6])<<8 | uint32(a[7])
	conv.U32Hex(buf[:8], hi)
	conv.U32Hex(buf[8:], lo)
	return string(buf[:])
}

func (a Address) IsZero() bool { return a == Address{} }

// Sensor is a temperature source.
type Sensor interface {
	Begin() error
	// Address returns the index'th device found by Begin.
	Address(index int) (Address, error)
	// RequestByAddress starts a conversion.
	RequestByAddress(a Address) error
	// TempC returns the result of the last conversion.
	TempC(a Address) (float32, error)
}

// Reader binds a sensor to its first device.
type Reader struct {
	s     Sensor
	addr  Address
	ready bool
}

func NewReader(s Sensor) *Reader { return &Reader{s: s} }

// Begin starts the sensor and looks up device 0.
func (r *Reader) Begin() error {
	r.ready = false
	if r.s == nil {
		return &errcode.E{C: errcode.NoDevice, Op: "thermo.begin", Msg: "no sensor"}
	}
	if err := r.s.Begin(); err != nil {
		return err
	}
	a, err := r.s.Address(0)
	if err != nil {
		return err
	}
	r.addr = a
	r.ready = true
	return nil
}

func (r *Reader) Ready() bool      { return r.ready }
func (r *Reader) Address() Address { return r.addr }

// Measure requests a conversion and reads it back. On failure the result is
// NaN together with the error.
func (r *Reader) Measure() (float32, error) {
	if !r.ready {
		return nan(), errcode.NoDevice
	}
	if err := r.s.RequestByAddress(r.addr); err != nil {
		return nan(), err
	}
	t, err := r.s.TempC(r.addr)
	if err != nil {
		return nan(), err
	}
	return t, nil
}

func nan() float32 { return float32(math.NaN()) }
