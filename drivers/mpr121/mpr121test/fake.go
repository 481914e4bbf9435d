// Package mpr121test provides a register-level MPR121 stand-in that satisfies
// drivers.I2C, for tests of the driver and of code built on it.
package mpr121test

import (
	"errors"
	"sync"
)

// ErrNack is returned for transactions addressed to another device.
var ErrNack = errors.New("mpr121test: nack")

// Chip emulates the register file of one MPR121.
type Chip struct {
	mu     sync.Mutex
	addr   uint16
	regs   [256]byte
	writes int
	resets int
	fail   error
}

// New returns a chip answering at addr, already in its power-on state.
func New(addr uint16) *Chip {
	c := &Chip{addr: addr}
	c.regs[0x5D] = 0x24
	return c
}

// Tx implements drivers.I2C. A lone two-byte write stores a register; a
// one-byte write followed by a read returns consecutive registers.
func (c *Chip) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	if addr != c.addr {
		return ErrNack
	}
	if len(w) == 0 {
		return nil
	}
	reg := w[0]
	if len(r) == 0 && len(w) >= 2 {
		c.writes++
		if reg == 0x80 && w[1] == 0x63 {
			c.resets++
			c.regs = [256]byte{}
			c.regs[0x5D] = 0x24
			return nil
		}
		c.regs[reg] = w[1]
		return nil
	}
	for i := range r {
		r[i] = c.regs[byte(int(reg)+i)]
	}
	return nil
}

// Touch sets the touch status registers to mask.
func (c *Chip) Touch(mask uint16) {
	c.mu.Lock()
	c.regs[0x00] = byte(mask)
	c.regs[0x01] = byte(mask>>8) & 0x0F
	c.mu.Unlock()
}

// Fail makes every following transaction return err (nil restores).
func (c *Chip) Fail(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}

// Reg returns the current value of a register.
func (c *Chip) Reg(reg byte) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[reg]
}

// SetReg forces a register value, e.g. to corrupt the identity check.
func (c *Chip) SetReg(reg, val byte) {
	c.mu.Lock()
	c.regs[reg] = val
	c.mu.Unlock()
}

// Resets counts soft resets received.
func (c *Chip) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}
