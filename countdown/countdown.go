// Package countdown provides the re-armable elapsed-time watchdog used by the
// loop for power management and periodic refresh.
//
// A Countdown is evaluated by calling Process once per loop iteration. It
// fires when it is enabled and at least its duration has elapsed since the
// last Reset. What happens after firing is fixed at construction:
//
//	NewOneShot:  the callback runs once and the timer latches fired until Reset.
//	NewPeriodic: the callback runs and the timer re-arms itself.
//
// A disabled Countdown never fires.
package countdown

import (
	"time"

	"ringlight-go/x/timex"
)

// Kind selects the post-fire behaviour.
type Kind uint8

const (
	OneShot Kind = iota
	Periodic
)

func (k Kind) String() string {
	if k == Periodic {
		return "periodic"
	}
	return "one-shot"
}

// DisablePolicy decides whether Disable also clears the elapsed time.
type DisablePolicy uint8

const (
	// KeepElapsed leaves elapsed running while disabled, so a timer that is
	// re-enabled late may fire on the next Process.
	KeepElapsed DisablePolicy = iota
	// ClearElapsed restarts the elapsed time on Disable.
	ClearElapsed
)

// Option tweaks a Countdown at construction.
type Option func(*Countdown)

// WithDisablePolicy sets the Disable behaviour (default KeepElapsed).
func WithDisablePolicy(p DisablePolicy) Option {
	return func(c *Countdown) { c.onDisable = p }
}

// WithName labels the timer for logs and state snapshots.
func WithName(name string) Option {
	return func(c *Countdown) { c.name = name }
}

type Countdown struct {
	name      string
	kind      Kind
	onDisable DisablePolicy
	clk       timex.Clock
	d         time.Duration
	start     time.Time
	enabled   bool
	fired     bool
}

// NewOneShot returns a disabled one-shot timer with elapsed reset to zero.
func NewOneShot(d time.Duration, clk timex.Clock, opts ...Option) *Countdown {
	return newCountdown(OneShot, d, clk, opts)
}

// NewPeriodic returns a disabled free-running timer with elapsed reset to zero.
func NewPeriodic(d time.Duration, clk timex.Clock, opts ...Option) *Countdown {
	return newCountdown(Periodic, d, clk, opts)
}

func newCountdown(k Kind, d time.Duration, clk timex.Clock, opts []Option) *Countdown {
	if clk == nil {
		clk = timex.System{}
	}
	if d < 0 {
		d = 0
	}
	c := &Countdown{kind: k, clk: clk, d: d}
	for _, o := range opts {
		o(c)
	}
	c.start = clk.Now()
	return c
}

// Reset sets elapsed to zero and clears the fired latch. Enabled is unchanged.
func (c *Countdown) Reset() {
	c.start = c.clk.Now()
	c.fired = false
}

// Enable lets the timer fire. Elapsed is unchanged.
func (c *Countdown) Enable() { c.enabled = true }

// Disable stops the timer from firing. Elapsed is cleared only under
// ClearElapsed.
func (c *Countdown) Disable() {
	c.enabled = false
	if c.onDisable == ClearElapsed {
		c.Reset()
	}
}

// Process runs cb if the timer is due and reports whether it fired.
// cb may be nil.
func (c *Countdown) Process(cb func()) bool {
	if !c.enabled || c.fired {
		return false
	}
	now := c.clk.Now()
	if now.Sub(c.start) < c.d {
		return false
	}
	switch c.kind {
	case OneShot:
		c.fired = true
	case Periodic:
		c.start = now
	}
	if cb != nil {
		cb()
	}
	return true
}

func (c *Countdown) Name() string            { return c.name }
func (c *Countdown) Kind() Kind              { return c.kind }
func (c *Countdown) Duration() time.Duration { return c.d }
func (c *Countdown) Enabled() bool           { return c.enabled }

// Fired reports whether a one-shot timer has fired since its last Reset.
func (c *Countdown) Fired() bool { return c.fired }

// Elapsed is the time since the last Reset.
func (c *Countdown) Elapsed() time.Duration { return c.clk.Now().Sub(c.start) }

// Remaining is the time left before the timer is due, never negative.
func (c *Countdown) Remaining() time.Duration {
	r := c.d - c.Elapsed()
	if r < 0 {
		return 0
	}
	return r
}
