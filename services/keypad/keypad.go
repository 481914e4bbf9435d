// Package keypad scans a 12-key capacitive keypad and delivers classified key
// events to a Receiver, one per Process call.
package keypad

import (
	"time"

	"tinygo.org/x/drivers"

	"ringlight-go/drivers/mpr121"
	"ringlight-go/errcode"
	"ringlight-go/keys"
	"ringlight-go/x/shmring"
	"ringlight-go/x/timex"
)

// Receiver consumes key events. Take reports whether the event was used.
type Receiver interface {
	Take(ev keys.Event) bool
}

// DefaultAddress is the keypad board address with ADDR strapped to VDD.
const DefaultAddress = 0x5B

type Config struct {
	Address uint16
	Timing
	// PollInterval limits how often the chip is read. Default 10 ms.
	PollInterval time.Duration
	// QueueLen is rounded up to a power of two. Default 8.
	QueueLen         int
	TouchThreshold   uint8
	ReleaseThreshold uint8
}

// Keypad owns the touch controller, the classifier and the event queue.
type Keypad struct {
	cfg Config
	bus drivers.I2C
	clk timex.Clock

	dev   mpr121.Device
	ready bool
	recv  Receiver
	cls   *Classifier
	q     *shmring.Ring[keys.Event]

	polled    bool
	lastPoll  time.Time
	readErr   bool
	dropped   int
	lastTaken keys.Event
}

// New returns an unconfigured keypad on bus. A nil bus is allowed; Setup then
// reports no_device.
func New(bus drivers.I2C, cfg Config, clk timex.Clock) *Keypad {
	if clk == nil {
		clk = timex.System{}
	}
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	if cfg.QueueLen <= 0 {
		cfg.QueueLen = 8
	}
	cfg.Timing = cfg.Timing.withDefaults()
	return &Keypad{
		cfg: cfg,
		bus: bus,
		clk: clk,
		cls: NewClassifier(cfg.Timing),
		q:   shmring.New[keys.Event](shmring.SizeFor(cfg.QueueLen)),
	}
}

// Setup configures the controller at addr (0 keeps the configured address)
// and remembers recv. On error the keypad stays inert.
func (k *Keypad) Setup(recv Receiver, addr uint16) error {
	if recv == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "keypad.setup", Msg: "nil receiver"}
	}
	k.recv = recv
	k.ready = false
	if addr != 0 {
		k.cfg.Address = addr
	}
	if k.bus == nil {
		return &errcode.E{C: errcode.NoDevice, Op: "keypad.setup", Msg: "no i2c bus"}
	}
	k.dev = mpr121.New(k.bus)
	err := k.dev.Configure(mpr121.Config{
		Address:          k.cfg.Address,
		TouchThreshold:   k.cfg.TouchThreshold,
		ReleaseThreshold: k.cfg.ReleaseThreshold,
	})
	if err != nil {
		return errcode.Wrap(errcode.NoDevice, "keypad.setup", err)
	}
	k.cls.Reset()
	k.polled = false
	k.readErr = false
	k.ready = true
	return nil
}

// Ready reports whether Setup succeeded.
func (k *Keypad) Ready() bool { return k.ready }

// Process samples the controller when the poll interval has passed, then
// delivers at most one queued event. It returns true when an event was
// delivered and consumed.
func (k *Keypad) Process() bool {
	if !k.ready {
		return false
	}
	now := k.clk.Now()
	if !k.polled || now.Sub(k.lastPoll) >= k.cfg.PollInterval {
		k.polled = true
		k.lastPoll = now
		k.sample(now)
	}
	ev, ok := k.q.TryRead()
	if !ok {
		return false
	}
	k.lastTaken = ev
	return k.recv.Take(ev)
}

func (k *Keypad) sample(now time.Time) {
	mask, err := k.dev.Touched()
	if err != nil {
		if !k.readErr {
			println("[keypad] read error:", err.Error())
			k.readErr = true
		}
		return
	}
	if k.readErr {
		println("[keypad] read recovered")
		k.readErr = false
	}
	k.cls.Update(mask, now, k.enqueue)
}

// enqueue drops the oldest event when the queue is full.
func (k *Keypad) enqueue(ev keys.Event) {
	if k.q.TryWrite(ev) {
		return
	}
	k.q.TryRead()
	k.dropped++
	k.q.TryWrite(ev)
}

// Pending is the number of queued events.
func (k *Keypad) Pending() int { return k.q.Len() }

// Dropped counts events lost to a full queue.
func (k *Keypad) Dropped() int { return k.dropped }

// LastEvent is the most recently delivered event.
func (k *Keypad) LastEvent() keys.Event { return k.lastTaken }

func (k *Keypad) Timing() Timing { return k.cls.Timing() }
