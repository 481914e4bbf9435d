// Package orchestrator runs the firmware's main loop. Setup brings every
// subsystem up in a fixed order and never gives up on a failed optional
// part; Process polls each subsystem once, feeds key input to the
// dispatcher and evaluates the power-saving countdowns.
//
// Everything here runs on one goroutine. Other goroutines reach the loop
// only through the bus.
package orchestrator

import (
	"context"
	"runtime"
	"time"

	"ringlight-go/bus"
	"ringlight-go/countdown"
	"ringlight-go/errcode"
	"ringlight-go/keys"
	"ringlight-go/opmode"
	"ringlight-go/services/dispatch"
	"ringlight-go/services/display"
	"ringlight-go/services/keypad"
	"ringlight-go/services/ring"
	"ringlight-go/services/thermo"
	"ringlight-go/x/timex"
)

// Ring is the rendering engine as the loop sees it.
type Ring interface {
	dispatch.Ring
	Setup() error
	Process()
	Off()
	State() ring.State
	Generation() uint32
}

type Keypad interface {
	Setup(recv keypad.Receiver, addr uint16) error
	Process() bool
}

// Dispatcher consumes key events.
type Dispatcher interface {
	Take(ev keys.Event) bool
}

// Provisioner joins a network; it may block.
type Provisioner interface {
	Establish(ctx context.Context) error
	Address() string
}

// Web is the background control surface. Process reports whether it applied
// a command that counts as user activity.
type Web interface {
	Setup() error
	Process() bool
}

// Resources are the collaborators the loop drives. Thermo, WiFi and Web are
// optional.
type Resources struct {
	Clock      timex.Clock
	Bus        *bus.Bus
	Mode       *opmode.Handle
	Ring       Ring
	Keypad     Keypad
	Dispatcher Dispatcher
	Display    *display.Display
	Thermo     *thermo.Reader
	WiFi       Provisioner
	Web        Web
}

type Config struct {
	LightsOff          time.Duration
	DisplayOff         time.Duration
	DisplayDim         time.Duration
	TemperatureRefresh time.Duration
	DisablePolicy      countdown.DisablePolicy

	KeypadAddress uint16
	// Sensor names the temperature backend in state/env/temperature/info.
	Sensor string
	// Idle is the pause between iterations; 0 only yields.
	Idle time.Duration
}

func (c *Config) applyDefaults() {
	if c.LightsOff <= 0 {
		c.LightsOff = 6 * time.Hour
	}
	if c.DisplayOff <= 0 {
		c.DisplayOff = 30 * time.Minute
	}
	if c.DisplayDim <= 0 {
		c.DisplayDim = time.Minute
	}
	if c.TemperatureRefresh <= 0 {
		c.TemperatureRefresh = 30 * time.Second
	}
	if c.KeypadAddress == 0 {
		c.KeypadAddress = keypad.DefaultAddress
	}
}

// Timers exposes the loop's countdowns.
type Timers struct {
	LightsOff   *countdown.Countdown
	DisplayOff  *countdown.Countdown
	DisplayDim  *countdown.Countdown
	Temperature *countdown.Countdown
}

func (t Timers) all() []*countdown.Countdown {
	return []*countdown.Countdown{t.DisplayDim, t.DisplayOff, t.LightsOff, t.Temperature}
}

type Orchestrator struct {
	res    Resources
	cfg    Config
	conn   *bus.Connection
	status *display.StatusBar
	timers Timers

	keypadOK bool
	webOK    bool
	tempOK   bool

	pub published
}

// New checks the mandatory resources and builds the timers.
func New(res Resources, cfg Config) (*Orchestrator, error) {
	if res.Ring == nil || res.Keypad == nil || res.Dispatcher == nil || res.Display == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "orchestrator.new", Msg: "ring, keypad, dispatcher and display are required"}
	}
	if res.Clock == nil {
		res.Clock = timex.System{}
	}
	if res.Mode == nil {
		res.Mode = opmode.New(opmode.Provisioning)
	}
	if res.Bus == nil {
		res.Bus = bus.NewBus(8)
	}
	cfg.applyDefaults()

	policy := countdown.WithDisablePolicy(cfg.DisablePolicy)
	o := &Orchestrator{
		res:    res,
		cfg:    cfg,
		conn:   res.Bus.NewConnection("loop"),
		status: display.NewStatusBar(res.Mode, res.Display),
		timers: Timers{
			LightsOff:   countdown.NewOneShot(cfg.LightsOff, res.Clock, policy, countdown.WithName("lights-off")),
			DisplayOff:  countdown.NewOneShot(cfg.DisplayOff, res.Clock, policy, countdown.WithName("display-off")),
			DisplayDim:  countdown.NewOneShot(cfg.DisplayDim, res.Clock, policy, countdown.WithName("display-dim")),
			Temperature: countdown.NewPeriodic(cfg.TemperatureRefresh, res.Clock, policy, countdown.WithName("temperature")),
		},
	}
	return o, nil
}

func (o *Orchestrator) Status() *display.StatusBar { return o.status }
func (o *Orchestrator) Timers() Timers             { return o.timers }
func (o *Orchestrator) Mode() *opmode.Handle       { return o.res.Mode }

// Setup runs once before the first Process. Only a cancelled ctx during
// provisioning makes it return an error.
func (o *Orchestrator) Setup(ctx context.Context) error {
	if err := o.res.Ring.Setup(); err != nil {
		println("[loop] ring setup:", err.Error())
	}
	for _, t := range o.timers.all() {
		t.Disable()
		t.Reset()
	}

	d := o.res.Display
	if err := d.Setup(); err != nil {
		println("[loop] display setup:", err.Error())
	}
	d.Dim(false)
	d.Reset()

	d.Printf("keyboard ")
	if err := o.res.Keypad.Setup(o.res.Dispatcher, o.cfg.KeypadAddress); err != nil {
		d.Printf("err\n")
		println("[keypad] setup:", err.Error())
		o.subsystem("keypad", err)
	} else {
		d.Printf("ok\n")
		o.keypadOK = true
		o.subsystem("keypad", nil)
	}

	if o.res.WiFi != nil {
		if err := o.res.WiFi.Establish(ctx); err != nil {
			d.Printf("wifi %s\n", string(errcode.Of(err)))
			println("[wifi]", err.Error())
		}
		o.status.Data.Address = o.res.WiFi.Address()
		if err := ctx.Err(); err != nil {
			return err
		}
	} else {
		o.res.Mode.Set(opmode.Offline)
	}

	if o.res.Web != nil {
		d.Printf("web ")
		if err := o.res.Web.Setup(); err != nil {
			d.Printf("err\n")
			println("[web] setup:", err.Error())
			o.subsystem("web", err)
		} else {
			d.Printf("ok\n")
			o.webOK = true
			o.subsystem("web", nil)
		}
	}

	for _, t := range o.timers.all() {
		t.Enable()
		t.Reset()
	}

	o.tempOK = false
	if o.res.Thermo != nil {
		if err := o.res.Thermo.Begin(); err != nil {
			d.Printf("temp err\n")
			println("[thermo] begin:", err.Error())
		} else {
			o.tempOK = true
			info := sensorInfo(o.cfg.Sensor, o.res.Thermo.Address())
			o.conn.Publish(o.conn.NewMessage(bus.T("state", "env", "temperature", "info"), info, true))
		}
	}
	o.status.Data.EnableTemperature = o.tempOK
	if o.tempOK {
		o.measure()
	} else {
		o.timers.Temperature.Disable()
	}

	o.status.Update()
	o.publish(true)
	return nil
}

// Process runs one loop iteration. It never blocks.
func (o *Orchestrator) Process() {
	o.res.Ring.Process()
	o.status.Update()

	active := false
	if o.keypadOK && o.res.Keypad.Process() {
		active = true
	}
	if o.webOK && o.res.Web.Process() {
		active = true
	}
	if active {
		o.activity()
	}

	o.publish(false)

	o.timers.DisplayDim.Process(o.dimDisplay)
	o.timers.DisplayOff.Process(o.displayOff)
	o.timers.LightsOff.Process(o.lightsOff)
	o.timers.Temperature.Process(o.measure)
}

// Run calls Setup and then Process until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Setup(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		o.Process()
		if o.cfg.Idle > 0 {
			time.Sleep(o.cfg.Idle)
		} else {
			runtime.Gosched()
		}
	}
}

// activity wakes the display and postpones every power-saving timer. The
// ring is left as the consumed command set it.
func (o *Orchestrator) activity() {
	o.res.Display.On()
	o.res.Display.Dim(false)
	o.timers.DisplayDim.Reset()
	o.timers.DisplayOff.Reset()
	o.timers.LightsOff.Reset()
}

func (o *Orchestrator) dimDisplay() {
	println("[loop] display dim")
	o.res.Display.Dim(true)
}

func (o *Orchestrator) displayOff() {
	println("[loop] display off")
	o.res.Display.Off()
}

func (o *Orchestrator) lightsOff() {
	println("[loop] lights off")
	o.res.Ring.Off()
}

func (o *Orchestrator) measure() {
	t, err := o.res.Thermo.Measure()
	if err != nil && !o.pub.tempFailed {
		println("[thermo] measure:", err.Error())
	}
	o.pub.tempFailed = err != nil
	o.status.Data.TemperatureC = t
	o.pub.tempDirty = true
}
