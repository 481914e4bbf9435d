package config

import (
	"time"

	"ringlight-go/countdown"
	"ringlight-go/errcode"
	"ringlight-go/keys"
	"ringlight-go/services/dispatch"
	"ringlight-go/services/display"
	"ringlight-go/services/keypad"
	"ringlight-go/services/orchestrator"
	"ringlight-go/services/ring"
	"ringlight-go/x/strconvx"
)

// Duration is a time.Duration written as a Go duration string ("30m").
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// RingScene resolves the configured start scene.
func (c Config) RingScene() (ring.Scene, error) {
	s, ok := ring.ParseScene(c.Ring.Scene)
	if !ok {
		return 0, invalid("ring.scene: unknown scene " + c.Ring.Scene)
	}
	return s, nil
}

func (c Config) RingOptions() ring.Config {
	s, _ := c.RingScene()
	return ring.Config{
		Pixels:        c.Ring.Pixels,
		Brightness:    uint8(c.Ring.Brightness),
		MinBrightness: uint8(c.Ring.MinBrightness),
		Scene:         s,
		FrameInterval: c.Ring.FrameInterval.D(),
		Fade:          c.Ring.Fade.D(),
		RainbowPeriod: c.Ring.RainbowPeriod.D(),
		BreathePeriod: c.Ring.BreathePeriod.D(),
	}
}

func (c Config) KeypadOptions() keypad.Config {
	return keypad.Config{
		Address: uint16(c.Keypad.Address),
		Timing: keypad.Timing{
			RepeatDelay:  c.Keypad.RepeatDelay.D(),
			RepeatPeriod: c.Keypad.RepeatPeriod.D(),
			DoubleWindow: c.Keypad.DoubleWindow.D(),
		},
		PollInterval:     c.Keypad.PollInterval.D(),
		QueueLen:         c.Keypad.Queue,
		TouchThreshold:   uint8(c.Keypad.TouchThreshold),
		ReleaseThreshold: uint8(c.Keypad.ReleaseThreshold),
	}
}

func (c Config) DisplayOptions() display.Config {
	return display.Config{
		Contrast:    uint8(c.Display.Contrast),
		DimContrast: uint8(c.Display.DimContrast),
	}
}

// LoopOptions maps the timers, keypad address and idle pause onto the loop.
func (c Config) LoopOptions() orchestrator.Config {
	p, _ := c.DisablePolicy()
	sensor := c.Temperature.Backend
	if !c.Temperature.Enabled {
		sensor = "none"
	}
	return orchestrator.Config{
		LightsOff:          c.Timers.LightsOff.D(),
		DisplayOff:         c.Timers.DisplayOff.D(),
		DisplayDim:         c.Timers.DisplayDim.D(),
		TemperatureRefresh: c.Timers.TemperatureRefresh.D(),
		DisablePolicy:      p,
		KeypadAddress:      uint16(c.Keypad.Address),
		Sensor:             sensor,
		Idle:               c.Device.Idle.D(),
	}
}

func (c Config) DisablePolicy() (countdown.DisablePolicy, error) {
	switch c.Timers.DisablePolicy {
	case "", "keep":
		return countdown.KeepElapsed, nil
	case "clear":
		return countdown.ClearElapsed, nil
	}
	return 0, invalid("timers.disable_policy must be keep or clear")
}

// Table returns the stock key table with the configured overrides applied.
func (c Config) Table() (dispatch.Table, error) {
	t := dispatch.DefaultTable()
	for i, bc := range c.Bindings {
		tier, k, b, err := bc.resolve()
		if err != nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "config.bindings", Msg: "entry " + strconvx.Itoa(i), Err: err}
		}
		t = t.With(tier, k, b)
	}
	return t, nil
}

func (bc BindingConfig) resolve() (dispatch.Tier, keys.Key, dispatch.Binding, error) {
	tier, ok := dispatch.ParseTier(bc.Tier)
	if !ok {
		return 0, 0, dispatch.None, invalid("unknown tier " + bc.Tier)
	}
	k := keys.FromIndex(bc.Key)
	if !k.Valid() {
		return 0, 0, dispatch.None, invalid("key must be 0..11")
	}
	op, ok := dispatch.ParseOp(bc.Op)
	if !ok {
		return 0, 0, dispatch.None, invalid("unknown op " + bc.Op)
	}
	b := dispatch.Binding{Op: op, Arg: bc.Arg, PowerOn: bc.PowerOn}
	if op == dispatch.OpScene {
		s, ok := ring.ParseScene(bc.Scene)
		if !ok {
			return 0, 0, dispatch.None, invalid("unknown scene " + bc.Scene)
		}
		b.Scene = s
	}
	if op == dispatch.OpNone {
		b = dispatch.None
	}
	return tier, k, b, nil
}
