// Package ring is the rendering engine for the addressable LED ring. It owns
// the light state (power, brightness, scene, arc width and shift) and turns it
// into frames written to a Strip. All methods are called from the loop
// goroutine; Process never blocks for longer than one strip write.
package ring

import (
	"image/color"
	"time"

	"ringlight-go/errcode"
	"ringlight-go/x/mathx"
	"ringlight-go/x/ramp"
	"ringlight-go/x/timex"
)

// Strip receives rendered frames. ws2812.Device satisfies it.
type Strip interface {
	WriteColors(buf []color.RGBA) error
}

const MaxBrightness = 255

type Config struct {
	Pixels        int
	Brightness    uint8 // initial brightness
	MinBrightness uint8 // floor for IncrementBrightness
	Scene         Scene
	FrameInterval time.Duration
	Fade          time.Duration // power on/off fade
	RainbowPeriod time.Duration // one full hue rotation
	BreathePeriod time.Duration
}

func (c *Config) applyDefaults() {
	if c.Pixels <= 0 {
		c.Pixels = 300
	}
	if c.Brightness == 0 {
		c.Brightness = 128
	}
	if c.MinBrightness == 0 {
		c.MinBrightness = 1
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = 20 * time.Millisecond
	}
	if c.Fade < 0 {
		c.Fade = 0
	}
	if c.RainbowPeriod <= 0 {
		c.RainbowPeriod = 10 * time.Second
	}
	if c.BreathePeriod <= 0 {
		c.BreathePeriod = 4 * time.Second
	}
}

// State is the externally visible light configuration.
type State struct {
	On         bool  `json:"on"`
	Brightness uint8 `json:"brightness"`
	Scene      Scene `json:"scene"`
	Width      int   `json:"width"`
	Shift      int   `json:"shift"`
	Pixels     int   `json:"pixels"`
}

type Ring struct {
	cfg   Config
	strip Strip
	clk   timex.Clock

	st    State
	gen   uint32
	fade  ramp.Linear
	epoch time.Time

	buf       []color.RGBA
	lastFrame time.Time
	dirty     bool
	writeErr  bool
}

// New builds a ring that starts powered off with the full arc selected.
func New(cfg Config, strip Strip, clk timex.Clock) *Ring {
	cfg.applyDefaults()
	if clk == nil {
		clk = timex.System{}
	}
	if cfg.Scene >= sceneCount {
		cfg.Scene = White
	}
	return &Ring{
		cfg:   cfg,
		strip: strip,
		clk:   clk,
		st: State{
			Brightness: mathx.Max(cfg.Brightness, cfg.MinBrightness),
			Scene:      cfg.Scene,
			Width:      cfg.Pixels,
			Pixels:     cfg.Pixels,
		},
	}
}

// Setup allocates the frame buffer and blanks the strip.
func (r *Ring) Setup() error {
	if r.strip == nil {
		return errcode.NoDevice
	}
	r.buf = make([]color.RGBA, r.cfg.Pixels)
	r.epoch = r.clk.Now()
	r.lastFrame = r.epoch
	if err := r.strip.WriteColors(r.buf); err != nil {
		return errcode.Wrap(errcode.NoDevice, "ring.Setup", err)
	}
	return nil
}

// Process renders and writes a frame when something changed or the current
// scene is animated, at most once per frame interval.
func (r *Ring) Process() {
	if r.buf == nil {
		return
	}
	now := r.clk.Now()
	if now.Sub(r.lastFrame) < r.cfg.FrameInterval {
		return
	}
	animating := r.fade.Active() || (r.st.On && r.st.Scene.Animated())
	if !r.dirty && !animating {
		return
	}
	r.render(now)
	r.lastFrame = now
	r.dirty = false
	if err := r.strip.WriteColors(r.buf); err != nil {
		if !r.writeErr {
			println("[ring] strip write failed:", err.Error())
		}
		r.writeErr = true
		r.dirty = true
		return
	}
	r.writeErr = false
}

// Frame returns the last rendered frame. The slice is reused between frames.
func (r *Ring) Frame() []color.RGBA { return r.buf }

func (r *Ring) State() State { return r.st }

// Generation increments on every state change.
func (r *Ring) Generation() uint32 { return r.gen }

func (r *Ring) changed() {
	r.gen++
	r.dirty = true
}

// SetScene selects a scene; the power state is unchanged.
func (r *Ring) SetScene(s Scene) {
	if s >= sceneCount {
		return
	}
	if r.st.Scene != s {
		r.st.Scene = s
		r.changed()
	}
}

// NextScene cycles through the scenes in order.
func (r *Ring) NextScene() {
	r.st.Scene = (r.st.Scene + 1) % sceneCount
	r.changed()
}

func (r *Ring) On() {
	if r.st.On {
		return
	}
	now := r.clk.Now()
	from := r.level(now)
	r.st.On = true
	r.startFade(now, from, r.st.Brightness)
	r.changed()
}

func (r *Ring) Off() {
	if !r.st.On {
		return
	}
	now := r.clk.Now()
	from := r.level(now)
	r.st.On = false
	r.startFade(now, from, 0)
	r.changed()
}

// ToggleOnOff flips the power state and reports whether the ring was on.
func (r *Ring) ToggleOnOff() bool {
	was := r.st.On
	if was {
		r.Off()
	} else {
		r.On()
	}
	return was
}

func (r *Ring) MaxBrightness() { r.setBrightness(MaxBrightness) }

func (r *Ring) IncrementBrightness(delta int) {
	r.setBrightness(mathx.Clamp(int(r.st.Brightness)+delta, int(r.cfg.MinBrightness), MaxBrightness))
}

func (r *Ring) setBrightness(b int) {
	if uint8(b) == r.st.Brightness {
		return
	}
	r.st.Brightness = uint8(b)
	if r.st.On && r.fade.Active() {
		now := r.clk.Now()
		r.startFade(now, r.level(now), r.st.Brightness)
	}
	r.changed()
}

func (r *Ring) FullWidth() {
	if r.st.Width != r.cfg.Pixels {
		r.st.Width = r.cfg.Pixels
		r.changed()
	}
}

func (r *Ring) IncrementWidth(delta int) {
	w := mathx.Clamp(r.st.Width+delta, 1, r.cfg.Pixels)
	if w != r.st.Width {
		r.st.Width = w
		r.changed()
	}
}

// Shift rotates the start of the arc around the ring.
func (r *Ring) Shift(delta int) {
	n := r.cfg.Pixels
	r.st.Shift = ((r.st.Shift+delta)%n + n) % n
	r.changed()
}

func (r *Ring) startFade(now time.Time, from, to uint8) {
	r.fade.Start(now, uint16(from), uint16(to), MaxBrightness, r.cfg.Fade)
}

// level is the output brightness at now, following any fade in progress.
func (r *Ring) level(now time.Time) uint8 {
	if r.fade.Active() {
		return uint8(r.fade.At(now))
	}
	if r.st.On {
		return r.st.Brightness
	}
	return 0
}

func (r *Ring) render(now time.Time) {
	lvl := r.level(now)
	n := r.cfg.Pixels
	phase := now.Sub(r.epoch)
	for i := range r.buf {
		rel := (i - r.st.Shift + n) % n
		if lvl == 0 || rel >= r.st.Width {
			r.buf[i] = color.RGBA{A: 255}
			continue
		}
		c := r.st.Scene.colorAt(rel, r.st.Width, phase, &r.cfg)
		r.buf[i] = scale(c, lvl)
	}
}

func scale(c color.RGBA, lvl uint8) color.RGBA {
	l := uint32(lvl)
	return color.RGBA{
		R: uint8(mathx.RoundDiv(uint32(c.R)*l, 255)),
		G: uint8(mathx.RoundDiv(uint32(c.G)*l, 255)),
		B: uint8(mathx.RoundDiv(uint32(c.B)*l, 255)),
		A: 255,
	}
}
