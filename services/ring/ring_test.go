package ring

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"ringlight-go/x/timex"
)

type fakeStrip struct {
	frames int
	last   []color.RGBA
	err    error
}

func (s *fakeStrip) WriteColors(buf []color.RGBA) error {
	if s.err != nil {
		return s.err
	}
	s.frames++
	s.last = append(s.last[:0], buf...)
	return nil
}

func newTestRing(t *testing.T, cfg Config) (*Ring, *fakeStrip, *timex.Manual) {
	t.Helper()
	clk := timex.NewManual(time.Time{})
	st := &fakeStrip{}
	if cfg.Pixels == 0 {
		cfg.Pixels = 12
	}
	r := New(cfg, st, clk)
	if err := r.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return r, st, clk
}

func lit(buf []color.RGBA) int {
	n := 0
	for _, c := range buf {
		if c.R|c.G|c.B != 0 {
			n++
		}
	}
	return n
}

func TestSetup_BlanksStrip(t *testing.T) {
	_, st, _ := newTestRing(t, Config{})
	if st.frames != 1 || lit(st.last) != 0 {
		t.Fatalf("setup wrote %d frames with %d lit pixels", st.frames, lit(st.last))
	}
}

func TestSetup_NoStrip(t *testing.T) {
	r := New(Config{}, nil, nil)
	if err := r.Setup(); err == nil {
		t.Fatal("expected error without a strip")
	}
	r.Process() // must be safe after failed setup
}

func TestOn_RendersSceneAtBrightness(t *testing.T) {
	r, st, clk := newTestRing(t, Config{Brightness: 255})
	r.SetScene(Red)
	r.On()
	clk.Advance(time.Second)
	r.Process()
	if lit(st.last) != 12 {
		t.Fatalf("lit = %d, want 12", lit(st.last))
	}
	if got := st.last[0]; got != (color.RGBA{255, 0, 0, 255}) {
		t.Fatalf("pixel 0 = %v", got)
	}
}

func TestFade_RampsTowardsBrightness(t *testing.T) {
	r, st, clk := newTestRing(t, Config{Brightness: 200, Fade: 100 * time.Millisecond})
	r.On()
	clk.Advance(50 * time.Millisecond)
	r.Process()
	if got := st.last[0].R; got < 90 || got > 110 {
		t.Fatalf("mid-fade red = %d, want about 100", got)
	}
	clk.Advance(100 * time.Millisecond)
	r.Process()
	if got := st.last[0].R; got != 200 {
		t.Fatalf("after fade red = %d, want 200", got)
	}

	r.Off()
	clk.Advance(50 * time.Millisecond)
	r.Process()
	if got := st.last[0].R; got == 0 || got == 200 {
		t.Fatalf("fade-out should be in progress, red = %d", got)
	}
	clk.Advance(100 * time.Millisecond)
	r.Process()
	if lit(st.last) != 0 {
		t.Fatal("ring should be dark after fade-out")
	}
}

func TestArc_WidthAndShift(t *testing.T) {
	r, st, clk := newTestRing(t, Config{Brightness: 255})
	r.On()
	r.IncrementWidth(-8) // 12 -> 4
	r.Shift(-2)          // wraps to 10
	clk.Advance(time.Second)
	r.Process()

	want := map[int]bool{10: true, 11: true, 0: true, 1: true}
	for i, c := range st.last {
		on := c.R|c.G|c.B != 0
		if on != want[i] {
			t.Fatalf("pixel %d lit=%v, want %v (state %+v)", i, on, want[i], r.State())
		}
	}
	if s := r.State(); s.Width != 4 || s.Shift != 10 {
		t.Fatalf("state = %+v", s)
	}
}

func TestClamps(t *testing.T) {
	r, _, _ := newTestRing(t, Config{Brightness: 250, MinBrightness: 5})
	r.IncrementBrightness(30)
	if b := r.State().Brightness; b != 255 {
		t.Fatalf("brightness = %d, want 255", b)
	}
	r.IncrementBrightness(-1000)
	if b := r.State().Brightness; b != 5 {
		t.Fatalf("brightness = %d, want floor 5", b)
	}
	r.MaxBrightness()
	if b := r.State().Brightness; b != 255 {
		t.Fatalf("brightness = %d after MaxBrightness", b)
	}
	r.IncrementWidth(-100)
	if w := r.State().Width; w != 1 {
		t.Fatalf("width = %d, want 1", w)
	}
	r.FullWidth()
	if w := r.State().Width; w != 12 {
		t.Fatalf("width = %d, want 12", w)
	}
}

func TestToggleAndNextScene(t *testing.T) {
	r, _, _ := newTestRing(t, Config{})
	if was := r.ToggleOnOff(); was || !r.State().On {
		t.Fatal("first toggle should power on")
	}
	if was := r.ToggleOnOff(); !was || r.State().On {
		t.Fatal("second toggle should power off")
	}
	for _, want := range append(Scenes()[1:], White) {
		r.NextScene()
		if got := r.State().Scene; got != want {
			t.Fatalf("NextScene = %v, want %v", got, want)
		}
	}
}

func TestProcess_FrameRateAndIdle(t *testing.T) {
	r, st, clk := newTestRing(t, Config{FrameInterval: 20 * time.Millisecond})
	r.On()
	r.Process() // too soon after setup
	if st.frames != 1 {
		t.Fatalf("frames = %d, want 1", st.frames)
	}
	clk.Advance(20 * time.Millisecond)
	r.Process()
	clk.Advance(20 * time.Millisecond)
	r.Process() // static scene, nothing changed
	if st.frames != 2 {
		t.Fatalf("frames = %d, want 2", st.frames)
	}

	r.SetScene(Rainbow)
	for i := 0; i < 3; i++ {
		clk.Advance(20 * time.Millisecond)
		r.Process()
	}
	if st.frames != 5 {
		t.Fatalf("animated scene should render every frame, frames = %d", st.frames)
	}
}

func TestProcess_WriteErrorRetriesNextFrame(t *testing.T) {
	r, st, clk := newTestRing(t, Config{})
	st.err = errors.New("bus fault")
	r.On()
	clk.Advance(time.Second)
	r.Process()
	st.err = nil
	clk.Advance(time.Second)
	r.Process()
	if st.frames != 2 {
		t.Fatalf("frames = %d, want retry to succeed", st.frames)
	}
}

func TestParseScene(t *testing.T) {
	for _, s := range Scenes() {
		got, ok := ParseScene(s.String())
		if !ok || got != s {
			t.Fatalf("ParseScene(%q) = %v, %v", s.String(), got, ok)
		}
	}
	if _, ok := ParseScene("disco"); ok {
		t.Fatal("unexpected scene")
	}
}
