package countdown

import (
	"testing"
	"time"

	"ringlight-go/x/timex"
)

const tick = time.Second

// step advances the clock one tick and runs Process, returning how many
// times the callback ran.
func step(clk *timex.Manual, c *Countdown, n int) int {
	fired := 0
	for i := 0; i < n; i++ {
		clk.Advance(tick)
		c.Process(func() { fired++ })
	}
	return fired
}

func TestOneShot_FiresOnFirstDueTick(t *testing.T) {
	clk := timex.NewManual(time.Time{})
	c := NewOneShot(5*tick, clk)
	c.Reset()
	c.Enable()

	if got := step(clk, c, 4); got != 0 {
		t.Fatalf("fired %d times before duration elapsed", got)
	}
	if got := step(clk, c, 1); got != 1 {
		t.Fatalf("fired %d times at elapsed == duration, want 1", got)
	}
	if !c.Fired() {
		t.Fatal("timer should report fired")
	}
	if got := step(clk, c, 10); got != 0 {
		t.Fatalf("one-shot re-fired %d times without Reset", got)
	}
}

func TestOneShot_ResetSuppressesUntilFullDuration(t *testing.T) {
	clk := timex.NewManual(time.Time{})
	c := NewOneShot(3*tick, clk)
	c.Reset()
	c.Enable()
	if step(clk, c, 3) != 1 {
		t.Fatal("expected first firing")
	}

	c.Reset()
	if c.Fired() {
		t.Fatal("Reset must clear the fired latch")
	}
	if got := step(clk, c, 2); got != 0 {
		t.Fatalf("fired %d times before another full duration", got)
	}
	if got := step(clk, c, 1); got != 1 {
		t.Fatalf("fired %d times after another full duration, want 1", got)
	}
}

func TestOneShot_ActivityPostpones(t *testing.T) {
	clk := timex.NewManual(time.Time{})
	c := NewOneShot(3*tick, clk)
	c.Reset()
	c.Enable()
	for i := 0; i < 10; i++ {
		if step(clk, c, 2) != 0 {
			t.Fatalf("fired despite reset at round %d", i)
		}
		c.Reset()
	}
}

func TestDisabled_NeverFires(t *testing.T) {
	clk := timex.NewManual(time.Time{})
	for _, c := range []*Countdown{NewOneShot(tick, clk), NewPeriodic(tick, clk)} {
		c.Reset()
		c.Disable()
		c.Disable()
		if got := step(clk, c, 50); got != 0 {
			t.Fatalf("%v timer fired %d times while disabled", c.Kind(), got)
		}
	}
}

func TestDisablePolicy(t *testing.T) {
	clk := timex.NewManual(time.Time{})

	keep := NewOneShot(5*tick, clk)
	cleared := NewOneShot(5*tick, clk, WithDisablePolicy(ClearElapsed))
	for _, c := range []*Countdown{keep, cleared} {
		c.Reset()
		c.Enable()
	}
	clk.Advance(4 * tick)
	keep.Disable()
	cleared.Disable()
	clk.Advance(2 * tick)
	keep.Enable()
	cleared.Enable()

	if !keep.Process(nil) {
		t.Fatal("KeepElapsed timer should be due immediately after re-enable")
	}
	if cleared.Process(nil) {
		t.Fatal("ClearElapsed timer must restart its budget on Disable")
	}
	if got := cleared.Elapsed(); got != 2*tick {
		t.Fatalf("ClearElapsed elapsed = %v, want %v", got, 2*tick)
	}
}

func TestEnableDoesNotReset(t *testing.T) {
	clk := timex.NewManual(time.Time{})
	c := NewOneShot(5*tick, clk)
	c.Reset()
	clk.Advance(3 * tick)
	c.Enable()
	if got := c.Elapsed(); got != 3*tick {
		t.Fatalf("elapsed after Enable = %v, want %v", got, 3*tick)
	}
	if got := c.Remaining(); got != 2*tick {
		t.Fatalf("remaining = %v, want %v", got, 2*tick)
	}
}

func TestPeriodic_FreeRunning(t *testing.T) {
	clk := timex.NewManual(time.Time{})
	c := NewPeriodic(3*tick, clk)
	c.Reset()
	c.Enable()
	if got := step(clk, c, 9); got != 3 {
		t.Fatalf("periodic fired %d times in 9 ticks, want 3", got)
	}
	if c.Fired() {
		t.Fatal("periodic timers never latch")
	}
}

func TestPeriodic_CallbackResetIsHarmless(t *testing.T) {
	clk := timex.NewManual(time.Time{})
	c := NewPeriodic(2*tick, clk)
	c.Reset()
	c.Enable()
	n := 0
	for i := 0; i < 6; i++ {
		clk.Advance(tick)
		c.Process(func() { n++; c.Reset() })
	}
	if n != 3 {
		t.Fatalf("fired %d times, want 3", n)
	}
}

func TestZeroDurationFiresOnFirstProcess(t *testing.T) {
	clk := timex.NewManual(time.Time{})
	c := NewOneShot(0, clk)
	c.Enable()
	if !c.Process(nil) {
		t.Fatal("zero-duration timer should be due immediately")
	}
}
