package ramp

import (
	"time"

	"ringlight-go/x/mathx"
)

// Linear is a caller-driven integer ramp from one level to another over a
// fixed duration. It never sleeps: the owner samples it with At(now) from its
// own loop and stops when Done reports true.
// duration==0 snaps to 'to'.
type Linear struct {
	from, to uint16
	top      uint16
	start    time.Time
	dur      time.Duration
	active   bool
}

// Start begins a new ramp at now, replacing any ramp in progress.
func (r *Linear) Start(now time.Time, from, to, top uint16, d time.Duration) {
	r.from = mathx.Min(from, top)
	r.to = mathx.Min(to, top)
	r.top = top
	r.start = now
	r.dur = d
	r.active = d > 0 && r.from != r.to
}

// Active reports whether a ramp is in progress.
func (r *Linear) Active() bool { return r.active }

// Target is the level the ramp converges to.
func (r *Linear) Target() uint16 { return r.to }

// At returns the level at now. Once the duration has passed it returns the
// target and the ramp becomes inactive.
func (r *Linear) At(now time.Time) uint16 {
	if !r.active {
		return r.to
	}
	el := now.Sub(r.start)
	if el >= r.dur {
		r.active = false
		return r.to
	}
	if el <= 0 {
		return r.from
	}
	d := int64(r.to) - int64(r.from)
	cur := int64(r.from) + d*int64(el)/int64(r.dur)
	return uint16(mathx.Clamp(cur, 0, int64(r.top)))
}
