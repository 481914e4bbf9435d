package keypad

import (
	"time"

	"ringlight-go/keys"
)

// Timing holds the classifier windows.
type Timing struct {
	RepeatDelay  time.Duration // hold time before the first Repeated event
	RepeatPeriod time.Duration // spacing of further Repeated events
	DoubleWindow time.Duration // max gap between two presses of a double press
}

func (t Timing) withDefaults() Timing {
	if t.RepeatDelay <= 0 {
		t.RepeatDelay = 300 * time.Millisecond
	}
	if t.RepeatPeriod <= 0 {
		t.RepeatPeriod = 50 * time.Millisecond
	}
	if t.DoubleWindow <= 0 {
		t.DoubleWindow = 250 * time.Millisecond
	}
	return t
}

type keyState struct {
	down       bool
	armed      bool // last press may open a double press
	lastPress  time.Time
	nextRepeat time.Time
	repeats    uint16
}

// Classifier turns successive touch bitmasks into key events.
//
// A press edge yields Pressed, or DoublePressed when it follows an unheld
// press of the same key within DoubleWindow. Holding a key past RepeatDelay
// yields Repeated every RepeatPeriod with an increasing count.
type Classifier struct {
	t    Timing
	keys [keys.Count]keyState
}

func NewClassifier(t Timing) *Classifier {
	return &Classifier{t: t.withDefaults()}
}

// Timing returns the effective windows.
func (c *Classifier) Timing() Timing { return c.t }

// Update feeds one touch sample taken at now and calls emit for each event,
// in key order.
func (c *Classifier) Update(mask uint16, now time.Time, emit func(keys.Event)) {
	for i := 0; i < keys.Count; i++ {
		k := keys.FromIndex(i)
		s := &c.keys[i]
		touched := mask&(1<<uint(i)) != 0

		switch {
		case touched && !s.down:
			s.down = true
			s.repeats = 0
			s.nextRepeat = now.Add(c.t.RepeatDelay)
			if s.armed && now.Sub(s.lastPress) <= c.t.DoubleWindow {
				s.armed = false
				emit(keys.DoublePress(k))
			} else {
				s.armed = true
				emit(keys.Press(k))
			}
			s.lastPress = now

		case touched && s.down:
			if now.Before(s.nextRepeat) {
				continue
			}
			s.armed = false
			if s.repeats < ^uint16(0) {
				s.repeats++
			}
			s.nextRepeat = s.nextRepeat.Add(c.t.RepeatPeriod)
			if s.nextRepeat.Before(now) {
				s.nextRepeat = now.Add(c.t.RepeatPeriod)
			}
			emit(keys.Repeat(k, s.repeats))

		case !touched && s.down:
			s.down = false
		}
	}
}

// Held reports whether k is currently down.
func (c *Classifier) Held(k keys.Key) bool {
	i := k.Index()
	return i >= 0 && c.keys[i].down
}

// Reset forgets all key state.
func (c *Classifier) Reset() { c.keys = [keys.Count]keyState{} }
