// Package dispatch maps classified key events to ring operations through a
// fixed priority of tiers. The first tier that matches the event type and has
// a binding for the key consumes the event; lower tiers never see it.
package dispatch

import (
	"ringlight-go/keys"
	"ringlight-go/services/ring"
)

// Ring is the subset of the rendering engine the dispatcher drives.
type Ring interface {
	SetScene(s ring.Scene)
	On()
	ToggleOnOff() bool
	NextScene()
	MaxBrightness()
	IncrementBrightness(delta int)
	FullWidth()
	IncrementWidth(delta int)
	Shift(delta int)
}

// DefaultLongPress is the repeat count that makes a hold a long press.
const DefaultLongPress = 10

type Dispatcher struct {
	ring      Ring
	table     *compiled
	longPress uint16

	last Decision
}

// Decision describes how an event was (or would be) handled.
type Decision struct {
	Event    keys.Event
	Consumed bool
	Tier     Tier
	Binding  Binding
}

// New validates t and returns a dispatcher driving r. longPress==0 selects
// DefaultLongPress.
func New(r Ring, t Table, longPress uint16) (*Dispatcher, error) {
	c, err := t.compile()
	if err != nil {
		return nil, err
	}
	if longPress == 0 {
		longPress = DefaultLongPress
	}
	return &Dispatcher{ring: r, table: c, longPress: longPress}, nil
}

// Classify returns the tier and binding that would consume ev, without acting.
func (d *Dispatcher) Classify(ev keys.Event) Decision {
	dec := Decision{Event: ev}
	i := ev.Key.Index()
	if i < 0 {
		return dec
	}
	for _, tier := range Tiers() {
		if !tier.matches(ev, d.longPress) {
			continue
		}
		b := d.table[tier][i]
		if !b.Handled() {
			continue
		}
		dec.Consumed = true
		dec.Tier = tier
		dec.Binding = b
		return dec
	}
	return dec
}

// Take applies the first matching binding and reports whether ev was
// consumed. Unconsumed events are dropped by the caller.
func (d *Dispatcher) Take(ev keys.Event) bool {
	dec := d.Classify(ev)
	d.last = dec
	if !dec.Consumed {
		return false
	}
	d.apply(dec.Binding)
	return true
}

// Last returns the decision made by the most recent Take.
func (d *Dispatcher) Last() Decision { return d.last }

func (d *Dispatcher) LongPress() uint16 { return d.longPress }

func (d *Dispatcher) apply(b Binding) {
	switch b.Op {
	case OpNone:
		return
	case OpScene:
		d.ring.SetScene(b.Scene)
	case OpNextScene:
		d.ring.NextScene()
	case OpToggle:
		d.ring.ToggleOnOff()
	case OpMaxBrightness:
		d.ring.MaxBrightness()
	case OpBrightness:
		d.ring.IncrementBrightness(b.Arg)
	case OpFullWidth:
		d.ring.FullWidth()
	case OpWidth:
		d.ring.IncrementWidth(b.Arg)
	case OpShift:
		d.ring.Shift(b.Arg)
	}
	if b.PowerOn {
		d.ring.On()
	}
}
