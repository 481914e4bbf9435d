// Package keys defines the classified keypad event consumed by the
// dispatcher. The key set and the interaction types are closed enumerations;
// consumers switch over every value.
package keys

import "ringlight-go/x/strconvx"

// Key is the logical identity of one of the twelve pads, or None.
type Key uint8

const (
	None Key = iota
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	Key10
	Key11
)

// Count is the number of real keys (None excluded).
const Count = 12

// FromIndex maps a pad index 0..11 to its Key. Out-of-range indices map to None.
func FromIndex(i int) Key {
	if i < 0 || i >= Count {
		return None
	}
	return Key(i + 1)
}

// Index returns the pad index 0..11, or -1 for None and invalid values.
func (k Key) Index() int {
	if k == None || k > Key11 {
		return -1
	}
	return int(k) - 1
}

// Valid reports whether k is one of Key0..Key11.
func (k Key) Valid() bool { return k.Index() >= 0 }

func (k Key) String() string {
	if !k.Valid() {
		return "none"
	}
	return "key" + strconvx.Itoa(k.Index())
}

// All lists Key0..Key11 in order.
func All() [Count]Key {
	var out [Count]Key
	for i := range out {
		out[i] = FromIndex(i)
	}
	return out
}

// Type is how a key was actuated.
type Type uint8

const (
	Pressed Type = iota
	Repeated
	DoublePressed
)

func (t Type) String() string {
	switch t {
	case Pressed:
		return "pressed"
	case Repeated:
		return "repeated"
	case DoublePressed:
		return "double"
	}
	return "unknown"
}

// ParseType accepts the names produced by Type.String.
func ParseType(s string) (Type, bool) {
	switch s {
	case "pressed":
		return Pressed, true
	case "repeated":
		return Repeated, true
	case "double", "double_pressed":
		return DoublePressed, true
	}
	return 0, false
}

// Event is one classified actuation. Repeated counts repeat ticks and is
// only meaningful when Type == Repeated.
type Event struct {
	Key      Key
	Type     Type
	Repeated uint16
}

func Press(k Key) Event            { return Event{Key: k, Type: Pressed} }
func DoublePress(k Key) Event      { return Event{Key: k, Type: DoublePressed} }
func Repeat(k Key, n uint16) Event { return Event{Key: k, Type: Repeated, Repeated: n} }

func (e Event) String() string {
	s := e.Key.String() + "/" + e.Type.String()
	if e.Type == Repeated {
		s += "#" + strconvx.Itoa(int(e.Repeated))
	}
	return s
}
