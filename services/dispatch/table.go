package dispatch

import (
	"ringlight-go/errcode"
	"ringlight-go/keys"
	"ringlight-go/services/ring"
)

// Tier is a priority level; lower values are evaluated first.
type Tier uint8

const (
	TierDoublePressed Tier = iota
	TierRepeated
	TierPressed
	TierPressedOrRepeated
	tierCount
)

// Tiers lists every tier in evaluation order.
func Tiers() [tierCount]Tier {
	return [tierCount]Tier{TierDoublePressed, TierRepeated, TierPressed, TierPressedOrRepeated}
}

func (t Tier) String() string {
	switch t {
	case TierDoublePressed:
		return "double"
	case TierRepeated:
		return "repeated"
	case TierPressed:
		return "pressed"
	case TierPressedOrRepeated:
		return "pressed_or_repeated"
	}
	return "unknown"
}

// ParseTier accepts the names produced by Tier.String.
func ParseTier(s string) (Tier, bool) {
	for _, t := range Tiers() {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// matches reports whether ev is eligible for the tier. The repeated tier is
// gated on the repeat count reaching longPress. The last tier also takes
// double presses so a key without a double binding still acts on its
// second tap.
func (t Tier) matches(ev keys.Event, longPress uint16) bool {
	switch t {
	case TierDoublePressed:
		return ev.Type == keys.DoublePressed
	case TierRepeated:
		return ev.Type == keys.Repeated && ev.Repeated >= longPress
	case TierPressed:
		return ev.Type == keys.Pressed
	case TierPressedOrRepeated:
		return ev.Type == keys.Pressed || ev.Type == keys.Repeated || ev.Type == keys.DoublePressed
	}
	return false
}

// Op is a ring operation a binding can perform.
type Op uint8

const (
	OpNone Op = iota
	OpScene
	OpNextScene
	OpToggle
	OpMaxBrightness
	OpBrightness
	OpFullWidth
	OpWidth
	OpShift
)

var opNames = [...]string{"none", "scene", "next_scene", "toggle", "max_brightness", "brightness", "full_width", "width", "shift"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

// ParseOp accepts the names produced by Op.String.
func ParseOp(s string) (Op, bool) {
	for i, n := range opNames {
		if n == s {
			return Op(i), true
		}
	}
	return 0, false
}

// Binding is what a tier does for one key. Arg is the signed step for the
// brightness, width and shift ops.
type Binding struct {
	Op      Op
	Arg     int
	Scene   ring.Scene
	PowerOn bool
}

// None is the explicit no-op binding.
var None = Binding{}

func Scene(s ring.Scene) Binding   { return Binding{Op: OpScene, Scene: s, PowerOn: true} }
func NextScene() Binding           { return Binding{Op: OpNextScene, PowerOn: true} }
func Toggle() Binding              { return Binding{Op: OpToggle} }
func MaxBrightness() Binding       { return Binding{Op: OpMaxBrightness} }
func Brightness(delta int) Binding { return Binding{Op: OpBrightness, Arg: delta, PowerOn: true} }
func FullWidth() Binding           { return Binding{Op: OpFullWidth, PowerOn: true} }
func Width(delta int) Binding      { return Binding{Op: OpWidth, Arg: delta, PowerOn: true} }
func ShiftBy(delta int) Binding    { return Binding{Op: OpShift, Arg: delta, PowerOn: true} }
func (b Binding) Handled() bool    { return b.Op != OpNone }

// Rule is one row of the flat table.
type Rule struct {
	Tier    Tier
	Key     keys.Key
	Binding Binding
}

// Table is the ordered rule list. Every key must appear exactly once in
// every tier, with None where nothing happens.
type Table []Rule

// compiled is the validated lookup form of a Table.
type compiled [tierCount][keys.Count]Binding

func (t Table) compile() (*compiled, error) {
	var out compiled
	var seen [tierCount][keys.Count]bool
	for _, r := range t {
		if r.Tier >= tierCount || !r.Key.Valid() {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "dispatch.compile", Msg: "rule for " + r.Tier.String() + "/" + r.Key.String()}
		}
		i := r.Key.Index()
		if seen[r.Tier][i] {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "dispatch.compile", Msg: "duplicate " + r.Tier.String() + "/" + r.Key.String()}
		}
		seen[r.Tier][i] = true
		out[r.Tier][i] = r.Binding
	}
	for _, tier := range Tiers() {
		for i := 0; i < keys.Count; i++ {
			if !seen[tier][i] {
				return nil, &errcode.E{C: errcode.InvalidParams, Op: "dispatch.compile", Msg: "missing " + tier.String() + "/" + keys.FromIndex(i).String()}
			}
		}
	}
	return &out, nil
}

// With returns a copy of t with the binding for (tier, key) replaced.
func (t Table) With(tier Tier, k keys.Key, b Binding) Table {
	out := make(Table, len(t))
	copy(out, t)
	for i := range out {
		if out[i].Tier == tier && out[i].Key == k {
			out[i].Binding = b
		}
	}
	return out
}

// DefaultTable is the stock keypad layout:
//
//	0 white   1 width+   2 red     3 bright+
//	4 shift+  5 scene    6 shift-  7 bright-
//	8 green   9 width-  10 blue   11 power
func DefaultTable() Table {
	return Table{
		// Double press: snap to extremes and deliberate actions.
		{TierDoublePressed, keys.Key0, MaxBrightness()},
		{TierDoublePressed, keys.Key1, None},
		{TierDoublePressed, keys.Key2, MaxBrightness()},
		{TierDoublePressed, keys.Key3, Brightness(3)},
		{TierDoublePressed, keys.Key4, None},
		{TierDoublePressed, keys.Key5, NextScene()},
		{TierDoublePressed, keys.Key6, None},
		{TierDoublePressed, keys.Key7, Brightness(-3)},
		{TierDoublePressed, keys.Key8, MaxBrightness()},
		{TierDoublePressed, keys.Key9, None},
		{TierDoublePressed, keys.Key10, MaxBrightness()},
		{TierDoublePressed, keys.Key11, Toggle()},

		// Long press.
		{TierRepeated, keys.Key0, FullWidth()},
		{TierRepeated, keys.Key1, None},
		{TierRepeated, keys.Key2, FullWidth()},
		{TierRepeated, keys.Key3, None},
		{TierRepeated, keys.Key4, None},
		{TierRepeated, keys.Key5, Scene(ring.Rainbow)},
		{TierRepeated, keys.Key6, None},
		{TierRepeated, keys.Key7, None},
		{TierRepeated, keys.Key8, FullWidth()},
		{TierRepeated, keys.Key9, None},
		{TierRepeated, keys.Key10, FullWidth()},
		{TierRepeated, keys.Key11, None},

		// Single tap.
		{TierPressed, keys.Key0, Scene(ring.White)},
		{TierPressed, keys.Key1, None},
		{TierPressed, keys.Key2, Scene(ring.Red)},
		{TierPressed, keys.Key3, None},
		{TierPressed, keys.Key4, None},
		{TierPressed, keys.Key5, NextScene()},
		{TierPressed, keys.Key6, None},
		{TierPressed, keys.Key7, None},
		{TierPressed, keys.Key8, Scene(ring.Green)},
		{TierPressed, keys.Key9, None},
		{TierPressed, keys.Key10, Scene(ring.Blue)},
		{TierPressed, keys.Key11, Toggle()},

		// Tap or hold: continuous adjustments.
		{TierPressedOrRepeated, keys.Key0, None},
		{TierPressedOrRepeated, keys.Key1, Width(4)},
		{TierPressedOrRepeated, keys.Key2, None},
		{TierPressedOrRepeated, keys.Key3, Brightness(3)},
		{TierPressedOrRepeated, keys.Key4, ShiftBy(4)},
		{TierPressedOrRepeated, keys.Key5, None},
		{TierPressedOrRepeated, keys.Key6, ShiftBy(-4)},
		{TierPressedOrRepeated, keys.Key7, Brightness(-3)},
		{TierPressedOrRepeated, keys.Key8, None},
		{TierPressedOrRepeated, keys.Key9, Width(-4)},
		{TierPressedOrRepeated, keys.Key10, None},
		{TierPressedOrRepeated, keys.Key11, None},
	}
}
