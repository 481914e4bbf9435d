package display

import (
	"ringlight-go/opmode"
	"ringlight-go/x/fmtx"
)

// Data is what the status row shows. A NaN temperature means the last
// reading failed.
type Data struct {
	TemperatureC      float32
	EnableTemperature bool
	Address           string
	Message           string
}

// StatusBar renders Data and the operating mode into the top row.
type StatusBar struct {
	Data Data

	mode *opmode.Handle
	disp *Display
}

func NewStatusBar(mode *opmode.Handle, d *Display) *StatusBar {
	return &StatusBar{mode: mode, disp: d}
}

// Update redraws the row; the display skips unchanged content.
func (s *StatusBar) Update() {
	s.disp.SetStatus(s.Line(s.disp.cols))
}

// Line formats the row for a panel cols characters wide: mode glyph and
// message (or address) on the left, temperature on the right.
func (s *StatusBar) Line(cols int) string {
	left := s.mode.Get().Glyph()
	if txt := s.Data.Message; txt != "" {
		left += " " + txt
	} else if s.Data.Address != "" {
		left += " " + s.Data.Address
	}
	right := ""
	if s.Data.EnableTemperature {
		right = FormatTemperature(s.Data.TemperatureC)
	}
	if cols <= 0 {
		if right == "" {
			return left
		}
		return left + " " + right
	}
	room := cols - len(right)
	if right != "" {
		room--
	}
	if room < 0 {
		room = 0
	}
	if len(left) > room {
		left = left[:room]
	}
	line := left
	for len(line) < cols-len(right) {
		line += " "
	}
	return line + right
}

// FormatTemperature renders t with one decimal, or "--" for a failed read.
func FormatTemperature(t float32) string {
	if t != t {
		return "--"
	}
	return fmtx.Sprintf("%.1fC", t)
}
