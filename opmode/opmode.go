// Package opmode holds the device-wide operating mode. One Handle is created
// at startup and passed by pointer to every component that reads or writes it;
// only the loop goroutine writes.
package opmode

type Mode uint8

const (
	// Provisioning: no network yet, the Wi-Fi setup flow is (or will be) running.
	Provisioning Mode = iota
	// Normal: joined to a network, web service available.
	Normal
	// Offline: running without a network (no radio, or provisioning failed).
	Offline
)

func (m Mode) String() string {
	switch m {
	case Provisioning:
		return "provisioning"
	case Normal:
		return "normal"
	case Offline:
		return "offline"
	}
	return "unknown"
}

// Glyph is the short status-bar marker for the mode.
func (m Mode) Glyph() string {
	switch m {
	case Provisioning:
		return "AP"
	case Normal:
		return "WiFi"
	case Offline:
		return "--"
	}
	return "?"
}

type Handle struct {
	mode Mode
	gen  uint32
}

func New(initial Mode) *Handle { return &Handle{mode: initial} }

func (h *Handle) Get() Mode { return h.mode }

// Set stores m and reports whether it changed.
func (h *Handle) Set(m Mode) bool {
	if h.mode == m {
		return false
	}
	h.mode = m
	h.gen++
	return true
}

// Generation increments on every change; readers compare it to skip redraws.
func (h *Handle) Generation() uint32 { return h.gen }
