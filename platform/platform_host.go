//go:build !rp2040 && !rp2350

package platform

import (
	"image/color"
	"os"
	"sync"

	"ringlight-go/errcode"
	"ringlight-go/services/config"
	"ringlight-go/services/display"
	"ringlight-go/services/thermo"
	"ringlight-go/x/strx"
)

// ----------------------------- I²C (host) ------------------------------------

// HostI2C stands in for the I²C bus on host builds. It records the last
// transfer and fails it with no_device so chip setup reports honestly.
type HostI2C struct {
	mu     sync.Mutex
	LastTx struct {
		Addr uint16
		W    []byte
		Rn   int
	}
}

func (h *HostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastTx.Addr = addr
	h.LastTx.W = append([]byte(nil), w...)
	h.LastTx.Rn = len(r)
	return errcode.NoDevice
}

// ----------------------------- Strip (host) ----------------------------------

// MemStrip keeps the last frame written to it.
type MemStrip struct {
	mu     sync.Mutex
	frame  []color.RGBA
	writes int
}

func (s *MemStrip) WriteColors(buf []color.RGBA) error {
	s.mu.Lock()
	s.frame = append(s.frame[:0], buf...)
	s.writes++
	s.mu.Unlock()
	return nil
}

// Frame returns a copy of the last frame.
func (s *MemStrip) Frame() []color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]color.RGBA(nil), s.frame...)
}

func (s *MemStrip) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// ----------------------------- Board -----------------------------------------

// New builds the host board: an inert bus, an in-memory strip, a text panel
// echoed to stdout and the sysfs thermal zone when configured.
func New(cfg config.Config) (*Board, error) {
	b := &Board{
		I2C:     &HostI2C{},
		Strip:   &MemStrip{},
		Panel:   display.NewTextPanel(cfg.Display.Cols, cfg.Display.Rows),
		Console: os.Stdout,
	}
	s, ok := sensorFor(cfg.Temperature, b.I2C)
	if !ok {
		switch cfg.Temperature.Backend {
		case "sysfs":
			root := strx.Coalesce(cfg.Temperature.SysfsRoot, "/sys/class/thermal")
			s = thermo.NewSysfs(os.DirFS(root))
		default:
			return nil, &errcode.E{C: errcode.Unsupported, Op: "platform.new", Msg: "temperature backend " + cfg.Temperature.Backend + " needs a 1-Wire bus"}
		}
	}
	b.Sensor = s
	return b, nil
}
