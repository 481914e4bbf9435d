// Package display drives a small character display: one status row on top
// and a scrolling console below it.
package display

import (
	"io"

	"ringlight-go/errcode"
	"ringlight-go/x/fmtx"
)

// Panel is a character-cell backend.
type Panel interface {
	Configure() error
	Size() (cols, rows int)
	// Draw replaces the whole screen; lines has exactly rows entries.
	Draw(lines []string) error
	SetContrast(level uint8) error
	Power(on bool) error
}

type Config struct {
	Contrast    uint8 // default 0xCF
	DimContrast uint8 // default 0x01
}

type Display struct {
	panel Panel
	cfg   Config
	echo  io.Writer

	cols, rows int
	status     string
	console    []string // rows-1 lines, oldest first
	cur        []byte   // partial last line

	ready  bool
	on     bool
	dimmed bool
	dirty  bool
	errLog bool
}

func New(p Panel, cfg Config) *Display {
	if cfg.Contrast == 0 {
		cfg.Contrast = 0xCF
	}
	if cfg.DimContrast == 0 {
		cfg.DimContrast = 0x01
	}
	return &Display{panel: p, cfg: cfg}
}

// SetEcho mirrors everything printed to w (typically the serial console).
func (d *Display) SetEcho(w io.Writer) { d.echo = w }

// Setup configures the panel and switches it on at full contrast.
func (d *Display) Setup() error {
	if d.panel == nil {
		return &errcode.E{C: errcode.NoDevice, Op: "display.setup", Msg: "no panel"}
	}
	if err := d.panel.Configure(); err != nil {
		return errcode.Wrap(errcode.NoDevice, "display.setup", err)
	}
	d.cols, d.rows = d.panel.Size()
	if d.cols < 1 || d.rows < 2 {
		return &errcode.E{C: errcode.Unsupported, Op: "display.setup", Msg: "panel too small"}
	}
	d.console = make([]string, d.rows-1)
	d.ready = true
	d.on = true
	d.dimmed = false
	_ = d.panel.Power(true)
	_ = d.panel.SetContrast(d.cfg.Contrast)
	d.dirty = true
	d.flush()
	return nil
}

// Reset clears the console area.
func (d *Display) Reset() {
	for i := range d.console {
		d.console[i] = ""
	}
	d.cur = d.cur[:0]
	d.dirty = true
	d.flush()
}

// Dim lowers or restores the contrast.
func (d *Display) Dim(dim bool) {
	if !d.ready || d.dimmed == dim {
		return
	}
	d.dimmed = dim
	level := d.cfg.Contrast
	if dim {
		level = d.cfg.DimContrast
	}
	d.check(d.panel.SetContrast(level))
}

func (d *Display) On() {
	if !d.ready || d.on {
		return
	}
	d.on = true
	d.check(d.panel.Power(true))
	d.flush()
}

func (d *Display) Off() {
	if !d.ready || !d.on {
		return
	}
	d.on = false
	d.check(d.panel.Power(false))
}

func (d *Display) IsOn() bool   { return d.on }
func (d *Display) Dimmed() bool { return d.dimmed }

// Printf appends formatted text to the console. '\n' ends a line; long
// lines wrap at the panel width.
func (d *Display) Printf(format string, args ...any) {
	s := fmtx.Sprintf(format, args...)
	if d.echo != nil {
		_, _ = io.WriteString(d.echo, s)
	}
	if !d.ready {
		return
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' {
			d.newline()
			continue
		}
		if len(d.cur) >= d.cols {
			d.newline()
		}
		d.cur = append(d.cur, c)
	}
	d.dirty = true
	d.flush()
}

// newline commits the partial line and scrolls.
func (d *Display) newline() {
	n := len(d.console)
	copy(d.console, d.console[1:])
	d.console[n-1] = string(d.cur)
	d.cur = d.cur[:0]
}

// SetStatus replaces the top row.
func (d *Display) SetStatus(s string) {
	if len(s) > d.cols && d.cols > 0 {
		s = s[:d.cols]
	}
	if s == d.status {
		return
	}
	d.status = s
	d.dirty = true
	d.flush()
}

// Lines returns the screen content, status row first.
func (d *Display) Lines() []string {
	out := make([]string, 0, d.rows)
	out = append(out, d.status)
	if len(d.console) == 0 {
		return out
	}
	if len(d.cur) > 0 {
		// The partial line is shown at the bottom, scrolled into view.
		out = append(out, d.console[1:]...)
		return append(out, string(d.cur))
	}
	return append(out, d.console...)
}

func (d *Display) flush() {
	if !d.ready || !d.dirty || !d.on {
		return
	}
	d.dirty = false
	d.check(d.panel.Draw(d.Lines()))
}

// check logs the first of a run of panel errors.
func (d *Display) check(err error) {
	if err == nil {
		d.errLog = false
		return
	}
	if !d.errLog {
		println("[display] panel error:", err.Error())
		d.errLog = true
	}
}
