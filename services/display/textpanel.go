package display

import (
	"strings"
	"sync"
)

// TextPanel is an in-memory panel. Host builds use it in place of the OLED;
// the web service reads it back for the state view.
type TextPanel struct {
	mu       sync.Mutex
	cols     int
	rows     int
	lines    []string
	on       bool
	contrast uint8
	draws    int
	err      error
}

// NewTextPanel returns a panel of cols x rows characters (21x8 matches the
// 128x64 OLED with the default font).
func NewTextPanel(cols, rows int) *TextPanel {
	if cols <= 0 {
		cols = 21
	}
	if rows <= 0 {
		rows = 8
	}
	return &TextPanel{cols: cols, rows: rows}
}

func (p *TextPanel) Configure() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.lines = make([]string, p.rows)
	return nil
}

func (p *TextPanel) Size() (int, int) { return p.cols, p.rows }

func (p *TextPanel) Draw(lines []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.lines = append(p.lines[:0], lines...)
	p.draws++
	return nil
}

func (p *TextPanel) SetContrast(level uint8) error {
	p.mu.Lock()
	p.contrast = level
	p.mu.Unlock()
	return nil
}

func (p *TextPanel) Power(on bool) error {
	p.mu.Lock()
	p.on = on
	p.mu.Unlock()
	return nil
}

// Fail makes Configure and Draw return err (nil restores).
func (p *TextPanel) Fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Snapshot returns the last drawn screen and the panel state.
func (p *TextPanel) Snapshot() (lines []string, on bool, contrast uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...), p.on, p.contrast
}

// Draws counts successful Draw calls.
func (p *TextPanel) Draws() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draws
}

// String renders the screen as text, one row per line.
func (p *TextPanel) String() string {
	lines, _, _ := p.Snapshot()
	return strings.Join(lines, "\n")
}
