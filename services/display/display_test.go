package display

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"ringlight-go/errcode"
	"ringlight-go/opmode"
)

func setup(t *testing.T, cols, rows int) (*Display, *TextPanel) {
	t.Helper()
	p := NewTextPanel(cols, rows)
	d := New(p, Config{})
	if err := d.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return d, p
}

func TestSetup_Errors(t *testing.T) {
	if err := New(nil, Config{}).Setup(); !errors.Is(err, errcode.NoDevice) {
		t.Fatalf("nil panel: %v", err)
	}
	p := NewTextPanel(10, 4)
	p.Fail(errors.New("nack"))
	if err := New(p, Config{}).Setup(); !errors.Is(err, errcode.NoDevice) {
		t.Fatalf("failing panel: %v", err)
	}
	if err := New(NewTextPanel(10, 1), Config{}).Setup(); !errors.Is(err, errcode.Unsupported) {
		t.Fatalf("one-row panel: %v", err)
	}
}

func TestPrintf_PartialLinesAndScroll(t *testing.T) {
	d, p := setup(t, 12, 4)
	d.Printf("keyboard ")
	lines, _, _ := p.Snapshot()
	if lines[3] != "keyboard " {
		t.Fatalf("partial line not shown: %q", lines)
	}
	d.Printf("ok\n")
	d.Printf("wifi %s\n", "AP")
	d.Printf("web %d\n", 80)
	d.Printf("temp err\n")
	lines, _, _ = p.Snapshot()
	want := []string{"", "wifi AP", "web 80", "temp err"}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("screen = %q, want %q", lines, want)
		}
	}
}

func TestPrintf_WrapsAtWidth(t *testing.T) {
	d, _ := setup(t, 4, 3)
	d.Printf("abcdefg\n")
	got := d.Lines()
	if got[1] != "abcd" || got[2] != "efg" {
		t.Fatalf("lines = %q", got)
	}
}

func TestReset_ClearsConsoleKeepsStatus(t *testing.T) {
	d, _ := setup(t, 10, 3)
	d.SetStatus("WiFi")
	d.Printf("hello\n")
	d.Reset()
	got := d.Lines()
	if got[0] != "WiFi" || got[1] != "" || got[2] != "" {
		t.Fatalf("lines = %q", got)
	}
}

func TestDimOnOff(t *testing.T) {
	d, p := setup(t, 10, 3)
	d.Dim(true)
	if _, _, c := p.Snapshot(); c != 0x01 || !d.Dimmed() {
		t.Fatalf("dim contrast = %#x", c)
	}
	d.Dim(false)
	if _, _, c := p.Snapshot(); c != 0xCF {
		t.Fatalf("contrast = %#x", c)
	}

	d.Off()
	draws := p.Draws()
	d.Printf("while off\n")
	if _, on, _ := p.Snapshot(); on || p.Draws() != draws {
		t.Fatal("panel must stay dark and untouched while off")
	}
	d.On()
	lines, on, _ := p.Snapshot()
	if !on || lines[2] != "while off" {
		t.Fatalf("On should power up and redraw, got %q", lines)
	}
}

func TestEcho(t *testing.T) {
	var buf bytes.Buffer
	d := New(nil, Config{})
	d.SetEcho(&buf)
	d.Printf("keyboard %s\n", "err")
	if buf.String() != "keyboard err\n" {
		t.Fatalf("echo = %q", buf.String())
	}
}

func TestStatusBar_Line(t *testing.T) {
	mode := opmode.New(opmode.Normal)
	d, p := setup(t, 21, 8)
	sb := NewStatusBar(mode, d)
	sb.Data.Address = "10.0.0.7"
	sb.Data.EnableTemperature = true
	sb.Data.TemperatureC = 21.54
	sb.Update()
	lines, _, _ := p.Snapshot()
	if lines[0] != "WiFi 10.0.0.7   21.5C" {
		t.Fatalf("status = %q", lines[0])
	}
	if got := sb.Line(16); got != "WiFi 10.0. 21.5C" {
		t.Fatalf("narrow status = %q", got)
	}

	sb.Data.TemperatureC = float32(math.NaN())
	if got := sb.Line(10); got != "WiFi 10 --" {
		t.Fatalf("failed reading = %q", got)
	}

	mode.Set(opmode.Provisioning)
	sb.Data.Message = "ringlight"
	sb.Data.EnableTemperature = false
	if got := sb.Line(0); got != "AP ringlight" {
		t.Fatalf("provisioning = %q", got)
	}
}

func TestFormatTemperature(t *testing.T) {
	if got := FormatTemperature(-3.04); got != "-3.0C" {
		t.Fatalf("got %q", got)
	}
	if got := FormatTemperature(float32(math.NaN())); got != "--" {
		t.Fatalf("got %q", got)
	}
}
