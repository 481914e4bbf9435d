//go:build !rp2040 && !rp2350

package platform

import (
	"errors"
	"image/color"
	"testing"

	"ringlight-go/errcode"
	"ringlight-go/services/config"
	"ringlight-go/services/display"
	"ringlight-go/services/thermo"
)

func TestHostI2C_RecordsAndFails(t *testing.T) {
	var b HostI2C
	r := make([]byte, 2)
	err := b.Tx(0x5B, []byte{0x00}, r)
	if !errors.Is(err, errcode.NoDevice) {
		t.Fatalf("err = %v, want no_device", err)
	}
	if b.LastTx.Addr != 0x5B || len(b.LastTx.W) != 1 || b.LastTx.Rn != 2 {
		t.Fatalf("LastTx = %+v", b.LastTx)
	}
}

func TestMemStrip_KeepsLastFrame(t *testing.T) {
	var s MemStrip
	frame := []color.RGBA{{R: 1}, {G: 2}}
	if err := s.WriteColors(frame); err != nil {
		t.Fatal(err)
	}
	frame[0].R = 9
	got := s.Frame()
	if len(got) != 2 || got[0].R != 1 || got[1].G != 2 {
		t.Fatalf("frame = %v", got)
	}
	if s.Writes() != 1 {
		t.Fatalf("writes = %d", s.Writes())
	}
}

func TestNew_Backends(t *testing.T) {
	cases := []struct {
		name    string
		temp    config.TemperatureConfig
		want    string
		wantErr errcode.Code
	}{
		{"disabled", config.TemperatureConfig{Enabled: false, Backend: "sysfs"}, "", ""},
		{"none", config.TemperatureConfig{Enabled: true, Backend: "none"}, "", ""},
		{"sysfs", config.TemperatureConfig{Enabled: true, Backend: "sysfs", SysfsRoot: t.TempDir()}, "sysfs", ""},
		{"aht20", config.TemperatureConfig{Enabled: true, Backend: "aht20"}, "aht20", ""},
		{"ds18b20", config.TemperatureConfig{Enabled: true, Backend: "ds18b20"}, "", errcode.Unsupported},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Temperature = c.temp
			b, err := New(cfg)
			if c.wantErr != "" {
				if errcode.Of(err) != c.wantErr {
					t.Fatalf("err = %v, want %s", err, c.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			var got string
			switch b.Sensor.(type) {
			case nil:
			case *thermo.Sysfs:
				got = "sysfs"
			case *thermo.AHT20:
				got = "aht20"
			}
			if got != c.want {
				t.Fatalf("sensor = %T, want %s", b.Sensor, c.want)
			}
			p, ok := b.Panel.(*display.TextPanel)
			if !ok {
				t.Fatalf("panel = %T", b.Panel)
			}
			if cols, rows := p.Size(); cols != cfg.Display.Cols || rows != cfg.Display.Rows {
				t.Fatalf("panel size = %dx%d", cols, rows)
			}
		})
	}
}
