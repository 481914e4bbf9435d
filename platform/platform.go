// Package platform builds the board-specific collaborators of the firmware:
// the I²C bus, the LED strip, the display panel, the temperature sensor and
// the console. The build target selects the implementation.
package platform

import (
	"io"

	"tinygo.org/x/drivers"

	"ringlight-go/services/config"
	"ringlight-go/services/display"
	"ringlight-go/services/ring"
	"ringlight-go/services/thermo"
)

// Board is what New hands to main.
type Board struct {
	I2C   drivers.I2C
	Strip ring.Strip
	Panel display.Panel
	// Sensor is nil when temperature is disabled.
	Sensor thermo.Sensor
	// Console receives the display echo; nil disables it.
	Console io.Writer
}

// sensorFor resolves the backends both targets share. ok is false when the
// backend is target-specific and the caller has to build it.
func sensorFor(cfg config.TemperatureConfig, bus drivers.I2C) (s thermo.Sensor, ok bool) {
	if !cfg.Enabled {
		return nil, true
	}
	switch cfg.Backend {
	case "none":
		return nil, true
	case "aht20":
		return thermo.NewAHT20(bus), true
	}
	return nil, false
}
