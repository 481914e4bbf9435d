package types

// ------------------------
// Temperature
// ------------------------

type TemperatureInfo struct {
	Sensor  string `json:"sensor"`  // "aht20", "ds18b20", "sysfs"
	Address string `json:"address"` // sensor id as 16 hex digits
}

// TemperatureValue is published on state/env/temperature. OK is false
// when the last refresh failed; DeciC is then meaningless.
type TemperatureValue struct {
	// Tenths of °C (e.g. 231 => 23.1°C).
	DeciC int16 `json:"deci_c"`
	OK    bool  `json:"ok"`
	TS    int64 `json:"ts_ms"`
}
