package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// One TOML document per device id, layered on top of Default(). Keys left
// out keep their default value.
// -----------------------------------------------------------------------------

const cfgHost = `
[device]
name = "ringlight-host"
idle = "2ms"

[ring]
pixels = 60
fade = "300ms"

[wifi]
enabled = true
credentials = "wifi.toml"
ap_ssid = "ringlight"
portal_bind = ":8081"
join_timeout = "30s"
join_command = "nmcli --wait 20 device wifi connect {ssid} password {password}"
ap_command = "nmcli device wifi hotspot ssid {ssid}"
address_command = "hostname -I"

[web]
enabled = true
bind = ":8080"

[temperature]
enabled = true
backend = "sysfs"
sysfs_root = "/sys/class/thermal"
`

const cfgPico = `
[device]
name = "ringlight"
idle = "1ms"

[ring]
pixels = 300

[keypad]
address = 0x5B

[wifi]
enabled = false

[web]
enabled = false

[temperature]
enabled = true
backend = "ds18b20"
`

var embeddedConfigs = map[string]string{
	"host": cfgHost,
	"pico": cfgPico,
}

// EmbeddedConfigLookup allows overriding how device documents are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	s, ok := embeddedConfigs[device]
	return []byte(s), ok
}

// Embedded returns the document for device.
func Embedded(device string) ([]byte, bool) { return EmbeddedConfigLookup(device) }

// Devices lists the embedded device ids.
func Devices() []string { return []string{"host", "pico"} }
