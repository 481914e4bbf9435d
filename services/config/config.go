// Package config loads, defaults and validates the device configuration.
// Every TOML section maps to a typed struct; the loaded sections are also
// published as retained bus messages under config/<section>.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ringlight-go/bus"
	"ringlight-go/errcode"
	"ringlight-go/x/mathx"
)

const configPrefix = "config"

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Device      DeviceConfig      `toml:"device"      json:"device"`
	Ring        RingConfig        `toml:"ring"        json:"ring"`
	Keypad      KeypadConfig      `toml:"keypad"      json:"keypad"`
	Timers      TimersConfig      `toml:"timers"      json:"timers"`
	Display     DisplayConfig     `toml:"display"     json:"display"`
	WiFi        WiFiConfig        `toml:"wifi"        json:"wifi"`
	Web         WebConfig         `toml:"web"         json:"web"`
	Temperature TemperatureConfig `toml:"temperature" json:"temperature"`
	Bindings    []BindingConfig   `toml:"bindings"    json:"bindings"`
}

type DeviceConfig struct {
	Name string   `toml:"name" json:"name"`
	Idle Duration `toml:"idle" json:"idle"`
}

type RingConfig struct {
	Pixels        int      `toml:"pixels"         json:"pixels"`
	Brightness    int      `toml:"brightness"     json:"brightness"`
	MinBrightness int      `toml:"min_brightness" json:"min_brightness"`
	Scene         string   `toml:"scene"          json:"scene"`
	FrameInterval Duration `toml:"frame_interval" json:"frame_interval"`
	Fade          Duration `toml:"fade"           json:"fade"`
	RainbowPeriod Duration `toml:"rainbow_period" json:"rainbow_period"`
	BreathePeriod Duration `toml:"breathe_period" json:"breathe_period"`
}

type KeypadConfig struct {
	Address          int      `toml:"address"           json:"address"`
	LongPress        int      `toml:"long_press"        json:"long_press"`
	RepeatDelay      Duration `toml:"repeat_delay"      json:"repeat_delay"`
	RepeatPeriod     Duration `toml:"repeat_period"     json:"repeat_period"`
	DoubleWindow     Duration `toml:"double_window"     json:"double_window"`
	PollInterval     Duration `toml:"poll_interval"     json:"poll_interval"`
	Queue            int      `toml:"queue"             json:"queue"`
	TouchThreshold   int      `toml:"touch_threshold"   json:"touch_threshold"`
	ReleaseThreshold int      `toml:"release_threshold" json:"release_threshold"`
}

type TimersConfig struct {
	LightsOff          Duration `toml:"lights_off"          json:"lights_off"`
	DisplayOff         Duration `toml:"display_off"         json:"display_off"`
	DisplayDim         Duration `toml:"display_dim"         json:"display_dim"`
	TemperatureRefresh Duration `toml:"temperature_refresh" json:"temperature_refresh"`
	// DisablePolicy is "keep" or "clear".
	DisablePolicy string `toml:"disable_policy" json:"disable_policy"`
}

type DisplayConfig struct {
	Cols        int `toml:"cols"         json:"cols"`
	Rows        int `toml:"rows"         json:"rows"`
	Contrast    int `toml:"contrast"     json:"contrast"`
	DimContrast int `toml:"dim_contrast" json:"dim_contrast"`
}

type WiFiConfig struct {
	Enabled     bool     `toml:"enabled"      json:"enabled"`
	Credentials string   `toml:"credentials"  json:"credentials"`
	APSSID      string   `toml:"ap_ssid"      json:"ap_ssid"`
	PortalBind  string   `toml:"portal_bind"  json:"portal_bind"`
	JoinTimeout Duration `toml:"join_timeout" json:"join_timeout"`
	// Command templates, shell-split; {ssid} and {password} are substituted.
	JoinCommand    string `toml:"join_command"    json:"join_command"`
	APCommand      string `toml:"ap_command"      json:"ap_command"`
	AddressCommand string `toml:"address_command" json:"address_command"`
}

type WebConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Bind    string `toml:"bind"    json:"bind"`
}

type TemperatureConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Backend is "aht20", "ds18b20", "sysfs" or "none".
	Backend   string `toml:"backend"    json:"backend"`
	SysfsRoot string `toml:"sysfs_root" json:"sysfs_root"`
}

// BindingConfig overrides one cell of the key table.
type BindingConfig struct {
	Tier    string `toml:"tier"     json:"tier"`
	Key     int    `toml:"key"      json:"key"`
	Op      string `toml:"op"       json:"op"`
	Arg     int    `toml:"arg"      json:"arg,omitempty"`
	Scene   string `toml:"scene"    json:"scene,omitempty"`
	PowerOn bool   `toml:"power_on" json:"power_on"`
}

// Default returns a Config populated with the stock values. They are used
// whenever a layer omits a field.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Name: "ringlight",
			Idle: Duration(time.Millisecond),
		},
		Ring: RingConfig{
			Pixels:        300,
			Brightness:    128,
			MinBrightness: 1,
			Scene:         "white",
			FrameInterval: Duration(20 * time.Millisecond),
			Fade:          Duration(300 * time.Millisecond),
			RainbowPeriod: Duration(10 * time.Second),
			BreathePeriod: Duration(4 * time.Second),
		},
		Keypad: KeypadConfig{
			Address:          0x5B,
			LongPress:        10,
			RepeatDelay:      Duration(300 * time.Millisecond),
			RepeatPeriod:     Duration(50 * time.Millisecond),
			DoubleWindow:     Duration(250 * time.Millisecond),
			PollInterval:     Duration(10 * time.Millisecond),
			Queue:            8,
			TouchThreshold:   12,
			ReleaseThreshold: 6,
		},
		Timers: TimersConfig{
			LightsOff:          Duration(6 * time.Hour),
			DisplayOff:         Duration(30 * time.Minute),
			DisplayDim:         Duration(time.Minute),
			TemperatureRefresh: Duration(30 * time.Second),
			DisablePolicy:      "keep",
		},
		Display: DisplayConfig{
			Cols:        21,
			Rows:        8,
			Contrast:    0xCF,
			DimContrast: 0x01,
		},
		WiFi: WiFiConfig{
			Enabled:     false,
			Credentials: "wifi.toml",
			APSSID:      "ringlight",
			PortalBind:  ":8081",
			JoinTimeout: Duration(30 * time.Second),
		},
		Web: WebConfig{
			Enabled: false,
			Bind:    ":8080",
		},
		Temperature: TemperatureConfig{
			Enabled: true,
			Backend: "none",
		},
	}
}

// Parse layers the TOML document b on top of base and validates the result.
func Parse(b []byte, base Config) (Config, error) {
	cfg := base
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return base, errcode.Wrap(errcode.InvalidPayload, "config.parse", err)
	}
	if err := validate(cfg); err != nil {
		return base, err
	}
	return cfg, nil
}

// ForDevice returns the defaults with the embedded document for device
// layered on top.
func ForDevice(device string) (Config, error) {
	raw, ok := Embedded(device)
	if !ok {
		return Default(), &errcode.E{C: errcode.NotFound, Op: "config.device", Msg: "no embedded config for device: " + device}
	}
	return Parse(raw, Default())
}

// Load reads the TOML file at path and layers it on top of the device
// configuration. An empty path returns the device configuration.
func Load(path, device string) (Config, error) {
	cfg, err := ForDevice(device)
	if err != nil {
		return cfg, err
	}
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errcode.Wrap(errcode.NotFound, "config.load", err)
	}
	return Parse(b, cfg)
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: msg}
}

func validate(cfg Config) error {
	if cfg.Device.Idle < 0 {
		return invalid("device.idle must be >= 0")
	}
	if cfg.Ring.Pixels < 1 {
		return invalid("ring.pixels must be >= 1")
	}
	if !mathx.Between(cfg.Ring.Brightness, 1, 255) {
		return invalid("ring.brightness must be between 1 and 255")
	}
	if !mathx.Between(cfg.Ring.MinBrightness, 1, cfg.Ring.Brightness) {
		return invalid("ring.min_brightness must be between 1 and ring.brightness")
	}
	if _, err := cfg.RingScene(); err != nil {
		return err
	}
	if cfg.Ring.FrameInterval <= 0 {
		return invalid("ring.frame_interval must be > 0")
	}
	if !mathx.Between(cfg.Keypad.Address, 0x08, 0x77) {
		return invalid("keypad.address must be a 7-bit i2c address")
	}
	if !mathx.Between(cfg.Keypad.LongPress, 1, 0xFFFF) {
		return invalid("keypad.long_press must be >= 1")
	}
	if !mathx.Between(cfg.Keypad.Queue, 1, 256) {
		return invalid("keypad.queue must be between 1 and 256")
	}
	if !mathx.Between(cfg.Keypad.TouchThreshold, 1, 255) ||
		!mathx.Between(cfg.Keypad.ReleaseThreshold, 1, 255) {
		return invalid("keypad thresholds must be between 1 and 255")
	}
	for name, d := range map[string]Duration{
		"timers.lights_off":          cfg.Timers.LightsOff,
		"timers.display_off":         cfg.Timers.DisplayOff,
		"timers.display_dim":         cfg.Timers.DisplayDim,
		"timers.temperature_refresh": cfg.Timers.TemperatureRefresh,
	} {
		if d <= 0 {
			return invalid(name + " must be > 0")
		}
	}
	if cfg.Timers.DisplayDim > cfg.Timers.DisplayOff {
		return invalid("timers.display_dim must not exceed timers.display_off")
	}
	if _, err := cfg.DisablePolicy(); err != nil {
		return err
	}
	if cfg.Display.Cols < 1 || cfg.Display.Rows < 2 {
		return invalid("display needs at least 1 column and 2 rows")
	}
	if !mathx.Between(cfg.Display.Contrast, 0, 255) || !mathx.Between(cfg.Display.DimContrast, 0, 255) {
		return invalid("display contrast values must be between 0 and 255")
	}
	if cfg.WiFi.Enabled && cfg.WiFi.APSSID == "" {
		return invalid("wifi.ap_ssid must not be empty")
	}
	if cfg.Web.Enabled && cfg.Web.Bind == "" {
		return invalid("web.bind must not be empty")
	}
	switch cfg.Temperature.Backend {
	case "aht20", "ds18b20", "sysfs", "none":
	default:
		return invalid("temperature.backend must be aht20, ds18b20, sysfs or none")
	}
	if _, err := cfg.Table(); err != nil {
		return err
	}
	return nil
}

// Publish emits every section as a retained config/<section> message.
func Publish(conn *bus.Connection, cfg Config) {
	for _, s := range cfg.Sections() {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, s.Name), s.Value, true))
	}
}

// Section is one named top-level part of the configuration.
type Section struct {
	Name  string
	Value any
}

func (c Config) Sections() []Section {
	return []Section{
		{"device", c.Device},
		{"ring", c.Ring},
		{"keypad", c.Keypad},
		{"timers", c.Timers},
		{"display", c.Display},
		{"wifi", c.WiFi},
		{"web", c.Web},
		{"temperature", c.Temperature},
		{"bindings", c.Bindings},
	}
}
