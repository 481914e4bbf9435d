//go:build rp2040 || rp2350

package platform

import (
	"image/color"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/ds18b20"
	"tinygo.org/x/drivers/onewire"
	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/drivers/ws2812"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"ringlight-go/errcode"
	"ringlight-go/services/config"
	"ringlight-go/services/thermo"
	"ringlight-go/x/fmtx"
)

// Board wiring.
const (
	stripPin    = machine.GPIO16
	oneWirePin  = machine.GPIO15
	consoleTX   = machine.GPIO0
	consoleRX   = machine.GPIO1
	consoleBaud = 230400
	oledAddress = 0x3C
	oledWidth   = 128
	oledHeight  = 64
	// Worst case 12-bit conversion time of a DS18B20.
	conversionTime = 750 * time.Millisecond
)

// New configures the RP2 peripherals and returns the board.
func New(cfg config.Config) (*Board, error) {
	hw := uartx.UART0
	_ = hw.Configure(uartx.UARTConfig{BaudRate: consoleBaud, TX: consoleTX, RX: consoleRX})
	fmtx.DefaultOutput = hw

	bus := machine.I2C0
	if err := bus.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		return nil, errcode.Wrap(errcode.NoDevice, "platform.i2c", err)
	}

	stripPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	b := &Board{
		I2C:     bus,
		Strip:   ws2812.New(stripPin),
		Panel:   newOLED(bus, cfg.Display.Cols, cfg.Display.Rows),
		Console: hw,
	}

	s, ok := sensorFor(cfg.Temperature, bus)
	if !ok {
		switch cfg.Temperature.Backend {
		case "ds18b20":
			s = newDallas(oneWirePin)
		default:
			return nil, &errcode.E{C: errcode.Unsupported, Op: "platform.new", Msg: "temperature backend " + cfg.Temperature.Backend}
		}
	}
	b.Sensor = s
	return b, nil
}

// ----------------------------- OLED panel ------------------------------------

// oled draws text lines on an SSD1306 with the proggy 8pt font.
type oled struct {
	configure func()
	clear     func()
	setPixel  func(x, y int16, c color.RGBA)
	show      func() error
	command   func(cmd uint8)

	cols, rows int
}

func newOLED(bus *machine.I2C, cols, rows int) *oled {
	dev := ssd1306.NewI2C(bus)
	return &oled{
		configure: func() {
			dev.Configure(ssd1306.Config{
				Width:    oledWidth,
				Height:   oledHeight,
				Address:  oledAddress,
				VccState: ssd1306.SWITCHCAPVCC,
			})
		},
		clear:    dev.ClearBuffer,
		setPixel: dev.SetPixel,
		show:     dev.Display,
		command:  dev.Command,
		cols:     cols,
		rows:     rows,
	}
}

func (p *oled) Configure() error {
	p.configure()
	p.clear()
	return p.show()
}

func (p *oled) Size() (int, int) { return p.cols, p.rows }

func (p *oled) pixels() canvas { return canvas{p} }

// canvas is the drivers.Displayer tinyfont draws on.
type canvas struct{ p *oled }

func (c canvas) Size() (int16, int16)              { return oledWidth, oledHeight }
func (c canvas) SetPixel(x, y int16, k color.RGBA) { c.p.setPixel(x, y, k) }
func (c canvas) Display() error                    { return c.p.show() }

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func (p *oled) Draw(lines []string) error {
	p.clear()
	lh := int16(oledHeight / p.rows)
	cv := p.pixels()
	for i, l := range lines {
		if i >= p.rows {
			break
		}
		// tinyfont positions text by its baseline.
		tinyfont.WriteLine(cv, &proggy.TinySZ8pt7b, 0, int16(i+1)*lh-1, l, white)
	}
	return p.show()
}

func (p *oled) SetContrast(level uint8) error {
	p.command(ssd1306.SETCONTRAST)
	p.command(level)
	return nil
}

func (p *oled) Power(on bool) error {
	if on {
		p.command(ssd1306.DISPLAYON)
	} else {
		p.command(ssd1306.DISPLAYOFF)
	}
	return nil
}

// ----------------------------- DS18B20 ---------------------------------------

// dallas reads DS18B20 thermometers on one 1-Wire pin.
type dallas struct {
	ow   onewire.Device
	dev  ds18b20.Device
	roms []thermo.Address
}

func newDallas(pin machine.Pin) *dallas {
	ow := onewire.New(pin)
	return &dallas{ow: ow, dev: ds18b20.New(ow)}
}

func (d *dallas) Begin() error {
	d.ow.Configure(onewire.Config{})
	found, err := d.ow.Search(onewire.SEARCH_ROM)
	if err != nil {
		return errcode.Wrap(errcode.NoDevice, "ds18b20.begin", err)
	}
	d.roms = d.roms[:0]
	for _, rom := range found {
		var a thermo.Address
		copy(a[:], rom)
		d.roms = append(d.roms, a)
	}
	if len(d.roms) == 0 {
		return &errcode.E{C: errcode.NoDevice, Op: "ds18b20.begin", Msg: "no thermometer on the bus"}
	}
	return nil
}

func (d *dallas) Address(index int) (thermo.Address, error) {
	if index < 0 || index >= len(d.roms) {
		return thermo.Address{}, errcode.NotFound
	}
	return d.roms[index], nil
}

// RequestByAddress starts a conversion and waits for it to complete.
func (d *dallas) RequestByAddress(a thermo.Address) error {
	d.dev.RequestTemperature(a[:])
	time.Sleep(conversionTime)
	return nil
}

func (d *dallas) TempC(a thermo.Address) (float32, error) {
	milli, err := d.dev.ReadTemperature(a[:])
	if err != nil {
		return 0, errcode.Wrap(errcode.Error, "ds18b20.read", err)
	}
	return float32(milli) / 1000, nil
}
