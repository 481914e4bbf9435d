// Ringlight is the firmware of a touch-controlled LED ring light. It loads
// the device configuration, builds the board and the services on top of it
// and hands everything to the orchestrator loop.
package main

import (
	"context"
	"errors"

	"ringlight-go/bus"
	"ringlight-go/opmode"
	"ringlight-go/platform"
	"ringlight-go/services/config"
	"ringlight-go/services/dispatch"
	"ringlight-go/services/display"
	"ringlight-go/services/keypad"
	"ringlight-go/services/orchestrator"
	"ringlight-go/services/ring"
	"ringlight-go/services/thermo"
	"ringlight-go/x/timex"
)

func main() {
	opts := parseFlags()
	ctx, stop := rootContext()
	defer stop()

	cfg, err := config.Load(opts.config, opts.device)
	if err != nil {
		fatal("config load failed", err)
	}
	if opts.bind != "" {
		cfg.Web.Bind = opts.bind
	}

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		fatal("ringlight failed", err)
	}
	println("[main] stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	board, err := platform.New(cfg)
	if err != nil {
		return err
	}
	println("[main] boot", cfg.Device.Name)

	clk := timex.System{}
	b := bus.NewBus(8)
	config.Publish(b.NewConnection("config"), cfg)

	mode := opmode.New(opmode.Provisioning)

	table, err := cfg.Table()
	if err != nil {
		return err
	}
	r := ring.New(cfg.RingOptions(), board.Strip, clk)
	d, err := dispatch.New(r, table, uint16(cfg.Keypad.LongPress))
	if err != nil {
		return err
	}

	disp := display.New(board.Panel, cfg.DisplayOptions())
	if board.Console != nil {
		disp.SetEcho(board.Console)
	}

	var reader *thermo.Reader
	if board.Sensor != nil {
		reader = thermo.NewReader(board.Sensor)
	}

	wifi, web, closeNet := networking(cfg, b, mode, disp, d, r)
	defer closeNet()

	loop, err := orchestrator.New(orchestrator.Resources{
		Clock:      clk,
		Bus:        b,
		Mode:       mode,
		Ring:       r,
		Keypad:     keypad.New(board.I2C, cfg.KeypadOptions(), clk),
		Dispatcher: d,
		Display:    disp,
		Thermo:     reader,
		WiFi:       wifi,
		Web:        web,
	}, cfg.LoopOptions())
	if err != nil {
		return err
	}
	return loop.Run(ctx)
}
