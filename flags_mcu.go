//go:build rp2040 || rp2350

package main

import (
	"context"
	"time"

	"ringlight-go/bus"
	"ringlight-go/opmode"
	"ringlight-go/services/config"
	"ringlight-go/services/dispatch"
	"ringlight-go/services/display"
	"ringlight-go/services/orchestrator"
	"ringlight-go/services/ring"
)

type options struct {
	config string
	device string
	bind   string
}

func parseFlags() options { return options{device: "pico"} }

func rootContext() (context.Context, context.CancelFunc) {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	return context.WithCancel(context.Background())
}

func fatal(msg string, err error) {
	for {
		println("[main]", msg+":", err.Error())
		time.Sleep(5 * time.Second)
	}
}

// networking is a no-op on the MCU: there is no radio on the board.
func networking(config.Config, *bus.Bus, *opmode.Handle, *display.Display, *dispatch.Dispatcher, *ring.Ring) (orchestrator.Provisioner, orchestrator.Web, func()) {
	return nil, nil, func() {}
}
