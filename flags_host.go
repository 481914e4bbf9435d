//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"ringlight-go/bus"
	"ringlight-go/opmode"
	"ringlight-go/services/config"
	"ringlight-go/services/display"
	"ringlight-go/services/orchestrator"
	"ringlight-go/services/provisioning"
	"ringlight-go/services/web"
)

type options struct {
	config string
	device string
	bind   string
}

func parseFlags() options {
	var o options
	pflag.StringVarP(&o.config, "config", "c", "", "Path to config TOML layered over the device defaults")
	pflag.StringVar(&o.device, "device", "host", "Embedded device configuration")
	pflag.StringVar(&o.bind, "bind", "", "Web bind address (overrides web.bind)")
	pflag.Parse()
	return o
}

func rootContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fatal(msg string, err error) {
	log.Fatalf("%s: %v", msg, err)
}

// networking builds the provisioning manager and the web service when they
// are enabled. The returned func shuts the web side down.
func networking(cfg config.Config, b *bus.Bus, mode *opmode.Handle, disp *display.Display, keys web.KeyTaker, r web.Ring) (orchestrator.Provisioner, orchestrator.Web, func()) {
	var (
		wifi orchestrator.Provisioner
		svc  orchestrator.Web
	)
	closeFn := func() {}

	if cfg.WiFi.Enabled {
		wifi = provisioning.New(disp, mode,
			provisioning.NewFileStore(cfg.WiFi.Credentials),
			provisioning.NewCommandRadio(cfg.WiFi.JoinCommand, cfg.WiFi.APCommand, cfg.WiFi.AddressCommand),
			provisioning.NewHTTPPortal(cfg.WiFi.PortalBind),
			provisioning.Config{APSSID: cfg.WiFi.APSSID, JoinTimeout: cfg.WiFi.JoinTimeout.D()},
		)
	}
	if cfg.Web.Enabled {
		s := web.New(web.Config{Bind: cfg.Web.Bind}, b, keys, r)
		svc = s
		closeFn = func() {
			if err := s.Close(); err != nil {
				println("[web] close:", err.Error())
			}
		}
	}
	return wifi, svc, closeFn
}
