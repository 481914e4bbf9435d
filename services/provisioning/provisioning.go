// Package provisioning brings the device onto a Wi-Fi network. Saved
// credentials are tried first; without them (or when they no longer join)
// the radio opens an access point and a portal collects new ones.
//
// Establish runs on the loop goroutine during setup and is the only place
// the firmware blocks. It writes the operating mode.
package provisioning

import (
	"context"
	"time"

	"ringlight-go/errcode"
	"ringlight-go/opmode"
	"ringlight-go/x/strx"
)

// Printer receives progress lines; display.Display satisfies it.
type Printer interface {
	Printf(format string, args ...any)
}

type Credentials struct {
	SSID     string `toml:"ssid"`
	Password string `toml:"password"`
}

// Valid checks the SSID length and that the password is empty (open
// network) or a WPA passphrase of 8..63 characters.
func (c Credentials) Valid() bool {
	if c.SSID == "" || len(c.SSID) > 32 {
		return false
	}
	return c.Password == "" || (len(c.Password) >= 8 && len(c.Password) <= 63)
}

type Store interface {
	Load() (Credentials, error)
	Save(c Credentials) error
}

type Radio interface {
	Join(ctx context.Context, c Credentials) error
	StartAP(ctx context.Context, ssid string) error
	Address(ctx context.Context) (string, error)
}

// Portal collects credentials from a user while the access point is up.
// Await blocks for the next submission; Report answers it.
type Portal interface {
	Start(ctx context.Context) error
	Await(ctx context.Context) (Credentials, error)
	Report(err error)
	Stop() error
}

type Config struct {
	APSSID      string
	JoinTimeout time.Duration
	// Attempts bounds the portal submissions tried; 0 waits until ctx ends.
	Attempts int
}

type Manager struct {
	out    Printer
	mode   *opmode.Handle
	store  Store
	radio  Radio
	portal Portal
	cfg    Config

	addr string
}

// New wires a manager. store and portal may be nil; a nil radio makes
// Establish fail with NoDevice.
func New(out Printer, mode *opmode.Handle, store Store, radio Radio, portal Portal, cfg Config) *Manager {
	cfg.APSSID = strx.Coalesce(cfg.APSSID, "ringlight")
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 30 * time.Second
	}
	return &Manager{out: out, mode: mode, store: store, radio: radio, portal: portal, cfg: cfg}
}

// Address is the network address found after the last successful join.
func (m *Manager) Address() string { return m.addr }

// Establish joins a network and leaves the mode Normal, or returns the
// reason it could not and leaves the mode Offline.
func (m *Manager) Establish(ctx context.Context) error {
	m.mode.Set(opmode.Provisioning)
	if m.radio == nil {
		return m.fail(&errcode.E{C: errcode.NoDevice, Op: "provisioning.establish", Msg: "no radio"})
	}

	if c, ok := m.saved(); ok {
		m.out.Printf("wifi %s ", c.SSID)
		err := m.join(ctx, c)
		if err == nil {
			m.out.Printf("ok\n")
			return m.joined(ctx)
		}
		m.out.Printf("err\n")
		println("[wifi] saved network did not join:", err.Error())
	}

	if m.portal == nil {
		return m.fail(errcode.NoCredentials)
	}
	return m.fallback(ctx)
}

func (m *Manager) saved() (Credentials, bool) {
	if m.store == nil {
		return Credentials{}, false
	}
	c, err := m.store.Load()
	if err != nil {
		if errcode.Of(err) != errcode.NoCredentials {
			println("[wifi] credential store:", err.Error())
		}
		return Credentials{}, false
	}
	return c, c.Valid()
}

func (m *Manager) fallback(ctx context.Context) error {
	if err := m.radio.StartAP(ctx, m.cfg.APSSID); err != nil {
		m.out.Printf("AP err\n")
		return m.fail(errcode.Wrap(errcode.NoDevice, "provisioning.ap", err))
	}
	m.out.Printf("AP %s\n", m.cfg.APSSID)
	if err := m.portal.Start(ctx); err != nil {
		return m.fail(errcode.Wrap(errcode.Error, "provisioning.portal", err))
	}
	defer func() {
		if err := m.portal.Stop(); err != nil {
			println("[wifi] portal stop:", err.Error())
		}
	}()

	for n := 0; m.cfg.Attempts == 0 || n < m.cfg.Attempts; n++ {
		c, err := m.portal.Await(ctx)
		if err != nil {
			return m.fail(err)
		}
		if !c.Valid() {
			m.portal.Report(&errcode.E{C: errcode.InvalidParams, Op: "provisioning.portal", Msg: "ssid or password rejected"})
			continue
		}
		m.out.Printf("wifi %s ", c.SSID)
		if err := m.join(ctx, c); err != nil {
			m.out.Printf("err\n")
			m.portal.Report(err)
			continue
		}
		m.out.Printf("ok\n")
		m.portal.Report(nil)
		if m.store != nil {
			if err := m.store.Save(c); err != nil {
				println("[wifi] credentials not saved:", err.Error())
			}
		}
		return m.joined(ctx)
	}
	return m.fail(&errcode.E{C: errcode.JoinFailed, Op: "provisioning.portal", Msg: "attempts exhausted"})
}

func (m *Manager) join(ctx context.Context, c Credentials) error {
	jctx, cancel := context.WithTimeout(ctx, m.cfg.JoinTimeout)
	defer cancel()
	err := m.radio.Join(jctx, c)
	if err == nil {
		return nil
	}
	if _, ok := err.(*errcode.E); ok {
		return err
	}
	return errcode.Wrap(errcode.JoinFailed, "provisioning.join", err)
}

func (m *Manager) joined(ctx context.Context) error {
	addr, err := m.radio.Address(ctx)
	if err != nil {
		println("[wifi] no address:", err.Error())
	}
	m.addr = addr
	m.mode.Set(opmode.Normal)
	println("[wifi] joined", addr)
	return nil
}

func (m *Manager) fail(err error) error {
	m.addr = ""
	m.mode.Set(opmode.Offline)
	return err
}
