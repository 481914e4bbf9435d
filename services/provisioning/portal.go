//go:build !rp2040 && !rp2350

package provisioning

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ringlight-go/errcode"
)

const portalForm = `<!doctype html>
<html><head><title>ringlight setup</title></head>
<body>
<h1>Join a Wi-Fi network</h1>
<form method="post" action="/connect">
<label>SSID <input name="ssid" maxlength="32" required></label><br>
<label>Password <input name="password" type="password" maxlength="63"></label><br>
<button type="submit">Join</button>
</form>
</body></html>
`

type submission struct {
	creds  Credentials
	result chan error
}

// HTTPPortal serves a setup form on the access point. A POST blocks until
// the manager has tried the submitted network and answered with Report.
type HTTPPortal struct {
	bind   string
	router *mux.Router
	subs   chan submission

	pending chan error
	srv     *http.Server
	ln      net.Listener
}

func NewHTTPPortal(bind string) *HTTPPortal {
	p := &HTTPPortal{bind: bind, subs: make(chan submission)}
	r := mux.NewRouter()
	r.HandleFunc("/", p.handleForm).Methods("GET")
	r.HandleFunc("/connect", p.handleConnect).Methods("POST")
	p.router = r
	return p
}

func (p *HTTPPortal) Handler() http.Handler { return p.router }

// Addr is the listening address once started.
func (p *HTTPPortal) Addr() string {
	if p.ln == nil {
		return ""
	}
	return p.ln.Addr().String()
}

func (p *HTTPPortal) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", p.bind)
	if err != nil {
		return err
	}
	p.ln = ln
	p.srv = &http.Server{Handler: p.router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := p.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			println("[wifi] portal:", err.Error())
		}
	}()
	println("[wifi] portal on", ln.Addr().String())
	return nil
}

func (p *HTTPPortal) Stop() error {
	if p.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := p.srv.Shutdown(ctx)
	p.srv, p.ln = nil, nil
	return err
}

func (p *HTTPPortal) Await(ctx context.Context) (Credentials, error) {
	select {
	case <-ctx.Done():
		return Credentials{}, errcode.Wrap(errcode.Timeout, "portal.await", ctx.Err())
	case s := <-p.subs:
		p.pending = s.result
		return s.creds, nil
	}
}

func (p *HTTPPortal) Report(err error) {
	if p.pending == nil {
		return
	}
	p.pending <- err
	p.pending = nil
}

func (p *HTTPPortal) handleForm(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(portalForm))
}

func (p *HTTPPortal) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, string(errcode.InvalidPayload), http.StatusBadRequest)
		return
	}
	s := submission{
		creds:  Credentials{SSID: r.PostFormValue("ssid"), Password: r.PostFormValue("password")},
		result: make(chan error, 1),
	}
	select {
	case p.subs <- s:
	case <-r.Context().Done():
		return
	}
	select {
	case err := <-s.result:
		if err != nil {
			status := http.StatusBadGateway
			if errcode.Of(err) == errcode.InvalidParams {
				status = http.StatusBadRequest
			}
			http.Error(w, string(errcode.Of(err)), status)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("joined " + s.creds.SSID + "\n"))
	case <-r.Context().Done():
	}
}
