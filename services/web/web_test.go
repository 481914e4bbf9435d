//go:build !rp2040 && !rp2350

package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringlight-go/bus"
	"ringlight-go/keys"
	"ringlight-go/services/ring"
	"ringlight-go/types"
	"ringlight-go/x/strconvx"
)

type fakeKeys struct{ got []keys.Event }

func (f *fakeKeys) Take(ev keys.Event) bool {
	f.got = append(f.got, ev)
	return ev.Key == keys.Key5
}

type fakeRing struct{ calls []string }

func (r *fakeRing) rec(call string) { r.calls = append(r.calls, call) }

func (r *fakeRing) SetScene(s ring.Scene)         { r.rec("scene:" + s.String()) }
func (r *fakeRing) On()                           { r.rec("on") }
func (r *fakeRing) Off()                          { r.rec("off") }
func (r *fakeRing) ToggleOnOff() bool             { r.rec("toggle"); return false }
func (r *fakeRing) NextScene()                    { r.rec("next") }
func (r *fakeRing) MaxBrightness()                { r.rec("max") }
func (r *fakeRing) IncrementBrightness(delta int) { r.rec("bright:" + strconvx.Itoa(delta)) }
func (r *fakeRing) FullWidth()                    { r.rec("fullwidth") }
func (r *fakeRing) IncrementWidth(delta int)      { r.rec("width:" + strconvx.Itoa(delta)) }
func (r *fakeRing) Shift(delta int)               { r.rec("shift:" + strconvx.Itoa(delta)) }

type fixture struct {
	bus      *bus.Bus
	svc      *Service
	keys     *fakeKeys
	ring     *fakeRing
	srv      *httptest.Server
	consumed atomic.Int32
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{bus: bus.NewBus(16), keys: &fakeKeys{}, ring: &fakeRing{}}
	f.svc = New(cfg, f.bus, f.keys, f.ring)
	f.srv = httptest.NewServer(f.svc.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

// runLoop plays the orchestrator: it calls Process until the test ends.
func (f *fixture) runLoop(t *testing.T) {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if f.svc.Process() {
				f.consumed.Add(1)
			}
			time.Sleep(time.Millisecond)
		}
	}()
	t.Cleanup(func() { close(stop); wg.Wait() })
}

func (f *fixture) post(t *testing.T, path, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestPostKey(t *testing.T) {
	f := newFixture(t, Config{})
	f.runLoop(t)

	code, rep := f.post(t, "/api/key", `{"key":5,"type":"pressed"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, rep["ok"])
	assert.Equal(t, true, rep["consumed"])

	code, rep = f.post(t, "/api/key", `{"key":1,"type":"repeated","repeated":12}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, rep["consumed"])

	require.Equal(t, []keys.Event{keys.Press(keys.Key5), keys.Repeat(keys.Key1, 12)}, f.keys.got)
	assert.Eventually(t, func() bool { return f.consumed.Load() == 1 }, time.Second, time.Millisecond)

	code, rep = f.post(t, "/api/key", `{"key":12,"type":"pressed"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_params", rep["error"])

	code, rep = f.post(t, "/api/key", `{"key":1,"type":"tripled"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_params", rep["error"])

	code, rep = f.post(t, "/api/key", `{"key":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_payload", rep["error"])
}

func TestPostRing(t *testing.T) {
	f := newFixture(t, Config{})
	f.runLoop(t)

	for _, c := range []struct{ path, body string }{
		{"/api/ring/off", ""},
		{"/api/ring/brightness", `{"arg":-3}`},
		{"/api/ring/scene", `{"scene":"warm"}`},
		{"/api/ring/shift", `{"arg":4}`},
		{"/api/ring/fullwidth", `{}`},
	} {
		code, rep := f.post(t, c.path, c.body)
		require.Equal(t, http.StatusOK, code, c.path)
		assert.Equal(t, true, rep["consumed"], c.path)
	}
	assert.Equal(t, []string{"off", "bright:-3", "scene:warm", "shift:4", "fullwidth"}, f.ring.calls)

	code, rep := f.post(t, "/api/ring/explode", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "unsupported", rep["error"])

	code, rep = f.post(t, "/api/ring/scene", `{"scene":"disco"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_params", rep["error"])
}

func TestPost_TimesOutWithoutLoop(t *testing.T) {
	f := newFixture(t, Config{RequestTimeout: 30 * time.Millisecond})
	code, rep := f.post(t, "/api/ring/on", "")
	assert.Equal(t, http.StatusGatewayTimeout, code)
	assert.Equal(t, "timeout", rep["error"])
}

func TestGetStateAndConfig(t *testing.T) {
	f := newFixture(t, Config{})
	c := f.bus.NewConnection("test")
	c.Publish(c.NewMessage(bus.T("state", "ring"), ring.State{On: true, Brightness: 40, Scene: ring.Warm, Width: 10, Pixels: 60}, true))
	c.Publish(c.NewMessage(bus.T("state", "env", "temperature"), types.TemperatureValue{DeciC: 215, OK: true}, true))
	c.Publish(c.NewMessage(bus.T("config", "web"), map[string]any{"bind": ":8080"}, true))

	resp, err := http.Get(f.srv.URL + "/api/state")
	require.NoError(t, err)
	var st map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, "warm", st["ring"]["scene"])
	assert.Equal(t, float64(215), st["env/temperature"]["deci_c"])

	resp, err = http.Get(f.srv.URL + "/api/config")
	require.NoError(t, err)
	var cfg map[string]map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	resp.Body.Close()
	assert.Equal(t, ":8080", cfg["web"]["bind"])
	assert.NotContains(t, cfg, "ring")
}

func TestProcess_BoundedAndNonBlocking(t *testing.T) {
	b := bus.NewBus(16)
	k := &fakeKeys{}
	s := New(Config{MaxPerProcess: 2}, b, k, &fakeRing{})
	assert.False(t, s.Process(), "nothing pending")

	c := b.NewConnection("client")
	var subs []*bus.Subscription
	for _, key := range []int{1, 5, 5} {
		subs = append(subs, c.Request(c.NewMessage(bus.T("web", "key"), types.KeyRequest{Key: key, Type: "pressed"}, false)))
	}
	c.Publish(c.NewMessage(bus.T("web", "nonsense"), nil, false))

	assert.True(t, s.Process())
	assert.Len(t, k.got, 2)
	assert.True(t, s.Process())
	assert.Len(t, k.got, 3)
	assert.False(t, s.Process())

	rep := (<-subs[0].Channel()).Payload.(types.CommandReply)
	assert.Equal(t, types.CommandReply{OK: true, Consumed: false}, rep)
	rep = (<-subs[2].Channel()).Payload.(types.CommandReply)
	assert.Equal(t, types.CommandReply{OK: true, Consumed: true}, rep)
}

func TestWebSocket_StreamsState(t *testing.T) {
	b := bus.NewBus(16)
	s := New(Config{Bind: "127.0.0.1:0"}, b, &fakeKeys{}, &fakeRing{})
	require.NoError(t, s.Setup())
	t.Cleanup(func() { _ = s.Close() })

	c := b.NewConnection("test")
	c.Publish(c.NewMessage(bus.T("state", "ring"), ring.State{Scene: ring.Blue}, true))

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))

	var ev Event
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, "state/ring", ev.Topic)
	assert.Equal(t, "blue", ev.Payload.(map[string]any)["scene"])

	c.Publish(c.NewMessage(bus.T("state", "mode"), types.ModeState{Mode: "normal"}, false))
	for ev.Topic != "state/mode" {
		require.NoError(t, ws.ReadJSON(&ev))
	}
	assert.Equal(t, "normal", ev.Payload.(map[string]any)["mode"])
}
