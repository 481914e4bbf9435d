//go:build !rp2040 && !rp2350

package provisioning

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringlight-go/errcode"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi.toml")
	s := NewFileStore(path)

	_, err := s.Load()
	assert.ErrorIs(t, err, errcode.NoCredentials)

	want := Credentials{SSID: "home net", Password: "correct horse"}
	require.NoError(t, s.Save(want))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	assert.ErrorIs(t, s.Save(Credentials{}), errcode.InvalidParams)
}

func TestFileStore_BadFile(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.toml")
	require.NoError(t, os.WriteFile(garbage, []byte("ssid = ["), 0o600))
	_, err := NewFileStore(garbage).Load()
	assert.ErrorIs(t, err, errcode.InvalidPayload)

	empty := filepath.Join(dir, "empty.toml")
	require.NoError(t, os.WriteFile(empty, []byte("password = \"abcdefgh\"\n"), 0o600))
	_, err = NewFileStore(empty).Load()
	assert.ErrorIs(t, err, errcode.NoCredentials)
}

func TestCommandRadio(t *testing.T) {
	var calls [][]string
	r := NewCommandRadio(
		"nmcli device wifi connect {ssid} password {password}",
		"nmcli device wifi hotspot ssid '{ssid}'",
		"hostname -I",
	)
	r.Run = func(_ context.Context, argv []string) ([]byte, error) {
		calls = append(calls, argv)
		if argv[0] == "hostname" {
			return []byte("192.168.4.2 fd00::2 \n"), nil
		}
		if argv[len(argv)-1] == "wrong pass" {
			return []byte("Error: Secrets were required\nmore\n"), errors.New("exit status 4")
		}
		return nil, nil
	}
	ctx := context.Background()

	require.NoError(t, r.Join(ctx, Credentials{SSID: "my net", Password: "s3cret pw"}))
	assert.Equal(t, []string{"nmcli", "device", "wifi", "connect", "my net", "password", "s3cret pw"}, calls[0])

	require.NoError(t, r.Join(ctx, Credentials{SSID: "cafe"}))
	assert.Equal(t, []string{"nmcli", "device", "wifi", "connect", "cafe"}, calls[1])

	err := r.Join(ctx, Credentials{SSID: "x", Password: "wrong pass"})
	assert.ErrorIs(t, err, errcode.JoinFailed)
	assert.Contains(t, err.Error(), "Secrets were required")
	assert.NotContains(t, err.Error(), "more")

	require.NoError(t, r.StartAP(ctx, "ringlight"))
	assert.Equal(t, []string{"nmcli", "device", "wifi", "hotspot", "ssid", "ringlight"}, calls[3])

	addr, err := r.Address(ctx)
	require.NoError(t, err)
	assert.Equal(t, "192.168.4.2", addr)
}

func TestCommandRadio_Templates(t *testing.T) {
	r := NewCommandRadio("", "ap 'unterminated", "true")
	r.Run = func(context.Context, []string) ([]byte, error) { return []byte("  \n"), nil }
	ctx := context.Background()

	assert.ErrorIs(t, r.Join(ctx, Credentials{SSID: "a"}), errcode.Unsupported)
	assert.ErrorIs(t, r.StartAP(ctx, "a"), errcode.InvalidParams)
	_, err := r.Address(ctx)
	assert.ErrorIs(t, err, errcode.NotFound)
}

func postForm(t *testing.T, srv *httptest.Server, ssid, password string) (int, string) {
	t.Helper()
	resp, err := http.PostForm(srv.URL+"/connect", url.Values{"ssid": {ssid}, "password": {password}})
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestHTTPPortal(t *testing.T) {
	p := NewHTTPPortal("127.0.0.1:0")
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `name="ssid"`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	answers := []error{errcode.Wrap(errcode.JoinFailed, "test", errors.New("nope")), nil}
	got := make(chan Credentials, len(answers))
	go func() {
		for _, a := range answers {
			c, err := p.Await(ctx)
			if err != nil {
				return
			}
			got <- c
			p.Report(a)
		}
	}()

	code, msg := postForm(t, srv, "cafe", "wrong-password")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "join_failed", strings.TrimSpace(msg))

	code, msg = postForm(t, srv, "cafe", "espresso1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "joined cafe\n", msg)

	assert.Equal(t, Credentials{SSID: "cafe", Password: "wrong-password"}, <-got)
	assert.Equal(t, Credentials{SSID: "cafe", Password: "espresso1"}, <-got)
}

func TestHTTPPortal_StartStop(t *testing.T) {
	p := NewHTTPPortal("127.0.0.1:0")
	require.NoError(t, p.Start(context.Background()))
	addr := p.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, p.Stop())
	assert.Empty(t, p.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Await(ctx)
	assert.ErrorIs(t, err, errcode.Timeout)
}
