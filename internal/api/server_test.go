// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"encoding/json"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/boardcast/internal/capture"
	"github.com/ManuGH/boardcast/internal/command"
	"github.com/ManuGH/boardcast/internal/encode"
	"github.com/ManuGH/boardcast/internal/health"
	"github.com/ManuGH/boardcast/internal/input"
	"github.com/ManuGH/boardcast/internal/middleware"
	"github.com/ManuGH/boardcast/internal/presentation"
	"github.com/ManuGH/boardcast/internal/session"
	"github.com/ManuGH/boardcast/internal/stream"
	"github.com/ManuGH/boardcast/internal/web"
)

const testPIN = "4821"

type fixture struct {
	srv      *httptest.Server
	state    *presentation.State
	encoder  *encode.Encoder
	injector *input.LogInjector
	registry *stream.Registry
}

func newFixture(t *testing.T, cmdOpts command.Options) *fixture {
	t.Helper()
	return newFixtureWithOptions(t, cmdOpts, Options{})
}

func newFixtureWithOptions(t *testing.T, cmdOpts command.Options, opts Options) *fixture {
	t.Helper()

	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	gate, err := session.NewGate(session.Options{
		PIN:           testPIN,
		Secret:        "test-secret",
		TTL:           time.Hour,
		Store:         store,
		SecureRequest: middleware.IsHTTPS,
	})
	require.NoError(t, err)

	state := &presentation.State{}
	injector := input.NewLogInjector()
	dispatcher := input.NewDispatcher(injector, 8)
	t.Cleanup(func() { _ = dispatcher.Close() })

	src, err := capture.New(capture.Options{Kind: "synthetic", SyntheticWidth: 64, SyntheticHeight: 48})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	enc, err := encode.New(encode.Options{Format: encode.FormatJPEG, Quality: 70, Scaler: encode.ScalerNearest, PrivacyLabel: "PRIVACY MODE"})
	require.NoError(t, err)

	pages, err := web.NewPages("", len(testPIN))
	require.NoError(t, err)

	registry := stream.NewRegistry()
	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewCaptureChecker(src, time.Second, 0))

	s, err := New(Deps{
		Gate:     gate,
		Commands: command.New(dispatcher, state, cmdOpts),
		Pipeline: stream.NewPipeline(src, enc, state, stream.Options{PrivacyInterval: 10 * time.Millisecond}),
		Registry: registry,
		Privacy:  state,
		Pages:    pages,
		Health:   hm,
	}, opts)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, state: state, encoder: enc, injector: injector, registry: registry}
}

// newClient keeps cookies and does not follow redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := &http.Client{
		Jar:     jar,
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	t.Cleanup(c.CloseIdleConnections)
	return c
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func login(t *testing.T, c *http.Client, base, pin string) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(base+"/", url.Values{"pin": {pin}})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// firstPart opens the video feed and returns the first multipart part.
func firstPart(t *testing.T, c *http.Client, base string) (string, []byte) {
	t.Helper()
	resp, err := c.Get(base + "/video_feed")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/x-mixed-replace", mediaType)
	require.Equal(t, stream.Boundary, params["boundary"])

	part, err := multipart.NewReader(resp.Body, params["boundary"]).NextPart()
	require.NoError(t, err)
	data, err := io.ReadAll(part)
	require.NoError(t, err)
	return part.Header.Get("Content-Type"), data
}

func TestServer_EndToEnd(t *testing.T) {
	f := newFixture(t, command.Options{})
	c := newClient(t)
	base := f.srv.URL

	resp, body := get(t, c, base+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Enter Access PIN")

	// Wrong PIN: login page with error, no credential.
	resp, body = login(t, c, base, "0000")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, web.MsgIncorrectPIN)
	resp, body = get(t, c, base+"/video_feed")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body)

	// Correct PIN.
	resp, _ = login(t, c, base, testPIN)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, body = get(t, c, base+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `id="screen-stream"`)

	ct, data := firstPart(t, c, base)
	assert.Equal(t, "image/jpeg", ct)
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	// Blackout on: parts become the placeholder.
	resp, body = get(t, c, base+"/command/blackout")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"success","blackout":true}`, body)

	placeholder, err := f.encoder.PrivacyFrame(64, 48)
	require.NoError(t, err)
	_, data = firstPart(t, c, base)
	assert.Equal(t, placeholder.Data, data)

	resp, body = get(t, c, base+"/command/blackout")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"success","blackout":false}`, body)

	resp, body = get(t, c, base+"/command/next")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"success","blackout":false}`, body)
	assert.Eventually(t, func() bool {
		sent := f.injector.Sent()
		return len(sent) == 1 && sent[0] == input.SignalNext
	}, time.Second, 10*time.Millisecond)

	// Logout revokes the credential.
	resp, _ = get(t, c, base+"/logout")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp, body = get(t, c, base+"/command/next")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"status":"unauthorized"}`, body)
	resp, _ = get(t, c, base+"/video_feed")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_CommandRequiresCredential(t *testing.T) {
	f := newFixture(t, command.Options{})
	c := newClient(t)

	resp, body := get(t, c, f.srv.URL+"/command/blackout")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"status":"unauthorized"}`, body)
	assert.False(t, f.state.PrivacyActive(), "unauthorized command has no side effect")
}

func TestServer_UnknownCommand(t *testing.T) {
	f := newFixture(t, command.Options{})
	c := newClient(t)
	login(t, c, f.srv.URL, testPIN)

	resp, body := get(t, c, f.srv.URL+"/command/reboot")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"status":"error","error":"unknown action","blackout":false}`, body)
}

func TestServer_UnknownCommandLegacy(t *testing.T) {
	f := newFixture(t, command.Options{LegacyUnknownSuccess: true})
	c := newClient(t)
	login(t, c, f.srv.URL, testPIN)

	resp, body := get(t, c, f.srv.URL+"/command/reboot")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"success","blackout":false}`, body)
}

func TestServer_SessionsAreIndependent(t *testing.T) {
	f := newFixture(t, command.Options{})
	a, b := newClient(t), newClient(t)
	login(t, a, f.srv.URL, testPIN)
	login(t, b, f.srv.URL, testPIN)

	get(t, a, f.srv.URL+"/logout")

	resp, _ := get(t, a, f.srv.URL+"/command/next")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = get(t, b, f.srv.URL+"/command/next")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "logout of one client keeps the other")
}

func TestServer_Viewers(t *testing.T) {
	f := newFixture(t, command.Options{})
	c := newClient(t)

	resp, _ := get(t, c, f.srv.URL+"/viewers")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	login(t, c, f.srv.URL, testPIN)
	resp, body := get(t, c, f.srv.URL+"/viewers")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Active  int                     `json:"active"`
		Viewers []stream.ViewerSnapshot `json:"viewers"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, 0, out.Active)
	assert.Empty(t, out.Viewers)
}

func TestServer_ViewerUnregisteredAfterDisconnect(t *testing.T) {
	f := newFixture(t, command.Options{})
	c := newClient(t)
	login(t, c, f.srv.URL, testPIN)

	firstPart(t, c, f.srv.URL)
	assert.Eventually(t, func() bool { return f.registry.Active() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_HealthAndStatic(t *testing.T) {
	f := newFixture(t, command.Options{})
	c := newClient(t)

	resp, _ := get(t, c, f.srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := get(t, c, f.srv.URL+"/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"capture"`)

	resp, body = get(t, c, f.srv.URL+"/static/script.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "sendCommand")
}

func TestServer_SecurityHeadersAndRequestID(t *testing.T) {
	f := newFixture(t, command.Options{})
	resp, _ := get(t, newClient(t), f.srv.URL+"/")
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestServer_SecureCookieOnlyViaTrustedProxy(t *testing.T) {
	postPIN := func(f *fixture) *http.Response {
		req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/", strings.NewReader(url.Values{"pin": {testPIN}}.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-Proto", "https")
		resp, err := newClient(t).Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		return resp
	}

	untrusted := postPIN(newFixture(t, command.Options{}))
	require.Len(t, untrusted.Cookies(), 1)
	assert.False(t, untrusted.Cookies()[0].Secure)
	assert.Empty(t, untrusted.Header.Get("Strict-Transport-Security"))

	proxies, err := middleware.ParseCIDRs([]string{"127.0.0.1", "::1"})
	require.NoError(t, err)
	trusted := postPIN(newFixtureWithOptions(t, command.Options{}, Options{TrustedProxies: proxies}))
	require.Len(t, trusted.Cookies(), 1)
	assert.True(t, trusted.Cookies()[0].Secure)
	assert.NotEmpty(t, trusted.Header.Get("Strict-Transport-Security"))
}

func TestDeps_Validate(t *testing.T) {
	_, err := New(Deps{}, Options{})
	assert.ErrorContains(t, err, "session gate is required")
}
