// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPages_Login(t *testing.T) {
	p, err := NewPages("", 0)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, p.Login(w, http.StatusOK, ""))
	body := w.Body.String()
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "Enter Access PIN")
	assert.Contains(t, body, `name="pin"`)
	assert.Contains(t, body, `maxlength="4"`)
	assert.NotContains(t, body, `class="error"`)

	w = httptest.NewRecorder()
	require.NoError(t, p.Login(w, http.StatusOK, MsgIncorrectPIN))
	assert.Contains(t, w.Body.String(), MsgIncorrectPIN)
}

func TestPages_LoginEscapesError(t *testing.T) {
	p, err := NewPages("Board", 6)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, p.Login(w, http.StatusOK, "<script>x</script>"))
	assert.NotContains(t, w.Body.String(), "<script>x</script>")
	assert.Contains(t, w.Body.String(), `maxlength="6"`)
	assert.Contains(t, w.Body.String(), "<title>Board</title>")
}

func TestPages_Viewer(t *testing.T) {
	p, err := NewPages("", 0)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, p.Viewer(w, false))
	body := w.Body.String()
	assert.Contains(t, body, `id="screen-stream" src="/video_feed"`)
	for _, action := range []string{"prev", "pause", "next", "blackout"} {
		assert.Contains(t, body, `data-action="`+action+`"`)
	}
	assert.Contains(t, body, `/static/script.js`)
	assert.NotContains(t, body, `class="active"`)

	w = httptest.NewRecorder()
	require.NoError(t, p.Viewer(w, true))
	assert.Contains(t, w.Body.String(), `class="active"`)
}

func TestStaticHandler(t *testing.T) {
	h := http.StripPrefix("/static", StaticHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/script.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "function sendCommand"))
	assert.Contains(t, w.Body.String(), "3000")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
