// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()
	req := httptest.NewRequest(http.MethodGet, "/video_feed", nil)
	req.RemoteAddr = "[::ffff:192.168.1.20]:51234"
	req.Header.Set("User-Agent", "SmartBoard/1.0")

	ctx, cancel := context.WithCancel(context.Background())
	v := r.Register(req, cancel)
	assert.Equal(t, "192.168.1.20", v.ClientIP)
	assert.Equal(t, "SmartBoard/1.0", v.UserAgent)
	assert.Equal(t, 1, r.Active())
	assert.Same(t, v, r.Get(v.ID))

	v.UpdateActivity(100)
	v.UpdateActivity(50)
	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].FramesSent)
	assert.Equal(t, int64(150), list[0].BytesSent)
	assert.False(t, list[0].LastActivity.Before(v.StartedAt))

	assert.True(t, r.Terminate(v.ID))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, r.Terminate(v.ID))
	assert.Zero(t, r.Active())

	r.Unregister(v.ID) // unknown now, ignored
	assert.Zero(t, r.Active())
}

func TestRegistry_TerminateAll(t *testing.T) {
	r := NewRegistry()
	var cancelled int
	for i := 0; i < 3; i++ {
		r.Register(httptest.NewRequest(http.MethodGet, "/", nil), func() { cancelled++ })
	}
	assert.Equal(t, 3, r.TerminateAll())
	assert.Equal(t, 3, cancelled)
	assert.Zero(t, r.Active())
	assert.Nil(t, r.Get("missing"))
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "10.0.0.1", clientIP("10.0.0.1:80"))
	assert.Equal(t, "::1", clientIP("[::1]:80"))
	assert.Equal(t, "pipe", clientIP("pipe"))
}
