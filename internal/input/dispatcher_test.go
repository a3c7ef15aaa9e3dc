// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package input

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// gatedInjector blocks every Inject until release is closed.
type gatedInjector struct {
	LogInjector
	started chan Signal
	release chan struct{}
}

func newGatedInjector() *gatedInjector {
	return &gatedInjector{started: make(chan Signal, 16), release: make(chan struct{})}
}

func (g *gatedInjector) Inject(ctx context.Context, sig Signal) error {
	g.started <- sig
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.LogInjector.Inject(ctx, sig)
}

type failingInjector struct{ calls chan Signal }

func (f *failingInjector) Name() string { return "failing" }
func (f *failingInjector) Inject(_ context.Context, sig Signal) error {
	f.calls <- sig
	return errors.New("no display")
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	inj := NewLogInjector()
	d := NewDispatcher(inj, 8)
	for _, s := range []Signal{SignalNext, SignalNext, SignalPrev, SignalPause} {
		require.True(t, d.Send(s))
	}
	require.Eventually(t, func() bool { return len(inj.Sent()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Signal{SignalNext, SignalNext, SignalPrev, SignalPause}, inj.Sent())
	require.NoError(t, d.Close())
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	inj := newGatedInjector()
	d := NewDispatcher(inj, 2)

	require.True(t, d.Send(SignalNext))
	<-inj.started // worker is now blocked inside Inject

	assert.True(t, d.Send(SignalNext))
	assert.True(t, d.Send(SignalNext))

	done := make(chan bool)
	go func() { done <- d.Send(SignalPrev) }()
	select {
	case ok := <-done:
		assert.False(t, ok, "full queue drops")
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a full queue")
	}
	assert.Equal(t, uint64(1), d.Dropped())

	close(inj.release)
	require.Eventually(t, func() bool { return len(inj.Sent()) == 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Close())
}

func TestDispatcher_ContinuesAfterInjectError(t *testing.T) {
	defer goleak.VerifyNone(t)

	inj := &failingInjector{calls: make(chan Signal, 4)}
	d := NewDispatcher(inj, 4)
	d.Send(SignalNext)
	d.Send(SignalPrev)
	assert.Equal(t, SignalNext, <-inj.calls)
	assert.Equal(t, SignalPrev, <-inj.calls)
	require.NoError(t, d.Close())
}

func TestDispatcher_CloseInterruptsInjectAndRejectsSends(t *testing.T) {
	defer goleak.VerifyNone(t)

	inj := newGatedInjector()
	d := NewDispatcher(inj, 1)
	d.Send(SignalPause)
	<-inj.started

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.False(t, d.Send(SignalNext))
	assert.Empty(t, inj.Sent())
}

func TestNew_Backends(t *testing.T) {
	inj, err := New(Options{Backend: "log"})
	require.NoError(t, err)
	assert.Equal(t, "log", inj.Name())

	_, err = New(Options{Backend: "xdotool", XdotoolPath: "/nonexistent/xdotool"})
	assert.Error(t, err)

	_, err = New(Options{Backend: "uinput"})
	assert.Error(t, err)
}
