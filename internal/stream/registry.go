// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Viewer is one open video feed connection.
type Viewer struct {
	ID        string    `json:"id"`
	ClientIP  string    `json:"client_ip"`
	UserAgent string    `json:"user_agent"`
	StartedAt time.Time `json:"started_at"`

	frames    atomic.Int64
	bytes     atomic.Int64
	lastWrite atomic.Int64 // unix nano
	cancel    context.CancelFunc
}

// ViewerSnapshot is a point-in-time copy of a Viewer.
type ViewerSnapshot struct {
	ID           string    `json:"id"`
	ClientIP     string    `json:"client_ip"`
	UserAgent    string    `json:"user_agent"`
	StartedAt    time.Time `json:"started_at"`
	FramesSent   int64     `json:"frames_sent"`
	BytesSent    int64     `json:"bytes_sent"`
	LastActivity time.Time `json:"last_activity"`
}

// UpdateActivity records one written part.
func (v *Viewer) UpdateActivity(bytes int) {
	v.lastWrite.Store(time.Now().UnixNano())
	v.frames.Add(1)
	v.bytes.Add(int64(bytes))
}

// LastActivity returns the time of the last write, or the start time.
func (v *Viewer) LastActivity() time.Time {
	val := v.lastWrite.Load()
	if val == 0 {
		return v.StartedAt
	}
	return time.Unix(0, val)
}

// Snapshot copies the counters.
func (v *Viewer) Snapshot() ViewerSnapshot {
	return ViewerSnapshot{
		ID:           v.ID,
		ClientIP:     v.ClientIP,
		UserAgent:    v.UserAgent,
		StartedAt:    v.StartedAt,
		FramesSent:   v.frames.Load(),
		BytesSent:    v.bytes.Load(),
		LastActivity: v.LastActivity(),
	}
}

// Registry tracks open viewers.
type Registry struct {
	viewers sync.Map // map[string]*Viewer
	count   atomic.Int64
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register records a new viewer for req. cancel, if set, is invoked by Terminate.
func (r *Registry) Register(req *http.Request, cancel context.CancelFunc) *Viewer {
	v := &Viewer{
		ID:        uuid.New().String(),
		ClientIP:  clientIP(req.RemoteAddr),
		UserAgent: req.UserAgent(),
		StartedAt: time.Now(),
		cancel:    cancel,
	}
	r.viewers.Store(v.ID, v)
	r.count.Add(1)
	return v
}

// Unregister forgets a viewer. Unknown IDs are ignored.
func (r *Registry) Unregister(id string) {
	if _, loaded := r.viewers.LoadAndDelete(id); loaded {
		r.count.Add(-1)
	}
}

// Get returns the viewer or nil.
func (r *Registry) Get(id string) *Viewer {
	if v, ok := r.viewers.Load(id); ok {
		return v.(*Viewer)
	}
	return nil
}

// Terminate cancels a viewer's loop and forgets it.
func (r *Registry) Terminate(id string) bool {
	v, loaded := r.viewers.LoadAndDelete(id)
	if !loaded {
		return false
	}
	r.count.Add(-1)
	if c := v.(*Viewer).cancel; c != nil {
		c()
	}
	return true
}

// TerminateAll cancels every viewer loop, e.g. on shutdown.
func (r *Registry) TerminateAll() int {
	n := 0
	r.viewers.Range(func(key, _ any) bool {
		if r.Terminate(key.(string)) {
			n++
		}
		return true
	})
	return n
}

// Active returns the number of open viewers.
func (r *Registry) Active() int {
	return int(r.count.Load())
}

// List returns snapshots ordered by start time.
func (r *Registry) List() []ViewerSnapshot {
	var list []ViewerSnapshot
	r.viewers.Range(func(_, value any) bool {
		list = append(list, value.(*Viewer).Snapshot())
		return true
	})
	sort.Slice(list, func(i, j int) bool { return list[i].StartedAt.Before(list[j].StartedAt) })
	return list
}

// clientIP strips the port and the IPv4-mapped IPv6 prefix.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return strings.TrimPrefix(host, "::ffff:")
}
