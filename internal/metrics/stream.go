// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides the Prometheus metrics for boardcast.
// Labels are bounded enums only: no session, viewer or request IDs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Frame kinds.
const (
	FrameLive    = "live"
	FramePrivacy = "privacy"
)

var (
	// ViewersActive tracks currently open video feed connections.
	ViewersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "boardcast_viewers_active",
		Help: "Current number of open video feed connections.",
	})

	// FramesTotal counts multipart parts written, by kind (live/privacy).
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardcast_frames_total",
		Help: "Total number of frames written to viewers, by kind.",
	}, []string{"kind"})

	FrameBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "boardcast_frame_bytes",
		Help:    "Size of encoded frames written to viewers.",
		Buckets: prometheus.ExponentialBuckets(4096, 2, 10),
	})

	CaptureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "boardcast_capture_duration_seconds",
		Help:    "Time spent capturing one raw frame.",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	})

	EncodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boardcast_encode_duration_seconds",
		Help:    "Time spent scaling and encoding one frame, by codec.",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	}, []string{"codec"})

	CaptureFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boardcast_capture_failures_total",
		Help: "Total number of failed captures.",
	})

	EncodeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardcast_encode_failures_total",
		Help: "Total number of skipped frames due to encode failures, by codec.",
	}, []string{"codec"})

	// StreamsClosedTotal counts finished viewer loops by reason
	// (client_gone, write_error, capture_failed, encode_failed, shutdown).
	StreamsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardcast_streams_closed_total",
		Help: "Total number of closed video feed connections, by reason.",
	}, []string{"reason"})
)

// IncViewers marks a viewer connection as opened.
func IncViewers() { ViewersActive.Inc() }

// DecViewers marks a viewer connection as closed.
func DecViewers() { ViewersActive.Dec() }

// ObserveFrame records one written frame.
func ObserveFrame(kind string, size int) {
	FramesTotal.WithLabelValues(kind).Inc()
	FrameBytes.Observe(float64(size))
}

// ObserveCapture records a capture attempt.
func ObserveCapture(d time.Duration, err error) {
	if err != nil {
		CaptureFailuresTotal.Inc()
		return
	}
	CaptureDuration.Observe(d.Seconds())
}

// ObserveEncode records an encode attempt.
func ObserveEncode(codec string, d time.Duration, err error) {
	if err != nil {
		EncodeFailuresTotal.WithLabelValues(codec).Inc()
		return
	}
	EncodeDuration.WithLabelValues(codec).Observe(d.Seconds())
}

// IncStreamClosed records why a viewer loop ended.
func IncStreamClosed(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	StreamsClosedTotal.WithLabelValues(reason).Inc()
}

// GetViewersActive returns the current value of the gauge (for testing).
func GetViewersActive() float64 {
	var m dto.Metric
	if err := ViewersActive.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}
