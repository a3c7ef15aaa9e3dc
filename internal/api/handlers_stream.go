// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/boardcast/internal/log"
	"github.com/ManuGH/boardcast/internal/metrics"
	"github.com/ManuGH/boardcast/internal/stream"
	"github.com/ManuGH/boardcast/internal/telemetry"
)

const tracerName = "boardcast/stream"

func (s *Server) handleVideoFeed(w http.ResponseWriter, r *http.Request) {
	ok, handled := s.authorize(w, r)
	if handled {
		return
	}
	if !ok {
		writeUnauthorizedText(w)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	viewer := s.deps.Registry.Register(r, cancel)
	defer s.deps.Registry.Unregister(viewer.ID)
	ctx = log.ContextWithViewerID(ctx, viewer.ID)
	logger := log.WithComponentFromContext(ctx, "stream")

	ctrl := s.deps.Pipeline.NewController()
	if err := ctrl.Authorize(); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "stream.authorize_failed").Msg("viewer could not be authorized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive any server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", stream.ContentType)
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncViewers()
	defer metrics.DecViewers()

	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "stream.run")
	defer span.End()

	logger.Info().
		Str(log.FieldEvent, "stream.start").
		Str(log.FieldRemoteAddr, r.RemoteAddr).
		Int("viewers", s.deps.Registry.Active()).
		Msg("viewer connected")

	start := time.Now()
	stats, err := ctrl.Run(ctx, w, rc.Flush, viewer.UpdateActivity)

	span.SetAttributes(telemetry.StreamAttributes(viewer.ID, string(s.deps.Pipeline.Format()), stats.Frames, stats.PrivacyFrames, stats.Bytes, stats.Reason)...)

	clientGone := stats.Reason == stream.ReasonClientGone
	if err != nil && !clientGone {
		span.RecordError(err)
		span.SetStatus(codes.Error, stats.Reason)
	}

	var evt *zerolog.Event
	switch {
	case err == nil || clientGone:
		evt = logger.Info()
		if err != nil {
			logger.Debug().Err(err).Str(log.FieldEvent, "stream.disconnect").Msg("viewer went away mid-write")
		}
	case errors.Is(err, stream.ErrWriteFailed):
		evt = logger.Warn().Err(err)
	default:
		evt = logger.Error().Err(err)
	}
	evt.
		Str(log.FieldEvent, "stream.closed").
		Str("reason", stats.Reason).
		Int64(log.FieldFrames, stats.Frames).
		Int64("privacy_frames", stats.PrivacyFrames).
		Int64(log.FieldBytes, stats.Bytes).
		Dur("duration", time.Since(start)).
		Msg("viewer disconnected")
}

// handleViewers lists open video feeds. It requires a credential.
func (s *Server) handleViewers(w http.ResponseWriter, r *http.Request) {
	ok, handled := s.authorize(w, r)
	if handled {
		return
	}
	if !ok {
		writeUnauthorizedJSON(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active":  s.deps.Registry.Active(),
		"viewers": s.deps.Registry.List(),
	})
}
