// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Stream attributes
	StreamViewerIDKey    = "stream.viewer_id"
	StreamCodecKey       = "stream.codec"
	StreamFramesKey      = "stream.frames"
	StreamPrivacyKey     = "stream.privacy_frames"
	StreamBytesKey       = "stream.bytes"
	StreamCloseReasonKey = "stream.close_reason"

	// Command attributes
	CommandActionKey   = "command.action"
	CommandBlackoutKey = "command.blackout"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// StreamAttributes describes a finished viewer loop.
func StreamAttributes(viewerID, codec string, frames, privacyFrames, bytes int64, reason string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(StreamCodecKey, codec),
		attribute.Int64(StreamFramesKey, frames),
		attribute.Int64(StreamPrivacyKey, privacyFrames),
		attribute.Int64(StreamBytesKey, bytes),
	}
	if viewerID != "" {
		attrs = append(attrs, attribute.String(StreamViewerIDKey, viewerID))
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(StreamCloseReasonKey, reason))
	}
	return attrs
}

// CommandAttributes describes a handled command.
func CommandAttributes(action string, blackout bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CommandActionKey, action),
		attribute.Bool(CommandBlackoutKey, blackout),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
