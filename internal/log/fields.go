// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldViewerID  = "viewer_id"
	FieldSessionID = "session_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Media / stream fields
	FieldCodec      = "codec"
	FieldQuality    = "quality"
	FieldResolution = "resolution"
	FieldRegion     = "region"
	FieldSource     = "source"
	FieldFrames     = "frames"
	FieldBytes      = "bytes"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldBlackout = "blackout"
	FieldAction   = "action"

	// Network fields
	FieldRemoteAddr = "remote_addr"
	FieldListenAddr = "listen_addr"
)
