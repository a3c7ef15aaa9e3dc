// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// APIHandler is the HTTP handler for the API server
	APIHandler http.Handler

	// MetricsAddr enables the Prometheus listener when non-empty.
	MetricsAddr string
	// MetricsHandler serves /metrics on MetricsAddr.
	MetricsHandler http.Handler

	// TLSCert and TLSKey switch the API server to HTTPS when both are set.
	TLSCert string
	TLSKey  string

	// DrainStreams ends open video feeds when shutdown begins, so the API
	// server can go idle. It returns the number of streams ended.
	DrainStreams func() int
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	if (d.TLSCert == "") != (d.TLSKey == "") {
		return ErrIncompleteTLS
	}
	return nil
}
