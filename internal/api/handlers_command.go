// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/boardcast/internal/command"
	"github.com/ManuGH/boardcast/internal/telemetry"
)

type commandError struct {
	Status   string `json:"status"`
	Error    string `json:"error"`
	Blackout bool   `json:"blackout"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	ok, handled := s.authorize(w, r)
	if handled {
		return
	}
	if !ok {
		writeUnauthorizedJSON(w)
		return
	}

	action := chi.URLParam(r, "action")
	res, err := s.deps.Commands.Handle(r.Context(), action)
	trace.SpanFromContext(r.Context()).SetAttributes(telemetry.CommandAttributes(action, res.Blackout)...)
	if errors.Is(err, command.ErrUnknownAction) {
		writeJSON(w, http.StatusBadRequest, commandError{
			Status:   res.Status,
			Error:    command.ErrUnknownAction.Error(),
			Blackout: res.Blackout,
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, commandError{Status: "error", Error: "command failed", Blackout: res.Blackout})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
