// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/boardcast/internal/log"
	"github.com/ManuGH/boardcast/internal/metrics"
	"github.com/ManuGH/boardcast/internal/session"
	"github.com/ManuGH/boardcast/internal/web"
)

const maxLoginBodyBytes = 4 << 10

// authorize reports whether r carries a live credential. On false the caller
// must answer with its own unauthorized response; store failures are written
// here as 503 and reported with handled=true.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (ok, handled bool) {
	_, err := s.deps.Gate.Require(r)
	switch {
	case err == nil:
		return true, false
	case errors.Is(err, session.ErrUnauthorized):
		return false, false
	default:
		logger := log.WithComponentFromContext(r.Context(), "auth")
		logger.Error().Err(err).Str(log.FieldEvent, "auth.store_error").Msg("session lookup failed")
		writeServiceUnavailable(w)
		return false, true
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ok, handled := s.authorize(w, r)
	if handled {
		return
	}
	var err error
	if ok {
		err = s.deps.Pages.Viewer(w, s.deps.Privacy.PrivacyActive())
	} else {
		err = s.deps.Pages.Login(w, http.StatusOK, "")
	}
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "page.render_failed").Msg("failed to render page")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "auth")

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)
	if err := r.ParseForm(); err != nil {
		metrics.IncLoginAttempt("malformed")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := s.deps.Gate.CheckPIN(r.PostForm.Get("pin")); err != nil {
		metrics.IncLoginAttempt("rejected")
		logger.Warn().
			Str(log.FieldEvent, "auth.pin_rejected").
			Str(log.FieldRemoteAddr, r.RemoteAddr).
			Msg("incorrect PIN submitted")
		if err := s.deps.Pages.Login(w, http.StatusOK, web.MsgIncorrectPIN); err != nil {
			logger.Error().Err(err).Str(log.FieldEvent, "page.render_failed").Msg("failed to render login page")
		}
		return
	}

	if err := s.deps.Gate.Issue(w, r); err != nil {
		metrics.IncLoginAttempt("error")
		logger.Error().Err(err).Str(log.FieldEvent, "auth.issue_failed").Msg("failed to issue session")
		writeServiceUnavailable(w)
		return
	}
	metrics.IncLoginAttempt("accepted")
	logger.Info().
		Str(log.FieldEvent, "auth.pin_accepted").
		Str(log.FieldRemoteAddr, r.RemoteAddr).
		Msg("viewer unlocked stream")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Gate.Clear(w, r); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "auth")
		logger.Error().Err(err).Str(log.FieldEvent, "auth.clear_failed").Msg("failed to revoke session")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
