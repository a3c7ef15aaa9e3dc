// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session implements the PIN gate and the session credential that
// authorizes the stream and command endpoints.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/boardcast/internal/log"
	"github.com/google/uuid"
)

var (
	// ErrUnauthorized is returned when a request carries no valid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidPIN is returned when a submitted PIN does not match.
	ErrInvalidPIN = errors.New("invalid pin")
)

// DefaultCookieName is the name of the signed session cookie.
const DefaultCookieName = "boardcast_session"

// Verify compares a submitted PIN with the configured one in constant time.
// No normalization is applied. An empty configured PIN never matches.
func Verify(candidate, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(configured)) == 1
}

// Options configures a Gate.
type Options struct {
	PIN        string
	Secret     string
	TTL        time.Duration
	Store      Store
	CookieName string

	// SecureRequest decides the cookie Secure flag. Defaults to direct TLS only.
	SecureRequest func(*http.Request) bool
}

// Result describes an authorized request.
type Result struct {
	SessionID string
}

// Gate issues, checks and clears session credentials.
type Gate struct {
	pin        string
	secret     string
	ttl        time.Duration
	store      Store
	cookieName string
	secure     func(*http.Request) bool
	locks      *keyedMutex
}

// NewGate validates opts and returns a Gate.
func NewGate(opts Options) (*Gate, error) {
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", opts.TTL)
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.SecureRequest == nil {
		opts.SecureRequest = directTLS
	}
	return &Gate{
		pin:        opts.PIN,
		secret:     opts.Secret,
		ttl:        opts.TTL,
		store:      opts.Store,
		cookieName: opts.CookieName,
		secure:     opts.SecureRequest,
		locks:      newKeyedMutex(),
	}, nil
}

// CheckPIN verifies candidate against the configured PIN.
func (g *Gate) CheckPIN(candidate string) error {
	if !Verify(candidate, g.pin) {
		return ErrInvalidPIN
	}
	return nil
}

// Issue creates a new authorized session and writes its cookie. A session the
// client already held is revoked first.
func (g *Gate) Issue(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if prev, ok := g.sessionID(r); ok {
		unlock := g.locks.Lock(prev)
		err := g.store.Delete(ctx, prev)
		unlock()
		if err != nil {
			return fmt.Errorf("revoke previous session: %w", err)
		}
	}

	id := uuid.NewString()
	unlock := g.locks.Lock(id)
	defer unlock()
	if err := g.store.Put(ctx, id, g.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    signValue(id, g.secret),
		Path:     "/",
		MaxAge:   int(g.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   g.secure(r),
	})

	log.FromContext(ctx).Info().
		Str(log.FieldEvent, "auth.session_issued").
		Str(log.FieldSessionID, shortID(id)).
		Msg("session issued")
	return nil
}

// Require returns the caller's session or ErrUnauthorized.
func (g *Gate) Require(r *http.Request) (Result, error) {
	id, ok := g.sessionID(r)
	if !ok {
		return Result{}, ErrUnauthorized
	}
	found, err := g.store.Exists(r.Context(), id)
	if err != nil {
		return Result{}, fmt.Errorf("lookup session: %w", err)
	}
	if !found {
		return Result{}, ErrUnauthorized
	}
	return Result{SessionID: id}, nil
}

// Clear revokes the caller's session, if any, and expires the cookie.
// Other clients are not affected.
func (g *Gate) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   g.secure(r),
	})

	id, ok := g.sessionID(r)
	if !ok {
		return nil
	}
	unlock := g.locks.Lock(id)
	defer unlock()
	if err := g.store.Delete(r.Context(), id); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	log.FromContext(r.Context()).Info().
		Str(log.FieldEvent, "auth.session_cleared").
		Str(log.FieldSessionID, shortID(id)).
		Msg("session cleared")
	return nil
}

// Active returns the number of live sessions.
func (g *Gate) Active(ctx context.Context) (int, error) {
	return g.store.Len(ctx)
}

func (g *Gate) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(g.cookieName)
	if err != nil {
		return "", false
	}
	return verifyValue(c.Value, g.secret)
}

func directTLS(r *http.Request) bool { return r.TLS != nil }

// shortID keeps log lines correlatable without exposing the full credential.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
