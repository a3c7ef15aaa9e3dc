// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package web renders the embedded login and viewer pages and serves their
// static assets.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// DefaultTitle is shown in the browser tab.
const DefaultTitle = "Secure Screen Share"

// MsgIncorrectPIN is shown after a rejected PIN.
const MsgIncorrectPIN = "Incorrect PIN. Please try again."

// LoginData feeds the login template.
type LoginData struct {
	Title     string
	Error     string
	PINLength int
}

// ViewerData feeds the viewer template.
type ViewerData struct {
	Title    string
	Blackout bool
}

// Pages holds the parsed templates.
type Pages struct {
	title     string
	pinLength int
	login     *template.Template
	viewer    *template.Template
	bufPool   sync.Pool
}

// NewPages parses the embedded templates. pinLength caps the login input; 0
// falls back to 4.
func NewPages(title string, pinLength int) (*Pages, error) {
	if title == "" {
		title = DefaultTitle
	}
	if pinLength <= 0 {
		pinLength = 4
	}
	login, err := template.ParseFS(templateFS, "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("parse login template: %w", err)
	}
	viewer, err := template.ParseFS(templateFS, "templates/viewer.html")
	if err != nil {
		return nil, fmt.Errorf("parse viewer template: %w", err)
	}
	return &Pages{
		title:     title,
		pinLength: pinLength,
		login:     login,
		viewer:    viewer,
		bufPool:   sync.Pool{New: func() any { return new(bytes.Buffer) }},
	}, nil
}

// Login writes the PIN form with status code. errMsg may be empty.
func (p *Pages) Login(w http.ResponseWriter, status int, errMsg string) error {
	return p.render(w, status, p.login, LoginData{Title: p.title, Error: errMsg, PINLength: p.pinLength})
}

// Viewer writes the stream page.
func (p *Pages) Viewer(w http.ResponseWriter, blackout bool) error {
	return p.render(w, http.StatusOK, p.viewer, ViewerData{Title: p.title, Blackout: blackout})
}

// render executes into a buffer first so a template error never leaves a
// half-written page.
func (p *Pages) render(w http.ResponseWriter, status int, t *template.Template, data any) error {
	buf := p.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer p.bufPool.Put(buf)

	if err := t.Execute(buf, data); err != nil {
		return fmt.Errorf("render %s: %w", t.Name(), err)
	}
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// StaticHandler serves the embedded assets. Mount it under /static/ with the
// prefix stripped.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "static assets not available", http.StatusInternalServerError)
		})
	}
	fileServer := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path == "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		fileServer.ServeHTTP(w, r)
	})
}
