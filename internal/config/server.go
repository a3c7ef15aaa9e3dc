// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., "0.0.0.0:5000")
	ListenAddr string

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// It stays 0 because /video_feed responses never end on their own.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration

	// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header's keys and values
	MaxHeaderBytes int

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration
}

const (
	defaultReadTimeout     = 60 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultMaxHeaderBytes  = 1 << 20 // 1 MB
	defaultShutdownTimeout = 15 * time.Second
	minShutdownTimeout     = 3 * time.Second
)

// ServerConfigFor derives the listener configuration from the resolved app config.
func ServerConfigFor(cfg AppConfig) (ServerConfig, error) {
	listen := strings.TrimSpace(cfg.Server.Listen)
	if listen == "" {
		listen = DefaultListenAddr
	}
	if bind := strings.TrimSpace(cfg.Server.BindInterface); bind != "" {
		bound, err := BindListenAddr(listen, bind)
		if err != nil {
			return ServerConfig{}, err
		}
		listen = bound
	}

	shutdown := cfg.Server.ShutdownTimeout
	if shutdown < minShutdownTimeout {
		shutdown = minShutdownTimeout
	}
	maxHeader := cfg.Server.MaxHeaderBytes
	if maxHeader <= 0 {
		maxHeader = defaultMaxHeaderBytes
	}

	return ServerConfig{
		ListenAddr:      listen,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    0,
		IdleTimeout:     cfg.Server.IdleTimeout,
		MaxHeaderBytes:  maxHeader,
		ShutdownTimeout: shutdown,
	}, nil
}

// BindListenAddr replaces the host part of a listen address when it is of the
// form ":PORT" or "0.0.0.0:PORT". Explicit hosts are left untouched.
// Supports "if:<name>" to bind to the first non-loopback IPv4 of an interface.
func BindListenAddr(listenAddr, bind string) (string, error) {
	if bind == "" {
		return listenAddr, nil
	}

	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "", fmt.Errorf("parse listen address %q: %w", listenAddr, err)
	}
	if host != "" && host != "0.0.0.0" && host != "::" {
		return listenAddr, nil
	}

	if !strings.HasPrefix(bind, "if:") {
		return net.JoinHostPort(bind, port), nil
	}

	ifName := strings.TrimPrefix(bind, "if:")
	iface, err := net.InterfaceByName(ifName)
	if err != nil {
		return "", fmt.Errorf("resolve interface %q: %w", ifName, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", fmt.Errorf("list addrs for %q: %w", ifName, err)
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() || ip.To4() == nil {
			continue
		}
		return net.JoinHostPort(ip.String(), port), nil
	}
	return "", fmt.Errorf("no suitable IPv4 on interface %q", ifName)
}
