// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ManuGH/boardcast/internal/config"
	"github.com/ManuGH/boardcast/internal/log"
	"github.com/rs/zerolog"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// PerformStartupChecks validates the runtime environment before the server starts.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkListenAddr(logger, "api", cfg.Server.Listen); err != nil {
		return err
	}
	if cfg.Metrics.Listen != "" {
		if err := checkListenAddr(logger, "metrics", cfg.Metrics.Listen); err != nil {
			return err
		}
	}
	if err := checkTLS(logger, cfg.Server.TLSCert, cfg.Server.TLSKey); err != nil {
		return err
	}
	if err := checkInputBackend(logger, cfg.Input); err != nil {
		return err
	}

	if strings.EqualFold(cfg.Session.Backend, "memory") {
		logger.Debug().Msg("sessions are held in memory and do not survive a restart")
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkListenAddr(logger zerolog.Logger, name, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid %s listen address %q: %w", name, addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid %s listen port %q in %q", name, port, addr)
	}
	logger.Debug().Str("listener", name).Str("addr", addr).Msg("listen address is valid")
	return nil
}

func checkTLS(logger zerolog.Logger, cert, key string) error {
	if cert == "" && key == "" {
		return nil
	}
	if cert == "" || key == "" {
		return errors.New("TLS configuration requires both cert and key")
	}
	if err := checkFileReadable(cert); err != nil {
		return fmt.Errorf("TLS cert error: %w", err)
	}
	if err := checkFileReadable(key); err != nil {
		return fmt.Errorf("TLS key error: %w", err)
	}
	logger.Debug().Msg("TLS configuration is valid")
	return nil
}

func checkInputBackend(logger zerolog.Logger, cfg config.InputConfig) error {
	if cfg.Backend != "xdotool" {
		return nil
	}
	bin := strings.TrimSpace(cfg.XdotoolPath)
	if bin == "" {
		bin = "xdotool"
	}
	if _, err := lookPath(bin); err != nil {
		return fmt.Errorf("xdotool binary not found (%s): %w", bin, err)
	}
	logger.Debug().Str("xdotool", bin).Msg("input backend available")
	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return err
	}
	return f.Close()
}
