// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts helper processes in their own process group so a
// hung helper and everything it spawned can be reaped together.
package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/boardcast/internal/metrics"
)

// Set configures the command to start in a new process group.
// Mandatory for Kill and Terminate to reach child processes.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Kill sends sig to the process group of cmd. A nil or already exited
// command is not an error.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return kill(cmd, sig)
}

// Terminate stops a process group: SIGTERM, then SIGKILL once grace elapses.
// waitCh must deliver the result of cmd.Wait; Terminate always drains it and
// returns that result.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	metrics.IncProcTerminate("SIGTERM", outcome(Kill(cmd, syscall.SIGTERM)))

	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
	}

	metrics.IncProcTerminate("SIGKILL", outcome(Kill(cmd, syscall.SIGKILL)))
	return <-waitCh
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, syscall.ESRCH), errors.Is(err, os.ErrProcessDone):
		return "esrch"
	default:
		return "error"
	}
}
