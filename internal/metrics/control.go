// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal counts command channel requests by action and result.
	// Unknown actions are folded into action="unknown".
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardcast_commands_total",
		Help: "Total number of commands handled, by action and result.",
	}, []string{"action", "result"})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardcast_login_attempts_total",
		Help: "Total number of PIN submissions, by result (success/failure/error).",
	}, []string{"result"})

	InputDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boardcast_input_dropped_total",
		Help: "Total number of input signals dropped because the dispatch queue was full.",
	})

	InputInjectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardcast_input_injected_total",
		Help: "Total number of input signals delivered to the host, by signal and result.",
	}, []string{"signal", "result"})

	ProcTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardcast_proc_terminate_total",
		Help: "Total number of signals sent to helper process groups, by signal and outcome.",
	}, []string{"signal", "outcome"})
)

var knownActions = map[string]struct{}{
	"next": {}, "prev": {}, "pause": {}, "space": {}, "blackout": {},
}

// IncCommand records a command outcome.
func IncCommand(action, result string) {
	if _, ok := knownActions[action]; !ok {
		action = "unknown"
	}
	CommandsTotal.WithLabelValues(action, result).Inc()
}

// IncLoginAttempt records a PIN submission outcome.
func IncLoginAttempt(result string) {
	LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// IncInputDropped records a signal dropped on a full queue.
func IncInputDropped() { InputDroppedTotal.Inc() }

// IncInputInjected records a delivered (or failed) input signal.
func IncInputInjected(signal, result string) {
	InputInjectedTotal.WithLabelValues(signal, result).Inc()
}

// IncProcTerminate records a signal sent to a helper process group.
func IncProcTerminate(signal, outcome string) {
	ProcTerminateTotal.WithLabelValues(signal, outcome).Inc()
}
