// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package presentation holds the process-wide presentation flags shared by
// every viewer.
package presentation

import "sync/atomic"

// State is the shared privacy (blackout) flag. The zero value is inactive and
// ready to use.
type State struct {
	privacy atomic.Bool
}

// PrivacyActive reports whether viewers should receive the placeholder.
func (s *State) PrivacyActive() bool {
	return s.privacy.Load()
}

// Toggle flips the flag atomically and returns the new value. Concurrent
// toggles never lose an update.
func (s *State) Toggle() bool {
	for {
		old := s.privacy.Load()
		if s.privacy.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// SetPrivacy forces the flag and returns the previous value.
func (s *State) SetPrivacy(active bool) bool {
	return s.privacy.Swap(active)
}
