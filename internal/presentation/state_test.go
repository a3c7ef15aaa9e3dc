// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package presentation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_InitiallyInactive(t *testing.T) {
	var s State
	assert.False(t, s.PrivacyActive())
}

func TestState_DoubleToggleRestores(t *testing.T) {
	var s State
	assert.True(t, s.Toggle())
	assert.True(t, s.PrivacyActive())
	assert.False(t, s.Toggle())
	assert.False(t, s.PrivacyActive())
}

func TestState_ConcurrentTogglesAreNotLost(t *testing.T) {
	var s State
	var wg sync.WaitGroup
	const n = 1000 // even
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Toggle()
		}()
	}
	wg.Wait()
	assert.False(t, s.PrivacyActive(), "an even number of toggles returns to the start")
}

func TestState_SetPrivacy(t *testing.T) {
	var s State
	assert.False(t, s.SetPrivacy(true))
	assert.True(t, s.SetPrivacy(true))
	assert.True(t, s.PrivacyActive())
}
