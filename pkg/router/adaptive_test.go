package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/supervm/txcore/pkg/config"
)

func testAdaptiveConfig() config.AdaptiveRouterConfig {
	return config.AdaptiveRouterConfig{
		InitialFastRatio: 0.8,
		MinFastRatio:     0.1,
		MaxFastRatio:     0.95,
		WindowSize:       10,
		UpdateEvery:      5,
		HighThreshold:    0.25,
		LowThreshold:     0.05,
		AdjustStep:       0.05,
	}
}

func TestAdaptiveRouterDecreasesOnHighConflictRate(t *testing.T) {
	a := NewAdaptiveRouter(testAdaptiveConfig())
	for i := 0; i < 5; i++ {
		a.Observe(true) // 100% conflict rate, well above HighThreshold
	}
	assert.InDelta(t, 0.75, a.FastRatio(), 1e-9)
}

func TestAdaptiveRouterIncreasesOnLowConflictRate(t *testing.T) {
	a := NewAdaptiveRouter(testAdaptiveConfig())
	for i := 0; i < 5; i++ {
		a.Observe(false) // 0% conflict rate, below LowThreshold
	}
	assert.InDelta(t, 0.85, a.FastRatio(), 1e-9)
}

func TestAdaptiveRouterStaysWithinBounds(t *testing.T) {
	a := NewAdaptiveRouter(testAdaptiveConfig())
	for round := 0; round < 50; round++ {
		for i := 0; i < 5; i++ {
			a.Observe(true)
		}
		assert.GreaterOrEqual(t, a.FastRatio(), a.cfg.MinFastRatio)
		assert.LessOrEqual(t, a.FastRatio(), a.cfg.MaxFastRatio)
	}
	assert.Equal(t, 0.1, a.FastRatio())
}

func TestAdaptiveRouterChangesAtMostOneStepPerUpdate(t *testing.T) {
	a := NewAdaptiveRouter(testAdaptiveConfig())
	before := a.FastRatio()
	for i := 0; i < 5; i++ {
		a.Observe(true)
	}
	after := a.FastRatio()
	assert.InDelta(t, testAdaptiveConfig().AdjustStep, before-after, 1e-9)
}
