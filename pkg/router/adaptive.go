package router

import (
	"sync"

	"github.com/supervm/txcore/pkg/config"
)

// AdaptiveRouter observes a rolling window of success/conflict outcomes
// and steps target_fast_ratio toward less fast-path admission when
// conflicts are high, or more when they are low, per spec.md §4.6.
type AdaptiveRouter struct {
	mu sync.Mutex

	cfg   config.AdaptiveRouterConfig
	ratio float64

	window    []bool // true = conflict, oldest first
	sinceLast int
}

// NewAdaptiveRouter constructs a controller starting at
// cfg.InitialFastRatio.
func NewAdaptiveRouter(cfg config.AdaptiveRouterConfig) *AdaptiveRouter {
	return &AdaptiveRouter{
		cfg:   cfg,
		ratio: cfg.InitialFastRatio,
	}
}

// FastRatio returns the current target fast ratio.
func (a *AdaptiveRouter) FastRatio() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ratio
}

// Observe records one transaction outcome (conflict or not) and, every
// UpdateEvery observations, steps the ratio by at most AdjustStep toward
// the direction the conflict rate implies, clamped to
// [MinFastRatio, MaxFastRatio], per spec.md §8 invariant 6.
func (a *AdaptiveRouter) Observe(conflicted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.window = append(a.window, conflicted)
	if len(a.window) > a.cfg.WindowSize {
		a.window = a.window[len(a.window)-a.cfg.WindowSize:]
	}

	a.sinceLast++
	if a.cfg.UpdateEvery <= 0 || a.sinceLast < a.cfg.UpdateEvery {
		return
	}
	a.sinceLast = 0

	if len(a.window) == 0 {
		return
	}
	var conflicts int
	for _, c := range a.window {
		if c {
			conflicts++
		}
	}
	conflictRate := float64(conflicts) / float64(len(a.window))

	switch {
	case conflictRate > a.cfg.HighThreshold:
		a.ratio -= a.cfg.AdjustStep
	case conflictRate < a.cfg.LowThreshold:
		a.ratio += a.cfg.AdjustStep
	}

	if a.ratio < a.cfg.MinFastRatio {
		a.ratio = a.cfg.MinFastRatio
	}
	if a.ratio > a.cfg.MaxFastRatio {
		a.ratio = a.cfg.MaxFastRatio
	}
}
