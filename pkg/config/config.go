// Package config loads the execution core's tunables from a single YAML
// manifest, the way cmd/warren's apply.go loads resource manifests in the
// teacher repo — one struct per component, yaml-tagged, with the defaults
// spec.md names inline.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MVCCConfig configures the MVCC store's GC and commit-latch striping.
type MVCCConfig struct {
	MaxVersionsPerKey int           `yaml:"gc_max_versions_per_key"`
	VersionTTL        time.Duration `yaml:"gc_version_ttl"`
	AutoGCInterval    time.Duration `yaml:"gc_auto_interval"` // 0 disables the background sweeper
	CommitLatchStripes int          `yaml:"commit_latch_stripes"`
}

// RetryPolicy configures exponential backoff with jitter for any component
// that retries a conflicting or failed operation.
type RetryPolicy struct {
	MaxRetries     int           `yaml:"max_retries"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	BackoffFactor  float64       `yaml:"backoff_factor"`
	JitterFraction float64       `yaml:"jitter_fraction"`
}

// FastPathConfig configures the single-threaded fast path executor.
type FastPathConfig struct {
	CongestionThreshold uint64  `yaml:"congestion_threshold"`
	JitterFraction      float64 `yaml:"jitter_fraction"`
	HotKeyTopK          int     `yaml:"hot_key_top_k"`
}

// AdaptiveRouterConfig configures the fast/consensus ratio controller.
type AdaptiveRouterConfig struct {
	InitialFastRatio float64 `yaml:"initial_fast_ratio"`
	MinFastRatio     float64 `yaml:"min_fast_ratio"`
	MaxFastRatio     float64 `yaml:"max_fast_ratio"`
	WindowSize       int     `yaml:"window_size"`
	UpdateEvery      int     `yaml:"update_every"`
	HighThreshold    float64 `yaml:"high_threshold"`
	LowThreshold     float64 `yaml:"low_threshold"`
	AdjustStep       float64 `yaml:"adjust_step"`
}

// CoordinatorConfig configures the cross-shard 2PC coordinator.
type CoordinatorConfig struct {
	NumShards      uint16            `yaml:"num_shards"`
	ShardEndpoints map[uint16]string `yaml:"shard_endpoints"`
	TimeoutMillis  int64             `yaml:"timeout_ms"`
	LocalShardID   uint16            `yaml:"local_shard_id"`
	MaxRetries     int               `yaml:"max_retries"`
}

// Timeout returns TimeoutMillis as a time.Duration.
func (c CoordinatorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// BatchExecutorConfig configures the fast→consensus fallback whitelist.
type BatchExecutorConfig struct {
	FallbackEnabled   bool     `yaml:"fallback_enabled"`
	FallbackWhitelist []string `yaml:"fallback_whitelist"`
}

// Config is the top-level manifest for the execution core.
type Config struct {
	MVCC      MVCCConfig           `yaml:"mvcc"`
	Retry     RetryPolicy          `yaml:"retry"`
	FastPath  FastPathConfig       `yaml:"fast_path"`
	Adaptive  AdaptiveRouterConfig `yaml:"adaptive_router"`
	Coordinator CoordinatorConfig  `yaml:"coordinator"`
	Batch     BatchExecutorConfig  `yaml:"batch_executor"`
}

// Default returns the configuration with every spec.md-documented default
// applied.
func Default() Config {
	return Config{
		MVCC: MVCCConfig{
			MaxVersionsPerKey:  100,
			VersionTTL:         0,
			AutoGCInterval:     0,
			CommitLatchStripes: 32,
		},
		Retry: RetryPolicy{
			MaxRetries:     5,
			BaseDelay:      1 * time.Millisecond,
			MaxDelay:       500 * time.Millisecond,
			BackoffFactor:  2.0,
			JitterFraction: 0.1,
		},
		FastPath: FastPathConfig{
			CongestionThreshold: 1000,
			JitterFraction:      0.1,
			HotKeyTopK:          256,
		},
		Adaptive: AdaptiveRouterConfig{
			InitialFastRatio: 0.8,
			MinFastRatio:     0.1,
			MaxFastRatio:     0.95,
			WindowSize:       200,
			UpdateEvery:      50,
			HighThreshold:    0.25,
			LowThreshold:     0.05,
			AdjustStep:       0.05,
		},
		Coordinator: CoordinatorConfig{
			NumShards:     1,
			TimeoutMillis: 2000,
			MaxRetries:    3,
		},
		Batch: BatchExecutorConfig{
			FallbackEnabled:   true,
			FallbackWhitelist: []string{"not owner", "object deleted"},
		},
	}
}

// Load reads a YAML manifest from path and overlays it on top of Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
