package fastpath

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/supervm/txcore/pkg/types"
)

// Congested reports whether queue_length has reached congestion_threshold,
// per spec.md §4.3's binary gate.
func (e *Executor) Congested() bool {
	threshold := int64(e.cfg.CongestionThreshold)
	if threshold <= 0 {
		return false
	}
	return e.queueLength.Load() >= threshold
}

// congestionMultiplier is base_delay's continuous multiplier, clamped to
// [1,10], as a function of queue_length/threshold.
func (e *Executor) congestionMultiplier() float64 {
	threshold := float64(e.cfg.CongestionThreshold)
	if threshold <= 0 {
		return 1
	}
	ratio := float64(e.queueLength.Load()) / threshold
	if ratio < 1 {
		return 1
	}
	if ratio > 10 {
		return 10
	}
	return ratio
}

// congestionBackoff computes base_delay * congestion_multiplier, jittered
// by +/-jitter_fraction, per spec.md §4.3.
func (e *Executor) congestionBackoff(base time.Duration) time.Duration {
	scaled := float64(base) * e.congestionMultiplier()
	if e.cfg.JitterFraction <= 0 {
		return time.Duration(scaled)
	}
	jitter := 1 + (rand.Float64()*2-1)*e.cfg.JitterFraction
	return time.Duration(scaled * jitter)
}

// ExecuteWithCongestionControl retries a conflicting transaction up to
// maxRetries times, backing off proportionally to queue pressure. When
// the executor is already congested, a Retryable error short-circuits
// into ErrCongested instead of spinning, per spec.md §4.3: "short-circuits
// new Retryable errors into fallback rather than spinning."
func (e *Executor) ExecuteWithCongestionControl(ctx context.Context, tx types.Transaction, op Op, maxRetries int) (types.Receipt, error) {
	var lastReceipt types.Receipt
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		receipt, err := e.Execute(tx, op)
		if err == nil {
			return receipt, nil
		}
		lastReceipt, lastErr = receipt, err

		var conflictErr *types.ConflictError
		if !errors.As(err, &conflictErr) {
			return lastReceipt, lastErr
		}

		if e.Congested() {
			return types.Receipt{Path: types.FastPath, Success: false, FallbackToConsensus: true, ErrorKind: "congested"}, types.ErrCongested
		}

		if attempt == maxRetries {
			break
		}

		delay := e.congestionBackoff(time.Millisecond)
		select {
		case <-ctx.Done():
			return lastReceipt, ctx.Err()
		case <-time.After(delay):
		}
		e.metrics.IncRetries()
	}
	return lastReceipt, lastErr
}
