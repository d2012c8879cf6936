// Package fastpath implements the minimum-latency commit lane for
// single-owner, non-contended transactions (spec.md §4.3): a
// single-threaded cooperative dispatch with no shared mutable state on
// the hot path beyond atomics, congestion control, and hot-key tracking.
package fastpath

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/supervm/txcore/pkg/config"
	"github.com/supervm/txcore/pkg/log"
	"github.com/supervm/txcore/pkg/metrics"
	"github.com/supervm/txcore/pkg/mvcc"
	"github.com/supervm/txcore/pkg/ownership"
	"github.com/supervm/txcore/pkg/retry"
	"github.com/supervm/txcore/pkg/types"
)

// Op is the user operation executed against a fresh MVCC transaction.
type Op func(txn *mvcc.Txn) (any, error)

// Executor runs transactions on the fast path.
type Executor struct {
	registry *ownership.Registry
	store    *mvcc.Store
	metrics  *metrics.Registry
	cfg      config.FastPathConfig

	queueLength atomic.Int64
	logger      zerolog.Logger
}

// NewExecutor wires an Executor against the shared ownership registry and
// MVCC store for one shard.
func NewExecutor(registry *ownership.Registry, store *mvcc.Store, m *metrics.Registry, cfg config.FastPathConfig) *Executor {
	return &Executor{
		registry: registry,
		store:    store,
		metrics:  m,
		cfg:      cfg,
		logger:   log.WithComponent("fastpath"),
	}
}

// QueueLength reports the executor's current queue depth.
func (e *Executor) QueueLength() int64 { return e.queueLength.Load() }

// SetQueueLength overrides the tracked queue depth, for callers driving
// their own admission queue (or simulating load in a bench) instead of
// relying on per-Execute increments.
func (e *Executor) SetQueueLength(n int64) { e.queueLength.Store(n) }

// verifyOwnership checks every object in tx is Owned by tx.From and not
// deleted, per spec.md §4.3's algorithm and §8 invariant 3.
func (e *Executor) verifyOwnership(tx types.Transaction) error {
	for _, objID := range tx.Objects {
		meta, err := e.registry.Lookup(objID)
		if err != nil {
			return fmt.Errorf("fast path: object %x: %w", objID, types.ErrObjectNotFound)
		}
		if meta.Ownership != types.OwnershipOwned || meta.Owner != tx.From {
			return fmt.Errorf("fast path: object %x: %w", objID, types.ErrNotOwner)
		}
		e.metrics.HotKeys.Record(string(objID[:]))
	}
	return nil
}

// Execute verifies ownership, runs op against a fresh MVCC transaction,
// and commits. No retry, no congestion handling — the building block the
// other Execute* variants wrap.
func (e *Executor) Execute(tx types.Transaction, op Op) (types.Receipt, error) {
	e.queueLength.Add(1)
	defer e.queueLength.Add(-1)

	start := time.Now()
	e.metrics.IncTxnStarted()

	if err := e.verifyOwnership(tx); err != nil {
		e.metrics.IncTxnAborted()
		return types.Receipt{Path: types.FastPath, Success: false, ErrorKind: classifyErrorKind(err)}, err
	}

	txn := e.store.Begin()
	result, err := op(txn)
	if err != nil {
		_ = txn.Abort()
		e.metrics.IncTxnAborted()
		return types.Receipt{Path: types.FastPath, Success: false, ErrorKind: classifyErrorKind(err)}, err
	}

	if _, err := txn.Commit(); err != nil {
		e.metrics.IncTxnAborted()
		e.metrics.IncConflicts()
		return types.Receipt{Path: types.FastPath, Success: false, ErrorKind: classifyErrorKind(err)}, err
	}

	e.metrics.IncTxnCommitted()
	e.metrics.IncFastTotal()
	e.metrics.Latency.Observe(time.Since(start))
	return types.Receipt{Path: types.FastPath, Success: true, ReturnValue: result}, nil
}

// ExecuteWithRetry retries on MVCC conflicts up to maxRetries times with
// exponential backoff and jitter, per spec.md §4.4's retry bound.
func (e *Executor) ExecuteWithRetry(ctx context.Context, tx types.Transaction, op Op, maxRetries int) (types.Receipt, error) {
	policy := retry.Policy{
		MaxRetries:     maxRetries,
		BaseDelay:      time.Millisecond,
		MaxDelay:       500 * time.Millisecond,
		BackoffFactor:  2,
		JitterFraction: e.cfg.JitterFraction,
	}

	receipt, result, err := retry.Do(ctx, policy, func(attempt int) (types.Receipt, error) {
		if attempt > 0 {
			e.metrics.IncRetries()
		}
		r, execErr := e.Execute(tx, op)
		return r, execErr
	})
	if result.Conflicts > 0 {
		e.logger.Debug().Str("txn_id", tx.ID).Int("conflicts", result.Conflicts).Msg("fast path retried")
	}
	return receipt, err
}

func classifyErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	default:
		return errorKind(err)
	}
}
