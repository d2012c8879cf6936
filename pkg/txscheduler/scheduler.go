// Package txscheduler implements the MVCC Scheduler (spec.md §4.4):
// drives any transaction through begin/execute/validate/commit, retrying
// on conflict per a configured retry.Policy.
package txscheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/supervm/txcore/pkg/config"
	"github.com/supervm/txcore/pkg/fastpath"
	"github.com/supervm/txcore/pkg/log"
	"github.com/supervm/txcore/pkg/metrics"
	"github.com/supervm/txcore/pkg/mvcc"
	"github.com/supervm/txcore/pkg/retry"
	"github.com/supervm/txcore/pkg/types"
)

// Scheduler drives transactions on the consensus lane: begin a fresh
// snapshot, run the op, commit, retry on conflict.
type Scheduler struct {
	store   *mvcc.Store
	metrics *metrics.Registry
	policy  retry.Policy
	logger  zerolog.Logger
}

// New wires a Scheduler against the MVCC store shared with the fast path.
func New(store *mvcc.Store, m *metrics.Registry, retryCfg config.RetryPolicy) *Scheduler {
	return &Scheduler{
		store:   store,
		metrics: m,
		policy: retry.Policy{
			MaxRetries:     retryCfg.MaxRetries,
			BaseDelay:      retryCfg.BaseDelay,
			MaxDelay:       retryCfg.MaxDelay,
			BackoffFactor:  retryCfg.BackoffFactor,
			JitterFraction: retryCfg.JitterFraction,
		},
		logger: log.WithComponent("txscheduler"),
	}
}

// ExecuteTxn runs op against a fresh MVCC snapshot each attempt, per the
// package's configured retry.Policy.
func (s *Scheduler) ExecuteTxn(ctx context.Context, tx types.Transaction, op fastpath.Op) (types.Receipt, error) {
	return s.ExecuteWithRetryPolicy(ctx, tx, op, s.policy)
}

// ExecuteWithRetryPolicy is ExecuteTxn with an explicit policy override,
// per spec.md §4.4.
func (s *Scheduler) ExecuteWithRetryPolicy(ctx context.Context, tx types.Transaction, op fastpath.Op, policy retry.Policy) (types.Receipt, error) {
	s.metrics.IncTxnStarted()
	start := time.Now()

	result, res, err := retry.Do(ctx, policy, func(attempt int) (types.Receipt, error) {
		if attempt > 0 {
			s.metrics.IncRetries()
		}
		txn := s.store.Begin()
		value, opErr := op(txn)
		if opErr != nil {
			_ = txn.Abort()
			return types.Receipt{Path: types.ConsensusPath, Success: false}, opErr
		}
		commitTS, commitErr := txn.Commit()
		if commitErr != nil {
			s.metrics.IncConflicts()
			return types.Receipt{Path: types.ConsensusPath, Success: false}, commitErr
		}
		_ = commitTS
		return types.Receipt{Path: types.ConsensusPath, Success: true, ReturnValue: value}, nil
	})

	if err != nil {
		s.metrics.IncTxnAborted()
		s.logger.Debug().Str("txn_id", tx.ID).Int("attempts", res.Attempts).Err(err).Msg("consensus transaction failed")
		return result, err
	}

	s.metrics.IncTxnCommitted()
	s.metrics.IncConsensusTotal()
	s.metrics.Latency.Observe(time.Since(start))
	return result, nil
}
