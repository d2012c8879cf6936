package coordinator

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/supervm/txcore/pkg/config"
	"github.com/supervm/txcore/pkg/log"
	"github.com/supervm/txcore/pkg/metrics"
	"github.com/supervm/txcore/pkg/types"
)

// ShardPlan is one participant shard's slice of a cross-shard
// transaction: the objects it must revalidate and the writes it must
// apply, per spec.md §4.8.
type ShardPlan struct {
	ShardID  uint16
	ReadSet  []ObjectVersion
	WriteSet []KeyWrite
}

// Partition maps an object id to its owning shard, a stable hash mod the
// configured shard count. It never needs coordination: any node can
// recompute it from the object id alone.
func Partition(id types.ObjectId, numShards uint16) uint16 {
	if numShards == 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write(id[:])
	return uint16(h.Sum32() % uint32(numShards))
}

// Coordinator drives two-phase commit across shard Participants reachable
// through a ShardTransport, per spec.md §4.8: prepare every shard in
// parallel, commit only if every vote is YES, otherwise abort everywhere.
type Coordinator struct {
	transport ShardTransport
	epoch     *EpochAuthority
	metrics   *metrics.Registry
	cfg       config.CoordinatorConfig
	logger    zerolog.Logger
}

// New wires a Coordinator. epoch may be nil, in which case
// CoordinatorEpoch is always sent as 0 (single-process / test use).
func New(transport ShardTransport, epoch *EpochAuthority, m *metrics.Registry, cfg config.CoordinatorConfig) *Coordinator {
	return &Coordinator{
		transport: transport,
		epoch:     epoch,
		metrics:   m,
		cfg:       cfg,
		logger:    log.WithComponent("coordinator"),
	}
}

func (c *Coordinator) currentEpoch() uint64 {
	if c.epoch == nil {
		return 0
	}
	return c.epoch.CurrentEpoch()
}

// Execute runs the full prepare/commit(or abort) protocol for txnID across
// the given per-shard plans. It returns the final Decision and an error
// only when the prepare phase could not complete (an empty plan, or the
// configured timeout expiring before every vote arrived, in which case
// Abort is still broadcast). A decision broadcast that exhausts its
// retries is logged, not returned; a clean abort due to a NO vote is
// not an error, it's DecisionAbort with a nil error.
func (c *Coordinator) Execute(ctx context.Context, txnID string, commitTS uint64, plans []ShardPlan) (Decision, error) {
	if len(plans) == 0 {
		return DecisionAbort, fmt.Errorf("coordinator: empty shard plan for txn %s", txnID)
	}

	epoch := c.currentEpoch()
	decision, err := c.prepareAll(ctx, txnID, epoch, plans)
	if err != nil {
		c.metrics.IncTxnAborted()
		c.broadcast(ctx, txnID, epoch, commitTS, DecisionAbort, plans)
		return DecisionAbort, err
	}

	if decision == DecisionCommit {
		c.metrics.IncTxnCommitted()
	} else {
		c.metrics.IncTxnAborted()
	}

	c.broadcast(ctx, txnID, epoch, commitTS, decision, plans)
	return decision, nil
}

// prepareAll sends PrepareRequest to every shard concurrently and waits
// for all votes (or the coordinator's configured timeout). A single NO
// vote or a single unreachable shard aborts the whole transaction.
func (c *Coordinator) prepareAll(ctx context.Context, txnID string, epoch uint64, plans []ShardPlan) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	type voteResult struct {
		shardID uint16
		vote    Vote
		err     error
	}
	results := make(chan voteResult, len(plans))

	var wg sync.WaitGroup
	for _, plan := range plans {
		wg.Add(1)
		go func(plan ShardPlan) {
			defer wg.Done()
			req := PrepareRequest{
				TxnID:            txnID,
				ShardID:          plan.ShardID,
				ReadSet:          plan.ReadSet,
				WriteSet:         plan.WriteSet,
				CoordinatorEpoch: epoch,
			}
			resp, err := c.transport.Prepare(ctx, plan.ShardID, req)
			if err != nil {
				results <- voteResult{shardID: plan.ShardID, err: err}
				return
			}
			results <- voteResult{shardID: plan.ShardID, vote: resp.Vote}
		}(plan)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	decision := DecisionCommit
	var firstErr error
	for res := range results {
		if res.err != nil {
			c.logger.Warn().Str("txn_id", txnID).Uint16("shard_id", res.shardID).Err(res.err).Msg("prepare unreachable, aborting")
			decision = DecisionAbort
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		if res.vote == VoteNo {
			c.logger.Info().Str("txn_id", txnID).Uint16("shard_id", res.shardID).Msg("shard voted no, aborting")
			decision = DecisionAbort
		}
	}

	if ctx.Err() != nil {
		return DecisionAbort, &types.CoordinatorError{Kind: types.CoordinatorPrepareTimeout, Err: ctx.Err()}
	}
	return decision, nil
}

// broadcast sends the final decision to every shard, retrying
// unreachable shards up to cfg.MaxRetries times. Commit/Abort are
// idempotent on the participant side, so repeated delivery is safe.
func (c *Coordinator) broadcast(ctx context.Context, txnID string, epoch, commitTS uint64, decision Decision, plans []ShardPlan) {
	var wg sync.WaitGroup
	for _, plan := range plans {
		wg.Add(1)
		go func(shardID uint16) {
			defer wg.Done()
			req := CommitRequest{
				TxnID:            txnID,
				ShardID:          shardID,
				Decision:         decision,
				CoordinatorEpoch: epoch,
				TxnCommitTS:      commitTS,
			}
			c.sendDecisionWithRetry(ctx, shardID, req)
		}(plan.ShardID)
	}
	wg.Wait()
}

func (c *Coordinator) sendDecisionWithRetry(ctx context.Context, shardID uint16, req CommitRequest) {
	var err error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		var sendErr error
		if req.Decision == DecisionCommit {
			_, sendErr = c.transport.Commit(ctx, shardID, req)
		} else {
			_, sendErr = c.transport.Abort(ctx, shardID, req)
		}
		if sendErr == nil {
			return
		}
		err = sendErr
	}
	c.logger.Error().Str("txn_id", req.TxnID).Uint16("shard_id", shardID).Err(err).
		Msg("decision broadcast exhausted retries, shard may be stuck holding an intent lock")
}
