package coordinator

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/supervm/txcore/pkg/log"
	"github.com/supervm/txcore/pkg/mvcc"
	"github.com/supervm/txcore/pkg/ownership"
)

// intent is one shard-local in-flight 2PC transaction, held between a YES
// vote and the matching Commit/Abort.
type intent struct {
	req PrepareRequest
	txn *mvcc.Txn
}

// Participant is the shard-local 2PC endpoint: it holds intent locks
// between Prepare and Commit/Abort, and applies or discards them against
// the shard's Ownership Registry and MVCC Store.
type Participant struct {
	shardID  uint16
	registry *ownership.Registry
	store    *mvcc.Store

	mu      sync.Mutex
	intents map[string]*intent // keyed by txn_id, one live intent per txn
	acked   map[string]Decision // keyed by txn_id, for idempotent replay

	logger zerolog.Logger
}

// NewParticipant wires a Participant against the shard's Ownership
// Registry and MVCC Store.
func NewParticipant(shardID uint16, registry *ownership.Registry, store *mvcc.Store) *Participant {
	return &Participant{
		shardID:  shardID,
		registry: registry,
		store:    store,
		intents:  make(map[string]*intent),
		acked:    make(map[string]Decision),
		logger:   log.WithComponent("coordinator-participant"),
	}
}

// Prepare acquires an intent lock on req's write-set and revalidates the
// read-set against current ownership and MVCC state, per spec.md §4.8's
// participant-side protocol. A YES vote durably holds the open MVCC
// transaction until Commit or Abort arrives.
func (p *Participant) Prepare(req PrepareRequest) PrepareResponse {
	p.mu.Lock()
	defer p.mu.Unlock()

	if decision, ok := p.acked[req.TxnID]; ok {
		// Already decided in a prior incarnation of this coordinator epoch;
		// re-state the prior vote rather than re-validating, for idempotence.
		if decision == DecisionCommit {
			return PrepareResponse{TxnID: req.TxnID, ShardID: p.shardID, Vote: VoteYes}
		}
		return PrepareResponse{TxnID: req.TxnID, ShardID: p.shardID, Vote: VoteNo, Reason: "already aborted"}
	}
	if _, inFlight := p.intents[req.TxnID]; inFlight {
		return PrepareResponse{TxnID: req.TxnID, ShardID: p.shardID, Vote: VoteYes}
	}

	for _, rs := range req.ReadSet {
		meta, err := p.registry.Lookup(rs.ID)
		if err != nil {
			return PrepareResponse{TxnID: req.TxnID, ShardID: p.shardID, Vote: VoteNo, Reason: err.Error()}
		}
		if meta.Version != rs.Version {
			return PrepareResponse{TxnID: req.TxnID, ShardID: p.shardID, Vote: VoteNo, Reason: "stale read version"}
		}
	}

	txn := p.store.Begin()
	for _, w := range req.WriteSet {
		if err := txn.Write(w.ID[:], w.Value); err != nil {
			_ = txn.Abort()
			return PrepareResponse{TxnID: req.TxnID, ShardID: p.shardID, Vote: VoteNo, Reason: err.Error()}
		}
	}

	p.intents[req.TxnID] = &intent{req: req, txn: txn}
	return PrepareResponse{TxnID: req.TxnID, ShardID: p.shardID, Vote: VoteYes}
}

// Commit applies an already-prepared intent's writes and releases the
// lock. Idempotent: a repeated Commit for an already-applied txn_id just
// re-acknowledges.
func (p *Participant) Commit(req CommitRequest) Ack {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.acked[req.TxnID]; ok {
		return Ack{TxnID: req.TxnID, ShardID: p.shardID}
	}

	in, ok := p.intents[req.TxnID]
	if ok {
		if _, err := in.txn.Commit(); err != nil {
			p.logger.Error().Str("txn_id", req.TxnID).Err(err).Msg("participant commit failed after YES vote")
		}
		delete(p.intents, req.TxnID)
	}
	p.acked[req.TxnID] = DecisionCommit
	return Ack{TxnID: req.TxnID, ShardID: p.shardID}
}

// Abort discards a prepared intent and releases its lock. Idempotent.
func (p *Participant) Abort(req CommitRequest) Ack {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.acked[req.TxnID]; ok {
		return Ack{TxnID: req.TxnID, ShardID: p.shardID}
	}

	if in, ok := p.intents[req.TxnID]; ok {
		_ = in.txn.Abort()
		delete(p.intents, req.TxnID)
	}
	p.acked[req.TxnID] = DecisionAbort
	return Ack{TxnID: req.TxnID, ShardID: p.shardID}
}
