// Package coordinator implements the Cross-Shard Coordinator (spec.md
// §4.8): two-phase commit across shards, with a Raft-elected leader
// holding the coordinator epoch used for idempotence across restarts.
package coordinator

import "github.com/supervm/txcore/pkg/types"

// Vote is a participant shard's response to Prepare.
type Vote int

const (
	VoteYes Vote = iota
	VoteNo
)

// Decision is the coordinator's final outcome for a transaction.
type Decision int

const (
	DecisionCommit Decision = iota
	DecisionAbort
)

// ObjectVersion is one read-set entry: the object id and the version
// observed at read time.
type ObjectVersion struct {
	ID      types.ObjectId
	Version types.Version
}

// KeyWrite is one write-set entry.
type KeyWrite struct {
	ID    types.ObjectId
	Value []byte
}

// PrepareRequest is sent by the coordinator to every participant shard,
// per spec.md §6's wire contract.
type PrepareRequest struct {
	TxnID            string
	ShardID          uint16
	ReadSet          []ObjectVersion
	WriteSet         []KeyWrite
	Timestamp        uint64
	CoordinatorEpoch uint64
	RetryCount       uint32
}

// PrepareResponse is a participant's vote.
type PrepareResponse struct {
	TxnID   string
	ShardID uint16
	Vote    Vote
	Reason  string // populated iff Vote == VoteNo
}

// CommitRequest carries the coordinator's final decision.
type CommitRequest struct {
	TxnID            string
	ShardID          uint16
	Decision         Decision
	CoordinatorEpoch uint64
	TxnCommitTS      uint64
}

// Ack is a participant's acknowledgement of a CommitRequest.
type Ack struct {
	TxnID   string
	ShardID uint16
}
