package coordinator

import "context"

// ShardTransport is the coordinator's pluggable RPC surface to a
// participant shard, per spec.md §6: "Transport is pluggable; requests
// must be idempotent keyed on (txn_id, coordinator_epoch)." The teacher
// repo wires its cluster RPC over grpc with generated stubs; those stubs
// are not available here, so the default implementation below frames
// requests over net.Conn with encoding/gob instead (see NetTransport).
type ShardTransport interface {
	Prepare(ctx context.Context, shardID uint16, req PrepareRequest) (PrepareResponse, error)
	Commit(ctx context.Context, shardID uint16, req CommitRequest) (Ack, error)
	Abort(ctx context.Context, shardID uint16, req CommitRequest) (Ack, error)
}

// LocalTransport dispatches directly to in-process Participants, skipping
// the network entirely. Used for single-process deployments and tests.
type LocalTransport struct {
	participants map[uint16]*Participant
}

// NewLocalTransport wires a LocalTransport against a shard-id ->
// Participant map.
func NewLocalTransport(participants map[uint16]*Participant) *LocalTransport {
	return &LocalTransport{participants: participants}
}

func (t *LocalTransport) Prepare(_ context.Context, shardID uint16, req PrepareRequest) (PrepareResponse, error) {
	p, ok := t.participants[shardID]
	if !ok {
		return PrepareResponse{}, errUnknownShard(shardID)
	}
	return p.Prepare(req), nil
}

func (t *LocalTransport) Commit(_ context.Context, shardID uint16, req CommitRequest) (Ack, error) {
	p, ok := t.participants[shardID]
	if !ok {
		return Ack{}, errUnknownShard(shardID)
	}
	return p.Commit(req), nil
}

func (t *LocalTransport) Abort(_ context.Context, shardID uint16, req CommitRequest) (Ack, error) {
	p, ok := t.participants[shardID]
	if !ok {
		return Ack{}, errUnknownShard(shardID)
	}
	return p.Abort(req), nil
}

var _ ShardTransport = (*LocalTransport)(nil)
