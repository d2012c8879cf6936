package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supervm/txcore/pkg/config"
	"github.com/supervm/txcore/pkg/metrics"
	"github.com/supervm/txcore/pkg/mvcc"
	"github.com/supervm/txcore/pkg/ownership"
	"github.com/supervm/txcore/pkg/types"
)

func objID(b byte) types.ObjectId {
	var id types.ObjectId
	id[0] = b
	return id
}

func registerShared(t *testing.T, reg *ownership.Registry, id types.ObjectId) {
	t.Helper()
	require.NoError(t, reg.Register(types.ObjectMetadata{ID: id, Version: 1, Ownership: types.OwnershipShared}))
}

func twoShardCoordinator(t *testing.T) (*Coordinator, *ownership.Registry, *ownership.Registry) {
	t.Helper()
	regA := ownership.New()
	regB := ownership.New()
	storeA := mvcc.NewStore(4, 100)
	storeB := mvcc.NewStore(4, 100)

	pA := NewParticipant(0, regA, storeA)
	pB := NewParticipant(1, regB, storeB)

	transport := NewLocalTransport(map[uint16]*Participant{0: pA, 1: pB})
	m := metrics.NewRegistry(16)
	cfg := config.CoordinatorConfig{NumShards: 2, TimeoutMillis: 1000, MaxRetries: 2}

	return New(transport, nil, m, cfg), regA, regB
}

func TestExecuteCrossShardCommitsOnAllYes(t *testing.T) {
	coord, regA, regB := twoShardCoordinator(t)

	idA, idB := objID(1), objID(2)
	registerShared(t, regA, idA)
	registerShared(t, regB, idB)

	plans := []ShardPlan{
		{ShardID: 0, ReadSet: []ObjectVersion{{ID: idA, Version: 1}}, WriteSet: []KeyWrite{{ID: idA, Value: []byte("a1")}}},
		{ShardID: 1, ReadSet: []ObjectVersion{{ID: idB, Version: 1}}, WriteSet: []KeyWrite{{ID: idB, Value: []byte("b1")}}},
	}

	decision, err := coord.Execute(context.Background(), "txn-1", 100, plans)
	require.NoError(t, err)
	assert.Equal(t, DecisionCommit, decision)
}

func TestExecuteCrossShardAbortsOnStaleReadVersion(t *testing.T) {
	coord, regA, regB := twoShardCoordinator(t)

	idA, idB := objID(1), objID(2)
	registerShared(t, regA, idA)
	registerShared(t, regB, idB)

	plans := []ShardPlan{
		{ShardID: 0, ReadSet: []ObjectVersion{{ID: idA, Version: 1}}, WriteSet: []KeyWrite{{ID: idA, Value: []byte("a1")}}},
		// shard 1 expects a stale version, so it must vote NO and abort the whole txn.
		{ShardID: 1, ReadSet: []ObjectVersion{{ID: idB, Version: 99}}, WriteSet: []KeyWrite{{ID: idB, Value: []byte("b1")}}},
	}

	decision, err := coord.Execute(context.Background(), "txn-2", 101, plans)
	require.NoError(t, err)
	assert.Equal(t, DecisionAbort, decision)
}

func TestExecuteCrossShardAbortsOnUnreachableShard(t *testing.T) {
	coord, regA, _ := twoShardCoordinator(t)

	idA := objID(1)
	registerShared(t, regA, idA)

	plans := []ShardPlan{
		{ShardID: 0, ReadSet: []ObjectVersion{{ID: idA, Version: 1}}, WriteSet: []KeyWrite{{ID: idA, Value: []byte("a1")}}},
		{ShardID: 7, ReadSet: nil, WriteSet: nil}, // no participant registered under shard 7
	}

	decision, err := coord.Execute(context.Background(), "txn-3", 102, plans)
	require.NoError(t, err)
	assert.Equal(t, DecisionAbort, decision)
}

func TestPartitionIsStableAndBounded(t *testing.T) {
	id := objID(42)
	const numShards = 8

	first := Partition(id, numShards)
	assert.Less(t, first, uint16(numShards))

	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Partition(id, numShards))
	}
}

func TestRepeatedCommitIsIdempotentOnParticipant(t *testing.T) {
	coord, regA, regB := twoShardCoordinator(t)
	idA, idB := objID(1), objID(2)
	registerShared(t, regA, idA)
	registerShared(t, regB, idB)

	plans := []ShardPlan{
		{ShardID: 0, ReadSet: []ObjectVersion{{ID: idA, Version: 1}}, WriteSet: []KeyWrite{{ID: idA, Value: []byte("a1")}}},
		{ShardID: 1, ReadSet: []ObjectVersion{{ID: idB, Version: 1}}, WriteSet: []KeyWrite{{ID: idB, Value: []byte("b1")}}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	decision1, err := coord.Execute(ctx, "txn-4", 200, plans)
	require.NoError(t, err)
	assert.Equal(t, DecisionCommit, decision1)

	// Re-running the same already-committed txn id must not error or
	// double-apply; the participant replays its prior ack.
	decision2, err := coord.Execute(ctx, "txn-4", 200, plans)
	require.NoError(t, err)
	assert.Equal(t, DecisionCommit, decision2)
}
