package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supervm/txcore/pkg/config"
	"github.com/supervm/txcore/pkg/fastpath"
	"github.com/supervm/txcore/pkg/metrics"
	"github.com/supervm/txcore/pkg/mvcc"
	"github.com/supervm/txcore/pkg/ownership"
	"github.com/supervm/txcore/pkg/router"
	"github.com/supervm/txcore/pkg/types"
)

type fakeScheduler struct {
	calls int
}

func (f *fakeScheduler) ExecuteTxn(ctx context.Context, tx types.Transaction, op fastpath.Op) (types.Receipt, error) {
	f.calls++
	return types.Receipt{Path: types.ConsensusPath, Success: true}, nil
}

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

func objID(b byte) types.ObjectId {
	var id types.ObjectId
	id[0] = b
	return id
}

func TestBatchRoutesSharedObjectsToScheduler(t *testing.T) {
	reg := ownership.New()
	o := objID(0x01)
	require.NoError(t, reg.Register(types.ObjectMetadata{ID: o, Ownership: types.OwnershipShared}))

	r := router.New(reg)
	store := mvcc.NewStore(4, 100)
	m := metrics.NewRegistry(16)
	fastExec := fastpath.NewExecutor(reg, store, m, config.FastPathConfig{CongestionThreshold: 10})
	sched := &fakeScheduler{}
	exec := New(r, fastExec, sched, m, config.BatchExecutorConfig{FallbackEnabled: true})

	results, fallbacks := exec.ExecuteBatch(context.Background(), []Item{
		{Tx: types.Transaction{Objects: []types.ObjectId{o}}, Op: func(txn *mvcc.Txn) (any, error) { return nil, nil }},
	})

	assert.Equal(t, 0, fallbacks)
	assert.Equal(t, 1, sched.calls)
	require.Len(t, results, 1)
	assert.True(t, results[0].Receipt.Success)
}

func TestBatchFallsBackFastPathNotOwnerToConsensus(t *testing.T) {
	reg := ownership.New()
	owner := addr(0x01)
	attacker := addr(0x02)
	o := objID(0x01)
	require.NoError(t, reg.Register(types.ObjectMetadata{ID: o, Ownership: types.OwnershipOwned, Owner: owner}))

	r := router.New(reg)
	store := mvcc.NewStore(4, 100)
	m := metrics.NewRegistry(16)
	fastExec := fastpath.NewExecutor(reg, store, m, config.FastPathConfig{CongestionThreshold: 10})
	sched := &fakeScheduler{}
	exec := New(r, fastExec, sched, m, config.BatchExecutorConfig{
		FallbackEnabled:   true,
		FallbackWhitelist: []string{"not owner"},
	})

	tx := types.Transaction{From: attacker, Objects: []types.ObjectId{o}, Privacy: types.Public}
	results, fallbacks := exec.ExecuteBatch(context.Background(), []Item{
		{Tx: tx, Op: func(txn *mvcc.Txn) (any, error) { return nil, nil }},
	})

	assert.Equal(t, 1, fallbacks)
	assert.Equal(t, 1, sched.calls)
	require.Len(t, results, 1)
	assert.True(t, results[0].FallbackToConsensus)
	assert.True(t, results[0].Receipt.Success)
}

func TestBatchSurfacesNonWhitelistedFastPathFailure(t *testing.T) {
	reg := ownership.New()
	owner := addr(0x01)
	attacker := addr(0x02)
	o := objID(0x01)
	require.NoError(t, reg.Register(types.ObjectMetadata{ID: o, Ownership: types.OwnershipOwned, Owner: owner}))

	r := router.New(reg)
	store := mvcc.NewStore(4, 100)
	m := metrics.NewRegistry(16)
	fastExec := fastpath.NewExecutor(reg, store, m, config.FastPathConfig{CongestionThreshold: 10})
	sched := &fakeScheduler{}
	exec := New(r, fastExec, sched, m, config.BatchExecutorConfig{
		FallbackEnabled:   true,
		FallbackWhitelist: []string{"some other kind"},
	})

	tx := types.Transaction{From: attacker, Objects: []types.ObjectId{o}, Privacy: types.Public}
	results, fallbacks := exec.ExecuteBatch(context.Background(), []Item{
		{Tx: tx, Op: func(txn *mvcc.Txn) (any, error) { return nil, nil }},
	})

	assert.Equal(t, 0, fallbacks)
	assert.Equal(t, 0, sched.calls)
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
}
