package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supervm/txcore/pkg/ownership"
	"github.com/supervm/txcore/pkg/types"
)

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

func TestClassifyOwnedPublicIsFastPath(t *testing.T) {
	reg := ownership.New()
	a := addr(0x01)
	o1 := objID(0x01)
	require.NoError(t, reg.Register(types.ObjectMetadata{ID: o1, Ownership: types.OwnershipOwned, Owner: a}))

	r := New(reg)
	path := r.Classify(types.Transaction{From: a, Objects: []types.ObjectId{o1}, Privacy: types.Public})
	assert.Equal(t, types.FastPath, path)

	fast, consensus, privacy := r.Counts()
	assert.Equal(t, uint64(1), fast)
	assert.Equal(t, uint64(0), consensus)
	assert.Equal(t, uint64(0), privacy)
}

func TestClassifySharedIsConsensusPath(t *testing.T) {
	reg := ownership.New()
	a := addr(0x01)
	o2 := objID(0x02)
	require.NoError(t, reg.Register(types.ObjectMetadata{ID: o2, Ownership: types.OwnershipShared}))

	r := New(reg)
	path := r.Classify(types.Transaction{From: a, Objects: []types.ObjectId{o2}, Privacy: types.Public})
	assert.Equal(t, types.ConsensusPath, path)
}

func TestClassifyNotOwnedIsFastPath(t *testing.T) {
	// Ownership mismatches are attempted on the fast path first; only
	// fastpath.Executor.verifyOwnership surfaces the NotOwner failure, at
	// execution time, for the batch executor to catch and fall back on.
	reg := ownership.New()
	owner := addr(0x01)
	other := addr(0x02)
	o1 := objID(0x01)
	require.NoError(t, reg.Register(types.ObjectMetadata{ID: o1, Ownership: types.OwnershipOwned, Owner: owner}))

	r := New(reg)
	path := r.Classify(types.Transaction{From: other, Objects: []types.ObjectId{o1}, Privacy: types.Public})
	assert.Equal(t, types.FastPath, path)
}

func TestClassifyPrivateIsPrivacyPath(t *testing.T) {
	reg := ownership.New()
	a := addr(0x01)
	r := New(reg)
	path := r.Classify(types.Transaction{From: a, Privacy: types.Private})
	assert.Equal(t, types.PrivatePath, path)
}

func TestClassifyImmutableObjectsAllowFastPath(t *testing.T) {
	reg := ownership.New()
	a := addr(0x01)
	o1 := objID(0x01)
	o3 := objID(0x03)
	require.NoError(t, reg.Register(types.ObjectMetadata{ID: o1, Ownership: types.OwnershipOwned, Owner: a}))
	require.NoError(t, reg.Register(types.ObjectMetadata{ID: o3, Ownership: types.OwnershipImmutable}))

	r := New(reg)
	path := r.Classify(types.Transaction{From: a, Objects: []types.ObjectId{o1, o3}, Privacy: types.Public})
	assert.Equal(t, types.FastPath, path)
}
