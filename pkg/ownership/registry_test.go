package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supervm/txcore/pkg/types"
)

func objID(b byte) types.ObjectId {
	var id types.ObjectId
	id[0] = b
	return id
}

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	o1 := objID(1)
	a := addr(1)

	require.NoError(t, r.Register(types.ObjectMetadata{
		ID:        o1,
		Ownership: types.OwnershipOwned,
		Owner:     a,
		Version:   1,
	}))

	meta, err := r.Lookup(o1)
	require.NoError(t, err)
	assert.Equal(t, types.OwnershipOwned, meta.Ownership)
	assert.Equal(t, a, meta.Owner)
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	o1 := objID(1)
	require.NoError(t, r.Register(types.ObjectMetadata{ID: o1}))
	err := r.Register(types.ObjectMetadata{ID: o1})
	assert.ErrorIs(t, err, types.ErrAlreadyExists)
}

func TestLookupNotFound(t *testing.T) {
	r := New()
	_, err := r.Lookup(objID(9))
	assert.ErrorIs(t, err, types.ErrObjectNotFound)
}

func TestMarkDeletedNeverReturnedOrReregistered(t *testing.T) {
	r := New()
	o1 := objID(1)
	require.NoError(t, r.Register(types.ObjectMetadata{ID: o1, Version: 1}))
	require.NoError(t, r.MarkDeleted(o1))

	_, err := r.Lookup(o1)
	assert.ErrorIs(t, err, types.ErrObjectNotFound)

	err = r.Register(types.ObjectMetadata{ID: o1, Version: 1})
	assert.ErrorIs(t, err, types.ErrAlreadyExists, "a soft-deleted id must never be re-registerable")
}

func TestTransferBumpsVersionMonotonically(t *testing.T) {
	r := New()
	o1 := objID(1)
	a, b := addr(1), addr(2)
	require.NoError(t, r.Register(types.ObjectMetadata{ID: o1, Ownership: types.OwnershipOwned, Owner: a, Version: 1}))

	require.NoError(t, r.Transfer(o1, b, 2))
	meta, err := r.Lookup(o1)
	require.NoError(t, err)
	assert.Equal(t, b, meta.Owner)
	assert.Equal(t, types.Version(2), meta.Version)

	err = r.Transfer(o1, a, 2)
	assert.ErrorIs(t, err, types.ErrValidationFailed, "version must strictly increase on each mutation")
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	r := New()
	o1 := objID(1)
	require.NoError(t, r.Register(types.ObjectMetadata{ID: o1, Ownership: types.OwnershipOwned, Owner: addr(1), Version: 1}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for v := types.Version(2); v < 200; v++ {
			_ = r.Transfer(o1, addr(byte(v)), v)
		}
	}()

	for i := 0; i < 1000; i++ {
		_, _ = r.Lookup(o1)
	}
	<-done
}
