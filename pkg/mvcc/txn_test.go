package mvcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supervm/txcore/pkg/storage"
	"github.com/supervm/txcore/pkg/types"
)

func TestWriteWriteConflict(t *testing.T) {
	s := NewStore(1, 100)

	t1 := s.Begin()
	t2 := s.Begin()

	require.NoError(t, t1.Write([]byte("k"), []byte("v1")))
	require.NoError(t, t2.Write([]byte("k"), []byte("v2")))

	ts1, err := t1.Commit()
	require.NoError(t, err)
	assert.Greater(t, uint64(ts1), uint64(0))

	_, err = t2.Commit()
	require.Error(t, err)
	var conflictErr *types.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, types.ConflictWrite, conflictErr.Kind)

	reader := s.Begin()
	v, ok, err := reader.Read([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)
}

func TestSnapshotReadDoesNotSeeLaterWrite(t *testing.T) {
	s := NewStore(1, 100)

	writer := s.Begin()
	require.NoError(t, writer.Write([]byte("k"), []byte("v0")))
	_, err := writer.Commit()
	require.NoError(t, err)

	reader := s.Begin()

	later := s.Begin()
	require.NoError(t, later.Write([]byte("k"), []byte("v2")))
	_, err = later.Commit()
	require.NoError(t, err)

	v, ok, err := reader.Read([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v0"), v)
}

func TestReadYourOwnWrites(t *testing.T) {
	s := NewStore(1, 100)
	txn := s.Begin()

	_, ok, err := txn.Read([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, txn.Write([]byte("k"), []byte("v1")))
	v, ok, err := txn.Read([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	_, err = txn.Commit()
	require.NoError(t, err)
}

func TestDeleteThenReadReturnsTombstone(t *testing.T) {
	s := NewStore(1, 100)

	writer := s.Begin()
	require.NoError(t, writer.Write([]byte("k"), []byte("v1")))
	_, err := writer.Commit()
	require.NoError(t, err)

	deleter := s.Begin()
	require.NoError(t, deleter.Delete([]byte("k")))
	_, err = deleter.Commit()
	require.NoError(t, err)

	reader := s.Begin()
	_, ok, err := reader.Read([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommitTwiceIsInvalidState(t *testing.T) {
	s := NewStore(1, 100)
	txn := s.Begin()
	require.NoError(t, txn.Write([]byte("k"), []byte("v1")))
	_, err := txn.Commit()
	require.NoError(t, err)

	_, err = txn.Commit()
	require.ErrorIs(t, err, types.ErrInvalidState)
}

func TestAbortDiscardsWrites(t *testing.T) {
	s := NewStore(1, 100)
	txn := s.Begin()
	require.NoError(t, txn.Write([]byte("k"), []byte("v1")))
	require.NoError(t, txn.Abort())

	reader := s.Begin()
	_, ok, err := reader.Read([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGCNeverRemovesVersionVisibleToActiveReader(t *testing.T) {
	s := NewStore(1, 2) // keep only 2 versions per key

	reader := s.Begin() // opens at ts=1, before any write

	for i := 0; i < 5; i++ {
		txn := s.Begin()
		require.NoError(t, txn.Write([]byte("k"), []byte{byte(i)}))
		_, err := txn.Commit()
		require.NoError(t, err)
	}

	s.RunGC()

	// reader's snapshot predates every write, so it must still see
	// nothing for "k" — it never should be told a version existed that
	// then vanished (it should stay "not found", not error).
	_, ok, err := reader.Read([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, reader.Abort())
}

func TestFlushToStorageRoundTrip(t *testing.T) {
	s := NewStore(1, 100)
	mem := storage.NewMemoryStore()

	txn := s.Begin()
	require.NoError(t, txn.Write([]byte("k1"), []byte("v1")))
	require.NoError(t, txn.Write([]byte("k2"), []byte("v2")))
	_, err := txn.Commit()
	require.NoError(t, err)

	keys, bytes, err := s.FlushToStorage(mem, storage.WriteBatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, keys)
	assert.Equal(t, len("v1")+len("v2"), bytes)

	v, ok, err := mem.Get([]byte("k1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)
}

func TestFlushOnlyWritesDirtyKeysOnce(t *testing.T) {
	s := NewStore(1, 100)
	mem := storage.NewMemoryStore()

	txn := s.Begin()
	require.NoError(t, txn.Write([]byte("k1"), []byte("v1")))
	_, err := txn.Commit()
	require.NoError(t, err)

	_, _, err = s.FlushToStorage(mem, storage.WriteBatchOptions{})
	require.NoError(t, err)

	keys, _, err := s.FlushToStorage(mem, storage.WriteBatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, keys)
}
