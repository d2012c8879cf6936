package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSetDelete(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set([]byte("k1"), []byte("v1")))

	v, ok, err := s.Get([]byte("k1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, s.Delete([]byte("k1")))
	_, ok, err = s.Get([]byte("k1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreScan(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set([]byte("prefix1_a"), []byte("v1")))
	require.NoError(t, s.Set([]byte("prefix1_b"), []byte("v2")))
	require.NoError(t, s.Set([]byte("prefix2_a"), []byte("v3")))

	results, err := s.Scan([]byte("prefix1_"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "prefix1_a", string(results[0].Key))
	assert.Equal(t, "prefix1_b", string(results[1].Key))
}

func TestMemoryStoreWriteBatchIsAtomicAndSupportsTombstones(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set([]byte("k1"), []byte("old")))

	err := s.WriteBatch([]Entry{
		{Key: []byte("k1"), Value: nil}, // tombstone
		{Key: []byte("k2"), Value: []byte("v2")},
	}, WriteBatchOptions{})
	require.NoError(t, err)

	_, ok, _ := s.Get([]byte("k1"))
	assert.False(t, ok)
	v, ok, _ := s.Get([]byte("k2"))
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), v)
}
