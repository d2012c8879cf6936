package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopKReturnsLargestCounts(t *testing.T) {
	topk := NewTopK(2)
	for i := 0; i < 5; i++ {
		topk.Record("hot")
	}
	for i := 0; i < 3; i++ {
		topk.Record("warm")
	}
	topk.Record("cold")

	hot := topk.GetHotKeys(2)
	require.Len(t, hot, 2)
	assert.Equal(t, "hot", hot[0].Key)
	assert.Equal(t, uint64(5), hot[0].Count)
	assert.Equal(t, "warm", hot[1].Key)
	assert.Equal(t, uint64(3), hot[1].Count)
}

func TestTopKTiesBreakByFirstSeen(t *testing.T) {
	topk := NewTopK(3)
	topk.Record("first")
	topk.Record("second")
	topk.Record("third")

	hot := topk.GetHotKeys(3)
	require.Len(t, hot, 3)
	assert.Equal(t, "first", hot[0].Key)
	assert.Equal(t, "second", hot[1].Key)
	assert.Equal(t, "third", hot[2].Key)
}

func TestTopKResetIsEmpty(t *testing.T) {
	topk := NewTopK(4)
	topk.Record("a")
	topk.Record("b")
	topk.Reset()

	hot := topk.GetHotKeys(4)
	assert.Len(t, hot, 0)
}

func TestTopKOverflowKeyEventuallyDisplacesResident(t *testing.T) {
	topk := NewTopK(1)
	topk.Record("a")
	for i := 0; i < 5; i++ {
		topk.Record("b")
	}

	hot := topk.GetHotKeys(1)
	require.Len(t, hot, 1)
	assert.Equal(t, "b", hot[0].Key)
	assert.Equal(t, uint64(5), hot[0].Count)
}

func TestTopKBoundedAtK(t *testing.T) {
	topk := NewTopK(2)
	topk.Record("a")
	topk.Record("b")
	topk.Record("a")
	topk.Record("a")
	topk.Record("c") // only 1 access, should not displace a(3) or b(1)... but ties: c(1) == b(1)

	hot := topk.GetHotKeys(2)
	require.Len(t, hot, 2)
	assert.Equal(t, "a", hot[0].Key)
	assert.Equal(t, uint64(3), hot[0].Count)
}
