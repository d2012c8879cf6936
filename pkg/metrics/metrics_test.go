package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotIncludesCountersAndRatios(t *testing.T) {
	r := NewRegistry(16)
	r.IncTxnStarted()
	r.IncTxnStarted()
	r.IncTxnCommitted()
	r.IncTxnAborted()
	r.IncFastTotal()
	r.IncConsensusTotal()

	snap := r.Snapshot("txcore")
	assert.True(t, strings.Contains(snap, "txcore_txn_started 2"))
	assert.True(t, strings.Contains(snap, "txcore_commit_ratio 0.500000"))
	assert.True(t, strings.Contains(snap, "txcore_fast_ratio 0.500000"))
}

func TestHistogramPercentiles(t *testing.T) {
	h := NewHistogram()
	for i := 1; i <= 100; i++ {
		h.Observe(time.Duration(i) * time.Microsecond)
	}

	assert.Equal(t, uint64(100), h.Count())
	p50 := h.Percentile(0.50)
	p99 := h.Percentile(0.99)
	assert.True(t, p50 > 0 && p50 <= 100)
	assert.True(t, p99 >= p50)
}

func TestHistogramEstimatedTPS(t *testing.T) {
	h := NewHistogram()
	for i := 0; i < 10; i++ {
		h.Observe(10 * time.Microsecond)
	}
	tps := h.EstimatedTPS()
	assert.InDelta(t, 100_000, tps, 1)
}
