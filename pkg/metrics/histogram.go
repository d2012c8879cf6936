package metrics

import (
	"sort"
	"sync/atomic"
	"time"
)

// bucketBoundsUs are the upper bounds (microseconds) of each latency
// bucket, exponentially spaced from 1µs to ~1s. A fixed bucket set keeps
// Observe lock-free and Percentile a binary search over a small fixed
// array rather than a scan over every sample.
var bucketBoundsUs = buildBuckets()

func buildBuckets() []float64 {
	bounds := make([]float64, 0, 40)
	v := 1.0
	for v < 1_000_000 {
		bounds = append(bounds, v)
		v *= 1.5
	}
	bounds = append(bounds, 1_000_000)
	return bounds
}

// Histogram is a lock-free latency histogram recording samples in
// microseconds across fixed exponential buckets. A percentile query builds
// a prefix sum over the buckets (O(n), n = len(bucketBoundsUs), not sample
// count) and binary-searches it, per spec.md §4.9.
type Histogram struct {
	counts []atomic.Uint64 // len(bucketBoundsUs), counts[i] = samples <= bucketBoundsUs[i]
	total  atomic.Uint64
	sumUs  atomic.Uint64
}

// NewHistogram creates an empty Histogram.
func NewHistogram() *Histogram {
	return &Histogram{counts: make([]atomic.Uint64, len(bucketBoundsUs))}
}

// Observe records one latency sample.
func (h *Histogram) Observe(d time.Duration) {
	us := float64(d.Microseconds())
	idx := sort.SearchFloat64s(bucketBoundsUs, us)
	if idx >= len(h.counts) {
		idx = len(h.counts) - 1
	}
	h.counts[idx].Add(1)
	h.total.Add(1)
	h.sumUs.Add(uint64(us))
}

// Count returns the total number of samples observed.
func (h *Histogram) Count() uint64 { return h.total.Load() }

// Percentile returns an estimate of the p-th percentile (p in [0,1]) in
// microseconds, found by binary-searching the cumulative bucket counts.
func (h *Histogram) Percentile(p float64) float64 {
	total := h.total.Load()
	if total == 0 {
		return 0
	}
	target := uint64(p * float64(total))
	if target == 0 {
		target = 1
	}

	lo, hi := 0, len(h.counts)-1
	var cumulative uint64
	// Precompute prefix sums once per query; len(counts) is small and
	// fixed, so this is O(n) in bucket count, with the search itself
	// O(log n) below via sort.Search over the prefix array.
	prefix := make([]uint64, len(h.counts))
	for i := range h.counts {
		cumulative += h.counts[i].Load()
		prefix[i] = cumulative
	}

	idx := sort.Search(hi-lo+1, func(i int) bool { return prefix[lo+i] >= target }) + lo
	if idx >= len(bucketBoundsUs) {
		idx = len(bucketBoundsUs) - 1
	}
	return bucketBoundsUs[idx]
}

// EstimatedTPS derives a throughput estimate from the inverse mean
// latency, per spec.md §4.3 FastPathStats.
func (h *Histogram) EstimatedTPS() float64 {
	total := h.total.Load()
	if total == 0 {
		return 0
	}
	meanUs := float64(h.sumUs.Load()) / float64(total)
	if meanUs <= 0 {
		return 0
	}
	return 1_000_000 / meanUs
}
