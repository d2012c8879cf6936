// Package metrics implements the execution core's counters, latency
// histogram, and hot-key tracker (spec.md §4.9), and adapts them onto
// prometheus.Collector the way the teacher exposes cluster metrics — but
// as an explicitly constructed handle rather than package-level globals,
// per spec.md §9: "construction is explicit (no hidden singletons)."
package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Registry holds every monotonic counter named in spec.md §4.9, plus the
// fast-path latency histogram and hot-key tracker. One Registry per
// execution core instance; components hold a reference, never a copy.
type Registry struct {
	txnStarted       atomic.Uint64
	txnCommitted     atomic.Uint64
	txnAborted       atomic.Uint64
	conflicts        atomic.Uint64
	retries          atomic.Uint64
	fastTotal        atomic.Uint64
	consensusTotal   atomic.Uint64
	privacyTotal     atomic.Uint64
	fastFallbackTotal atomic.Uint64

	Latency *Histogram
	HotKeys *TopK
}

// NewRegistry constructs a Registry with a fresh histogram and a hot-key
// tracker bounded at topK entries.
func NewRegistry(topK int) *Registry {
	return &Registry{
		Latency: NewHistogram(),
		HotKeys: NewTopK(topK),
	}
}

func (r *Registry) IncTxnStarted()        { r.txnStarted.Add(1) }
func (r *Registry) IncTxnCommitted()      { r.txnCommitted.Add(1) }
func (r *Registry) IncTxnAborted()        { r.txnAborted.Add(1) }
func (r *Registry) IncConflicts()         { r.conflicts.Add(1) }
func (r *Registry) IncRetries()           { r.retries.Add(1) }
func (r *Registry) IncFastTotal()         { r.fastTotal.Add(1) }
func (r *Registry) IncConsensusTotal()    { r.consensusTotal.Add(1) }
func (r *Registry) IncPrivacyTotal()      { r.privacyTotal.Add(1) }
func (r *Registry) IncFastFallbackTotal() { r.fastFallbackTotal.Add(1) }

// Retries reports the current retry counter.
func (r *Registry) Retries() uint64 { return r.retries.Load() }

// Conflicts reports the current conflict counter.
func (r *Registry) Conflicts() uint64 { return r.conflicts.Load() }

// Snapshot renders every counter and derived ratio as a flat plaintext
// key/value listing, per spec.md §4.9 and §6: "textual snapshot with
// stable key names... ratios exposed as *_ratio in [0,1]." prefix is
// prepended to every key so a caller embedding multiple Registries (e.g.
// one per shard) can disambiguate a scrape.
func (r *Registry) Snapshot(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	started := r.txnStarted.Load()
	committed := r.txnCommitted.Load()
	aborted := r.txnAborted.Load()
	conflicts := r.conflicts.Load()
	retries := r.retries.Load()
	fast := r.fastTotal.Load()
	consensus := r.consensusTotal.Load()
	privacy := r.privacyTotal.Load()
	fallback := r.fastFallbackTotal.Load()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%stxn_started %d\n", prefix, started)
	fmt.Fprintf(&sb, "%stxn_committed %d\n", prefix, committed)
	fmt.Fprintf(&sb, "%stxn_aborted %d\n", prefix, aborted)
	fmt.Fprintf(&sb, "%sconflicts %d\n", prefix, conflicts)
	fmt.Fprintf(&sb, "%sretries %d\n", prefix, retries)
	fmt.Fprintf(&sb, "%sfast_total %d\n", prefix, fast)
	fmt.Fprintf(&sb, "%sconsensus_total %d\n", prefix, consensus)
	fmt.Fprintf(&sb, "%sprivacy_total %d\n", prefix, privacy)
	fmt.Fprintf(&sb, "%sfast_fallback_total %d\n", prefix, fallback)

	if total := committed + aborted; total > 0 {
		fmt.Fprintf(&sb, "%scommit_ratio %.6f\n", prefix, float64(committed)/float64(total))
	}
	if routed := fast + consensus + privacy; routed > 0 {
		fmt.Fprintf(&sb, "%sfast_ratio %.6f\n", prefix, float64(fast)/float64(routed))
	}

	fmt.Fprintf(&sb, "%slatency_p50_us %.2f\n", prefix, r.Latency.Percentile(0.50))
	fmt.Fprintf(&sb, "%slatency_p90_us %.2f\n", prefix, r.Latency.Percentile(0.90))
	fmt.Fprintf(&sb, "%slatency_p95_us %.2f\n", prefix, r.Latency.Percentile(0.95))
	fmt.Fprintf(&sb, "%slatency_p99_us %.2f\n", prefix, r.Latency.Percentile(0.99))
	fmt.Fprintf(&sb, "%sestimated_tps %.2f\n", prefix, r.Latency.EstimatedTPS())

	return sb.String()
}
