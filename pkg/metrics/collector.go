package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromCollector adapts a Registry's hand-rolled atomics onto
// prometheus.Collector, the way the teacher wires its counters into a
// registry for scraping — here the source of truth stays the atomics
// (read on the hot path without contending with Prometheus's own
// bookkeeping), and Collect only runs at scrape time.
type PromCollector struct {
	registry *Registry
	prefix   string

	txnStartedDesc        *prometheus.Desc
	txnCommittedDesc      *prometheus.Desc
	txnAbortedDesc        *prometheus.Desc
	conflictsDesc         *prometheus.Desc
	retriesDesc           *prometheus.Desc
	fastTotalDesc         *prometheus.Desc
	consensusTotalDesc    *prometheus.Desc
	privacyTotalDesc      *prometheus.Desc
	fastFallbackTotalDesc *prometheus.Desc
	latencyP99Desc        *prometheus.Desc
}

// NewPromCollector wraps registry for export under metric names prefixed
// with prefix (e.g. "txcore").
func NewPromCollector(registry *Registry, prefix string) *PromCollector {
	fq := func(name string) string { return prefix + "_" + name }
	return &PromCollector{
		registry:              registry,
		prefix:                prefix,
		txnStartedDesc:        prometheus.NewDesc(fq("txn_started_total"), "Total transactions started", nil, nil),
		txnCommittedDesc:      prometheus.NewDesc(fq("txn_committed_total"), "Total transactions committed", nil, nil),
		txnAbortedDesc:        prometheus.NewDesc(fq("txn_aborted_total"), "Total transactions aborted", nil, nil),
		conflictsDesc:         prometheus.NewDesc(fq("conflicts_total"), "Total MVCC validation conflicts", nil, nil),
		retriesDesc:           prometheus.NewDesc(fq("retries_total"), "Total retry attempts", nil, nil),
		fastTotalDesc:         prometheus.NewDesc(fq("fast_path_total"), "Total transactions routed to the fast path", nil, nil),
		consensusTotalDesc:    prometheus.NewDesc(fq("consensus_path_total"), "Total transactions routed to the consensus path", nil, nil),
		privacyTotalDesc:      prometheus.NewDesc(fq("privacy_path_total"), "Total transactions routed to the privacy path", nil, nil),
		fastFallbackTotalDesc: prometheus.NewDesc(fq("fast_fallback_total"), "Total transactions that fell back from fast path to consensus", nil, nil),
		latencyP99Desc:        prometheus.NewDesc(fq("latency_p99_microseconds"), "Fast-path p99 latency in microseconds", nil, nil),
	}
}

func (c *PromCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.txnStartedDesc
	ch <- c.txnCommittedDesc
	ch <- c.txnAbortedDesc
	ch <- c.conflictsDesc
	ch <- c.retriesDesc
	ch <- c.fastTotalDesc
	ch <- c.consensusTotalDesc
	ch <- c.privacyTotalDesc
	ch <- c.fastFallbackTotalDesc
	ch <- c.latencyP99Desc
}

func (c *PromCollector) Collect(ch chan<- prometheus.Metric) {
	r := c.registry
	ch <- prometheus.MustNewConstMetric(c.txnStartedDesc, prometheus.CounterValue, float64(r.txnStarted.Load()))
	ch <- prometheus.MustNewConstMetric(c.txnCommittedDesc, prometheus.CounterValue, float64(r.txnCommitted.Load()))
	ch <- prometheus.MustNewConstMetric(c.txnAbortedDesc, prometheus.CounterValue, float64(r.txnAborted.Load()))
	ch <- prometheus.MustNewConstMetric(c.conflictsDesc, prometheus.CounterValue, float64(r.conflicts.Load()))
	ch <- prometheus.MustNewConstMetric(c.retriesDesc, prometheus.CounterValue, float64(r.retries.Load()))
	ch <- prometheus.MustNewConstMetric(c.fastTotalDesc, prometheus.CounterValue, float64(r.fastTotal.Load()))
	ch <- prometheus.MustNewConstMetric(c.consensusTotalDesc, prometheus.CounterValue, float64(r.consensusTotal.Load()))
	ch <- prometheus.MustNewConstMetric(c.privacyTotalDesc, prometheus.CounterValue, float64(r.privacyTotal.Load()))
	ch <- prometheus.MustNewConstMetric(c.fastFallbackTotalDesc, prometheus.CounterValue, float64(r.fastFallbackTotal.Load()))
	ch <- prometheus.MustNewConstMetric(c.latencyP99Desc, prometheus.GaugeValue, r.Latency.Percentile(0.99))
}

var _ prometheus.Collector = (*PromCollector)(nil)
