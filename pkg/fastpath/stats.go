package fastpath

// Stats is the user-visible snapshot named FastPathStats in spec.md §4.3:
// executed_count, retry_count, conflicts, a latency histogram summary,
// and an estimated_tps derived from inverse mean latency.
type Stats struct {
	ExecutedCount int64
	RetryCount    uint64
	Conflicts     uint64
	LatencyP50Us  float64
	LatencyP90Us  float64
	LatencyP95Us  float64
	LatencyP99Us  float64
	EstimatedTPS  float64
}

// Stats reports the executor's current statistics, reading straight
// through to the shared metrics.Registry.
func (e *Executor) Stats() Stats {
	return Stats{
		ExecutedCount: int64(e.metrics.Latency.Count()),
		RetryCount:    e.metrics.Retries(),
		Conflicts:     e.metrics.Conflicts(),
		LatencyP50Us:  e.metrics.Latency.Percentile(0.50),
		LatencyP90Us:  e.metrics.Latency.Percentile(0.90),
		LatencyP95Us:  e.metrics.Latency.Percentile(0.95),
		LatencyP99Us:  e.metrics.Latency.Percentile(0.99),
		EstimatedTPS:  e.metrics.Latency.EstimatedTPS(),
	}
}
