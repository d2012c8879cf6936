package mvcc

import (
	"context"
	"time"
)

// GCStats summarizes one sweep.
type GCStats struct {
	KeysScanned  int
	EntriesFreed int
}

// RunGC walks every key's version chain and trims it against
// maxVersionsPerKey and the store's current low-water mark. Safe to call
// concurrently with readers and committers: the chain map itself is only
// read under s.chainsMu, and each chain's own mu serializes trim against
// the readers and committers reaching that same chain directly.
func (s *Store) RunGC() GCStats {
	lwm := s.lowWaterMark()

	s.chainsMu.RLock()
	keys := make([]string, 0, len(s.chains))
	chains := make([]*versionChain, 0, len(s.chains))
	for k, c := range s.chains {
		keys = append(keys, k)
		chains = append(chains, c)
	}
	s.chainsMu.RUnlock()

	var freed int
	for _, c := range chains {
		freed += c.trim(s.maxVersionsPerKey, lwm)
	}
	return GCStats{KeysScanned: len(keys), EntriesFreed: freed}
}

// RunTTLGC additionally discards entries older than ttl, down to the
// anchor required by the low-water mark. cutoff is computed from the
// store's own clock, not wall time, since Timestamp is a logical counter.
func (s *Store) RunTTLGC(ttlTicks uint64) GCStats {
	lwm := s.lowWaterMark()
	current := s.CurrentTimestamp()

	var cutoff uint64
	if uint64(current) > ttlTicks {
		cutoff = uint64(current) - ttlTicks
	}

	s.chainsMu.RLock()
	chains := make([]*versionChain, 0, len(s.chains))
	for _, c := range s.chains {
		chains = append(chains, c)
	}
	s.chainsMu.RUnlock()

	var freed int
	for _, c := range chains {
		freed += c.trimTTL(timestampFromUint64(cutoff), lwm)
	}
	return GCStats{KeysScanned: len(chains), EntriesFreed: freed}
}

// RunAutoGC blocks, running RunGC on the given interval until ctx is
// cancelled. Grounded on the teacher's reconciler ticker loop: one
// goroutine, stopped by context cancellation rather than a dedicated
// signal channel.
func (s *Store) RunAutoGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.RunGC()
			if stats.EntriesFreed > 0 {
				s.logger.Debug().
					Int("keys_scanned", stats.KeysScanned).
					Int("entries_freed", stats.EntriesFreed).
					Msg("gc sweep")
			}
		}
	}
}
