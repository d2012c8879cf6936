package mvcc

import (
	"sync"

	"github.com/supervm/txcore/pkg/types"
)

// versionEntry is one committed write to a key. value is nil iff tombstone
// is true.
type versionEntry struct {
	writeTS   types.Timestamp
	value     []byte
	tombstone bool
}

// versionChain is the descending-by-write_ts list of versions for a single
// key, per spec.md §3: "for any read_ts, the visible value is the entry
// with greatest write_ts <= read_ts whose tombstone bit is clear."
//
// entries[0] is always the most recent write. mu guards entries: readers
// (Txn.Read), committers (Txn.Commit), and GC (RunGC/RunTTLGC) all reach a
// chain independently of the store's per-key commit latch and the chain
// map's own lock, so entries needs its own fine-grained latch per spec.md
// §5 rather than relying on callers to coordinate.
type versionChain struct {
	mu      sync.RWMutex
	entries []versionEntry
}

// visibleAt returns the value visible to a transaction snapshotted at
// readTS, and the write_ts of that entry. found is false when nothing is
// visible: either no entry exists at or before readTS (write_ts is 0), or
// the visible entry is a tombstone (write_ts is the tombstone's).
func (c *versionChain) visibleAt(readTS types.Timestamp) (value []byte, writeTS types.Timestamp, found bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.writeTS <= readTS {
			if e.tombstone {
				return nil, e.writeTS, false
			}
			return e.value, e.writeTS, true
		}
	}
	return nil, 0, false
}

// latestWriteTS returns the write_ts of the most recent entry in the
// chain, or 0 if the chain is empty. Used by commit validation: it does
// not matter whether the latest entry is a tombstone, only when it was
// written.
func (c *versionChain) latestWriteTS() types.Timestamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return 0
	}
	return c.entries[0].writeTS
}

// latest returns the most recently committed value (nil, true if the
// latest entry is a tombstone; nil, false if the chain is empty).
func (c *versionChain) latest() (value []byte, tombstone, found bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.entries) == 0 {
		return nil, false, false
	}
	head := c.entries[0]
	return head.value, head.tombstone, true
}

// length reports the number of versions currently held, for callers
// deciding whether a chain needs trimming without reaching into entries
// directly.
func (c *versionChain) length() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// append inserts a new entry at the front. Callers (commit validation)
// guarantee writeTS is strictly greater than any existing entry's
// write_ts, so the list stays sorted without a search.
func (c *versionChain) append(e versionEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append([]versionEntry{e}, c.entries...)
}

// trim enforces max_versions_per_key against a low-water mark, per
// spec.md §4.2 GC and §9 Open Question 3: "GC must never remove a version
// visible to any live snapshot; the safe rule is min over active read_ts
// as the low-water mark."
//
// Two tiers, cheapest-safe-first:
//
//  1. Keep-recent-N: if the chain has more than maxVersions entries, and
//     the N-th most recent entry's write_ts is itself <= the low-water
//     mark, it is safe to discard everything older than N — every active
//     snapshot's visible version is at or after that entry.
//  2. Anchor fallback: otherwise (no cap, or some active snapshot is
//     older than the N-th entry) only entries strictly older than the
//     anchor — the newest entry whose write_ts is <= the low-water mark —
//     are safe to discard. The anchor itself is kept so a snapshot taken
//     exactly at the low-water mark still resolves.
//
// Returns the number of entries removed.
func (c *versionChain) trim(maxVersions int, keepAfterTS types.Timestamp) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if maxVersions > 0 && len(c.entries) > maxVersions {
		nth := c.entries[maxVersions-1]
		if nth.writeTS <= keepAfterTS {
			removed := len(c.entries) - maxVersions
			c.entries = c.entries[:maxVersions]
			return removed
		}
	}

	anchor := len(c.entries)
	for i, e := range c.entries {
		if e.writeTS <= keepAfterTS {
			anchor = i + 1
			break
		}
	}
	if anchor >= len(c.entries) {
		return 0
	}
	removed := len(c.entries) - anchor
	c.entries = c.entries[:anchor]
	return removed
}

// trimTTL discards entries whose write_ts is older than cutoffTS,
// independent of maxVersions, but still never below the anchor required
// by the active low-water mark.
func (c *versionChain) trimTTL(cutoffTS, keepAfterTS types.Timestamp) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	anchor := len(c.entries)
	for i, e := range c.entries {
		if e.writeTS <= keepAfterTS {
			anchor = i + 1
			break
		}
	}

	cut := len(c.entries)
	for cut > anchor && c.entries[cut-1].writeTS < cutoffTS {
		cut--
	}
	removed := len(c.entries) - cut
	c.entries = c.entries[:cut]
	return removed
}
