package mvcc

import (
	"github.com/supervm/txcore/pkg/storage"
	"github.com/supervm/txcore/pkg/types"
)

// FlushToStorage aggregates the latest committed value (or tombstone) for
// every key touched since the last flush into a single atomic write-batch
// against dst, per spec.md §4.2. Returns the number of keys and total
// value bytes written.
func (s *Store) FlushToStorage(dst storage.Store, opts storage.WriteBatchOptions) (keys int, bytes int, err error) {
	s.dirtyMu.Lock()
	touched := make([]string, 0, len(s.dirty))
	for k := range s.dirty {
		touched = append(touched, k)
	}
	s.dirty = make(map[string]struct{})
	s.dirtyMu.Unlock()

	if len(touched) == 0 {
		return 0, 0, nil
	}

	entries := make([]storage.Entry, 0, len(touched))
	for _, k := range touched {
		chain := s.chainFor(k, false)
		if chain == nil {
			continue
		}
		value, tombstone, found := chain.latest()
		if !found {
			continue
		}
		if tombstone {
			entries = append(entries, storage.Entry{Key: []byte(k), Value: nil})
			continue
		}
		entries = append(entries, storage.Entry{Key: []byte(k), Value: value})
		bytes += len(value)
	}

	if err := dst.WriteBatch(entries, opts); err != nil {
		// Flush is best-effort and idempotent: re-mark the touched keys
		// dirty so the next flush retries them, and surface the error
		// without rolling back the already-committed in-memory state
		// (spec.md §7: "committed in-memory state is not rolled back").
		s.dirtyMu.Lock()
		for _, k := range touched {
			s.dirty[k] = struct{}{}
		}
		s.dirtyMu.Unlock()
		return 0, 0, &types.StorageError{Op: "flush", Err: err}
	}

	return len(entries), bytes, nil
}
