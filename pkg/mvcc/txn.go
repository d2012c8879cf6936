package mvcc

import (
	"fmt"

	"github.com/supervm/txcore/pkg/types"
)

type txnState int

const (
	txnActive txnState = iota
	txnCommitted
	txnAborted
)

// writeOp is one buffered local mutation. value is nil iff tombstone.
type writeOp struct {
	key       string
	value     []byte
	tombstone bool
}

// Txn is one MVCC transaction: a read snapshot plus a buffered write set,
// per spec.md §3 TxnContext. Not safe for concurrent use by multiple
// goroutines — exactly one goroutine drives a Txn from Begin to
// Commit/Abort.
type Txn struct {
	store    *Store
	readerID uint64
	readTS   types.Timestamp
	state    txnState

	readSet map[string]types.Timestamp // key -> observed write_ts
	writes  []writeOp                  // insertion order preserved
	writeIdx map[string]int            // key -> index into writes, for read-your-writes
}

// ReadTimestamp returns the snapshot timestamp this transaction reads at.
func (t *Txn) ReadTimestamp() types.Timestamp { return t.readTS }

// Read returns the value visible to this transaction's snapshot for key.
// A local write earlier in the same transaction is visible immediately
// (read-your-writes), and does not touch the read-set since it is not a
// dependency on committed state.
func (t *Txn) Read(key []byte) ([]byte, bool, error) {
	if t.state != txnActive {
		return nil, false, fmt.Errorf("read: %w", types.ErrInvalidState)
	}
	k := string(key)

	if idx, ok := t.writeIdx[k]; ok {
		w := t.writes[idx]
		if w.tombstone {
			return nil, false, nil
		}
		return w.value, true, nil
	}

	chain := t.store.chainFor(k, false)
	if chain == nil {
		t.readSet[k] = 0
		return nil, false, nil
	}

	value, writeTS, found := chain.visibleAt(t.readTS)
	t.readSet[k] = writeTS
	return value, found, nil
}

// Write buffers a local write to key. Not visible to any other
// transaction until Commit succeeds.
func (t *Txn) Write(key, value []byte) error {
	return t.bufferWrite(key, append([]byte(nil), value...), false)
}

// Delete buffers a local tombstone for key.
func (t *Txn) Delete(key []byte) error {
	return t.bufferWrite(key, nil, true)
}

func (t *Txn) bufferWrite(key []byte, value []byte, tombstone bool) error {
	if t.state != txnActive {
		return fmt.Errorf("write: %w", types.ErrInvalidState)
	}
	k := string(key)
	op := writeOp{key: k, value: value, tombstone: tombstone}

	if idx, ok := t.writeIdx[k]; ok {
		t.writes[idx] = op
		return nil
	}
	t.writeIdx[k] = len(t.writes)
	t.writes = append(t.writes, op)
	return nil
}

// Commit validates the read-set and write-set against the store's
// current state and, on success, atomically applies the write-set at a
// new strictly-increasing commit_ts. Per spec.md §4.2's validation
// algorithm.
func (t *Txn) Commit() (types.Timestamp, error) {
	if t.state != txnActive {
		return 0, fmt.Errorf("commit: %w", types.ErrInvalidState)
	}
	defer t.store.releaseReader(t.readerID)

	if len(t.writes) == 0 {
		t.state = txnCommitted
		return t.readTS, nil
	}

	writeKeys := make([]string, len(t.writes))
	for i, w := range t.writes {
		writeKeys[i] = w.key
	}
	latch := t.store.latchFor(writeKeys)
	latch.Lock()
	defer latch.Unlock()

	for key, observedTS := range t.readSet {
		chain := t.store.chainFor(key, false)
		if chain == nil {
			continue
		}
		if chain.latestWriteTS() > observedTS {
			t.state = txnAborted
			return 0, &types.ConflictError{Kind: types.ConflictRead, Key: key}
		}
	}

	for _, w := range t.writes {
		chain := t.store.chainFor(w.key, false)
		if chain == nil {
			continue
		}
		if chain.latestWriteTS() > t.readTS {
			t.state = txnAborted
			return 0, &types.ConflictError{Kind: types.ConflictWrite, Key: w.key}
		}
	}

	commitTS := t.store.now()
	for _, w := range t.writes {
		chain := t.store.chainFor(w.key, true)
		chain.append(versionEntry{writeTS: commitTS, value: w.value, tombstone: w.tombstone})
		if chain.length() > t.store.maxVersionsPerKey {
			chain.trim(t.store.maxVersionsPerKey, t.store.lowWaterMark())
		}
		t.store.markDirty(w.key)
	}

	t.state = txnCommitted
	return commitTS, nil
}

// Abort discards every buffered write. No side effects become visible.
func (t *Txn) Abort() error {
	if t.state != txnActive {
		return fmt.Errorf("abort: %w", types.ErrInvalidState)
	}
	t.store.releaseReader(t.readerID)
	t.state = txnAborted
	t.writes = nil
	return nil
}
