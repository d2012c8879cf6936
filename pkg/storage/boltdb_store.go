package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketData = []byte("data")

// BoltStore is the default Store adapter, backing the execution core with
// an embedded LSM-adjacent key-value file the way cuemby-warren's
// BoltStore backs cluster state — here it holds flushed MVCC values
// instead of cluster objects.
type BoltStore struct {
	db      *bolt.DB
	dataDir string
}

// NewBoltStore opens (creating if absent) a BoltDB-backed Store rooted at
// dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir %s: %w", dataDir, err)
	}

	dbPath := filepath.Join(dataDir, "txcore.db")
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketData)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create bucket: %w", err)
	}

	return &BoltStore{db: db, dataDir: dataDir}, nil
}

func (s *BoltStore) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketData).Get(key)
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, value != nil, err
}

func (s *BoltStore) Set(key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketData).Put(key, value)
	})
}

func (s *BoltStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketData).Delete(key)
	})
}

func (s *BoltStore) Scan(prefix []byte) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketData).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			out = append(out, Entry{Key: append([]byte(nil), k...), Value: append([]byte(nil), v...)})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return string(out[i].Key) < string(out[j].Key) })
	return out, err
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// WriteBatch applies every entry inside a single bolt transaction, so the
// batch is atomic from a reader's point of view. opts.DisableSync maps to
// bbolt's NoSync flag for the duration of the call; opts.DisableWAL has no
// bbolt equivalent (bbolt has no separate WAL) and is accepted but ignored,
// matching other Store adapters that bypass a write-ahead log entirely.
func (s *BoltStore) WriteBatch(entries []Entry, opts WriteBatchOptions) error {
	prevNoSync := s.db.NoSync
	if opts.DisableSync {
		s.db.NoSync = true
		defer func() { s.db.NoSync = prevNoSync }()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketData)
		for _, e := range entries {
			if e.Value == nil {
				if err := b.Delete(e.Key); err != nil {
					return err
				}
				continue
			}
			if err := b.Put(e.Key, e.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetProperty(name string) (string, error) {
	switch name {
	case "stats":
		stats := s.db.Stats()
		return fmt.Sprintf("tx_n=%d free_page_n=%d", stats.TxN, stats.FreePageN), nil
	default:
		return "", nil
	}
}

func (s *BoltStore) Close() error { return s.db.Close() }

// CreateCheckpoint snapshots the database file into dataDir/checkpoints/name.
func (s *BoltStore) CreateCheckpoint(name string) (string, error) {
	dir := filepath.Join(s.dataDir, "checkpoints")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: checkpoint mkdir: %w", err)
	}
	path := filepath.Join(dir, name+".db")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("storage: checkpoint create: %w", err)
	}
	defer f.Close()

	err = s.db.View(func(tx *bolt.Tx) error {
		_, err := tx.WriteTo(f)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("storage: checkpoint write: %w", err)
	}
	return path, nil
}

func (s *BoltStore) ListCheckpoints() ([]string, error) {
	dir := filepath.Join(s.dataDir, "checkpoints")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: list checkpoints: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Restore opens the checkpoint as a fresh BoltStore rooted at dest,
// returning a new Store handle without mutating the original.
func (s *BoltStore) Restore(name, dest string) (Store, error) {
	src := filepath.Join(s.dataDir, "checkpoints", name)
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("storage: restore read %s: %w", src, err)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("storage: restore mkdir %s: %w", dest, err)
	}
	destPath := filepath.Join(dest, "txcore.db")
	if err := os.WriteFile(destPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("storage: restore write %s: %w", destPath, err)
	}

	return NewBoltStore(dest)
}

var _ Checkpointer = (*BoltStore)(nil)
