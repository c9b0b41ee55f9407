// Package store is the transactional account store backing the launchpad
// engine. Every instruction executes against a single Tx (a pebble indexed
// batch): reads observe earlier writes in the same Tx, and the whole write
// set commits atomically or not at all.
package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

type Store struct {
	db *pebble.DB
}

// Open opens a pebble database at the given path.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                    pebble.NewCache(128 << 20), // 128MB cache
		MemTableSize:             64 << 20,                   // 64MB memtable
		MaxConcurrentCompactions: func() int { return 3 },
		L0CompactionThreshold:    2,
		L0StopWritesThreshold:    12,
		LBaseMaxBytes:            64 << 20, // 64MB
		MaxOpenFiles:             1000,
		BytesPerSync:             512 << 10, // 512KB
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Tx is one transaction epoch. All mutations stay private to the batch until
// Update commits them.
type Tx struct {
	batch *pebble.Batch
}

// Update runs fn against a fresh indexed batch and commits the write set iff
// fn returns nil. A non-nil error discards every write.
func (s *Store) Update(fn func(tx *Tx) error) error {
	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	if err := fn(&Tx{batch: batch}); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// View runs fn against a read snapshot; writes made through it are always
// discarded.
func (s *Store) View(fn func(tx *Tx) error) error {
	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	return fn(&Tx{batch: batch})
}

// Get returns the stored value and whether the key exists.
func (tx *Tx) Get(key []byte) ([]byte, bool, error) {
	val, closer, err := tx.batch.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

// Has reports whether the key exists.
func (tx *Tx) Has(key []byte) (bool, error) {
	_, ok, err := tx.Get(key)
	return ok, err
}

// Set writes the value into the batch.
func (tx *Tx) Set(key, val []byte) error {
	return tx.batch.Set(key, val, nil)
}

// Delete removes the key (closing the record).
func (tx *Tx) Delete(key []byte) error {
	return tx.batch.Delete(key, nil)
}

// Scan visits every key with the given prefix in lexicographic order.
func (tx *Tx) Scan(prefix []byte, fn func(key, val []byte) error) error {
	iter, err := tx.batch.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}
