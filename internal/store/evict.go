// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package store

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/logging"
)

// largestPartitionLocked returns the partition with the most rows. Ties go to
// the partition listed first in event.Kinds.
func (s *Store) largestPartitionLocked() (event.Kind, int) {
	var (
		largest event.Kind
		rows    int
	)
	for _, k := range event.Kinds {
		if u, ok := s.usage[k]; ok && u.rows > rows {
			largest, rows = k, u.rows
		}
	}
	return largest, rows
}

// evictLocked deletes the oldest ceil(N/2) rows of the largest partition in a
// single transaction and returns how many rows were removed.
func (s *Store) evictLocked() (int, error) {
	kind, rows := s.largestPartitionLocked()
	if rows == 0 {
		return 0, nil
	}
	target := (rows + 1) / 2

	removed := &usage{}
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		prefix := recordPrefix(kind)
		var keys [][]byte
		var size int64
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(keys) < target; it.Next() {
			item := it.Item()
			keys = append(keys, item.KeyCopy(nil))
			size += item.ValueSize()
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("evict record: %w", err)
			}
			if err := txn.Delete(indexKey(idFromKey(key))); err != nil {
				return fmt.Errorf("evict index: %w", err)
			}
		}
		removed.rows = len(keys)
		removed.bytes = size
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.subtractUsageLocked(map[event.Kind]*usage{kind: removed})
	RecordEviction(kind, removed.rows)

	logging.Warn().
		Str("kind", string(kind)).
		Int("partition_rows", rows).
		Int("evicted", removed.rows).
		Int64("evicted_bytes", removed.bytes).
		Msg("Event store full, evicted oldest records")
	return removed.rows, nil
}
