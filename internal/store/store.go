// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/logging"
)

// Errors
var (
	// ErrNotFound is returned when no record matches an id.
	ErrNotFound = errors.New("event not found")

	// ErrStoreFull is returned when an insert does not fit even after eviction.
	ErrStoreFull = errors.New("event store full")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("event store closed")

	// ErrNilRecord is returned when a nil record is passed to Save.
	ErrNilRecord = errors.New("record cannot be nil")

	errCapacity = errors.New("capacity exceeded")
)

const (
	prefixRecord = "rec:"
	prefixIndex  = "idx:"
	sequenceKey  = "seq:record"

	// sequenceBandwidth is how many ids Badger leases per sequence refill.
	sequenceBandwidth = 128
)

func recordPrefix(kind event.Kind) []byte {
	return []byte(prefixRecord + string(kind) + ":")
}

func recordKey(kind event.Kind, id event.ID) []byte {
	return binary.BigEndian.AppendUint64(recordPrefix(kind), uint64(id))
}

func indexKey(id event.ID) []byte {
	return binary.BigEndian.AppendUint64([]byte(prefixIndex), uint64(id))
}

// idFromKey extracts the trailing big-endian id of a record or index key.
func idFromKey(key []byte) event.ID {
	return event.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

// kindFromRecordKey extracts <kind> from rec:<kind>:<id>.
func kindFromRecordKey(key []byte) event.Kind {
	return event.Kind(key[len(prefixRecord) : len(key)-9])
}

type usage struct {
	rows  int
	bytes int64
}

// Store is the BadgerDB-backed event table.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	config Config

	mu     sync.RWMutex
	closed bool
	usage  map[event.Kind]*usage
}

// Open creates or opens the event table at the configured path.
func Open(cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.MemTableSize = cfg.MemTableSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumCompactors = cfg.NumCompactors
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open id sequence: %w", err)
	}

	s := &Store{
		db:     db,
		seq:    seq,
		config: *cfg,
		usage:  make(map[event.Kind]*usage),
	}
	if err := s.loadUsage(); err != nil {
		_ = seq.Release()
		_ = db.Close()
		return nil, err
	}
	s.publishUsageLocked()

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Int("max_records", cfg.MaxRecords).
		Int64("max_bytes", cfg.MaxBytes).
		Int("resident", s.totalRowsLocked()).
		Msg("Event store opened")
	return s, nil
}

// loadUsage rebuilds the per-partition row and byte counters from disk.
func (s *Store) loadUsage() error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			u := s.usageFor(kindFromRecordKey(item.Key()))
			u.rows++
			u.bytes += item.ValueSize()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load store usage: %w", err)
	}
	return nil
}

func (s *Store) usageFor(kind event.Kind) *usage {
	u, ok := s.usage[kind]
	if !ok {
		u = &usage{}
		s.usage[kind] = u
	}
	return u
}

func (s *Store) totalRowsLocked() int {
	n := 0
	for _, u := range s.usage {
		n += u.rows
	}
	return n
}

func (s *Store) totalBytesLocked() int64 {
	var n int64
	for _, u := range s.usage {
		n += u.bytes
	}
	return n
}

func (s *Store) publishUsageLocked() {
	rows := make(map[event.Kind]int, len(s.usage))
	for k, u := range s.usage {
		rows[k] = u.rows
	}
	UpdateRecordGauges(rows, s.totalBytesLocked())
}

// fitsLocked reports whether one more record of size bytes fits under both caps.
func (s *Store) fitsLocked(size int64) bool {
	if s.totalRowsLocked()+1 > s.config.MaxRecords {
		return false
	}
	return s.config.MaxBytes == 0 || s.totalBytesLocked()+size <= s.config.MaxBytes
}

// Save persists rec, assigning its ID and CreatedAt. When the insert would
// exceed capacity the largest partition is evicted and the insert retried
// once; if it still does not fit, ErrStoreFull is returned and rec is unchanged.
func (s *Store) Save(ctx context.Context, rec *event.Record) (event.ID, error) {
	if rec == nil {
		return 0, ErrNilRecord
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	start := time.Now()
	defer func() {
		RecordWriteLatency(time.Since(start).Seconds())
	}()

	next, err := s.seq.Next()
	if err != nil {
		RecordSaveFailure("sequence")
		return 0, fmt.Errorf("allocate id: %w", err)
	}

	stored := *rec
	stored.ID = event.ID(next + 1)
	stored.CreatedAt = time.Now().UTC()
	data, err := stored.Marshal()
	if err != nil {
		RecordSaveFailure("encode")
		return 0, fmt.Errorf("encode record: %w", err)
	}

	if s.config.MaxBytes > 0 && int64(len(data)) > s.config.MaxBytes {
		RecordSaveFailure("too_large")
		return 0, fmt.Errorf("%w: record of %d bytes exceeds max_bytes", ErrStoreFull, len(data))
	}

	err = s.insertLocked(&stored, data)
	if errors.Is(err, errCapacity) {
		if _, evErr := s.evictLocked(); evErr != nil {
			RecordSaveFailure("eviction")
			return 0, fmt.Errorf("%w: eviction failed: %w", ErrStoreFull, evErr)
		}
		err = s.insertLocked(&stored, data)
	}
	switch {
	case errors.Is(err, errCapacity):
		RecordSaveFailure("full")
		return 0, ErrStoreFull
	case err != nil:
		RecordSaveFailure("write")
		return 0, err
	}

	rec.ID = stored.ID
	rec.CreatedAt = stored.CreatedAt
	RecordSave()
	s.publishUsageLocked()
	return stored.ID, nil
}

func (s *Store) insertLocked(rec *event.Record, data []byte) error {
	if !s.fitsLocked(int64(len(data))) {
		return errCapacity
	}

	kind := rec.Kind()
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(kind, rec.ID), data); err != nil {
			return err
		}
		return txn.Set(indexKey(rec.ID), []byte(kind))
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return errCapacity
	}
	if err != nil {
		return fmt.Errorf("write record %d: %w", rec.ID, err)
	}

	u := s.usageFor(kind)
	u.rows++
	u.bytes += int64(len(data))
	return nil
}

// located is a record read inside a transaction together with its storage size.
type located struct {
	rec  *event.Record
	size int64
}

// getTxn resolves id through the index and decodes the record.
func getTxn(txn *badger.Txn, id event.ID) (located, error) {
	idx, err := txn.Get(indexKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return located{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return located{}, fmt.Errorf("read index %d: %w", id, err)
	}
	kind, err := idx.ValueCopy(nil)
	if err != nil {
		return located{}, fmt.Errorf("read index %d: %w", id, err)
	}

	item, err := txn.Get(recordKey(event.Kind(kind), id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return located{}, fmt.Errorf("%w: id %d indexed under %q but missing", ErrNotFound, id, kind)
	}
	if err != nil {
		return located{}, fmt.Errorf("read record %d: %w", id, err)
	}

	var rec *event.Record
	if err := item.Value(func(val []byte) error {
		var decErr error
		rec, decErr = event.Unmarshal(val)
		return decErr
	}); err != nil {
		return located{}, err
	}
	return located{rec: rec, size: item.ValueSize()}, nil
}

// Read returns the record with the given id.
func (s *Store) Read(ctx context.Context, id event.ID) (*event.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var rec *event.Record
	err := s.db.View(func(txn *badger.Txn) error {
		l, err := getTxn(txn, id)
		rec = l.rec
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// EventsWithStatus returns the ids of every record in status, ascending.
// The ids come from a single read snapshot.
func (s *Store) EventsWithStatus(ctx context.Context, status event.Status) ([]event.ID, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", event.ErrInvalidStatus, status)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var ids []event.ID
	_, err := s.scan(func(rec *event.Record) {
		if rec.Status == status {
			ids = append(ids, rec.ID)
		}
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

// scan decodes every resident record in one read transaction. Rows that do
// not decode are skipped and reported in the returned count.
func (s *Store) scan(fn func(*event.Record)) (skipped int, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				rec, err := event.Unmarshal(val)
				if err != nil {
					skipped++
					RecordUndecodable()
					logging.Warn().
						Err(err).
						Hex("key", item.KeyCopy(nil)).
						Msg("Skipping undecodable record")
					return nil
				}
				fn(rec)
				return nil
			})
			if err != nil {
				return fmt.Errorf("read record %x: %w", item.Key(), err)
			}
		}
		return nil
	})
	return skipped, err
}

// SetStatus updates one record's status. It fails with ErrNotFound when no
// record has the id.
func (s *Store) SetStatus(ctx context.Context, id event.ID, status event.Status) error {
	_, err := s.SetStatusBatch(ctx, []event.ID{id}, status)
	return err
}

// SetStatusBatch updates the status of every id in one transaction. Either all
// records change or none do; a missing id fails the batch with ErrNotFound.
func (s *Store) SetStatusBatch(ctx context.Context, ids []event.ID, status event.Status) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: %q", event.ErrInvalidStatus, status)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	start := time.Now()
	defer func() {
		RecordWriteLatency(time.Since(start).Seconds())
	}()

	deltas := make(map[event.Kind]int64)
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			l, err := getTxn(txn, id)
			if err != nil {
				return err
			}
			l.rec.Status = status
			data, err := l.rec.Marshal()
			if err != nil {
				return fmt.Errorf("encode record %d: %w", id, err)
			}
			if err := txn.Set(recordKey(l.rec.Kind(), id), data); err != nil {
				return fmt.Errorf("update record %d: %w", id, err)
			}
			deltas[l.rec.Kind()] += int64(len(data)) - l.size
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for kind, d := range deltas {
		s.usageFor(kind).bytes += d
	}
	return len(ids), nil
}

// DeleteBatch removes every listed record in one transaction. Ids that are
// already gone are skipped.
func (s *Store) DeleteBatch(ctx context.Context, ids []event.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	start := time.Now()
	defer func() {
		RecordWriteLatency(time.Since(start).Seconds())
	}()

	removed := make(map[event.Kind]*usage)
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			idx, err := txn.Get(indexKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("read index %d: %w", id, err)
			}
			kindBytes, err := idx.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read index %d: %w", id, err)
			}
			kind := event.Kind(kindBytes)

			item, err := txn.Get(recordKey(kind, id))
			if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("read record %d: %w", id, err)
			}
			if err == nil {
				size := item.ValueSize()
				if err := txn.Delete(recordKey(kind, id)); err != nil {
					return fmt.Errorf("delete record %d: %w", id, err)
				}
				u, ok := removed[kind]
				if !ok {
					u = &usage{}
					removed[kind] = u
				}
				u.rows++
				u.bytes += size
			}
			if err := txn.Delete(indexKey(id)); err != nil {
				return fmt.Errorf("delete index %d: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.subtractUsageLocked(removed)
	s.publishUsageLocked()
	return nil
}

func (s *Store) subtractUsageLocked(removed map[event.Kind]*usage) {
	for kind, r := range removed {
		u := s.usageFor(kind)
		u.rows -= r.rows
		u.bytes -= r.bytes
		if u.rows < 0 {
			u.rows = 0
		}
		if u.bytes < 0 {
			u.bytes = 0
		}
	}
}

// Count returns how many records are in status.
func (s *Store) Count(ctx context.Context, status event.Status) (int, error) {
	ids, err := s.EventsWithStatus(ctx, status)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// CountAll returns the number of resident records.
func (s *Store) CountAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return s.totalRowsLocked(), nil
}

// Reset deletes every record unconditionally. Ids keep growing afterwards.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if err := s.db.DropPrefix([]byte(prefixRecord), []byte(prefixIndex)); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	s.usage = make(map[event.Kind]*usage)
	s.publishUsageLocked()

	logging.Info().Msg("Event store reset")
	return nil
}

// Stats summarizes the store for monitoring.
type Stats struct {
	Total      int                  `json:"total"`
	ByStatus   map[event.Status]int `json:"by_status"`
	ByKind     map[event.Kind]int   `json:"by_kind"`
	Bytes      int64                `json:"bytes"`
	MaxRecords int                  `json:"max_records"`
	MaxBytes   int64                `json:"max_bytes"`
	LSMSize    int64                `json:"lsm_size_bytes"`
	VLogSize   int64                `json:"vlog_size_bytes"`

	// Undecodable counts rows skipped because they could not be decoded.
	Undecodable int `json:"undecodable"`
}

// Stats scans the table and returns current counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Stats{}, ErrClosed
	}

	st := Stats{
		ByStatus:   make(map[event.Status]int, len(event.Statuses)),
		ByKind:     make(map[event.Kind]int, len(event.Kinds)),
		MaxRecords: s.config.MaxRecords,
		MaxBytes:   s.config.MaxBytes,
	}
	for _, status := range event.Statuses {
		st.ByStatus[status] = 0
	}
	skipped, err := s.scan(func(rec *event.Record) {
		st.Total++
		st.ByStatus[rec.Status]++
		st.ByKind[rec.Kind()]++
	})
	if err != nil {
		return Stats{}, err
	}
	st.Undecodable = skipped
	st.Bytes = s.totalBytesLocked()
	st.LSMSize, st.VLogSize = s.db.Size()
	UpdateDBSize(st.LSMSize, st.VLogSize)
	return st, nil
}

// RunGC runs value log garbage collection until nothing is left to rewrite.
func (s *Store) RunGC() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	if s.config.InMemory {
		return nil
	}

	start := time.Now()
	defer func() {
		RecordGCRun(time.Since(start).Seconds())
	}()

	for {
		err := s.db.RunValueLogGC(s.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close releases the id sequence and closes Badger, bounded by CloseTimeout.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	timeout := s.config.CloseTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	s.mu.Unlock()

	if err := s.seq.Release(); err != nil {
		logging.Warn().Err(err).Msg("Failed to release id sequence")
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Event store closed")
		return nil
	case <-time.After(timeout):
		logging.Warn().Dur("timeout", timeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", timeout)
	}
}
