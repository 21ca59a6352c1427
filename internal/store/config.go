// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package store

import (
	"time"
)

// Config holds event store configuration.
type Config struct {
	// Path is the directory where BadgerDB stores its files.
	Path string

	// InMemory runs Badger without touching disk. Intended for tests.
	InMemory bool

	// SyncWrites forces fsync after every write.
	SyncWrites bool

	// MaxRecords caps the number of resident records across all partitions.
	MaxRecords int

	// MaxBytes caps the summed encoded size of resident records. Zero disables the cap.
	MaxBytes int64

	// MemTableSize is the size of each memtable in bytes.
	MemTableSize int64

	// ValueLogFileSize is the size of each value log file in bytes.
	ValueLogFileSize int64

	// NumCompactors is the number of compaction workers (Badger requires at least 2).
	NumCompactors int

	// Compression enables Snappy block compression.
	Compression bool

	// GCRatio is the discard ratio for value log garbage collection.
	GCRatio float64

	// GCInterval is the time between compactor runs.
	GCInterval time.Duration

	// CloseTimeout bounds how long Close waits for Badger to shut down.
	CloseTimeout time.Duration

	// ReleaseWhenIdle closes the database when the last Handle user releases it.
	ReleaseWhenIdle bool
}

// DefaultConfig returns a Config that favours durability over throughput.
func DefaultConfig() Config {
	return Config{
		Path:             "/data/courier",
		SyncWrites:       true,
		MaxRecords:       10000,
		MaxBytes:         32 * 1024 * 1024,
		MemTableSize:     16 * 1024 * 1024,
		ValueLogFileSize: 64 * 1024 * 1024,
		NumCompactors:    2,
		Compression:      true,
		GCRatio:          0.5,
		GCInterval:       10 * time.Minute,
		CloseTimeout:     30 * time.Second,
	}
}

// MinMemTableSize is the smallest memtable Validate accepts.
const MinMemTableSize = 16 * 1024 * 1024

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Path == "" && !c.InMemory {
		return &ConfigError{Field: "Path", Message: "store path is required"}
	}
	if c.MaxRecords < 1 {
		return &ConfigError{Field: "MaxRecords", Message: "must be at least 1"}
	}
	if c.MaxBytes < 0 {
		return &ConfigError{Field: "MaxBytes", Message: "must not be negative"}
	}
	// Badger caps a write batch at 15% of the memtable and refuses to open
	// when its 1MB value threshold exceeds that.
	if c.MemTableSize < MinMemTableSize {
		return &ConfigError{Field: "MemTableSize", Message: "must be at least 16MB"}
	}
	if c.ValueLogFileSize < 1024*1024 {
		return &ConfigError{Field: "ValueLogFileSize", Message: "must be at least 1MB"}
	}
	if c.NumCompactors < 2 {
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2 (BadgerDB requirement)"}
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return &ConfigError{Field: "GCRatio", Message: "must be between 0 and 1 (exclusive)"}
	}
	if c.GCInterval < time.Second {
		return &ConfigError{Field: "GCInterval", Message: "must be at least 1 second"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "store config error: " + e.Field + ": " + e.Message
}
