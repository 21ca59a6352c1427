// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package config

import (
	"time"

	"github.com/tomtom215/courier/internal/logging"
	"github.com/tomtom215/courier/internal/scheduler"
	"github.com/tomtom215/courier/internal/sender"
	"github.com/tomtom215/courier/internal/store"
)

// Config is the complete application configuration.
type Config struct {
	Store      StoreConfig      `koanf:"store"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	Sender     SenderConfig     `koanf:"sender"`
	Server     ServerConfig     `koanf:"server"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// StoreConfig configures the BadgerDB event store.
type StoreConfig struct {
	Path             string        `koanf:"path"`
	InMemory         bool          `koanf:"in_memory"`
	SyncWrites       bool          `koanf:"sync_writes"`
	MaxRecords       int           `koanf:"max_records"`
	MaxBytes         int64         `koanf:"max_bytes"`
	MemTableSize     int64         `koanf:"mem_table_size"`
	ValueLogFileSize int64         `koanf:"value_log_file_size"`
	NumCompactors    int           `koanf:"num_compactors"`
	Compression      bool          `koanf:"compression"`
	GCRatio          float64       `koanf:"gc_ratio"`
	GCInterval       time.Duration `koanf:"gc_interval"`
	CloseTimeout     time.Duration `koanf:"close_timeout"`
	ReleaseWhenIdle  bool          `koanf:"release_when_idle"`
}

// SchedulerConfig configures the wake scheduler.
type SchedulerConfig struct {
	Period              time.Duration `koanf:"period"`
	MaxPeriod           time.Duration `koanf:"max_period"`
	Multiplier          float64       `koanf:"multiplier"`
	RandomizationFactor float64       `koanf:"randomization_factor"`
}

// SenderConfig configures the collector transport.
type SenderConfig struct {
	// Type is http, nats, kafka or log.
	Type      string        `koanf:"type"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
	RateBurst int           `koanf:"rate_burst"`

	Breaker BreakerConfig     `koanf:"breaker"`
	HTTP    HTTPSenderConfig  `koanf:"http"`
	NATS    NATSSenderConfig  `koanf:"nats"`
	Kafka   KafkaSenderConfig `koanf:"kafka"`
}

// BreakerConfig configures the sender circuit breaker.
type BreakerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// HTTPSenderConfig configures the HTTP collector.
type HTTPSenderConfig struct {
	URL       string `koanf:"url"`
	AuthToken string `koanf:"auth_token"`
	UserAgent string `koanf:"user_agent"`
}

// NATSSenderConfig configures the JetStream collector.
type NATSSenderConfig struct {
	URL             string        `koanf:"url"`
	Subject         string        `koanf:"subject"`
	Stream          string        `koanf:"stream"`
	DuplicateWindow time.Duration `koanf:"duplicate_window"`
	CreateStream    bool          `koanf:"create_stream"`
}

// KafkaSenderConfig configures the Kafka collector.
type KafkaSenderConfig struct {
	Brokers  []string `koanf:"brokers"`
	Topic    string   `koanf:"topic"`
	ClientID string   `koanf:"client_id"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// IngestRateLimit is the number of event submissions allowed per client
	// IP within IngestRateWindow.
	IngestRateLimit  int           `koanf:"ingest_rate_limit"`
	IngestRateWindow time.Duration `koanf:"ingest_rate_window"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS headers.
	CORSOrigins []string `koanf:"cors_origins"`
}

// SupervisorConfig configures the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller adds file:line to each entry.
	Caller bool `koanf:"caller"`
}

// StoreOptions converts the store section.
func (c *Config) StoreOptions() store.Config {
	s := c.Store
	return store.Config{
		Path:             s.Path,
		InMemory:         s.InMemory,
		SyncWrites:       s.SyncWrites,
		MaxRecords:       s.MaxRecords,
		MaxBytes:         s.MaxBytes,
		MemTableSize:     s.MemTableSize,
		ValueLogFileSize: s.ValueLogFileSize,
		NumCompactors:    s.NumCompactors,
		Compression:      s.Compression,
		GCRatio:          s.GCRatio,
		GCInterval:       s.GCInterval,
		CloseTimeout:     s.CloseTimeout,
		ReleaseWhenIdle:  s.ReleaseWhenIdle,
	}
}

// SchedulerOptions converts the scheduler section.
func (c *Config) SchedulerOptions() scheduler.Config {
	return scheduler.Config{
		Period:              c.Scheduler.Period,
		MaxPeriod:           c.Scheduler.MaxPeriod,
		Multiplier:          c.Scheduler.Multiplier,
		RandomizationFactor: c.Scheduler.RandomizationFactor,
	}
}

// SenderOptions converts the sender section.
func (c *Config) SenderOptions() sender.Config {
	s := c.Sender
	return sender.Config{
		Type:      s.Type,
		Timeout:   s.Timeout,
		RateLimit: s.RateLimit,
		RateBurst: s.RateBurst,
		Breaker: sender.BreakerConfig{
			Enabled:          s.Breaker.Enabled,
			MaxRequests:      s.Breaker.MaxRequests,
			Interval:         s.Breaker.Interval,
			Timeout:          s.Breaker.Timeout,
			FailureThreshold: s.Breaker.FailureThreshold,
		},
		HTTP: sender.HTTPConfig{
			URL:       s.HTTP.URL,
			AuthToken: s.HTTP.AuthToken,
			UserAgent: s.HTTP.UserAgent,
		},
		NATS: sender.NATSConfig{
			URL:             s.NATS.URL,
			Subject:         s.NATS.Subject,
			Stream:          s.NATS.Stream,
			DuplicateWindow: s.NATS.DuplicateWindow,
			CreateStream:    s.NATS.CreateStream,
		},
		Kafka: sender.KafkaConfig{
			Brokers:  append([]string(nil), s.Kafka.Brokers...),
			Topic:    s.Kafka.Topic,
			ClientID: s.Kafka.ClientID,
		},
	}
}

// LoggingOptions converts the logging section.
func (c *Config) LoggingOptions() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	return cfg
}
