// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package sender

import (
	"net/url"
	"time"
)

// Transport names.
const (
	TypeHTTP  = "http"
	TypeNATS  = "nats"
	TypeKafka = "kafka"
	TypeLog   = "log"
)

// Config selects and configures the collector transport.
type Config struct {
	// Type is one of http, nats, kafka or log.
	Type string

	// Timeout bounds a single Send call.
	Timeout time.Duration

	// RateLimit is the sustained number of batches per second (0 disables).
	RateLimit float64
	RateBurst int

	Breaker BreakerConfig
	HTTP    HTTPConfig
	NATS    NATSConfig
	Kafka   KafkaConfig
}

// BreakerConfig configures the circuit breaker around network transports.
type BreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// HTTPConfig configures the HTTP collector.
type HTTPConfig struct {
	URL       string
	AuthToken string
	UserAgent string
}

// NATSConfig configures the JetStream collector.
type NATSConfig struct {
	URL             string
	Subject         string
	Stream          string
	DuplicateWindow time.Duration
	CreateStream    bool
}

// KafkaConfig configures the Kafka collector.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// DefaultConfig returns the development log transport with a breaker
// configured for when a network transport is selected.
func DefaultConfig() Config {
	return Config{
		Type:      TypeLog,
		Timeout:   30 * time.Second,
		RateLimit: 0,
		RateBurst: 1,
		Breaker: BreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          2 * time.Minute,
			FailureThreshold: 5,
		},
		HTTP: HTTPConfig{
			UserAgent: "courier/1",
		},
		NATS: NATSConfig{
			URL:             "nats://127.0.0.1:4222",
			Subject:         "courier.events",
			Stream:          "COURIER_EVENTS",
			DuplicateWindow: 2 * time.Hour,
			CreateStream:    true,
		},
		Kafka: KafkaConfig{
			Topic:    "courier-events",
			ClientID: "courier",
		},
	}
}

// Validate checks that the selected transport is fully configured.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return &ConfigError{Field: "Timeout", Message: "must be positive"}
	}
	if c.RateLimit < 0 {
		return &ConfigError{Field: "RateLimit", Message: "must not be negative"}
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return &ConfigError{Field: "RateBurst", Message: "must be at least 1 when rate limiting"}
	}
	if c.Breaker.Enabled && c.Breaker.FailureThreshold == 0 {
		return &ConfigError{Field: "Breaker.FailureThreshold", Message: "must be at least 1"}
	}

	switch c.Type {
	case TypeHTTP:
		u, err := url.Parse(c.HTTP.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ConfigError{Field: "HTTP.URL", Message: "must be an absolute http(s) URL"}
		}
	case TypeNATS:
		if c.NATS.URL == "" {
			return &ConfigError{Field: "NATS.URL", Message: "is required"}
		}
		if c.NATS.Subject == "" {
			return &ConfigError{Field: "NATS.Subject", Message: "is required"}
		}
		if c.NATS.CreateStream && c.NATS.Stream == "" {
			return &ConfigError{Field: "NATS.Stream", Message: "is required when creating the stream"}
		}
	case TypeKafka:
		if len(c.Kafka.Brokers) == 0 {
			return &ConfigError{Field: "Kafka.Brokers", Message: "at least one broker is required"}
		}
		if c.Kafka.Topic == "" {
			return &ConfigError{Field: "Kafka.Topic", Message: "is required"}
		}
	case TypeLog:
	default:
		return &ConfigError{Field: "Type", Message: "must be one of http, nats, kafka, log"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "sender config error: " + e.Field + ": " + e.Message
}
