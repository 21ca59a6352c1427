// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/courier/config.yaml",
	"/etc/courier/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:             "/data/courier",
			InMemory:         false,
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
			ReleaseWhenIdle:  false,
		},
		Scheduler: SchedulerConfig{
			Period:              15 * time.Minute,
			MaxPeriod:           6 * time.Hour,
			Multiplier:          2,
			RandomizationFactor: 0.2,
		},
		Sender: SenderConfig{
			Type:      "log",
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
			HTTP: HTTPSenderConfig{
				UserAgent: "courier/1",
			},
			NATS: NATSSenderConfig{
				URL:             "nats://127.0.0.1:4222",
				Subject:         "courier.events",
				Stream:          "COURIER_EVENTS",
				DuplicateWindow: 2 * time.Hour,
				CreateStream:    true,
			},
			Kafka: KafkaSenderConfig{
				Topic:    "courier-events",
				ClientID: "courier",
			},
		},
		Server: ServerConfig{
			Enabled:          true,
			Host:             "127.0.0.1",
			Port:             8089,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      60 * time.Second,
			ShutdownTimeout:  10 * time.Second,
			IngestRateLimit:  600,
			IngestRateWindow: time.Minute,
			MaxBodyBytes:     1 << 20,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config file (optional)
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from the environment.
var sliceConfigPaths = []string{
	"sender.kafka.brokers",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Store
	"store_path":                "store.path",
	"store_in_memory":           "store.in_memory",
	"store_sync_writes":         "store.sync_writes",
	"store_max_records":         "store.max_records",
	"store_max_bytes":           "store.max_bytes",
	"store_mem_table_size":      "store.mem_table_size",
	"store_value_log_file_size": "store.value_log_file_size",
	"store_num_compactors":      "store.num_compactors",
	"store_compression":         "store.compression",
	"store_gc_ratio":            "store.gc_ratio",
	"store_gc_interval":         "store.gc_interval",
	"store_close_timeout":       "store.close_timeout",
	"store_release_when_idle":   "store.release_when_idle",

	// Scheduler
	"scheduler_period":               "scheduler.period",
	"scheduler_max_period":           "scheduler.max_period",
	"scheduler_multiplier":           "scheduler.multiplier",
	"scheduler_randomization_factor": "scheduler.randomization_factor",

	// Sender
	"sender_type":                      "sender.type",
	"sender_timeout":                   "sender.timeout",
	"sender_rate_limit":                "sender.rate_limit",
	"sender_rate_burst":                "sender.rate_burst",
	"sender_breaker_enabled":           "sender.breaker.enabled",
	"sender_breaker_max_requests":      "sender.breaker.max_requests",
	"sender_breaker_interval":          "sender.breaker.interval",
	"sender_breaker_timeout":           "sender.breaker.timeout",
	"sender_breaker_failure_threshold": "sender.breaker.failure_threshold",
	"collector_url":                    "sender.http.url",
	"collector_auth_token":             "sender.http.auth_token",
	"collector_user_agent":             "sender.http.user_agent",
	"nats_url":                         "sender.nats.url",
	"nats_subject":                     "sender.nats.subject",
	"nats_stream":                      "sender.nats.stream",
	"nats_duplicate_window":            "sender.nats.duplicate_window",
	"nats_create_stream":               "sender.nats.create_stream",
	"kafka_brokers":                    "sender.kafka.brokers",
	"kafka_topic":                      "sender.kafka.topic",
	"kafka_client_id":                  "sender.kafka.client_id",

	// Server
	"http_enabled":          "server.enabled",
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"ingest_rate_limit":     "server.ingest_rate_limit",
	"ingest_rate_window":    "server.ingest_rate_window",
	"http_max_body_bytes":   "server.max_body_bytes",
	"cors_origins":          "server.cors_origins",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - STORE_PATH -> store.path
//   - COLLECTOR_URL -> sender.http.url
//   - KAFKA_BROKERS -> sender.kafka.brokers
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	// Unmapped variables are skipped.
	return ""
}
