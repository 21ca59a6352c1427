// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

/*
Package config provides centralized configuration management for Courier.

Configuration is layered with Koanf v2, later sources overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, then config.yaml, config.yml,
    /etc/courier/config.yaml, /etc/courier/config.yml
 3. Environment variables listed in envTransformFunc

Unknown environment variables are ignored.

# Environment Variables

Store:
  - STORE_PATH: BadgerDB directory (default: /data/courier)
  - STORE_IN_MEMORY: keep the store in memory (default: false)
  - STORE_SYNC_WRITES: fsync every write (default: true)
  - STORE_MAX_RECORDS: row cap across partitions (default: 10000)
  - STORE_MAX_BYTES: encoded size cap, 0 disables (default: 32MB)
  - STORE_RELEASE_WHEN_IDLE: close the database when idle (default: false)
  - STORE_GC_INTERVAL: value log GC period (default: 10m)

Scheduler:
  - SCHEDULER_PERIOD: base wake period (default: 15m)
  - SCHEDULER_MAX_PERIOD: backoff cap (default: 6h)

Sender:
  - SENDER_TYPE: http, nats, kafka or log (default: log)
  - SENDER_TIMEOUT: per-batch timeout (default: 30s)
  - COLLECTOR_URL, COLLECTOR_AUTH_TOKEN: HTTP collector
  - NATS_URL, NATS_SUBJECT, NATS_STREAM: JetStream collector
  - KAFKA_BROKERS (comma separated), KAFKA_TOPIC: Kafka collector

Server:
  - HTTP_ENABLED, HTTP_HOST, HTTP_PORT
  - INGEST_RATE_LIMIT, INGEST_RATE_WINDOW
  - CORS_ORIGINS (comma separated): browser origins allowed to call the API

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
*/
package config
