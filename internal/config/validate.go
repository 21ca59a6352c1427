// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package config

import (
	"fmt"

	"github.com/tomtom215/courier/internal/logging"
)

// ConfigError reports an invalid configuration section.
type ConfigError struct {
	Section string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Section, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validateScheduler(); err != nil {
		return err
	}

	if err := c.validateSender(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSupervisor(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateStore() error {
	cfg := c.StoreOptions()
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Section: "store", Err: err}
	}
	return nil
}

func (c *Config) validateScheduler() error {
	cfg := c.SchedulerOptions()
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Section: "scheduler", Err: err}
	}
	return nil
}

func (c *Config) validateSender() error {
	cfg := c.SenderOptions()
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Section: "sender", Err: err}
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	s := c.Server
	switch {
	case s.Port < 1 || s.Port > 65535:
		return &ConfigError{Section: "server", Err: fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", s.Port)}
	case s.IngestRateLimit < 1:
		return &ConfigError{Section: "server", Err: fmt.Errorf("INGEST_RATE_LIMIT must be at least 1, got %d", s.IngestRateLimit)}
	case s.IngestRateWindow <= 0:
		return &ConfigError{Section: "server", Err: fmt.Errorf("INGEST_RATE_WINDOW must be positive, got %v", s.IngestRateWindow)}
	case s.MaxBodyBytes < 1024:
		return &ConfigError{Section: "server", Err: fmt.Errorf("HTTP_MAX_BODY_BYTES must be at least 1024, got %d", s.MaxBodyBytes)}
	case s.ShutdownTimeout <= 0:
		return &ConfigError{Section: "server", Err: fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive, got %v", s.ShutdownTimeout)}
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	s := c.Supervisor
	if s.FailureThreshold < 0 || s.FailureDecay < 0 || s.FailureBackoff < 0 || s.ShutdownTimeout < 0 {
		return &ConfigError{Section: "supervisor", Err: fmt.Errorf("values must not be negative")}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return &ConfigError{Section: "logging", Err: fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)}
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return &ConfigError{Section: "logging", Err: fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)}
	}
	return nil
}
