// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package sender

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/metrics"
)

// Headers sent with each HTTP batch.
const (
	HeaderBatchID        = "X-Courier-Batch-Id"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// StatusError reports a non-2xx collector response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("collector returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("collector returned HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPSender posts batch envelopes to a collector URL.
type HTTPSender struct {
	url       string
	token     string
	userAgent string
	client    *http.Client
	closed    atomic.Bool
}

// NewHTTPSender creates an HTTP sender from cfg.HTTP.
func NewHTTPSender(cfg Config) *HTTPSender {
	return &HTTPSender{
		url:       cfg.HTTP.URL,
		token:     cfg.HTTP.AuthToken,
		userAgent: cfg.HTTP.UserAgent,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name implements Sender.
func (*HTTPSender) Name() string { return TypeHTTP }

// Close implements Sender.
func (s *HTTPSender) Close() error {
	s.closed.Store(true)
	s.client.CloseIdleConnections()
	return nil
}

// Send implements Sender. Any status outside 2xx is a failure.
func (s *HTTPSender) Send(ctx context.Context, batch []event.Payload) (err error) {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	if s.closed.Load() {
		return ErrClosed
	}

	start := time.Now()
	defer func() { metrics.RecordSend(s.Name(), len(batch), time.Since(start), err) }()

	env := NewBatch(batch)
	body, err := env.Encode()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderBatchID, env.ID)
	req.Header.Set(HeaderIdempotencyKey, env.ID)
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return nil
}
