// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package sender

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func httpConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.Type = TypeHTTP
	cfg.HTTP.URL = url
	cfg.HTTP.AuthToken = "secret"
	cfg.Timeout = 2 * time.Second
	return cfg
}

func TestHTTPSender_Success(t *testing.T) {
	var (
		mu       sync.Mutex
		received Batch
		headers  http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		headers = r.Header.Clone()
		if err := json.Unmarshal(body, &received); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewHTTPSender(httpConfig(srv.URL))
	defer s.Close()

	payloads := testPayloads("r1", "r2")
	if err := s.Send(context.Background(), payloads); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if received.Count != 2 || len(received.Events) != 2 {
		t.Errorf("received = %+v", received)
	}
	want := BatchKey(payloads).String()
	if got := headers.Get(HeaderBatchID); got != want {
		t.Errorf("%s = %q, want %q", HeaderBatchID, got, want)
	}
	if got := headers.Get(HeaderIdempotencyKey); got != want {
		t.Errorf("%s = %q, want %q", HeaderIdempotencyKey, got, want)
	}
	if got := headers.Get("Authorization"); got != "Bearer secret" {
		t.Errorf("Authorization = %q", got)
	}
	if got := headers.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestHTTPSender_Non2xxIsFailure(t *testing.T) {
	codes := []int{http.StatusMovedPermanently, http.StatusBadRequest, http.StatusServiceUnavailable}
	for _, code := range codes {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(code)
				_, _ = w.Write([]byte("nope"))
			}))
			defer srv.Close()

			s := NewHTTPSender(httpConfig(srv.URL))
			err := s.Send(context.Background(), testPayloads("r1"))

			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("Send() error = %v, want *StatusError", err)
			}
			if statusErr.StatusCode != code {
				t.Errorf("status = %d, want %d", statusErr.StatusCode, code)
			}
			if statusErr.Body != "nope" {
				t.Errorf("body = %q", statusErr.Body)
			}
		})
	}
}

func TestHTTPSender_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := httpConfig(srv.URL)
	cfg.Timeout = 100 * time.Millisecond
	s := NewHTTPSender(cfg)

	start := time.Now()
	if err := s.Send(context.Background(), testPayloads("r1")); err == nil {
		t.Fatal("Send() should time out")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Send() took %v", elapsed)
	}
}

func TestHTTPSender_Closed(t *testing.T) {
	s := NewHTTPSender(httpConfig("http://127.0.0.1:1"))
	_ = s.Close()
	if err := s.Send(context.Background(), testPayloads("r1")); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() error = %v, want ErrClosed", err)
	}
}

func TestNew_GuardedHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := New(context.Background(), httpConfig(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if _, ok := s.(*guarded); !ok {
		t.Fatalf("New() returned %T, want guarded sender", s)
	}
	if err := s.Send(context.Background(), testPayloads("r1")); err != nil {
		t.Errorf("Send() error = %v", err)
	}
}
