// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/job"
	"github.com/tomtom215/courier/internal/pipeline"
)

// Pipeline is the part of the delivery pipeline the API drives.
type Pipeline interface {
	EnqueueWait(ctx context.Context, rec *event.Record) (job.Result, error)
	Flush(ctx context.Context) (job.Result, error)
	Stats(ctx context.Context) (pipeline.Stats, error)
	Recovered() bool
}

// Config holds router settings.
type Config struct {
	IngestRateLimit  int
	IngestRateWindow time.Duration
	MaxBodyBytes     int64
	CORSOrigins      []string
}

// DefaultConfig returns 600 submissions per minute and a 1MB body limit.
func DefaultConfig() Config {
	return Config{
		IngestRateLimit:  600,
		IngestRateWindow: time.Minute,
		MaxBodyBytes:     1 << 20,
	}
}

// NewRouter builds the HTTP handler.
func NewRouter(p Pipeline, cfg Config) http.Handler {
	h := NewHandler(p, cfg.MaxBodyBytes)
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetrics)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", chimiddleware.RequestIDHeader},
			ExposedHeaders: []string{chimiddleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/health", func(r chi.Router) {
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})

		r.With(RateLimitIngest(cfg.IngestRateLimit, cfg.IngestRateWindow)).Post("/events", h.EnqueueEvent)
		r.Post("/flush", h.Flush)
		r.Get("/stats", h.Stats)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, &APIError{Code: CodeBadRequest, Message: "no such endpoint"}, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, &APIError{Code: CodeBadRequest, Message: "method not allowed"}, nil)
	})

	return r
}
