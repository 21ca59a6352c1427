// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/courier/internal/event"
	"github.com/tomtom215/courier/internal/job"
	"github.com/tomtom215/courier/internal/pipeline"
	"github.com/tomtom215/courier/internal/validation"
)

// Handler serves the API endpoints.
type Handler struct {
	pipeline     Pipeline
	maxBodyBytes int64
	started      time.Time
}

// NewHandler creates a Handler.
func NewHandler(p Pipeline, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	return &Handler{pipeline: p, maxBodyBytes: maxBodyBytes, started: time.Now()}
}

// EventRequest is the body of POST /api/v1/events.
type EventRequest struct {
	Kind      event.Kind        `json:"kind"`
	ReceiptID string            `json:"receipt_id,omitempty"`
	DeviceID  string            `json:"device_id"`
	EventType string            `json:"event_type"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

func (req *EventRequest) payload() event.Payload {
	p := event.Payload{
		Kind:      req.Kind,
		ReceiptID: req.ReceiptID,
		DeviceID:  req.DeviceID,
		EventType: req.EventType,
		Data:      req.Data,
	}
	if req.Timestamp != nil {
		p.Timestamp = req.Timestamp.UTC()
	}
	return p
}

// EnqueueResponse is returned once an event is persisted.
type EnqueueResponse struct {
	Result string `json:"result"`
}

// EnqueueEvent validates and persists one event.
func (h *Handler) EnqueueEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, &APIError{Code: CodeRequestTooLarge, Message: "request body too large"}, nil)
			return
		}
		respondError(w, r, http.StatusBadRequest, &APIError{Code: CodeBadRequest, Message: "failed to read request body"}, err)
		return
	}

	var req EventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, &APIError{Code: CodeBadRequest, Message: "invalid JSON body"}, err)
		return
	}

	rec, err := event.NewPending(req.payload())
	if err != nil {
		respondError(w, r, http.StatusBadRequest, validationError(err), nil)
		return
	}

	result, err := h.pipeline.EnqueueWait(r.Context(), rec)
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, &APIError{Code: CodeUnavailable, Message: "event was not confirmed before the request ended"}, err)
		return
	}

	switch result {
	case job.Success:
		respondSuccess(w, r, http.StatusAccepted, EnqueueResponse{Result: result.String()})
	case job.CouldNotSave:
		respondError(w, r, http.StatusInsufficientStorage, &APIError{Code: CodeStoreFull, Message: "event store is full"}, nil)
	default:
		respondError(w, r, http.StatusServiceUnavailable, &APIError{Code: CodeUnavailable, Message: "event was not saved: " + result.String()}, nil)
	}
}

// validationError maps a record construction error to an APIError.
func validationError(err error) *APIError {
	apiErr := &APIError{Code: CodeValidation, Message: err.Error()}

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		details := make(map[string]any, len(verr.Fields))
		for _, f := range verr.Fields {
			details[f.Field] = f.Message
		}
		apiErr.Details = details
		apiErr.Message = "event failed validation"
	}
	return apiErr
}

// FlushResponse reports the Send result of a flush.
type FlushResponse struct {
	Result string `json:"result"`
}

// Flush runs Cleanup and Send and reports the Send result.
func (h *Handler) Flush(w http.ResponseWriter, r *http.Request) {
	result, err := h.pipeline.Flush(r.Context())
	if errors.Is(err, pipeline.ErrNotRecovered) {
		respondError(w, r, http.StatusServiceUnavailable, &APIError{Code: CodeUnavailable, Message: "startup recovery has not completed"}, nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, &APIError{Code: CodeUnavailable, Message: "flush did not complete"}, err)
		return
	}

	switch result {
	case job.Success, job.NoWorkToDo:
		respondSuccess(w, r, http.StatusOK, FlushResponse{Result: result.String()})
	case job.FailedToSendReceipts:
		respondError(w, r, http.StatusBadGateway, &APIError{Code: CodeDeliveryFailed, Message: "collector rejected the batch"}, nil)
	default:
		respondError(w, r, http.StatusServiceUnavailable, &APIError{Code: CodeUnavailable, Message: "flush ended with " + result.String()}, nil)
	}
}

// Stats returns pipeline statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pipeline.Stats(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, &APIError{Code: CodeInternal, Message: "failed to read statistics"}, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, stats)
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status    string  `json:"status"`
	Recovered bool    `json:"recovered"`
	Uptime    float64 `json:"uptime_seconds"`
}

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, HealthResponse{
		Status:    "alive",
		Recovered: h.pipeline.Recovered(),
		Uptime:    time.Since(h.started).Seconds(),
	})
}

// HealthReady reports ready once startup recovery has succeeded.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.pipeline.Recovered() {
		respondError(w, r, http.StatusServiceUnavailable, &APIError{Code: CodeUnavailable, Message: "startup recovery pending"}, nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, HealthResponse{
		Status:    "ready",
		Recovered: true,
		Uptime:    time.Since(h.started).Seconds(),
	})
}
