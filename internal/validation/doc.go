// Courier - Durable At-Least-Once Event Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/courier

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide. Field names in error
// messages come from the struct's json tags, so an API client sees the same
// names it sent:
//
//	type Payload struct {
//	    EventType string `json:"event_type" validate:"required,max=128"`
//	}
//
//	if verr := validation.ValidateStruct(&p); verr != nil {
//	    return verr // "event_type is required"
//	}
package validation
