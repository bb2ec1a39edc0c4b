// Package types defines the concierge wire contract: the response envelope
// and the client action payload.
package types

import (
	"errors"
	"strings"
	"time"

	"seraphine-concierge-backend/internal/module"
)

// Action is what a rendered module emits when the user interacts. Unknown
// fields in Data are carried through untouched; unknown types are the
// dispatcher's problem (logged, ignored).
type Action struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

type ConverseRequest struct {
	Action Action `json:"action"`
}

// Meta rides on every envelope for request correlation.
type Meta struct {
	RequestID string    `json:"requestId"`
	SessionID string    `json:"sessionId"`
	Time      time.Time `json:"time"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the {success, data, meta} / {success:false, error} convention
// used across the storefront APIs.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Meta    Meta       `json:"meta"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ConverseData is the converse endpoint's payload: the module to show next
// and its server-rendered fragment.
type ConverseData struct {
	Module module.Module `json:"module"`
	HTML   string        `json:"html"`
}

// ValidationError accumulates per-field issues for malformed action data.
type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type ValidationError struct {
	Issues []ValidationIssue
}

var ErrInvalidAction = errors.New("invalid action data")

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return ErrInvalidAction.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Reason)
	}
	return ErrInvalidAction.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidAction }

func (e *ValidationError) Add(field, reason string) {
	e.Issues = append(e.Issues, ValidationIssue{Field: field, Reason: reason})
}

func (e *ValidationError) OrNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}
