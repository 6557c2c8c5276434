package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds used in the API envelope and in reports.
const (
	KindValidation  = "validation"
	KindAsset       = "asset"
	KindCapacity    = "capacity"
	KindComposition = "composition"
	KindAudio       = "audio"
	KindTimeout     = "timeout"
	KindNotFound    = "not_found"
)

// FieldError points at one offending manifest field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError enumerates every violated constraint of a submitted
// manifest, not just the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "manifest validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Path+": "+f.Message)
	}
	return "manifest validation failed: " + strings.Join(parts, "; ")
}

// AssetError marks a referenced asset as missing or unreadable. Jobs are
// rejected before queueing when this occurs.
type AssetError struct {
	Src string
	Err error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %q unreadable: %v", e.Src, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// CapacityError signals that the scheduler queue is at its depth limit.
type CapacityError struct {
	Depth int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("render queue is full (depth %d), retry later", e.Depth)
}

// CompositionError wraps a failure during layering/decoding/encoding so
// external-engine failures are classified instead of leaking raw exec errors.
type CompositionError struct {
	Stage string
	Err   error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition failed at %s: %v", e.Stage, e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }

// AudioError is non-fatal: normalization is skipped and the reason is
// recorded as a report warning.
type AudioError struct {
	Reason string
	Err    error
}

func (e *AudioError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio processing degraded (%s): %v", e.Reason, e.Err)
	}
	return "audio processing degraded: " + e.Reason
}

func (e *AudioError) Unwrap() error { return e.Err }

// TimeoutError marks a job that exceeded its wall-clock budget.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job exceeded wall-clock budget of %s", e.Budget)
}

// NotFoundError is returned for unknown job ids.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job %q not found", e.JobID)
}

// ErrKind maps an error to its envelope kind string.
func ErrKind(err error) string {
	var (
		ve *ValidationError
		ae *AssetError
		ce *CapacityError
		me *CompositionError
		ue *AudioError
		te *TimeoutError
		ne *NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ae):
		return KindAsset
	case errors.As(err, &ce):
		return KindCapacity
	case errors.As(err, &me):
		return KindComposition
	case errors.As(err, &ue):
		return KindAudio
	case errors.As(err, &te):
		return KindTimeout
	case errors.As(err, &ne):
		return KindNotFound
	}
	return KindComposition
}
