package model

import "time"

// JobStatus is the lifecycle state of a render job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status can never transition again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job is one render submission. The scheduler owns State/Fraction/Message
// bookkeeping behind its lock; everything else is written once at submission
// or by the single worker executing the job.
type Job struct {
	ID          string     `json:"job_id"`
	State       JobStatus  `json:"state"`
	Fraction    float64    `json:"fraction"`
	Message     string     `json:"message,omitempty"`
	Fingerprint string     `json:"inputs_sha256"`
	Manifest    *Manifest  `json:"-"`
	WorkDir     string     `json:"-"`
	OutputDir   string     `json:"-"`
	OutputPath  string     `json:"-"`
	Error       *string    `json:"error,omitempty"`
	ErrorKind   string     `json:"error_kind,omitempty"`
	Report      *Report    `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TrackTiming is one track's resolved interval on the output timeline.
type TrackTiming struct {
	Index int       `json:"index"`
	Type  TrackType `json:"type"`
	Layer int       `json:"layer"`
	Start float64   `json:"start"`
	End   float64   `json:"end"`
}

// Report summarises a finished job. It is written once alongside the
// rendered output and never mutated afterwards.
type Report struct {
	JobID          string        `json:"job_id"`
	Fingerprint    string        `json:"inputs_sha256"`
	DurationMS     int64         `json:"duration_ms"`
	FPS            float64       `json:"fps"`
	Frames         int           `json:"frames"`
	Tracks         []TrackTiming `json:"tracks"`
	TargetLUFS     *float64      `json:"target_lufs,omitempty"`
	LoudnessGainDB *float64      `json:"loudness_gain_db,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
	Artifacts      []string      `json:"artifacts"`
	Error          string        `json:"error,omitempty"`
}
