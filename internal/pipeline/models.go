package pipeline

import (
	"time"

	"github.com/reelscribe/reelscribe/internal/render"
	"github.com/reelscribe/reelscribe/internal/transcription"
)

// Job status values
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Request describes one transcription job as submitted by a client
type Request struct {
	URL               string              `json:"url"`
	Style             transcription.Style `json:"style"`
	Format            render.Format       `json:"format"`
	IncludeTimestamps bool                `json:"include_timestamps"`
}

// Job is a snapshot of a transcription job's state. Values returned from the
// service are copies; callers never observe in-flight mutation.
type Job struct {
	ID          string        `json:"id"`
	URL         string        `json:"url"`
	Status      string        `json:"status"`
	Style       string        `json:"style"`
	Format      string        `json:"format"`
	Timestamps  bool          `json:"timestamps"`
	SourceHash  string        `json:"source_hash"`
	Error       string        `json:"error,omitempty"`
	Output      string        `json:"output,omitempty"`
	RecordID    int64         `json:"record_id,omitempty"`
	SubmittedAt time.Time     `json:"submitted_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	Duration    time.Duration `json:"-"`
}
