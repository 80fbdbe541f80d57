package repository

import "time"

type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

type Job struct {
	ID           string
	SessionID    string
	SourcePath   string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       JobStatus
	FailReason   string
	SegmentCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type TranscriptSegment struct {
	ID           string
	JobID        string
	Content      string
	SegmentIndex int
	CreatedAt    time.Time
}
