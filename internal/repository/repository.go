package repository

import (
	"context"
	"time"
)

type CreateJobInput struct {
	SessionID  string
	SourcePath string
	StartedAt  time.Time
}

type CompleteJobInput struct {
	JobID        string
	FinishedAt   time.Time
	Transcript   string
	SegmentCount int
}

type FailJobInput struct {
	JobID      string
	FinishedAt time.Time
	Reason     string
}

type InsertSegmentInput struct {
	JobID        string
	Content      string
	SegmentIndex int
}

type JobRepository interface {
	CreateJob(ctx context.Context, input CreateJobInput) (*Job, error)
	CompleteJob(ctx context.Context, input CompleteJobInput) error
	FailJob(ctx context.Context, input FailJobInput) error
}

type TranscriptRepository interface {
	InsertSegment(ctx context.Context, input InsertSegmentInput) error
	ListSegmentsByJobID(ctx context.Context, jobID string) ([]TranscriptSegment, error)
}

type Repository interface {
	JobRepository
	TranscriptRepository
}
