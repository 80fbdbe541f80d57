package webhook

import (
	"context"
	"time"
)

type TranscriptPayload struct {
	SessionID  string    `json:"session_id"`
	SourceFile string    `json:"source_file"`
	Transcript string    `json:"transcript"`
	FinishedAt time.Time `json:"finished_at"`
}

type Sender interface {
	SendTranscript(ctx context.Context, payload TranscriptPayload) error
}
