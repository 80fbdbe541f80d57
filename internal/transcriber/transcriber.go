package transcriber

import (
	"context"
	"errors"
)

// ErrProvider marks failures of the external speech or summarization
// provider. In streaming mode it degrades to an error event; in batch mode
// it aborts the operation.
var ErrProvider = errors.New("transcriber: provider failed")

// Transcriber converts one unit of audio into text. Implementations live
// outside the core; the engine only sees this capability.
type Transcriber interface {
	TranscribeAudio(ctx context.Context, audio []byte) (string, error)
}

// Summarizer condenses a finished transcript. Optional capability.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}
