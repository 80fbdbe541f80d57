package audio

import "context"

// WorkFileAllocator reserves a scratch path for one segment. Satisfied by
// cache.Session.AllocateWorkFile.
type WorkFileAllocator interface {
	AllocateWorkFile(name, ext string) string
}

// Segmenter splits a staged recording into fixed-duration segment files so
// each segment stays within the provider's per-request limits. The returned
// paths preserve the recording's time order. Implementations that cannot
// split the input return the staged path as a single segment.
type Segmenter interface {
	Split(ctx context.Context, stagedPath string, alloc WorkFileAllocator) ([]string, error)
}

// Decoder converts one inbound streaming frame into PCM the transcription
// provider accepts.
type Decoder interface {
	Decode(frame []byte) ([]byte, error)
}
