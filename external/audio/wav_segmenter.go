package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/minutelab/minute/internal/audio"
)

// WAVSegmenter splits a staged WAV recording into fixed-duration segment
// files so each provider request stays within its payload limits. Inputs
// that are not valid WAV, and configurations with segmentation disabled,
// pass through as a single segment.
type WAVSegmenter struct {
	segmentSeconds int
}

func NewWAVSegmenter(segmentSeconds int) audio.Segmenter {
	return &WAVSegmenter{segmentSeconds: segmentSeconds}
}

func (s *WAVSegmenter) Split(ctx context.Context, stagedPath string, alloc audio.WorkFileAllocator) ([]string, error) {
	if s.segmentSeconds <= 0 {
		return []string{stagedPath}, nil
	}

	f, err := os.Open(stagedPath)
	if err != nil {
		return nil, fmt.Errorf("open staged input: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		slog.Debug("input is not wav, skipping segmentation", "path", stagedPath)
		return []string{stagedPath}, nil
	}

	dec.ReadInfo()
	format := dec.Format()
	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	samplesPerSegment := format.SampleRate * format.NumChannels * s.segmentSeconds

	var paths []string
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf := &goaudio.IntBuffer{
			Format:         format,
			SourceBitDepth: bitDepth,
			Data:           make([]int, samplesPerSegment),
		}
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return nil, fmt.Errorf("read pcm for segment %d: %w", i, err)
		}
		if n == 0 {
			break
		}
		buf.Data = buf.Data[:n]

		path := alloc.AllocateWorkFile(fmt.Sprintf("segment-%03d", i), "wav")
		if err := writeWAV(path, buf, bitDepth); err != nil {
			return nil, fmt.Errorf("write segment %d: %w", i, err)
		}
		paths = append(paths, path)

		if n < samplesPerSegment {
			break
		}
	}
	if len(paths) == 0 {
		return []string{stagedPath}, nil
	}
	slog.Debug("staged input segmented", "path", stagedPath, "segments", len(paths), "segment_seconds", s.segmentSeconds)
	return paths, nil
}

func writeWAV(path string, buf *goaudio.IntBuffer, bitDepth int) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(out, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		_ = out.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
