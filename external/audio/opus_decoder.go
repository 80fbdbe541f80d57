//go:build opus

package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/hraban/opus"

	"github.com/minutelab/minute/internal/audio"
)

const (
	sampleRate = 48000
	channels   = 1
	// Opus frames carry at most 120ms of audio.
	maxSamplesPerFrame = sampleRate * 120 / 1000 * channels
)

type opusDecoder struct {
	dec *opus.Decoder
}

// NewOpusDecoder decodes inbound opus frames to 16-bit little-endian PCM.
func NewOpusDecoder() (audio.Decoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	return &opusDecoder{dec: dec}, nil
}

func (d *opusDecoder) Decode(frame []byte) ([]byte, error) {
	pcm := make([]int16, maxSamplesPerFrame)
	n, err := d.dec.Decode(frame, pcm)
	if err != nil {
		return nil, fmt.Errorf("decode opus frame: %w", err)
	}
	out := make([]byte, n*channels*2)
	for i, sample := range pcm[:n*channels] {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out, nil
}
