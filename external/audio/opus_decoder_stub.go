//go:build !opus

package audio

import "github.com/minutelab/minute/internal/audio"

type passthroughDecoder struct{}

// NewOpusDecoder without the opus build tag passes frames through
// unchanged; the provider's auto-detection handles raw audio.
func NewOpusDecoder() (audio.Decoder, error) {
	return passthroughDecoder{}, nil
}

func (passthroughDecoder) Decode(frame []byte) ([]byte, error) {
	return frame, nil
}
