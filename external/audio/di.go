package audio

import (
	"github.com/minutelab/minute/internal/audio"
	"github.com/minutelab/minute/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audio.Segmenter, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewWAVSegmenter(c.SegmentDurationSec), nil
	})
	do.Provide(injector, func(i do.Injector) (audio.Decoder, error) {
		c := do.MustInvoke[*config.Config](i)
		if !c.StreamOpusDecode {
			return nil, nil
		}
		return NewOpusDecoder()
	})
}
