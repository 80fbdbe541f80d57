package gateway

import (
	"github.com/minutelab/minute/internal/audio"
	"github.com/minutelab/minute/internal/cache"
	"github.com/minutelab/minute/internal/repository"
	"github.com/minutelab/minute/internal/transcriber"
	"github.com/minutelab/minute/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Gateway, error) {
		stt := do.MustInvoke[transcriber.Transcriber](i)
		sum := do.MustInvoke[transcriber.Summarizer](i)
		seg := do.MustInvoke[audio.Segmenter](i)
		dec := do.MustInvoke[audio.Decoder](i)
		cm := do.MustInvoke[*cache.Manager](i)
		repo := do.MustInvoke[repository.Repository](i)
		wh := do.MustInvoke[webhook.Sender](i)
		return New(stt, sum, seg, dec, cm, repo, wh), nil
	})
}
