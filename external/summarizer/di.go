package summarizer

import (
	"github.com/minutelab/minute/internal/config"
	"github.com/minutelab/minute/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Summarizer, error) {
		c := do.MustInvoke[*config.Config](i)
		if !c.SummaryEnabled() {
			return nil, nil
		}
		return NewOpenAISummarizer(c.OpenAIAPIKey, c.SummaryModel), nil
	})
}
