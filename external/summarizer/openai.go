package summarizer

import (
	"context"
	"fmt"

	"github.com/minutelab/minute/internal/transcriber"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const summarySystemPrompt = `Summarize the following meeting transcript. ` +
	`Keep decisions, action items and open questions. Be concise.`

// OpenAISummarizer implements the Summarizer capability with the OpenAI
// chat completions API.
type OpenAISummarizer struct {
	client openai.Client
	model  string
}

func NewOpenAISummarizer(apiKey, model string) transcriber.Summarizer {
	return &OpenAISummarizer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarySystemPrompt),
			openai.UserMessage(transcript),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
