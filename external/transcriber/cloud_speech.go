package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/minutelab/minute/internal/transcriber"
	"google.golang.org/api/option"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

// CloudSpeechTranscriber implements the Transcriber capability with Google
// Cloud Speech v2 synchronous recognition. Audio decoding is auto-detected,
// so both WAV segments from the batch path and raw chunks from the
// streaming path go through the same call.
type CloudSpeechTranscriber struct {
	projectID       string
	credentialsJSON string
	language        string
	location        string
	model           string

	initOnce sync.Once
	initErr  error
	client   *speech.Client
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) transcriber.Transcriber {
	return &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		language:        cfg.Language,
		location:        strings.TrimSpace(cfg.Location),
		model:           strings.TrimSpace(cfg.Model),
	}
}

// init builds the API client once. The client is long-lived; recreating it
// per chunk would add a connection handshake to every streaming result.
func (t *CloudSpeechTranscriber) init(ctx context.Context) error {
	t.initOnce.Do(func() {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			CredentialsJSON: []byte(t.credentialsJSON),
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		if err != nil {
			t.initErr = fmt.Errorf("detect credentials: %w", err)
			return
		}

		opts := []option.ClientOption{
			option.WithAuthCredentials(creds),
		}
		if t.location != "global" {
			opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.location, speechAPIEndpointPort)))
		}

		client, err := speech.NewClient(ctx, opts...)
		if err != nil {
			t.initErr = fmt.Errorf("create speech client: %w", err)
			return
		}
		t.client = client
		slog.Info("cloud speech client initialized", "location", t.location, "model", t.model)
	})
	return t.initErr
}

func (t *CloudSpeechTranscriber) TranscribeAudio(ctx context.Context, audio []byte) (string, error) {
	if err := t.init(ctx); err != nil {
		return "", err
	}

	recognizer := fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location)
	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: recognizer,
		Config: &speechpb.RecognitionConfig{
			Model:         t.model,
			LanguageCodes: []string{t.language},
			DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
				AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
			},
			Features: &speechpb.RecognitionFeatures{},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: audio},
	})
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		text := strings.TrimSpace(result.GetAlternatives()[0].GetTranscript())
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
