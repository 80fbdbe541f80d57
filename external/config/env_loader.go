package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/minutelab/minute/internal/config"
)

type envConfig struct {
	Env                        string `env:"ENV" envDefault:"production"`
	ListenAddr                 string `env:"LISTEN_ADDR" envDefault:":8080"`
	MaxConnections             int    `env:"MAX_CONNECTIONS" envDefault:"100"`
	CacheRoot                  string `env:"CACHE_ROOT"`
	SegmentDurationSec         int    `env:"SEGMENT_DURATION_SEC" envDefault:"300"`
	StreamOpusDecode           bool   `env:"STREAM_OPUS_DECODE" envDefault:"false"`
	DefaultTranscribeLanguage  string `env:"DEFAULT_TRANSCRIBE_LANGUAGE,required"`
	DatabaseURL                string `env:"DATABASE_URL,required"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON,required"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
	OpenAIAPIKey               string `env:"OPENAI_API_KEY"`
	SummaryModel               string `env:"SUMMARY_MODEL" envDefault:"gpt-4o-mini"`
	TranscriptWebhookURL       string `env:"TRANSCRIPT_WEBHOOK_URL"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cacheRoot := raw.CacheRoot
	if cacheRoot == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("CACHE_ROOT is not set and no user cache dir is available: %w", err)
		}
		cacheRoot = filepath.Join(base, "minute")
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		ListenAddr:                 raw.ListenAddr,
		MaxConnections:             raw.MaxConnections,
		CacheRoot:                  cacheRoot,
		SegmentDurationSec:         raw.SegmentDurationSec,
		StreamOpusDecode:           raw.StreamOpusDecode,
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
		DatabaseURL:                raw.DatabaseURL,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		OpenAIAPIKey:               raw.OpenAIAPIKey,
		SummaryModel:               raw.SummaryModel,
		TranscriptWebhookURL:       raw.TranscriptWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
