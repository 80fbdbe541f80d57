package config

import (
	"fmt"
)

type Config struct {
	Env                        string
	ListenAddr                 string
	MaxConnections             int
	CacheRoot                  string
	SegmentDurationSec         int
	StreamOpusDecode           bool
	DefaultTranscribeLanguage  string
	DatabaseURL                string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	OpenAIAPIKey               string
	SummaryModel               string
	TranscriptWebhookURL       string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("MAX_CONNECTIONS must be positive, got %d", c.MaxConnections)
	}
	if c.SegmentDurationSec < 0 {
		return fmt.Errorf("SEGMENT_DURATION_SEC must not be negative, got %d", c.SegmentDurationSec)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "LISTEN_ADDR", value: c.ListenAddr},
		{name: "CACHE_ROOT", value: c.CacheRoot},
		{name: "DEFAULT_TRANSCRIBE_LANGUAGE", value: c.DefaultTranscribeLanguage},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
	}
}

// SummaryEnabled reports whether a summarization provider is configured.
func (c *Config) SummaryEnabled() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
