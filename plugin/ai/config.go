package ai

import (
	"errors"
	"time"

	"github.com/hrygo/signalwatch/internal/profile"
	"github.com/hrygo/signalwatch/plugin/ai/cache"
)

const (
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultModel         = "gpt-3.5-turbo"
	DefaultTemperature   = 0.2
	DefaultMaxRetries    = 3
	DefaultTimeout       = 30 * time.Second
	DefaultMaxConcurrent = 4
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxRetries  int
	// Timeout bounds a single enrichment, retries included.
	Timeout time.Duration
	// MaxConcurrent caps in-flight model calls.
	MaxConcurrent int64
	// AnswerCacheSize bounds how many model answers are remembered; negative disables it.
	AnswerCacheSize int
	AnswerCacheTTL  time.Duration
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled:         p.IsAIEnabled(),
		APIKey:          p.OpenAIAPIKey,
		BaseURL:         p.OpenAIBaseURL,
		Model:           p.AIModel,
		Temperature:     DefaultTemperature,
		MaxRetries:      DefaultMaxRetries,
		Timeout:         DefaultTimeout,
		MaxConcurrent:   DefaultMaxConcurrent,
		AnswerCacheSize: cache.DefaultCapacity,
		AnswerCacheTTL:  cache.DefaultTTL,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.APIKey == "" {
		return errors.New("OpenAI API key is required")
	}
	if c.Model == "" {
		return errors.New("model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("temperature must be between 0 and 2")
	}
	if c.MaxRetries < 1 {
		return errors.New("max retries must be at least 1")
	}
	if c.MaxConcurrent < 1 {
		return errors.New("max concurrent must be at least 1")
	}

	return nil
}
