package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by the *_PROVIDER variables
const (
	ProviderDeepInfra = "deepinfra"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderPolly     = "polly"
	ProviderEleven    = "elevenlabs"
	ProviderMock      = "mock"
)

const (
	defaultPort            = "8000"
	defaultWorkDir         = "audio"
	defaultPipelineTimeout = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultRunHistorySize  = 100
)

// Config holds the server configuration read from the environment
type Config struct {
	Port            string
	WorkDir         string
	PipelineTimeout time.Duration
	ShutdownTimeout time.Duration
	RunHistorySize  int
	Debug           bool

	Providers Providers
}

// Providers selects and tunes the upstream services
type Providers struct {
	STT string
	LLM string
	TTS string

	DeepInfraBaseURL  string
	DeepInfraSTTModel string
	DeepInfraLLMModel string

	OpenAIBaseURL  string
	OpenAISTTModel string
	OpenAILLMModel string

	GeminiModel string

	PollyRegion       string
	PollyVoiceID      string
	PollyEngine       string
	PollyLanguageCode string

	ElevenLabsBaseURL string
	ElevenLabsVoiceID string
	ElevenLabsModelID string
}

// Load reads the configuration from environment variables.
// Unset values fall back to defaults; malformed values are an error.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnv("PORT", defaultPort),
		WorkDir: getEnv("AUDIO_WORKDIR", defaultWorkDir),
		Debug:   strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") || os.Getenv("APP_ENV") == "development",
		Providers: Providers{
			STT:               strings.ToLower(getEnv("STT_PROVIDER", ProviderDeepInfra)),
			LLM:               strings.ToLower(getEnv("LLM_PROVIDER", ProviderDeepInfra)),
			TTS:               strings.ToLower(getEnv("TTS_PROVIDER", ProviderPolly)),
			DeepInfraBaseURL:  os.Getenv("DEEPINFRA_BASE_URL"),
			DeepInfraSTTModel: os.Getenv("DEEPINFRA_STT_MODEL"),
			DeepInfraLLMModel: os.Getenv("DEEPINFRA_LLM_MODEL"),
			OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
			OpenAISTTModel:    os.Getenv("OPENAI_STT_MODEL"),
			OpenAILLMModel:    os.Getenv("OPENAI_LLM_MODEL"),
			GeminiModel:       os.Getenv("GEMINI_MODEL"),
			PollyRegion:       os.Getenv("POLLY_REGION"),
			PollyVoiceID:      os.Getenv("POLLY_VOICE_ID"),
			PollyEngine:       os.Getenv("POLLY_ENGINE"),
			PollyLanguageCode: os.Getenv("POLLY_LANGUAGE_CODE"),
			ElevenLabsBaseURL: os.Getenv("ELEVEN_LABS_API_BASE_URL"),
			ElevenLabsVoiceID: os.Getenv("ELEVEN_LABS_VOICE_ID"),
			ElevenLabsModelID: os.Getenv("ELEVEN_LABS_MODEL_ID"),
		},
	}

	var err error
	if cfg.PipelineTimeout, err = getDuration("PIPELINE_TIMEOUT", defaultPipelineTimeout); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.RunHistorySize, err = getInt("RUN_HISTORY_SIZE", defaultRunHistorySize); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks provider names and numeric bounds
func (c *Config) Validate() error {
	if c.WorkDir == "" {
		return errors.New("AUDIO_WORKDIR cannot be empty")
	}
	if c.PipelineTimeout <= 0 {
		return fmt.Errorf("PIPELINE_TIMEOUT must be positive, got %s", c.PipelineTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	if c.RunHistorySize < 0 {
		return fmt.Errorf("RUN_HISTORY_SIZE must not be negative, got %d", c.RunHistorySize)
	}

	switch c.Providers.STT {
	case ProviderDeepInfra, ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("unsupported STT_PROVIDER: %q", c.Providers.STT)
	}
	switch c.Providers.LLM {
	case ProviderDeepInfra, ProviderOpenAI, ProviderGemini, ProviderMock:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %q", c.Providers.LLM)
	}
	switch c.Providers.TTS {
	case ProviderPolly, ProviderEleven, ProviderMock:
	default:
		return fmt.Errorf("unsupported TTS_PROVIDER: %q", c.Providers.TTS)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
