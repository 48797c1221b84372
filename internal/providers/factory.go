package providers

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/adapters/llm"
	"github.com/satriahrh/aiden-server/adapters/stt"
	"github.com/satriahrh/aiden-server/adapters/tts"
	"github.com/satriahrh/aiden-server/domain/repositories"
	"github.com/satriahrh/aiden-server/internal/config"
)

// Set is one request's worth of upstream clients
type Set struct {
	SpeechToText repositories.SpeechToText
	LLM          repositories.LargeLanguageModel
	TextToSpeech repositories.TextToSpeech
}

// Builder constructs a provider set from request-time credentials
type Builder interface {
	Build(ctx context.Context, creds config.Credentials) (*Set, error)
}

// Factory builds providers according to the configured provider names.
// Every backend shares one HTTP client so connections are pooled across requests.
type Factory struct {
	cfg        config.Providers
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Builder = (*Factory)(nil)

// NewFactory creates a new provider factory
func NewFactory(cfg config.Providers, httpClient *http.Client, logger *zap.Logger) *Factory {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Factory{cfg: cfg, httpClient: httpClient, logger: logger}
}

// Build implements Builder
func (f *Factory) Build(ctx context.Context, creds config.Credentials) (*Set, error) {
	speechToText, err := f.buildSpeechToText(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s speech-to-text: %w", f.cfg.STT, err)
	}
	model, err := f.buildLLM(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s language model: %w", f.cfg.LLM, err)
	}
	textToSpeech, err := f.buildTextToSpeech(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s text-to-speech: %w", f.cfg.TTS, err)
	}

	return &Set{
		SpeechToText: speechToText,
		LLM:          model,
		TextToSpeech: textToSpeech,
	}, nil
}

func (f *Factory) buildSpeechToText(creds config.Credentials) (repositories.SpeechToText, error) {
	logger := f.logger.Named("stt")
	switch f.cfg.STT {
	case config.ProviderDeepInfra:
		return stt.NewDeepInfraWhisper(stt.DeepInfraConfig{
			APIKey:     creds.DeepInfraKey,
			BaseURL:    f.cfg.DeepInfraBaseURL,
			Model:      f.cfg.DeepInfraSTTModel,
			HTTPClient: f.httpClient,
		}, logger)
	case config.ProviderOpenAI:
		return stt.NewOpenAIWhisper(stt.OpenAIConfig{
			APIKey:     creds.DeepInfraKey,
			BaseURL:    f.cfg.OpenAIBaseURL,
			Model:      f.cfg.OpenAISTTModel,
			HTTPClient: f.httpClient,
		}, logger)
	case config.ProviderMock:
		return stt.NewMockSpeechToText(logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", f.cfg.STT)
	}
}

func (f *Factory) buildLLM(ctx context.Context, creds config.Credentials) (repositories.LargeLanguageModel, error) {
	logger := f.logger.Named("llm")
	switch f.cfg.LLM {
	case config.ProviderDeepInfra:
		return llm.NewDeepInfraInference(llm.DeepInfraConfig{
			APIKey:     creds.DeepInfraKey,
			BaseURL:    f.cfg.DeepInfraBaseURL,
			Model:      f.cfg.DeepInfraLLMModel,
			HTTPClient: f.httpClient,
		}, logger)
	case config.ProviderOpenAI:
		return llm.NewOpenAIChat(llm.OpenAIConfig{
			APIKey:     creds.DeepInfraKey,
			BaseURL:    f.cfg.OpenAIBaseURL,
			Model:      f.cfg.OpenAILLMModel,
			HTTPClient: f.httpClient,
		}, logger)
	case config.ProviderGemini:
		return llm.NewGeminiLLM(ctx, llm.GeminiConfig{
			APIKey:     creds.GeminiAPIKey,
			Model:      f.cfg.GeminiModel,
			HTTPClient: f.httpClient,
		}, logger)
	case config.ProviderMock:
		return llm.NewMockLLM(), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", f.cfg.LLM)
	}
}

func (f *Factory) buildTextToSpeech(creds config.Credentials) (repositories.TextToSpeech, error) {
	logger := f.logger.Named("tts")
	switch f.cfg.TTS {
	case config.ProviderPolly:
		return tts.NewPollyTTS(tts.PollyConfig{
			AccessKeyID:     creds.AWSAccessKey,
			SecretAccessKey: creds.AWSSecretKey,
			Region:          f.cfg.PollyRegion,
			VoiceID:         f.cfg.PollyVoiceID,
			Engine:          f.cfg.PollyEngine,
			LanguageCode:    f.cfg.PollyLanguageCode,
			HTTPClient:      f.httpClient,
		}, logger)
	case config.ProviderEleven:
		return tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:     creds.ElevenLabsKey,
			APIBaseURL: f.cfg.ElevenLabsBaseURL,
			VoiceID:    f.cfg.ElevenLabsVoiceID,
			ModelID:    f.cfg.ElevenLabsModelID,
			HTTPClient: f.httpClient,
		}, logger)
	case config.ProviderMock:
		return tts.NewMockTextToSpeech(logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", f.cfg.TTS)
	}
}
