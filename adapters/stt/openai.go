package stt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/domain/repositories"
)

const (
	defaultOpenAIBaseURL  = "https://api.deepinfra.com/v1/openai"
	defaultOpenAISTTModel = "openai/whisper-large-v3"
)

// OpenAIConfig configures transcription through any OpenAI-compatible endpoint.
// BaseURL defaults to DeepInfra's OpenAI-compatible API so the same key works.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAIWhisper implements SpeechToText with the audio transcription API
type OpenAIWhisper struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*OpenAIWhisper)(nil)

// NewOpenAIWhisper creates a new OpenAI-compatible transcription client
func NewOpenAIWhisper(config OpenAIConfig, logger *zap.Logger) (*OpenAIWhisper, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = defaultOpenAIBaseURL
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	if config.HTTPClient != nil {
		clientConfig.HTTPClient = config.HTTPClient
	}

	model := config.Model
	if model == "" {
		model = defaultOpenAISTTModel
		logger.Debug("Using default transcription model", zap.String("model", model))
	}

	return &OpenAIWhisper{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// TranscribeFile sends the file to the transcription endpoint
func (o *OpenAIWhisper) TranscribeFile(ctx context.Context, path string) (string, error) {
	o.logger.Info("Sending audio for transcription", zap.String("model", o.model))

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("no speech detected in audio")
	}

	o.logger.Info("Transcription completed", zap.Int("chars", len(resp.Text)))
	return resp.Text, nil
}
