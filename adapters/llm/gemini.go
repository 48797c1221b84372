package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/aiden-server/domain"
	"github.com/satriahrh/aiden-server/domain/repositories"
)

const (
	defaultGeminiModel       = "gemini-2.0-flash"
	defaultGeminiTemperature = 0.7
	defaultGeminiMaxTokens   = 1024
)

// GeminiConfig holds configuration for the Gemini adapter
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     float32
	MaxOutputTokens int
	HTTPClient      *http.Client
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}
	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}
	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens must be positive, got %d", config.MaxOutputTokens)
	}
	return nil
}

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	maxOutputTokens int
}

var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: config.HTTPClient,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Debug("Using default model", zap.String("model", model))
	}
	temperature := config.Temperature
	if temperature == 0 {
		temperature = defaultGeminiTemperature
	}
	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultGeminiMaxTokens
	}

	return &GeminiLLM{
		client:          client,
		logger:          logger,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
	}, nil
}

// Generate sends the transcript with the persona as system instruction
func (g *GeminiLLM) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   int32(g.maxOutputTokens),
	}

	g.logger.Info("Sending prompt to Gemini", zap.String("model", g.model))

	response, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.User), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates", repositories.ErrMalformedResponse)
	}

	var reply strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			reply.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(reply.String()) == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}

	g.logger.Info("Gemini reply received", zap.Int("replyChars", reply.Len()))
	return reply.String(), nil
}
