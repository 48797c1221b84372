package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/domain"
	"github.com/satriahrh/aiden-server/domain/repositories"
)

const (
	defaultOpenAIBaseURL = "https://api.deepinfra.com/v1/openai"
	defaultOpenAIModel   = "mistralai/Mixtral-8x7B-Instruct-v0.1"
)

// OpenAIConfig configures chat completions through any OpenAI-compatible endpoint
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAIChat implements LargeLanguageModel with the chat completions API.
// The persona goes out as the system message and the transcript as the user message.
type OpenAIChat struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

var _ repositories.LargeLanguageModel = (*OpenAIChat)(nil)

// NewOpenAIChat creates a new chat completion client
func NewOpenAIChat(config OpenAIConfig, logger *zap.Logger) (*OpenAIChat, error) {
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
		model = defaultOpenAIModel
		logger.Debug("Using default chat model", zap.String("model", model))
	}

	return &OpenAIChat{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// Generate implements repositories.LargeLanguageModel
func (o *OpenAIChat) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
		{Role: openai.ChatMessageRoleUser, Content: prompt.User},
	}

	o.logger.Info("Sending chat completion", zap.String("model", o.model))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", repositories.ErrMalformedResponse)
	}

	reply := resp.Choices[0].Message.Content
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}

	o.logger.Info("Chat completion finished",
		zap.Int("replyChars", len(reply)),
		zap.Int("totalTokens", resp.Usage.TotalTokens))
	return reply, nil
}
