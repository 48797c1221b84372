package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/domain"
	"github.com/satriahrh/aiden-server/domain/repositories"
)

const (
	defaultDeepInfraBaseURL = "https://api.deepinfra.com"
	defaultInferenceModel   = "mistralai/Mixtral-8x7B-Instruct-v0.1"
)

// DeepInfraConfig holds configuration for the DeepInfraInference adapter
// Required fields:
// - APIKey: DeepInfra bearer token
// Optional fields with defaults:
// - BaseURL: API root (default: "https://api.deepinfra.com")
// - Model: inference model path (default: "mistralai/Mixtral-8x7B-Instruct-v0.1")
type DeepInfraConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// DeepInfraInference implements LargeLanguageModel on DeepInfra's raw text inference API
type DeepInfraInference struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.LargeLanguageModel = (*DeepInfraInference)(nil)

type inferenceRequest struct {
	Input string `json:"input"`
}

type inferenceResponse struct {
	Results []struct {
		GeneratedText *string `json:"generated_text"`
	} `json:"results"`
}

// NewDeepInfraInference creates a new DeepInfra inference client
func NewDeepInfraInference(config DeepInfraConfig, logger *zap.Logger) (*DeepInfraInference, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("deepinfra API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultDeepInfraBaseURL
	}
	model := config.Model
	if model == "" {
		model = defaultInferenceModel
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &DeepInfraInference{
		apiKey:     config.APIKey,
		endpoint:   strings.TrimRight(baseURL, "/") + "/v1/inference/" + model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Generate sends the prompt rendered in instruct format and returns the first result
func (d *DeepInfraInference) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	requestBody, err := json.Marshal(inferenceRequest{Input: prompt.Instruct()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	d.logger.Info("Sending prompt for inference",
		zap.String("endpoint", d.endpoint),
		zap.Int("promptChars", len(prompt.User)))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read inference response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("inference API returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed inferenceResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", repositories.ErrMalformedResponse, err)
	}
	if len(parsed.Results) == 0 {
		return "", fmt.Errorf("%w: empty results", repositories.ErrMalformedResponse)
	}
	generated := parsed.Results[0].GeneratedText
	if generated == nil {
		return "", fmt.Errorf("%w: missing generated_text", repositories.ErrMalformedResponse)
	}
	if strings.TrimSpace(*generated) == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}

	d.logger.Info("Inference completed", zap.Int("replyChars", len(*generated)))
	return *generated, nil
}
