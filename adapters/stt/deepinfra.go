package stt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/domain/repositories"
)

const (
	defaultDeepInfraBaseURL = "https://api.deepinfra.com"
	defaultWhisperModel     = "openai/whisper-medium.en"
	audioFormField          = "audio"
)

// DeepInfraConfig holds configuration for the DeepInfraWhisper adapter
// Required fields:
// - APIKey: DeepInfra bearer token
// Optional fields with defaults:
// - BaseURL: API root (default: "https://api.deepinfra.com")
// - Model: inference model path (default: "openai/whisper-medium.en")
// - HTTPClient: client used for requests (default: http.DefaultClient)
type DeepInfraConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// DeepInfraWhisper implements SpeechToText on DeepInfra's inference API
type DeepInfraWhisper struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.SpeechToText = (*DeepInfraWhisper)(nil)

// whisperResponse is the subset of the inference reply we rely on.
// Text is a pointer so a missing field can be told apart from an empty one.
type whisperResponse struct {
	Text *string `json:"text"`
}

// NewDeepInfraWhisper creates a new DeepInfra transcription client
func NewDeepInfraWhisper(config DeepInfraConfig, logger *zap.Logger) (*DeepInfraWhisper, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("deepinfra API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultDeepInfraBaseURL
	}
	model := config.Model
	if model == "" {
		model = defaultWhisperModel
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &DeepInfraWhisper{
		apiKey:     config.APIKey,
		endpoint:   strings.TrimRight(baseURL, "/") + "/v1/inference/" + model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// TranscribeFile uploads the audio file as multipart form data and returns the transcript
func (d *DeepInfraWhisper) TranscribeFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat audio file: %w", err)
	}

	body, contentType, err := multipartBody(f, filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to encode audio upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", contentType)

	d.logger.Info("Sending audio for transcription",
		zap.String("endpoint", d.endpoint),
		zap.String("size", humanize.Bytes(uint64(info.Size()))))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcription response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcription API returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed whisperResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", repositories.ErrMalformedResponse, err)
	}
	if parsed.Text == nil {
		return "", fmt.Errorf("%w: missing text field", repositories.ErrMalformedResponse)
	}
	text := *parsed.Text
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no speech detected in audio")
	}

	d.logger.Info("Transcription completed", zap.Int("chars", len(text)))
	return text, nil
}

// multipartBody encodes the file as form field "audio"
func multipartBody(r io.Reader, filename string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	part, err := mw.CreateFormFile(audioFormField, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return body, mw.FormDataContentType(), nil
}
