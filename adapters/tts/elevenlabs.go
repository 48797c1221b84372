package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM"   // Rachel voice
	defaultOutputFormat = "mp3_44100_128"          // MP3 so replies can be served as audio/mpeg
	defaultModelID      = "eleven_multilingual_v2" // Default model ID
	defaultStability    = 0.5                      // Default voice stability
	defaultClarity      = 0.75                     // Default voice clarity/similarity_boost
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter
// Required fields:
// - APIKey: Your Eleven Labs API key
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Eleven Labs API (default: "https://api.elevenlabs.io/v1")
// - VoiceID: The voice ID to use (default: "21m00Tcm4TlvDq8ikWAM" - Rachel voice)
// - ModelID: The model ID to use (default: "eleven_multilingual_v2")
// - OutputFormat: An mp3_* output format (default: "mp3_44100_128")
// - Stability: Voice stability value between 0 and 1 (default: 0.5)
// - Clarity: Voice clarity/similarity boost value between 0 and 1 (default: 0.75)
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	Stability    float64
	Clarity      float64
	HTTPClient   *http.Client
}

// ElevenLabsTTS implements TextToSpeech interface using Eleven Labs API
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	outputFormat string
	stability    float64
	clarity      float64
	httpClient   *http.Client
	logger       *zap.Logger
}

// Ensure ElevenLabsTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	VoiceSettings          ElevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	if config.Stability < 0 || config.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}
	if config.Clarity < 0 || config.Clarity > 1 {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	// replies are served as audio/mpeg
	if config.OutputFormat != "" && !strings.HasPrefix(config.OutputFormat, "mp3") {
		return fmt.Errorf("output format must be mp3, got %s", config.OutputFormat)
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}

	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
		logger.Debug("Using default voice ID", zap.String("voiceID", voiceID))
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
		logger.Debug("Using default model ID", zap.String("modelID", modelID))
	}

	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
	}

	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
	}

	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   strings.TrimRight(apiBaseURL, "/"),
		voiceID:      voiceID,
		modelID:      modelID,
		outputFormat: outputFormat,
		stability:    stability,
		clarity:      clarity,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// SynthesizeSpeech implements repositories.TextToSpeech. The caller owns the
// returned body and must close it.
func (e *ElevenLabsTTS) SynthesizeSpeech(ctx context.Context, text string) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	request := ElevenLabsRequest{
		Text:                   text,
		ModelID:                e.modelID,
		ApplyTextNormalization: "auto",
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s&enable_logging=false",
		e.apiBaseURL, e.voiceID, e.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	e.logger.Info("Converting text to speech",
		zap.Int("chars", len(text)),
		zap.String("voiceID", e.voiceID),
		zap.String("modelID", e.modelID))

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errorBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("eleven labs API returned error %d: %s", resp.StatusCode, string(errorBody))
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, repositories.ErrNoAudioStream
	}

	e.logger.Debug("Received audio stream",
		zap.String("contentType", resp.Header.Get("Content-Type")),
		zap.String("contentLength", resp.Header.Get("Content-Length")))

	return resp.Body, nil
}
