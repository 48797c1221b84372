package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/domain/repositories"
)

const (
	defaultPollyRegion       = "us-east-1"
	defaultPollyVoiceID      = types.VoiceIdRuth
	defaultPollyEngine       = types.EngineLongForm
	defaultPollyLanguageCode = types.LanguageCodeEnUs
)

// PollyConfig holds configuration for the PollyTTS adapter
// Required fields:
// - AccessKeyID, SecretAccessKey: static AWS credentials
// Optional fields with defaults:
// - Region: AWS region (default: "us-east-1")
// - VoiceID: Polly voice (default: "Ruth")
// - Engine: synthesis engine (default: "long-form")
// - LanguageCode: voice language (default: "en-US")
// - Endpoint: override the service endpoint
type PollyConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	VoiceID         string
	Engine          string
	LanguageCode    string
	Endpoint        string
	HTTPClient      *http.Client
}

// SynthesizeSpeechAPI is the slice of the Polly client the adapter needs
type SynthesizeSpeechAPI interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollyTTS implements TextToSpeech using Amazon Polly, always producing MP3
type PollyTTS struct {
	client       SynthesizeSpeechAPI
	voiceID      types.VoiceId
	engine       types.Engine
	languageCode types.LanguageCode
	logger       *zap.Logger
}

// Ensure PollyTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*PollyTTS)(nil)

// ValidatePollyConfig validates the PollyConfig
func ValidatePollyConfig(config PollyConfig) error {
	if config.AccessKeyID == "" || config.SecretAccessKey == "" {
		return fmt.Errorf("AWS access key ID and secret access key are required")
	}
	if config.Engine != "" && !slices.Contains(types.Engine("").Values(), types.Engine(config.Engine)) {
		return fmt.Errorf("unsupported polly engine: %s", config.Engine)
	}
	if config.VoiceID != "" && !slices.Contains(types.VoiceId("").Values(), types.VoiceId(config.VoiceID)) {
		return fmt.Errorf("unsupported polly voice: %s", config.VoiceID)
	}
	if config.LanguageCode != "" && !slices.Contains(types.LanguageCode("").Values(), types.LanguageCode(config.LanguageCode)) {
		return fmt.Errorf("unsupported polly language code: %s", config.LanguageCode)
	}
	return nil
}

// NewPollyTTS creates a Polly client authenticated with static credentials
func NewPollyTTS(config PollyConfig, logger *zap.Logger) (*PollyTTS, error) {
	if err := ValidatePollyConfig(config); err != nil {
		return nil, err
	}

	region := config.Region
	if region == "" {
		region = defaultPollyRegion
	}

	options := polly.Options{
		Region: region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		),
		// a failed synthesis fails the request; the SDK must not resend it
		Retryer: aws.NopRetryer{},
	}
	if config.Endpoint != "" {
		options.BaseEndpoint = aws.String(config.Endpoint)
	}
	if config.HTTPClient != nil {
		options.HTTPClient = config.HTTPClient
	}

	return NewPollyTTSWithClient(polly.New(options), config, logger), nil
}

// NewPollyTTSWithClient wires an existing Polly client; credential fields in config are ignored
func NewPollyTTSWithClient(client SynthesizeSpeechAPI, config PollyConfig, logger *zap.Logger) *PollyTTS {
	voiceID := defaultPollyVoiceID
	if config.VoiceID != "" {
		voiceID = types.VoiceId(config.VoiceID)
	}
	engine := defaultPollyEngine
	if config.Engine != "" {
		engine = types.Engine(config.Engine)
	}
	languageCode := defaultPollyLanguageCode
	if config.LanguageCode != "" {
		languageCode = types.LanguageCode(config.LanguageCode)
	}

	return &PollyTTS{
		client:       client,
		voiceID:      voiceID,
		engine:       engine,
		languageCode: languageCode,
		logger:       logger,
	}
}

// SynthesizeSpeech converts text to an MP3 stream
func (p *PollyTTS) SynthesizeSpeech(ctx context.Context, text string) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	p.logger.Info("Converting text to speech",
		zap.Int("chars", len(text)),
		zap.String("voiceID", string(p.voiceID)),
		zap.String("engine", string(p.engine)))

	out, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       p.engine,
		LanguageCode: p.languageCode,
		OutputFormat: types.OutputFormatMp3,
		Text:         aws.String(text),
		TextType:     types.TextTypeText,
		VoiceId:      p.voiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("polly synthesize speech failed: %w", err)
	}
	if out == nil || out.AudioStream == nil {
		return nil, repositories.ErrNoAudioStream
	}

	p.logger.Info("Received audio stream from Polly",
		zap.String("contentType", aws.ToString(out.ContentType)),
		zap.Int32("requestCharacters", out.RequestCharacters))

	return out.AudioStream, nil
}
