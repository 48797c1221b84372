package tts

import (
	"bytes"
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/domain/repositories"
)

// MockTextToSpeech is a placeholder implementation for text-to-speech
type MockTextToSpeech struct {
	logger *zap.Logger
}

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(logger *zap.Logger) repositories.TextToSpeech {
	return &MockTextToSpeech{
		logger: logger,
	}
}

// SynthesizeSpeech implements repositories.TextToSpeech
func (t *MockTextToSpeech) SynthesizeSpeech(ctx context.Context, text string) (io.ReadCloser, error) {
	t.logger.Info("Processing mock text-to-speech", zap.Int("chars", len(text)))

	// Mock audio data - an ID3 tag followed by a pattern sized by the text
	mockAudio := make([]byte, 0, 3+len(text)*100)
	mockAudio = append(mockAudio, 'I', 'D', '3')
	for i := 0; i < len(text)*100; i++ {
		mockAudio = append(mockAudio, byte(i%256))
	}

	return io.NopCloser(bytes.NewReader(mockAudio)), nil
}
